package notifications

import (
	"context"
	"time"
)

// Target is a resolved recipient address: a validated positive identifier
// within one namespace.
type Target struct {
	Namespace Namespace `json:"namespace"`
	ID        int64     `json:"id"`
}

// RecordResult reports a successful fan-out: the new notification id and one
// recipient row id per distinct target, in fan-out order.
type RecordResult struct {
	NotificationID int64   `json:"notification_id"`
	RecipientIDs   []int64 `json:"recipient_ids"`
}

// Storage handles notification persistence, fan-out, read-state tracking and
// feed queries. Implementations must make Record atomic (the notification and
// all its recipient rows become visible together or not at all) and must
// enforce MarkRead's "still unread" guard at the same granularity as the
// write, so concurrent status writes compose in some serial order.
type Storage interface {
	// Record creates one notification plus one unread recipient row per
	// deduplicated target. targets must be non-empty and pre-resolved.
	Record(ctx context.Context, data map[string]any, targets []Target) (RecordResult, error)

	// Feed returns the target's recipient rows joined to their notifications,
	// filtered, ordered and paginated per opts.
	Feed(ctx context.Context, ns Namespace, targetID int64, opts FeedOptions) ([]FeedItem, error)

	// MarkRead idempotently transitions the target's still-unread rows to
	// read, restricted to notificationIDs when non-empty. Rows already read
	// or in a custom status are left untouched. Returns the number of rows
	// actually transitioned. A zero asOf means now.
	MarkRead(ctx context.Context, ns Namespace, targetID int64, notificationIDs []int64, asOf time.Time) (int64, error)

	// MarkStatus unconditionally overwrites status and status_changed_at for
	// every listed recipient row that exists; unknown ids are skipped.
	// Returns the number of rows updated. A zero asOf means now.
	MarkStatus(ctx context.Context, recipientIDs []int64, status string, asOf time.Time) (int64, error)

	// CountUnread returns the live number of unread rows for the target,
	// optionally narrowed by category.
	CountUnread(ctx context.Context, ns Namespace, targetID int64, opts CountOptions) (int, error)
}

// dedupeTargets keeps the first occurrence of each (namespace, id) pair,
// preserving input order. Every storage backend applies it so one Record call
// never produces two rows for the same target.
func dedupeTargets(targets []Target) []Target {
	seen := make(map[Target]struct{}, len(targets))
	out := make([]Target, 0, len(targets))
	for _, t := range targets {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// resolveAsOf substitutes the current time for a zero status timestamp so all
// rows touched by one call share a single value.
func resolveAsOf(asOf time.Time) time.Time {
	if asOf.IsZero() {
		return time.Now().UTC()
	}
	return asOf
}
