package notifications

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/memberkit/memberkit/pkg/logger"
)

// RecipientRef addresses one delivery target in a Record call: a namespace
// tag plus a loosely-typed identifier resolved before fan-out.
type RecipientRef struct {
	Namespace Namespace `json:"namespace"`
	ID        any       `json:"id"`
}

// Member and User build namespace-tagged recipient references for Record.
func Member(id any) RecipientRef { return RecipientRef{Namespace: NamespaceMember, ID: id} }
func User(id any) RecipientRef   { return RecipientRef{Namespace: NamespaceUser, ID: id} }

// FeedPage is one page of a target's feed plus the normalized pagination
// window actually applied, so callers can continue without re-deriving
// defaults.
type FeedPage struct {
	Items  []FeedItem `json:"items"`
	Limit  int        `json:"limit"`
	Offset int        `json:"offset"`
	Order  Order      `json:"order"`
}

// Manager is the single entry point collaborating subsystems call. It
// resolves loosely-typed identifiers, routes to the injected storage and
// translates invalid input into structured errors instead of panicking.
type Manager struct {
	storage Storage
	logger  *slog.Logger
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithManagerLogger sets the logger for the Manager.
func WithManagerLogger(log *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if log != nil {
			m.logger = log
		}
	}
}

// NewManager creates a notification manager backed by the given storage.
func NewManager(storage Storage, opts ...ManagerOption) *Manager {
	m := &Manager{
		storage: storage,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Record creates one notification and fans it out to every resolvable
// recipient, atomically. Unresolvable entries are skipped; the call fails
// with ErrInvalidInput only when the list is empty or nothing resolves.
func (m *Manager) Record(ctx context.Context, data map[string]any, recipients []RecipientRef) (RecordResult, error) {
	if len(recipients) == 0 {
		return RecordResult{}, errors.Join(ErrInvalidInput, errors.New("recipients list is empty"))
	}

	targets := make([]Target, 0, len(recipients))
	for _, ref := range recipients {
		if !ref.Namespace.Valid() {
			m.logger.LogAttrs(ctx, slog.LevelDebug, "Skipping recipient with unknown namespace",
				slog.String("namespace", string(ref.Namespace)),
			)
			continue
		}
		id, err := ResolveID(ref.ID)
		if err != nil {
			m.logger.LogAttrs(ctx, slog.LevelDebug, "Skipping unresolvable recipient",
				slog.String("namespace", string(ref.Namespace)),
				logger.Error(err),
			)
			continue
		}
		targets = append(targets, Target{Namespace: ref.Namespace, ID: id})
	}
	if len(targets) == 0 {
		return RecordResult{}, errors.Join(ErrInvalidInput, errors.New("no resolvable recipients"))
	}

	res, err := m.storage.Record(ctx, data, targets)
	if err != nil {
		if !errors.Is(err, ErrInvalidInput) {
			err = wrapPersistence(err)
		}
		m.logger.LogAttrs(ctx, slog.LevelWarn, "Failed to record notification",
			slog.Int("recipient_count", len(targets)),
			logger.Error(err),
		)
		return RecordResult{}, err
	}
	return res, nil
}

// GetMemberFeed returns one page of the member's notification feed.
func (m *Manager) GetMemberFeed(ctx context.Context, memberID any, opts FeedOptions) (FeedPage, error) {
	return m.feed(ctx, NamespaceMember, memberID, opts)
}

// GetUserFeed returns one page of the user's notification feed.
func (m *Manager) GetUserFeed(ctx context.Context, userID any, opts FeedOptions) (FeedPage, error) {
	return m.feed(ctx, NamespaceUser, userID, opts)
}

func (m *Manager) feed(ctx context.Context, ns Namespace, rawID any, opts FeedOptions) (FeedPage, error) {
	id, err := ResolveID(rawID)
	if err != nil {
		return FeedPage{}, err
	}
	opts = opts.normalize()
	items, err := m.storage.Feed(ctx, ns, id, opts)
	if err != nil {
		return FeedPage{}, wrapPersistence(err)
	}
	if items == nil {
		items = []FeedItem{}
	}
	return FeedPage{Items: items, Limit: opts.Limit, Offset: opts.Offset, Order: opts.Order}, nil
}

// MarkMemberNotificationsRead idempotently marks the member's unread rows as
// read, restricted to notificationIDs when non-empty. A zero asOf means now.
// Returns the number of rows actually transitioned.
func (m *Manager) MarkMemberNotificationsRead(ctx context.Context, memberID any, notificationIDs []int64, asOf time.Time) (int64, error) {
	return m.markRead(ctx, NamespaceMember, memberID, notificationIDs, asOf)
}

// MarkUserNotificationsRead is the user-namespace counterpart of
// MarkMemberNotificationsRead.
func (m *Manager) MarkUserNotificationsRead(ctx context.Context, userID any, notificationIDs []int64, asOf time.Time) (int64, error) {
	return m.markRead(ctx, NamespaceUser, userID, notificationIDs, asOf)
}

func (m *Manager) markRead(ctx context.Context, ns Namespace, rawID any, notificationIDs []int64, asOf time.Time) (int64, error) {
	id, err := ResolveID(rawID)
	if err != nil {
		return 0, err
	}
	n, err := m.storage.MarkRead(ctx, ns, id, notificationIDs, asOf)
	if err != nil {
		return 0, wrapPersistence(err)
	}
	return n, nil
}

// MarkRecipientStatus overwrites the status of the listed recipient rows.
// Row ids are pre-scoped by the caller; rows may span notifications and the
// write carries no namespace check. Unknown ids are skipped silently.
func (m *Manager) MarkRecipientStatus(ctx context.Context, recipientIDs []int64, status string, asOf time.Time) (int64, error) {
	if status == "" {
		return 0, errors.Join(ErrInvalidInput, errors.New("status is empty"))
	}
	if len(recipientIDs) == 0 {
		return 0, errors.Join(ErrInvalidInput, errors.New("recipient id list is empty"))
	}
	n, err := m.storage.MarkStatus(ctx, recipientIDs, status, asOf)
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			return 0, err
		}
		return 0, wrapPersistence(err)
	}
	return n, nil
}

// GetMemberUnreadCount returns the member's live unread counter.
func (m *Manager) GetMemberUnreadCount(ctx context.Context, memberID any) (int, error) {
	return m.countUnread(ctx, NamespaceMember, memberID, CountOptions{})
}

// GetUserUnreadCount returns the user's live unread counter, optionally
// narrowed by the feed's category filter.
func (m *Manager) GetUserUnreadCount(ctx context.Context, userID any, opts CountOptions) (int, error) {
	return m.countUnread(ctx, NamespaceUser, userID, opts)
}

func (m *Manager) countUnread(ctx context.Context, ns Namespace, rawID any, opts CountOptions) (int, error) {
	id, err := ResolveID(rawID)
	if err != nil {
		return 0, err
	}
	n, err := m.storage.CountUnread(ctx, ns, id, opts)
	if err != nil {
		return 0, wrapPersistence(err)
	}
	return n, nil
}

// Storage returns the underlying notification storage.
func (m *Manager) Storage() Storage {
	return m.storage
}

func wrapPersistence(err error) error {
	if errors.Is(err, ErrPersistenceFailure) {
		return err
	}
	return errors.Join(ErrPersistenceFailure, err)
}
