package notifications

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStorage is the production Storage implementation backed by
// PostgreSQL via pgx. Record runs inside a transaction so a concurrent feed
// read never observes a notification with a partial recipient set, and
// status writes carry their guard in the UPDATE predicate so the check and
// the write are one atomic step.
//
// Schema is installed by the goose migrations under migrations/.
type PostgresStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresStorage creates a Postgres-backed notification store on an
// existing connection pool.
func NewPostgresStorage(pool *pgxpool.Pool) *PostgresStorage {
	return &PostgresStorage{pool: pool}
}

func (s *PostgresStorage) Record(ctx context.Context, data map[string]any, targets []Target) (RecordResult, error) {
	targets = dedupeTargets(targets)
	if len(targets) == 0 {
		return RecordResult{}, errors.Join(ErrInvalidInput, errors.New("no recipients"))
	}
	if data == nil {
		data = map[string]any{}
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return RecordResult{}, errors.Join(ErrPersistenceFailure, err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	var res RecordResult
	err = tx.QueryRow(ctx,
		`INSERT INTO notifications (data) VALUES ($1) RETURNING id`,
		data,
	).Scan(&res.NotificationID)
	if err != nil {
		return RecordResult{}, errors.Join(ErrPersistenceFailure, err)
	}

	res.RecipientIDs = make([]int64, 0, len(targets))
	for _, t := range targets {
		var rid int64
		err = tx.QueryRow(ctx,
			`INSERT INTO notification_recipients (notification_id, namespace, target_id, status)
			 VALUES ($1, $2, $3, $4) RETURNING id`,
			res.NotificationID, string(t.Namespace), t.ID, StatusUnread,
		).Scan(&rid)
		if err != nil {
			return RecordResult{}, errors.Join(ErrPersistenceFailure, err)
		}
		res.RecipientIDs = append(res.RecipientIDs, rid)
	}

	if err := tx.Commit(ctx); err != nil {
		return RecordResult{}, errors.Join(ErrPersistenceFailure, err)
	}
	return res, nil
}

func (s *PostgresStorage) Feed(ctx context.Context, ns Namespace, targetID int64, opts FeedOptions) ([]FeedItem, error) {
	opts = opts.normalize()

	var sb strings.Builder
	sb.WriteString(`SELECT n.id, r.id, n.data, r.status, n.created_at, r.status_changed_at
		FROM notification_recipients r
		JOIN notifications n ON n.id = r.notification_id
		WHERE r.namespace = $1 AND r.target_id = $2`)
	args := []any{string(ns), targetID}

	if opts.Status != "" {
		args = append(args, opts.Status)
		fmt.Fprintf(&sb, " AND r.status = $%d", len(args))
	}
	if opts.Type != "" {
		args = append(args, opts.Type)
		fmt.Fprintf(&sb, " AND n.data->>'type' = $%d", len(args))
	}
	if opts.Since != nil {
		args = append(args, *opts.Since)
		fmt.Fprintf(&sb, " AND n.created_at >= $%d", len(args))
	}
	if opts.Before != nil {
		args = append(args, *opts.Before)
		fmt.Fprintf(&sb, " AND n.created_at < $%d", len(args))
	}

	// Oldest-first is the exact reverse of the newest-first total order so
	// paging in either direction walks the same sequence.
	dir := "DESC"
	if opts.Order == OrderOldestFirst {
		dir = "ASC"
	}
	fmt.Fprintf(&sb, " ORDER BY n.created_at %s, n.id %s", dir, dir)
	args = append(args, opts.Limit)
	fmt.Fprintf(&sb, " LIMIT $%d", len(args))
	args = append(args, opts.Offset)
	fmt.Fprintf(&sb, " OFFSET $%d", len(args))

	rows, err := s.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, errors.Join(ErrPersistenceFailure, err)
	}
	defer rows.Close()

	items := []FeedItem{}
	for rows.Next() {
		var item FeedItem
		if err := rows.Scan(
			&item.NotificationID,
			&item.RecipientID,
			&item.Data,
			&item.Status,
			&item.CreatedAt,
			&item.StatusChangedAt,
		); err != nil {
			return nil, errors.Join(ErrPersistenceFailure, err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Join(ErrPersistenceFailure, err)
	}
	return items, nil
}

func (s *PostgresStorage) MarkRead(ctx context.Context, ns Namespace, targetID int64, notificationIDs []int64, asOf time.Time) (int64, error) {
	asOf = resolveAsOf(asOf)

	// The status predicate doubles as the idempotency guard: the row set is
	// decided at write time, so a concurrent overwrite to a custom status
	// cannot be clobbered between a check and the update.
	tag, err := s.pool.Exec(ctx,
		`UPDATE notification_recipients
		 SET status = $1, status_changed_at = $2
		 WHERE namespace = $3 AND target_id = $4 AND status = $5
		   AND ($6::bigint[] IS NULL OR notification_id = ANY($6::bigint[]))`,
		StatusRead, asOf, string(ns), targetID, StatusUnread, nilIfEmpty(notificationIDs),
	)
	if err != nil {
		return 0, errors.Join(ErrPersistenceFailure, err)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStorage) MarkStatus(ctx context.Context, recipientIDs []int64, status string, asOf time.Time) (int64, error) {
	if status == "" || len(recipientIDs) == 0 {
		return 0, errors.Join(ErrInvalidInput, errors.New("empty status or recipient list"))
	}
	asOf = resolveAsOf(asOf)

	tag, err := s.pool.Exec(ctx,
		`UPDATE notification_recipients
		 SET status = $1, status_changed_at = $2
		 WHERE id = ANY($3::bigint[])`,
		status, asOf, recipientIDs,
	)
	if err != nil {
		return 0, errors.Join(ErrPersistenceFailure, err)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStorage) CountUnread(ctx context.Context, ns Namespace, targetID int64, opts CountOptions) (int, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT count(*)
		FROM notification_recipients r
		JOIN notifications n ON n.id = r.notification_id
		WHERE r.namespace = $1 AND r.target_id = $2 AND r.status = $3`)
	args := []any{string(ns), targetID, StatusUnread}

	if opts.Type != "" {
		args = append(args, opts.Type)
		fmt.Fprintf(&sb, " AND n.data->>'type' = $%d", len(args))
	}

	var count int
	if err := s.pool.QueryRow(ctx, sb.String(), args...).Scan(&count); err != nil {
		return 0, errors.Join(ErrPersistenceFailure, err)
	}
	return count, nil
}

func nilIfEmpty(ids []int64) []int64 {
	if len(ids) == 0 {
		return nil
	}
	return ids
}
