// Package notifications implements the notification distribution and
// read-state tracking engine behind the membership toolkit: it records
// notification events, fans them out to recipients, tracks per-recipient
// delivery status and serves paginated feeds plus unread counters.
//
// Recipients live in one of two independent identity namespaces, member
// profiles and platform user accounts. The namespaces never alias: a
// notification recorded for (member, 7) is invisible to user-namespace
// queries even when the ids coincide. Payloads are opaque key/value data;
// the engine only reads the optional "type" key for category filters and
// passes everything else through to whatever renders the feed.
//
// # Architecture
//
//   - Storage: persistence, atomic fan-out, status transitions, feed queries
//   - Manager: the facade collaborating subsystems call; resolves
//     loosely-typed identifiers and normalizes failures into sentinel errors
//
// Four Storage implementations ship with the package: MemoryStorage for
// development and tests, PostgresStorage (pgx) for relational deployments,
// MongoStorage for document deployments and RedisStorage for installs that
// keep notification state in Redis.
//
// # Basic Usage
//
//	storage := notifications.NewMemoryStorage()
//	manager := notifications.NewManager(storage)
//
//	res, err := manager.Record(ctx,
//	    map[string]any{"type": "event_reminder", "event_id": 42},
//	    []notifications.RecipientRef{
//	        notifications.Member(5),
//	        notifications.User("17"), // loosely-typed ids are resolved
//	    },
//	)
//
//	page, err := manager.GetMemberFeed(ctx, 5, notifications.FeedOptions{
//	    Status: notifications.StatusUnread,
//	    Limit:  10,
//	})
//
//	count, err := manager.GetMemberUnreadCount(ctx, 5)
//	moved, err := manager.MarkMemberNotificationsRead(ctx, 5, nil, time.Time{})
//
// # Concurrency
//
// Every operation is a single bounded read or write against the store; the
// engine holds no in-process state and schedules nothing in the background.
// Record is atomic per call, mark operations guard at row granularity, and
// unread counts are live values that may trail writes committing
// concurrently with the count.
//
// # Errors
//
// Failures surface as sentinel errors checkable with errors.Is:
// ErrInvalidRecipient, ErrInvalidInput and ErrPersistenceFailure.
package notifications
