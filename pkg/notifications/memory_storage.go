package notifications

import (
	"context"
	"errors"
	"maps"
	"sync"
	"time"
)

// MemoryStorage is an in-memory implementation of the Storage interface.
// Suitable for development and testing; for production use one of the
// database-backed implementations.
type MemoryStorage struct {
	mu            sync.RWMutex
	notifications map[int64]Notification
	recipients    map[int64]Recipient
	byTarget      map[Target][]int64 // recipient ids in creation order
	nextNotifID   int64
	nextRecipient int64
}

// NewMemoryStorage creates an empty in-memory notification store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		notifications: make(map[int64]Notification),
		recipients:    make(map[int64]Recipient),
		byTarget:      make(map[Target][]int64),
	}
}

func (s *MemoryStorage) Record(ctx context.Context, data map[string]any, targets []Target) (RecordResult, error) {
	targets = dedupeTargets(targets)
	if len(targets) == 0 {
		return RecordResult{}, errors.Join(ErrInvalidInput, errors.New("no recipients"))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextNotifID++
	notif := Notification{
		ID:        s.nextNotifID,
		Data:      maps.Clone(data),
		CreatedAt: time.Now().UTC(),
	}
	s.notifications[notif.ID] = notif

	recipientIDs := make([]int64, 0, len(targets))
	for _, t := range targets {
		s.nextRecipient++
		r := Recipient{
			ID:             s.nextRecipient,
			NotificationID: notif.ID,
			Namespace:      t.Namespace,
			TargetID:       t.ID,
			Status:         StatusUnread,
		}
		s.recipients[r.ID] = r
		s.byTarget[t] = append(s.byTarget[t], r.ID)
		recipientIDs = append(recipientIDs, r.ID)
	}

	return RecordResult{NotificationID: notif.ID, RecipientIDs: recipientIDs}, nil
}

func (s *MemoryStorage) Feed(ctx context.Context, ns Namespace, targetID int64, opts FeedOptions) ([]FeedItem, error) {
	opts = opts.normalize()

	s.mu.RLock()
	defer s.mu.RUnlock()

	var items []FeedItem
	for _, rid := range s.byTarget[Target{Namespace: ns, ID: targetID}] {
		r := s.recipients[rid]
		n := s.notifications[r.NotificationID]
		item := FeedItem{
			NotificationID:  n.ID,
			RecipientID:     r.ID,
			Data:            maps.Clone(n.Data),
			Status:          r.Status,
			CreatedAt:       n.CreatedAt,
			StatusChangedAt: r.StatusChangedAt,
		}
		if matchFeedItem(item, opts) {
			items = append(items, item)
		}
	}

	sortFeedItems(items, opts.Order)
	return paginate(items, opts.Limit, opts.Offset), nil
}

func (s *MemoryStorage) MarkRead(ctx context.Context, ns Namespace, targetID int64, notificationIDs []int64, asOf time.Time) (int64, error) {
	asOf = resolveAsOf(asOf)

	var only map[int64]struct{}
	if len(notificationIDs) > 0 {
		only = make(map[int64]struct{}, len(notificationIDs))
		for _, id := range notificationIDs {
			only[id] = struct{}{}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var transitioned int64
	for _, rid := range s.byTarget[Target{Namespace: ns, ID: targetID}] {
		r := s.recipients[rid]
		if r.Status != StatusUnread {
			continue
		}
		if only != nil {
			if _, ok := only[r.NotificationID]; !ok {
				continue
			}
		}
		ts := asOf
		r.Status = StatusRead
		r.StatusChangedAt = &ts
		s.recipients[rid] = r
		transitioned++
	}
	return transitioned, nil
}

func (s *MemoryStorage) MarkStatus(ctx context.Context, recipientIDs []int64, status string, asOf time.Time) (int64, error) {
	if status == "" || len(recipientIDs) == 0 {
		return 0, errors.Join(ErrInvalidInput, errors.New("empty status or recipient list"))
	}
	asOf = resolveAsOf(asOf)

	s.mu.Lock()
	defer s.mu.Unlock()

	var updated int64
	for _, rid := range recipientIDs {
		r, ok := s.recipients[rid]
		if !ok {
			continue
		}
		ts := asOf
		r.Status = status
		r.StatusChangedAt = &ts
		s.recipients[rid] = r
		updated++
	}
	return updated, nil
}

func (s *MemoryStorage) CountUnread(ctx context.Context, ns Namespace, targetID int64, opts CountOptions) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, rid := range s.byTarget[Target{Namespace: ns, ID: targetID}] {
		r := s.recipients[rid]
		if !r.Unread() {
			continue
		}
		if opts.Type != "" {
			n := s.notifications[r.NotificationID]
			if payloadCategory(n.Data) != opts.Type {
				continue
			}
		}
		count++
	}
	return count, nil
}
