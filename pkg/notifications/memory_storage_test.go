package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordOrFail(t *testing.T, s Storage, data map[string]any, targets ...Target) RecordResult {
	t.Helper()
	res, err := s.Record(context.Background(), data, targets)
	require.NoError(t, err)
	return res
}

func TestMemoryStorage_Record(t *testing.T) {
	t.Parallel()

	t.Run("fan-out creates one row per distinct target", func(t *testing.T) {
		t.Parallel()
		s := NewMemoryStorage()

		res := recordOrFail(t, s, map[string]any{"type": "welcome"},
			Target{Namespace: NamespaceMember, ID: 1},
			Target{Namespace: NamespaceMember, ID: 2},
			Target{Namespace: NamespaceUser, ID: 1},
		)

		assert.Positive(t, res.NotificationID)
		assert.Len(t, res.RecipientIDs, 3)

		for _, target := range []Target{
			{Namespace: NamespaceMember, ID: 1},
			{Namespace: NamespaceMember, ID: 2},
			{Namespace: NamespaceUser, ID: 1},
		} {
			items, err := s.Feed(context.Background(), target.Namespace, target.ID, FeedOptions{})
			require.NoError(t, err)
			require.Len(t, items, 1)
			assert.Equal(t, res.NotificationID, items[0].NotificationID)
			assert.Equal(t, StatusUnread, items[0].Status)
			assert.Nil(t, items[0].StatusChangedAt)
		}
	})

	t.Run("duplicate targets collapse to one row", func(t *testing.T) {
		t.Parallel()
		s := NewMemoryStorage()

		res := recordOrFail(t, s, nil,
			Target{Namespace: NamespaceMember, ID: 5},
			Target{Namespace: NamespaceMember, ID: 5},
		)

		assert.Len(t, res.RecipientIDs, 1)
		items, err := s.Feed(context.Background(), NamespaceMember, 5, FeedOptions{})
		require.NoError(t, err)
		assert.Len(t, items, 1)
	})

	t.Run("empty recipients rejected", func(t *testing.T) {
		t.Parallel()
		s := NewMemoryStorage()

		_, err := s.Record(context.Background(), map[string]any{"type": "x"}, nil)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("empty payload permitted", func(t *testing.T) {
		t.Parallel()
		s := NewMemoryStorage()

		res := recordOrFail(t, s, nil, Target{Namespace: NamespaceUser, ID: 3})
		assert.Len(t, res.RecipientIDs, 1)
	})
}

func TestMemoryStorage_NamespaceIsolation(t *testing.T) {
	t.Parallel()
	s := NewMemoryStorage()

	recordOrFail(t, s, map[string]any{"type": "ping"}, Target{Namespace: NamespaceUser, ID: 7})

	items, err := s.Feed(context.Background(), NamespaceMember, 7, FeedOptions{})
	require.NoError(t, err)
	assert.Empty(t, items)

	count, err := s.CountUnread(context.Background(), NamespaceMember, 7, CountOptions{})
	require.NoError(t, err)
	assert.Zero(t, count)

	count, err = s.CountUnread(context.Background(), NamespaceUser, 7, CountOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMemoryStorage_MarkRead(t *testing.T) {
	t.Parallel()

	t.Run("idempotent bulk read", func(t *testing.T) {
		t.Parallel()
		s := NewMemoryStorage()
		recordOrFail(t, s, nil, Target{Namespace: NamespaceMember, ID: 1})
		recordOrFail(t, s, nil, Target{Namespace: NamespaceMember, ID: 1})

		n, err := s.MarkRead(context.Background(), NamespaceMember, 1, nil, time.Time{})
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		n, err = s.MarkRead(context.Background(), NamespaceMember, 1, nil, time.Time{})
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("restricted to listed notifications", func(t *testing.T) {
		t.Parallel()
		s := NewMemoryStorage()
		first := recordOrFail(t, s, nil, Target{Namespace: NamespaceMember, ID: 1})
		recordOrFail(t, s, nil, Target{Namespace: NamespaceMember, ID: 1})

		n, err := s.MarkRead(context.Background(), NamespaceMember, 1, []int64{first.NotificationID}, time.Time{})
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		count, err := s.CountUnread(context.Background(), NamespaceMember, 1, CountOptions{})
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("custom statuses are never regressed", func(t *testing.T) {
		t.Parallel()
		s := NewMemoryStorage()
		res := recordOrFail(t, s, nil, Target{Namespace: NamespaceMember, ID: 1})

		archivedAt := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
		n, err := s.MarkStatus(context.Background(), res.RecipientIDs, "archived", archivedAt)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		n, err = s.MarkRead(context.Background(), NamespaceMember, 1, nil, time.Time{})
		require.NoError(t, err)
		assert.Zero(t, n)

		items, err := s.Feed(context.Background(), NamespaceMember, 1, FeedOptions{})
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "archived", items[0].Status)
		require.NotNil(t, items[0].StatusChangedAt)
		assert.True(t, items[0].StatusChangedAt.Equal(archivedAt))
	})

	t.Run("explicit as-of stamped on transitioned rows", func(t *testing.T) {
		t.Parallel()
		s := NewMemoryStorage()
		recordOrFail(t, s, nil, Target{Namespace: NamespaceUser, ID: 2})

		asOf := time.Date(2026, 5, 2, 9, 30, 0, 0, time.UTC)
		n, err := s.MarkRead(context.Background(), NamespaceUser, 2, nil, asOf)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		items, err := s.Feed(context.Background(), NamespaceUser, 2, FeedOptions{})
		require.NoError(t, err)
		require.Len(t, items, 1)
		require.NotNil(t, items[0].StatusChangedAt)
		assert.True(t, items[0].StatusChangedAt.Equal(asOf))
	})
}

func TestMemoryStorage_MarkStatus(t *testing.T) {
	t.Parallel()

	t.Run("overwrites listed rows and skips unknown ids", func(t *testing.T) {
		t.Parallel()
		s := NewMemoryStorage()
		res := recordOrFail(t, s, nil,
			Target{Namespace: NamespaceMember, ID: 1},
			Target{Namespace: NamespaceUser, ID: 1},
		)

		ids := append([]int64{}, res.RecipientIDs...)
		ids = append(ids, 99999)
		n, err := s.MarkStatus(context.Background(), ids, "dismissed", time.Time{})
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
	})

	t.Run("overwrite moves read back to unread", func(t *testing.T) {
		t.Parallel()
		s := NewMemoryStorage()
		res := recordOrFail(t, s, nil, Target{Namespace: NamespaceMember, ID: 1})

		_, err := s.MarkRead(context.Background(), NamespaceMember, 1, nil, time.Time{})
		require.NoError(t, err)

		n, err := s.MarkStatus(context.Background(), res.RecipientIDs, StatusUnread, time.Time{})
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		count, err := s.CountUnread(context.Background(), NamespaceMember, 1, CountOptions{})
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("empty inputs rejected", func(t *testing.T) {
		t.Parallel()
		s := NewMemoryStorage()

		_, err := s.MarkStatus(context.Background(), nil, "archived", time.Time{})
		assert.ErrorIs(t, err, ErrInvalidInput)

		_, err = s.MarkStatus(context.Background(), []int64{1}, "", time.Time{})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestMemoryStorage_CountConsistency(t *testing.T) {
	t.Parallel()
	s := NewMemoryStorage()

	recordOrFail(t, s, map[string]any{"type": "a"}, Target{Namespace: NamespaceMember, ID: 1})
	second := recordOrFail(t, s, map[string]any{"type": "b"}, Target{Namespace: NamespaceMember, ID: 1})
	recordOrFail(t, s, map[string]any{"type": "a"}, Target{Namespace: NamespaceMember, ID: 1})

	_, err := s.MarkStatus(context.Background(), second.RecipientIDs, StatusRead, time.Time{})
	require.NoError(t, err)

	items, err := s.Feed(context.Background(), NamespaceMember, 1, FeedOptions{Status: StatusUnread})
	require.NoError(t, err)

	count, err := s.CountUnread(context.Background(), NamespaceMember, 1, CountOptions{})
	require.NoError(t, err)
	assert.Equal(t, len(items), count)

	// Category narrowing uses the same vocabulary as the feed.
	count, err = s.CountUnread(context.Background(), NamespaceMember, 1, CountOptions{Type: "a"})
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestMemoryStorage_FeedPagination(t *testing.T) {
	t.Parallel()
	s := NewMemoryStorage()

	var notifIDs []int64
	for range 5 {
		res := recordOrFail(t, s, nil, Target{Namespace: NamespaceMember, ID: 1})
		notifIDs = append(notifIDs, res.NotificationID)
	}

	// Two fixed-window fetches cover the first four items with no
	// duplicates or gaps.
	page1, err := s.Feed(context.Background(), NamespaceMember, 1, FeedOptions{Limit: 2, Offset: 0})
	require.NoError(t, err)
	page2, err := s.Feed(context.Background(), NamespaceMember, 1, FeedOptions{Limit: 2, Offset: 2})
	require.NoError(t, err)

	got := notificationIDs(append(page1, page2...))
	assert.Equal(t, []int64{notifIDs[4], notifIDs[3], notifIDs[2], notifIDs[1]}, got)

	// Oldest-first walks the same total order from the other end.
	asc, err := s.Feed(context.Background(), NamespaceMember, 1, FeedOptions{Limit: 5, Order: OrderOldestFirst})
	require.NoError(t, err)
	assert.Equal(t, notifIDs, notificationIDs(asc))
}

func TestMemoryStorage_FeedFilters(t *testing.T) {
	t.Parallel()
	s := NewMemoryStorage()

	reminder := recordOrFail(t, s, map[string]any{"type": "event_reminder"}, Target{Namespace: NamespaceUser, ID: 4})
	recordOrFail(t, s, map[string]any{"type": "payment"}, Target{Namespace: NamespaceUser, ID: 4})

	items, err := s.Feed(context.Background(), NamespaceUser, 4, FeedOptions{Type: "event_reminder"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, reminder.NotificationID, items[0].NotificationID)

	_, err = s.MarkRead(context.Background(), NamespaceUser, 4, []int64{reminder.NotificationID}, time.Time{})
	require.NoError(t, err)

	items, err = s.Feed(context.Background(), NamespaceUser, 4, FeedOptions{Status: StatusRead})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, reminder.NotificationID, items[0].NotificationID)
}

// Mirrors the end-to-end reference scenario: two members, one read.
func TestMemoryStorage_ReadStateScenario(t *testing.T) {
	t.Parallel()
	s := NewMemoryStorage()
	ctx := context.Background()

	res := recordOrFail(t, s, map[string]any{"type": "event_reminder"},
		Target{Namespace: NamespaceMember, ID: 1},
		Target{Namespace: NamespaceMember, ID: 2},
	)
	require.Len(t, res.RecipientIDs, 2)

	count, err := s.CountUnread(ctx, NamespaceMember, 1, CountOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	n, err := s.MarkRead(ctx, NamespaceMember, 1, nil, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	count, err = s.CountUnread(ctx, NamespaceMember, 1, CountOptions{})
	require.NoError(t, err)
	assert.Zero(t, count)

	count, err = s.CountUnread(ctx, NamespaceMember, 2, CountOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
