package notifications

import (
	"sort"
	"time"
)

// Order controls feed direction.
type Order string

const (
	OrderNewestFirst Order = "newest_first"
	OrderOldestFirst Order = "oldest_first"
)

// Feed page size bounds. A zero limit falls back to the default; anything
// above the maximum is clamped.
const (
	DefaultFeedLimit = 20
	MaxFeedLimit     = 100
)

// StatusAny disables status filtering, same as leaving Status empty.
const StatusAny = "any"

// FeedOptions configures a feed query. Zero values mean "no filter"; callers
// only set what they need.
type FeedOptions struct {
	Status string     // filter to one status; "" or "any" matches all
	Type   string     // filter on the payload category key
	Since  *time.Time // only notifications created at or after this instant
	Before *time.Time // only notifications created before this instant
	Limit  int        // page size; 0 = DefaultFeedLimit, clamped to MaxFeedLimit
	Offset int        // pagination position; feeds are not restartable without it
	Order  Order      // "" = OrderNewestFirst
}

// CountOptions narrows unread counts with the same category vocabulary as
// the feed.
type CountOptions struct {
	Type string
}

func (o FeedOptions) normalize() FeedOptions {
	if o.Limit <= 0 {
		o.Limit = DefaultFeedLimit
	}
	if o.Limit > MaxFeedLimit {
		o.Limit = MaxFeedLimit
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	if o.Order != OrderOldestFirst {
		o.Order = OrderNewestFirst
	}
	if o.Status == StatusAny {
		o.Status = ""
	}
	return o
}

// matchFeedItem applies the non-pagination filters. Shared by the backends
// that filter in process (memory, redis).
func matchFeedItem(item FeedItem, o FeedOptions) bool {
	if o.Status != "" && item.Status != o.Status {
		return false
	}
	if o.Type != "" && item.Category() != o.Type {
		return false
	}
	if o.Since != nil && item.CreatedAt.Before(*o.Since) {
		return false
	}
	if o.Before != nil && !item.CreatedAt.Before(*o.Before) {
		return false
	}
	return true
}

// sortFeedItems applies the feed's stable total order: created_at descending
// with ties broken by notification id descending. Oldest-first is the exact
// reverse, so pagination stays gap-free regardless of timestamp resolution.
func sortFeedItems(items []FeedItem, order Order) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if order == OrderOldestFirst {
			a, b = b, a
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.NotificationID > b.NotificationID
	})
}

// paginate slices a sorted result set. Expects normalized limit/offset.
func paginate(items []FeedItem, limit, offset int) []FeedItem {
	if offset >= len(items) {
		return []FeedItem{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
