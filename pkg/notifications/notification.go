package notifications

import (
	"time"
)

// Namespace is the identity space a recipient identifier is interpreted in.
// Member profiles and underlying platform user accounts are independent
// namespaces: a notification recorded for (member, 7) is invisible to
// user-namespace queries even when the numeric ids coincide.
type Namespace string

const (
	NamespaceMember Namespace = "member"
	NamespaceUser   Namespace = "user"
)

// Valid reports whether the namespace is one of the closed set of
// recognized identity spaces.
func (n Namespace) Valid() bool {
	return n == NamespaceMember || n == NamespaceUser
}

// Reserved recipient statuses. The engine only special-cases these two for
// counting semantics; any other application-defined status string ("archived",
// "dismissed", ...) passes through opaquely.
const (
	StatusUnread = "unread"
	StatusRead   = "read"
)

// Notification is one event record with an opaque payload, fanned out to one
// or more recipients. The payload is never interpreted by the engine beyond
// the optional "type" category key used by feed filters; renderers outside
// the engine are responsible for known keys.
type Notification struct {
	ID        int64          `json:"id"`
	Data      map[string]any `json:"data,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Recipient is one per-target delivery row tracking read state for a
// Notification. (notification_id, namespace, target_id) is unique within one
// notification: the fan-out step deduplicates recipients per Record call.
type Recipient struct {
	ID              int64      `json:"id"`
	NotificationID  int64      `json:"notification_id"`
	Namespace       Namespace  `json:"namespace"`
	TargetID        int64      `json:"target_id"`
	Status          string     `json:"status"`
	StatusChangedAt *time.Time `json:"status_changed_at,omitempty"`
}

// Unread reports whether the recipient row still counts toward the unread
// counter.
func (r *Recipient) Unread() bool {
	return r.Status == StatusUnread
}

// FeedItem is a recipient row joined to its owning notification, as served
// by feed queries.
type FeedItem struct {
	NotificationID  int64          `json:"notification_id"`
	RecipientID     int64          `json:"recipient_id"`
	Data            map[string]any `json:"data,omitempty"`
	Status          string         `json:"status"`
	CreatedAt       time.Time      `json:"created_at"`
	StatusChangedAt *time.Time     `json:"status_changed_at,omitempty"`
}

// Category returns the payload's category key, or "" when the payload carries
// none. Feed and count filters match against this value.
func (i *FeedItem) Category() string {
	return payloadCategory(i.Data)
}

func payloadCategory(data map[string]any) string {
	if data == nil {
		return ""
	}
	if v, ok := data["type"].(string); ok {
		return v
	}
	return ""
}
