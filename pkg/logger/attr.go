package logger

import (
	"log/slog"
)

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// MemberID records a member-namespace identifier under the key "member_id".
func MemberID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("member_id", id)
}

// UserID records a user-namespace identifier under the key "user_id".
func UserID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("user_id", id)
}

// NotificationID records a notification identifier under the key
// "notification_id".
func NotificationID(id int64) slog.Attr {
	return slog.Int64("notification_id", id)
}

// RecipientCount records a fan-out size under the key "recipient_count".
func RecipientCount(n int) slog.Attr {
	return slog.Int("recipient_count", n)
}

// Namespace records the identity namespace under the key "namespace".
func Namespace(ns string) slog.Attr {
	return slog.String("namespace", ns)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}
