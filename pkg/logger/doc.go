// Package logger builds configured slog loggers for the toolkit: JSON or
// text handlers, per-environment presets, static attributes and context
// extractors that inject request-scoped values at log time. Domain attribute
// helpers (MemberID, NotificationID, ...) keep log keys consistent across
// packages.
package logger
