package notifications

import "errors"

var (
	ErrNotificationNotFound = errors.New("notification not found")
	ErrInvalidDraft         = errors.New("invalid notification draft")
	ErrPersistFailed        = errors.New("failed to persist notifications")
	ErrLoadFailed           = errors.New("failed to load notifications")
)
