package badge

import "errors"

var (
	ErrAlreadyStarted = errors.New("badge: aggregator already started")
	ErrRefreshFailed  = errors.New("badge: failed to recompute counts")
)
