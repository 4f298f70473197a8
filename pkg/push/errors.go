package push

import "errors"

var (
	ErrSendFailed     = errors.New("push: failed to send message")
	ErrInvalidConfig  = errors.New("push: invalid configuration")
	ErrInvalidMessage = errors.New("push: invalid message")
)
