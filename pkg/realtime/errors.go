package realtime

import "errors"

var (
	ErrAuthFailed      = errors.New("realtime: authentication failed")
	ErrSubscribeFailed = errors.New("realtime: subscribe failed")
	ErrConnectionLost  = errors.New("realtime: connection lost")
	ErrGaveUp          = errors.New("realtime: reconnect attempts exhausted")
)
