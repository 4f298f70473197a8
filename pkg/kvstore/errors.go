package kvstore

import "errors"

var (
	ErrEmptyKey = errors.New("kvstore: key must not be empty")
	ErrTimeout  = errors.New("kvstore: operation timed out")
)
