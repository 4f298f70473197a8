package redis

import "errors"

var (
	ErrFailedToParseRedisConnString = errors.New("failed to parse redis connection string")
	ErrRedisNotReady                = errors.New("redis did not become ready within the given time period")
	ErrEmptyConnectionURL           = errors.New("empty redis connection URL")
	ErrHealthcheckFailed            = errors.New("redis healthcheck failed")
	ErrSubscribeFailed              = errors.New("redis: failed to subscribe to change channel")
	ErrInvalidHandle                = errors.New("redis: handle does not belong to this feed")
	ErrPublishFailed                = errors.New("redis: failed to publish change")
)
