package config

import "errors"

var (
	// ErrParsingConfig is returned when environment variables cannot be parsed into the config struct.
	ErrParsingConfig = errors.New("failed to parse environment variables into config")

	// ErrNilPointer is returned when a nil pointer is passed to Into.
	ErrNilPointer = errors.New("nil pointer provided to config loader")

	// ErrEnvFileNotFound is returned in strict mode when an .env file is missing.
	ErrEnvFileNotFound = errors.New("env file not found")

	// ErrLoadingEnvFile is returned when an existing .env file cannot be read.
	ErrLoadingEnvFile = errors.New("failed to load env file")
)
