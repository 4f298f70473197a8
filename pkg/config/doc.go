// Package config loads typed configuration structs from environment
// variables, optionally seeded from .env files.
//
// Parsing is delegated to github.com/caarlos0/env/v11 and .env handling to
// github.com/joho/godotenv. Each component of the notification service ships
// its own Config struct with `env` tags; the composition root loads them with
// Load or MustLoad:
//
//	storeCfg := config.MustLoad[notifications.Config]()
//	redisCfg, err := config.Load[redis.Config](config.WithEnvFiles(".env.local"))
//
// Errors can be matched with errors.Is against ErrParsingConfig,
// ErrEnvFileNotFound and ErrLoadingEnvFile.
package config
