package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Option adjusts how Load reads the environment.
type Option func(*loadOptions)

type loadOptions struct {
	files  []string
	prefix string
	strict bool
}

// WithEnvFiles loads the given .env files before parsing. Missing files are
// skipped unless WithStrictFiles is also set. Values already present in the
// process environment win over file values.
func WithEnvFiles(files ...string) Option {
	return func(o *loadOptions) { o.files = append(o.files, files...) }
}

// WithStrictFiles makes a missing .env file a load error.
func WithStrictFiles() Option {
	return func(o *loadOptions) { o.strict = true }
}

// WithPrefix prepends prefix to every env tag, e.g. "NOTIFY_".
func WithPrefix(prefix string) Option {
	return func(o *loadOptions) { o.prefix = prefix }
}

// Load parses the process environment (optionally seeded from .env files)
// into a new value of T using `env` and `envDefault` struct tags.
//
//	type StoreConfig struct {
//		MaxRecords int           `env:"NOTIFY_MAX_RECORDS" envDefault:"100"`
//		Retention  time.Duration `env:"NOTIFY_RETENTION" envDefault:"720h"`
//	}
//
//	cfg, err := config.Load[StoreConfig]()
func Load[T any](opts ...Option) (T, error) {
	var zero T

	o := &loadOptions{}
	for _, opt := range opts {
		opt(o)
	}

	if err := loadFiles(o); err != nil {
		return zero, err
	}

	var cfg T
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: o.prefix}); err != nil {
		return zero, errors.Join(ErrParsingConfig, err)
	}
	return cfg, nil
}

// MustLoad works like Load but panics on failure. Use it for configuration the
// process cannot start without.
func MustLoad[T any](opts ...Option) T {
	cfg, err := Load[T](opts...)
	if err != nil {
		panic(fmt.Sprintf("failed to load required configuration: %v", err))
	}
	return cfg
}

// Into parses the environment into an existing value, keeping fields that
// have no env tag untouched.
func Into[T any](v *T, opts ...Option) error {
	if v == nil {
		return ErrNilPointer
	}
	o := &loadOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if err := loadFiles(o); err != nil {
		return err
	}
	if err := env.ParseWithOptions(v, env.Options{Prefix: o.prefix}); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}
	return nil
}

func loadFiles(o *loadOptions) error {
	if len(o.files) == 0 {
		// default .env is optional
		_ = godotenv.Load()
		return nil
	}
	for _, f := range o.files {
		if _, err := os.Stat(f); err != nil {
			if o.strict {
				return errors.Join(ErrEnvFileNotFound, err)
			}
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return errors.Join(ErrLoadingEnvFile, err)
		}
	}
	return nil
}
