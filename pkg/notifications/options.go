package notifications

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// DurabilityMode decides what Add and the other mutations do when the
// backing store write fails.
type DurabilityMode int

const (
	// DurabilityBestEffort keeps the in-memory change and logs the failure.
	DurabilityBestEffort DurabilityMode = iota
	// DurabilityStrict rolls the change back and returns ErrPersistFailed.
	DurabilityStrict
)

func (m DurabilityMode) String() string {
	if m == DurabilityStrict {
		return "strict"
	}
	return "best_effort"
}

const (
	DefaultStorageKey = "notifications:v1"
	DefaultMaxRecords = 100
	DefaultRetention  = 30 * 24 * time.Hour
)

// Config is the env-driven store configuration.
type Config struct {
	StorageKey       string        `env:"NOTIFY_STORAGE_KEY" envDefault:"notifications:v1"`
	MaxRecords       int           `env:"NOTIFY_MAX_RECORDS" envDefault:"100"`
	Retention        time.Duration `env:"NOTIFY_RETENTION" envDefault:"720h"`
	StrictDurability bool          `env:"NOTIFY_STRICT_DURABILITY" envDefault:"false"`
}

// Options converts the config into store options.
func (c Config) Options() []Option {
	opts := []Option{
		WithStorageKey(c.StorageKey),
		WithMaxRecords(c.MaxRecords),
		WithRetention(c.Retention),
	}
	if c.StrictDurability {
		opts = append(opts, WithDurability(DurabilityStrict))
	}
	return opts
}

// Option configures a Store.
type Option func(*Store)

// WithStorageKey sets the backing store key of the snapshot blob.
func WithStorageKey(key string) Option {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

// WithMaxRecords caps the number of stored records. Values below 1 are ignored.
func WithMaxRecords(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxRecords = n
		}
	}
}

// WithRetention sets the default expiry applied to drafts without ExpiresAt.
func WithRetention(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.retention = d
		}
	}
}

func WithDurability(mode DurabilityMode) Option {
	return func(s *Store) {
		s.durability = mode
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator replaces the UUIDv4 generator.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) {
		if fn != nil {
			s.newID = fn
		}
	}
}

func defaultID() string { return uuid.NewString() }
