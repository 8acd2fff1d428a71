package cached

import (
	"log/slog"
	"time"
)

// options holds cached store configuration.
type options struct {
	cacheDir string
	maxBytes int64
	maxAge   time.Duration
	logger   *slog.Logger
}

// Option configures the cached store.
type Option func(*options)

// WithCacheDir sets the directory for cached files.
// Default is the system temp directory.
func WithCacheDir(dir string) Option {
	return func(o *options) {
		if dir != "" {
			o.cacheDir = dir
		}
	}
}

// WithMaxBytes sets the cache size budget. When admitting an entry
// pushes the cache over budget, the least recently used entries are
// evicted. Default is 1 GiB.
func WithMaxBytes(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.maxBytes = n
		}
	}
}

// WithMaxEntryAge bounds how long an unread entry may occupy disk.
// Entries are content-addressed and never go stale, so this is a disk
// bound, not a freshness bound. Default is 7 days; 0 keeps entries
// until size eviction claims them.
func WithMaxEntryAge(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.maxAge = d
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}
