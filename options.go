package httpshare

import (
	"log/slog"
	"time"

	"github.com/mikrodotnet/httpshare/store"
)

// ShareConfig holds construction parameters for a Share.
type ShareConfig struct {
	// Logger receives debug events for attach/detach and option changes.
	Logger *slog.Logger

	// DNSTTL bounds the lifetime of shared DNS entries.
	DNSTTL time.Duration

	// MaxIdlePerDest bounds the idle connections kept per destination.
	MaxIdlePerDest int
}

// ShareOption configures a Share at construction time.
type ShareOption func(*ShareConfig)

func defaultShareConfig() *ShareConfig {
	return &ShareConfig{
		Logger:         slog.Default(),
		DNSTTL:         store.DefaultDNSTTL,
		MaxIdlePerDest: store.DefaultMaxIdlePerDest,
	}
}

// WithLogger sets the logger used for share lifecycle events.
func WithLogger(logger *slog.Logger) ShareOption {
	return func(c *ShareConfig) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

// WithDNSTTL sets the time-to-live for shared DNS entries.
func WithDNSTTL(d time.Duration) ShareOption {
	return func(c *ShareConfig) {
		if d > 0 {
			c.DNSTTL = d
		}
	}
}

// WithMaxIdlePerDest sets the idle-connection bound per destination.
func WithMaxIdlePerDest(n int) ShareOption {
	return func(c *ShareConfig) {
		if n > 0 {
			c.MaxIdlePerDest = n
		}
	}
}
