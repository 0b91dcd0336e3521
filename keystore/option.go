package keystore

import (
	"fmt"
	"net/http"
	"time"
)

// Option is how options for the Store are set up.
type Option func(*Store) error

// WithTTL sets how long a fetched key-set snapshot is treated as fresh.
// The TTL is measured from the last full refresh, not per key.
//
// Default: 1 hour.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) error {
		if ttl <= 0 {
			return fmt.Errorf("TTL must be positive")
		}
		s.ttl = ttl
		return nil
	}
}

// WithHTTPClient sets a custom HTTP client for key fetches.
// If not specified, a default client with a 10s timeout is used.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Store) error {
		if c == nil {
			return fmt.Errorf("HTTP client cannot be nil")
		}
		s.client = c
		return nil
	}
}

// WithLogger sets the logger used for skipped certificates and refreshes.
func WithLogger(l Logger) Option {
	return func(s *Store) error {
		if l == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		s.logger = l
		return nil
	}
}

// WithClock overrides the time source. Used by tests to exercise TTL
// expiry without sleeping.
func WithClock(now func() time.Time) Option {
	return func(s *Store) error {
		if now == nil {
			return fmt.Errorf("clock cannot be nil")
		}
		s.now = now
		return nil
	}
}
