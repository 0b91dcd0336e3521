package validator

import (
	"fmt"
	"time"
)

// Option is how options for the Validator are set up.
type Option func(*Validator) error

// WithLeeway sets the clock-skew tolerance applied to the exp, iat and nbf
// checks.
//
// Default: 60 seconds.
func WithLeeway(leeway time.Duration) Option {
	return func(v *Validator) error {
		if leeway < 0 {
			return fmt.Errorf("leeway cannot be negative")
		}
		v.leeway = leeway
		return nil
	}
}

// WithClock overrides the time source. Used by tests to pin "now".
func WithClock(now func() time.Time) Option {
	return func(v *Validator) error {
		if now == nil {
			return fmt.Errorf("clock cannot be nil")
		}
		v.now = now
		return nil
	}
}
