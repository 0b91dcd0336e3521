// Package validator checks a decoded, signature-verified claim set against
// the expected issuer, audience and timing windows. Signature verification
// is deliberately not part of this package so that claim-policy logic can
// be unit-tested without cryptography; the caller must not hand untrusted
// payloads to Validate.
package validator

import (
	"errors"
	"fmt"
	"time"
)

// Codes carried by *ClaimError, one per check.
const (
	CodeInvalidIssuer   = "invalid_issuer"
	CodeInvalidAudience = "invalid_audience"
	CodeExpired         = "token_expired"
	CodeInvalidTiming   = "invalid_timing"
	CodeMissingSubject  = "missing_subject"
	CodeMissingEmail    = "missing_email"
)

// ClaimError describes exactly which claim check failed. Callers can
// switch on Code without parsing Message.
type ClaimError struct {
	Code    string
	Message string
}

// Error implements the error interface.
func (e *ClaimError) Error() string {
	return e.Message
}

// AsClaimError unwraps err into a *ClaimError, or returns nil if err is
// not one.
func AsClaimError(err error) *ClaimError {
	var claimErr *ClaimError
	if errors.As(err, &claimErr) {
		return claimErr
	}
	return nil
}

// Validator enforces issuer, audience, timing and required-field checks on
// a decoded claim set. It is immutable after construction and safe for
// concurrent use.
type Validator struct {
	issuer   string
	audience string
	leeway   time.Duration
	now      func() time.Time
}

// New sets up a Validator for the expected issuer and audience.
//
// Optional options:
//   - WithLeeway: clock-skew tolerance (default: 60s)
//   - WithClock: clock override for tests
func New(issuer, audience string, opts ...Option) (*Validator, error) {
	if issuer == "" {
		return nil, errors.New("issuer is required but was empty")
	}
	if audience == "" {
		return nil, errors.New("audience is required but was empty")
	}

	v := &Validator{
		issuer:   issuer,
		audience: audience,
		leeway:   60 * time.Second,
		now:      time.Now,
	}

	for _, opt := range opts {
		if err := opt(v); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	return v, nil
}

// Validate runs the claim checks in a fixed order: issuer, audience,
// expiry, issued-at/not-before, subject, email. The first failure is
// returned as a *ClaimError. The order puts the cheap structural checks
// first, and no check is skipped on an absent optional field.
func (v *Validator) Validate(claims *Claims) error {
	if claims == nil {
		return &ClaimError{Code: CodeMissingSubject, Message: "token carries no claims"}
	}

	now := v.now()

	if claims.Issuer != v.issuer {
		return &ClaimError{Code: CodeInvalidIssuer, Message: "token issuer is invalid"}
	}

	if claims.Audience != v.audience {
		return &ClaimError{Code: CodeInvalidAudience, Message: "token audience is invalid"}
	}

	// Leeway is inclusive: exp == now-leeway is still acceptable.
	if claims.Expiry != 0 && time.Unix(claims.Expiry, 0).Add(v.leeway).Before(now) {
		return &ClaimError{Code: CodeExpired, Message: "token has expired"}
	}

	if claims.IssuedAt != 0 && time.Unix(claims.IssuedAt, 0).After(now.Add(v.leeway)) {
		return &ClaimError{Code: CodeInvalidTiming, Message: "token used before issued"}
	}

	if claims.NotBefore != 0 && time.Unix(claims.NotBefore, 0).After(now.Add(v.leeway)) {
		return &ClaimError{Code: CodeInvalidTiming, Message: "token is not yet valid"}
	}

	if claims.Subject == "" {
		return &ClaimError{Code: CodeMissingSubject, Message: "token is missing the sub (subject) claim"}
	}

	if claims.Email == "" {
		return &ClaimError{Code: CodeMissingEmail, Message: "token is missing the email claim"}
	}

	return nil
}
