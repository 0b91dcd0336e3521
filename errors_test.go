package saascore

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Error(t *testing.T) {
	t.Run("it renders the message alone", func(t *testing.T) {
		err := authError(ErrorCodeTokenExpired, "token has expired", nil)
		assert.Equal(t, "token has expired", err.Error())
	})

	t.Run("it appends the underlying cause", func(t *testing.T) {
		cause := errors.New("deadline exceeded")
		err := authError(ErrorCodeKeyFetchFailed, "failed to fetch provider public keys", cause)
		assert.Equal(t, "failed to fetch provider public keys: deadline exceeded", err.Error())
	})
}

func TestError_Is(t *testing.T) {
	testCases := []struct {
		name    string
		err     *Error
		target  error
		matches bool
	}{
		{
			name:    "authentication matches ErrAuthentication",
			err:     authError(ErrorCodeInvalidSignature, "token signature is invalid", nil),
			target:  ErrAuthentication,
			matches: true,
		},
		{
			name:    "authentication does not match ErrConfiguration",
			err:     authError(ErrorCodeInvalidSignature, "token signature is invalid", nil),
			target:  ErrConfiguration,
			matches: false,
		},
		{
			name:    "email-not-verified matches ErrEmailNotVerified",
			err:     &Error{Kind: KindEmailNotVerified, Code: ErrorCodeEmailNotVerified, Message: "email is not verified"},
			target:  ErrEmailNotVerified,
			matches: true,
		},
		{
			name:    "email-not-verified is a subtype of ErrAuthentication",
			err:     &Error{Kind: KindEmailNotVerified, Code: ErrorCodeEmailNotVerified, Message: "email is not verified"},
			target:  ErrAuthentication,
			matches: true,
		},
		{
			name:    "authentication is not email-not-verified",
			err:     authError(ErrorCodeTokenExpired, "token has expired", nil),
			target:  ErrEmailNotVerified,
			matches: false,
		},
		{
			name:    "configuration matches ErrConfiguration",
			err:     configError(ErrorCodeConfigInvalid, "no credential mode set", nil),
			target:  ErrConfiguration,
			matches: true,
		},
		{
			name:    "database matches ErrDatabase",
			err:     ErrDatabaseNotImplemented,
			target:  ErrDatabase,
			matches: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.matches, errors.Is(tc.err, tc.target))
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := authError(ErrorCodeKeyFetchFailed, "failed to fetch provider public keys", cause)

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, fmt.Errorf("verify: %w", err), ErrAuthentication)
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "configuration", KindConfiguration.String())
	assert.Equal(t, "authentication", KindAuthentication.String())
	assert.Equal(t, "email_not_verified", KindEmailNotVerified.String())
	assert.Equal(t, "database", KindDatabase.String())
	assert.Equal(t, "unknown", Kind(0).String())
}

func TestErrorPredicates(t *testing.T) {
	authErr := authError(ErrorCodeTokenExpired, "token has expired", nil)
	policyErr := &Error{Kind: KindEmailNotVerified, Code: ErrorCodeEmailNotVerified, Message: "email is not verified"}
	configErr := configError(ErrorCodeConfigInvalid, "no credential mode set", nil)

	assert.True(t, IsAuthenticationError(authErr))
	assert.True(t, IsAuthenticationError(policyErr))
	assert.True(t, IsEmailNotVerifiedError(policyErr))
	assert.False(t, IsEmailNotVerifiedError(authErr))
	assert.True(t, IsConfigurationError(configErr))
	assert.False(t, IsConfigurationError(authErr))
}
