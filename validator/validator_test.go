package validator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("it requires an issuer", func(t *testing.T) {
		_, err := New("", "proj-1")
		assert.EqualError(t, err, "issuer is required but was empty")
	})

	t.Run("it requires an audience", func(t *testing.T) {
		_, err := New("https://idp.example/proj-1", "")
		assert.EqualError(t, err, "audience is required but was empty")
	})

	t.Run("it rejects a negative leeway", func(t *testing.T) {
		_, err := New("https://idp.example/proj-1", "proj-1", WithLeeway(-time.Second))
		assert.ErrorContains(t, err, "leeway cannot be negative")
	})

	t.Run("it rejects a nil clock", func(t *testing.T) {
		_, err := New("https://idp.example/proj-1", "proj-1", WithClock(nil))
		assert.ErrorContains(t, err, "clock cannot be nil")
	})
}

func TestValidator_Validate(t *testing.T) {
	const (
		issuer   = "https://idp.example/proj-1"
		audience = "proj-1"
		leeway   = 60 * time.Second
	)

	now := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

	baseClaims := func() *Claims {
		return &Claims{
			Issuer:        issuer,
			Audience:      audience,
			Subject:       "u1",
			Email:         "a@b.com",
			EmailVerified: true,
			IssuedAt:      now.Add(-time.Minute).Unix(),
			Expiry:        now.Add(time.Hour).Unix(),
		}
	}

	testCases := []struct {
		name         string
		mutate       func(*Claims)
		expectedCode string
	}{
		{
			name:   "it accepts a fully valid claim set",
			mutate: func(c *Claims) {},
		},
		{
			name:         "it rejects a wrong issuer",
			mutate:       func(c *Claims) { c.Issuer = "https://idp.example/other" },
			expectedCode: CodeInvalidIssuer,
		},
		{
			name:         "it rejects a wrong audience",
			mutate:       func(c *Claims) { c.Audience = "wrong-proj" },
			expectedCode: CodeInvalidAudience,
		},
		{
			name:         "it rejects an expired token past the leeway",
			mutate:       func(c *Claims) { c.Expiry = now.Add(-leeway - time.Second).Unix() },
			expectedCode: CodeExpired,
		},
		{
			name:   "it accepts an expired token within the leeway",
			mutate: func(c *Claims) { c.Expiry = now.Add(-leeway + time.Second).Unix() },
		},
		{
			name:   "it accepts expiry exactly at the leeway boundary",
			mutate: func(c *Claims) { c.Expiry = now.Add(-leeway).Unix() },
		},
		{
			name:         "it rejects a token issued in the future",
			mutate:       func(c *Claims) { c.IssuedAt = now.Add(leeway + time.Second).Unix() },
			expectedCode: CodeInvalidTiming,
		},
		{
			name:   "it accepts a token issued slightly ahead within the leeway",
			mutate: func(c *Claims) { c.IssuedAt = now.Add(leeway - time.Second).Unix() },
		},
		{
			name:         "it rejects a token that is not yet valid",
			mutate:       func(c *Claims) { c.NotBefore = now.Add(leeway + time.Second).Unix() },
			expectedCode: CodeInvalidTiming,
		},
		{
			name:   "it accepts an absent not-before claim",
			mutate: func(c *Claims) { c.NotBefore = 0 },
		},
		{
			name:   "it accepts an absent expiry claim",
			mutate: func(c *Claims) { c.Expiry = 0 },
		},
		{
			name:         "it rejects a missing subject",
			mutate:       func(c *Claims) { c.Subject = "" },
			expectedCode: CodeMissingSubject,
		},
		{
			name:         "it rejects a missing email",
			mutate:       func(c *Claims) { c.Email = "" },
			expectedCode: CodeMissingEmail,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			v, err := New(issuer, audience,
				WithLeeway(leeway),
				WithClock(func() time.Time { return now }),
			)
			require.NoError(t, err)

			claims := baseClaims()
			tc.mutate(claims)

			err = v.Validate(claims)
			if tc.expectedCode == "" {
				assert.NoError(t, err)
				return
			}

			claimErr := AsClaimError(err)
			require.NotNil(t, claimErr, "expected a *ClaimError, got %v", err)
			assert.Equal(t, tc.expectedCode, claimErr.Code)
		})
	}
}

func TestValidator_ValidateOrder(t *testing.T) {
	// Issuer is checked before audience, and both before timing, so a
	// token that is wrong on every count reports the issuer first.
	v, err := New("https://idp.example/proj-1", "proj-1", WithLeeway(0))
	require.NoError(t, err)

	claims := &Claims{
		Issuer:   "https://idp.example/other",
		Audience: "wrong-proj",
		Expiry:   time.Now().Add(-time.Hour).Unix(),
	}

	claimErr := AsClaimError(v.Validate(claims))
	require.NotNil(t, claimErr)
	assert.Equal(t, CodeInvalidIssuer, claimErr.Code)
}

func TestValidator_ValidateNilClaims(t *testing.T) {
	v, err := New("https://idp.example/proj-1", "proj-1")
	require.NoError(t, err)

	claimErr := AsClaimError(v.Validate(nil))
	require.NotNil(t, claimErr)
	assert.Equal(t, CodeMissingSubject, claimErr.Code)
}

func TestValidator_ZeroLeewayExpiryBoundary(t *testing.T) {
	now := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	v, err := New("https://idp.example/proj-1", "proj-1",
		WithLeeway(0),
		WithClock(func() time.Time { return now }),
	)
	require.NoError(t, err)

	claims := &Claims{
		Issuer:   "https://idp.example/proj-1",
		Audience: "proj-1",
		Subject:  "u1",
		Email:    "a@b.com",
		Expiry:   now.Unix(),
	}
	assert.NoError(t, v.Validate(claims), "exp == now should still pass")

	claims.Expiry = now.Add(-time.Second).Unix()
	claimErr := AsClaimError(v.Validate(claims))
	require.NotNil(t, claimErr)
	assert.Equal(t, CodeExpired, claimErr.Code)
}
