// Package echoauth adapts the saascore verifier to Echo. It extracts the
// bearer token, runs verification, stores the resulting identity in both
// the Echo context and the request context, and maps failure kinds onto
// HTTP status codes.
package echoauth

import (
	"net/http"

	"github.com/labstack/echo/v4"

	saascore "github.com/Symbiot01/saas-core"
)

// DefaultIdentityKey is the Echo context key under which the verified
// identity is stored.
const DefaultIdentityKey = "identity"

// echoMiddlewareConfig holds all configuration for the middleware.
type echoMiddlewareConfig struct {
	errorHandler   func(echo.Context, error)
	contextKey     string
	tokenExtractor saascore.TokenExtractor
}

// Middleware returns an Echo middleware that authenticates requests with
// the given verifier.
func Middleware(verifier saascore.Verifier, opts ...Option) echo.MiddlewareFunc {
	config := &echoMiddlewareConfig{
		errorHandler:   DefaultErrorHandler,
		contextKey:     DefaultIdentityKey,
		tokenExtractor: saascore.AuthHeaderTokenExtractor,
	}

	for _, opt := range opts {
		opt(config)
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, err := config.tokenExtractor(c.Request())
			if err != nil {
				config.errorHandler(c, saascore.NewError(
					saascore.KindAuthentication, saascore.ErrorCodeTokenMalformed, err.Error(), err))
				return nil
			}

			identity, err := verifier.Verify(c.Request().Context(), token)
			if err != nil {
				config.errorHandler(c, err)
				return nil
			}

			c.Set(config.contextKey, identity)
			c.SetRequest(c.Request().WithContext(
				saascore.NewContext(c.Request().Context(), identity)))
			return next(c)
		}
	}
}

// DefaultErrorHandler maps failure kinds onto HTTP statuses:
// configuration faults are 500, an unverified email is 403, and every
// other verification failure is 401.
func DefaultErrorHandler(c echo.Context, err error) {
	_ = c.JSON(StatusForError(err), map[string]string{
		"message": err.Error(),
	})
}

// StatusForError returns the HTTP status for a verification error.
func StatusForError(err error) int {
	switch {
	case saascore.IsConfigurationError(err):
		return http.StatusInternalServerError
	case saascore.IsEmailNotVerifiedError(err):
		return http.StatusForbidden
	default:
		return http.StatusUnauthorized
	}
}

// GetIdentity extracts the verified identity from the Echo context.
func GetIdentity(c echo.Context, contextKey string) (*saascore.Identity, bool) {
	if contextKey == "" {
		contextKey = DefaultIdentityKey
	}
	identity, ok := c.Get(contextKey).(*saascore.Identity)
	return identity, ok
}
