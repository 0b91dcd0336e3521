// Package ginauth adapts the saascore verifier to Gin. It extracts the
// bearer token, runs verification, stores the resulting identity in the
// Gin context, and maps failure kinds onto HTTP status codes.
package ginauth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	saascore "github.com/Symbiot01/saas-core"
)

// DefaultIdentityKey is the Gin context key under which the verified
// identity is stored.
const DefaultIdentityKey = "identity"

var (
	ErrMissingIdentity = errors.New("no verified identity found in context")
	ErrInvalidIdentity = errors.New("invalid identity type in context")
)

// GinMiddlewareConfig holds all configuration for the middleware.
type GinMiddlewareConfig struct {
	errorHandler   func(*gin.Context, error)
	contextKey     string
	tokenExtractor saascore.TokenExtractor
}

// Middleware returns a Gin handler that authenticates requests with the
// given verifier. Verification failures abort the chain.
func Middleware(verifier saascore.Verifier, opts ...Option) gin.HandlerFunc {
	config := &GinMiddlewareConfig{
		errorHandler:   DefaultErrorHandler,
		contextKey:     DefaultIdentityKey,
		tokenExtractor: saascore.AuthHeaderTokenExtractor,
	}

	for _, opt := range opts {
		opt(config)
	}

	return func(c *gin.Context) {
		token, err := config.tokenExtractor(c.Request)
		if err != nil {
			config.errorHandler(c, saascore.NewError(
				saascore.KindAuthentication, saascore.ErrorCodeTokenMalformed, err.Error(), err))
			return
		}

		identity, err := verifier.Verify(c.Request.Context(), token)
		if err != nil {
			config.errorHandler(c, err)
			return
		}

		c.Set(config.contextKey, identity)
		c.Request = c.Request.WithContext(
			saascore.NewContext(c.Request.Context(), identity))
		c.Next()
	}
}

// DefaultErrorHandler maps failure kinds onto HTTP statuses:
// configuration faults are 500, an unverified email is 403, and every
// other verification failure is 401.
func DefaultErrorHandler(c *gin.Context, err error) {
	c.AbortWithStatusJSON(StatusForError(err), gin.H{
		"error": err.Error(),
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

// GetIdentity extracts the verified identity from the Gin context.
func GetIdentity(c *gin.Context, contextKey string) (*saascore.Identity, error) {
	if contextKey == "" {
		contextKey = DefaultIdentityKey
	}
	value, exists := c.Get(contextKey)
	if !exists {
		return nil, ErrMissingIdentity
	}

	identity, ok := value.(*saascore.Identity)
	if !ok {
		return nil, ErrInvalidIdentity
	}

	return identity, nil
}
