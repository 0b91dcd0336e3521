package echoauth

import (
	"github.com/labstack/echo/v4"

	saascore "github.com/Symbiot01/saas-core"
)

// Option is a function that configures the middleware.
type Option func(*echoMiddlewareConfig)

// WithErrorHandler sets a custom error handler.
func WithErrorHandler(handler func(echo.Context, error)) Option {
	return func(config *echoMiddlewareConfig) {
		config.errorHandler = handler
	}
}

// WithContextKey sets a custom context key to store the identity.
func WithContextKey(key string) Option {
	return func(config *echoMiddlewareConfig) {
		config.contextKey = key
	}
}

// WithTokenExtractor sets a custom token extractor.
func WithTokenExtractor(extractor saascore.TokenExtractor) Option {
	return func(config *echoMiddlewareConfig) {
		config.tokenExtractor = extractor
	}
}
