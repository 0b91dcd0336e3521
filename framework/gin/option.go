package ginauth

import (
	"github.com/gin-gonic/gin"

	saascore "github.com/Symbiot01/saas-core"
)

// Option defines a functional option for configuring the middleware.
type Option func(*GinMiddlewareConfig)

// WithErrorHandler sets a custom error handler for the middleware.
func WithErrorHandler(handler func(*gin.Context, error)) Option {
	return func(config *GinMiddlewareConfig) {
		config.errorHandler = handler
	}
}

// WithContextKey sets a custom context key to store the identity.
func WithContextKey(key string) Option {
	return func(config *GinMiddlewareConfig) {
		config.contextKey = key
	}
}

// WithTokenExtractor sets a custom token extractor.
func WithTokenExtractor(extractor saascore.TokenExtractor) Option {
	return func(config *GinMiddlewareConfig) {
		config.tokenExtractor = extractor
	}
}
