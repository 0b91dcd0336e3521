package grpcauth

import (
	saascore "github.com/Symbiot01/saas-core"
)

// Option configures the Interceptor.
type Option func(*Interceptor)

// WithTokenExtractor sets a custom token extractor.
func WithTokenExtractor(extractor TokenExtractor) Option {
	return func(i *Interceptor) {
		if extractor != nil {
			i.tokenExtractor = extractor
		}
	}
}

// WithExclusionChecker exempts matching methods from authentication.
func WithExclusionChecker(checker ExclusionChecker) Option {
	return func(i *Interceptor) {
		i.exclusionChecker = checker
	}
}

// WithLogger sets the logger used for verification failures.
func WithLogger(logger saascore.Logger) Option {
	return func(i *Interceptor) {
		if logger != nil {
			i.logger = logger
		}
	}
}
