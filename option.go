package saascore

import (
	"fmt"
	"net/http"

	"github.com/Symbiot01/saas-core/keystore"
)

// Option configures a Verifier during construction.
type Option func(*options) error

type options struct {
	logger     Logger
	metrics    Metrics
	tracer     Tracer
	httpClient *http.Client
	keyStore   *keystore.Store
}

func defaultOptions() *options {
	return &options{
		logger:  &DefaultLogger{},
		metrics: &NoopMetrics{},
		tracer:  &NoopTracer{},
	}
}

// WithLogger sets the logger used by the verifier and its key store.
//
// Default: DefaultLogger (standard library log).
func WithLogger(l Logger) Option {
	return func(o *options) error {
		if l == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		o.logger = l
		return nil
	}
}

// WithMetrics sets the metrics sink for verification outcomes.
//
// Default: NoopMetrics.
func WithMetrics(m Metrics) Option {
	return func(o *options) error {
		if m == nil {
			return fmt.Errorf("metrics cannot be nil")
		}
		o.metrics = m
		return nil
	}
}

// WithTracer sets the tracer used to span each Verify call.
//
// Default: NoopTracer.
func WithTracer(t Tracer) Option {
	return func(o *options) error {
		if t == nil {
			return fmt.Errorf("tracer cannot be nil")
		}
		o.tracer = t
		return nil
	}
}

// WithHTTPClient sets the HTTP client used for key fetches on either
// verification path. If not specified, a client with a 10s timeout is used.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) error {
		if c == nil {
			return fmt.Errorf("HTTP client cannot be nil")
		}
		o.httpClient = c
		return nil
	}
}

// WithKeyStore injects a pre-built key store into the self-managed path.
// Mainly useful for tests that construct isolated stores.
func WithKeyStore(s *keystore.Store) Option {
	return func(o *options) error {
		if s == nil {
			return fmt.Errorf("key store cannot be nil")
		}
		o.keyStore = s
		return nil
	}
}
