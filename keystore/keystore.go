// Package keystore fetches, parses and caches the identity provider's
// public signing keys. Keys are published as a JSON object mapping key id
// to a PEM-encoded X.509 certificate; the whole mapping is cached as one
// unit and replaced atomically on refresh, mirroring the provider's
// rotate-as-a-set publication model.
package keystore

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// Sentinel errors returned by Resolve. A fetch failure (network, non-2xx,
// unparseable body) is distinct from a key id that is simply absent from a
// successfully fetched set.
var (
	// ErrKeyNotFound is returned when the key id is absent from the
	// current key set. This signals key rotation outpacing the cache,
	// or a forged/garbled token.
	ErrKeyNotFound = errors.New("signing key not found")

	// ErrFetchFailed is returned when the key set could not be fetched
	// or yielded no usable keys.
	ErrFetchFailed = errors.New("could not fetch signing keys")
)

// Logger is the minimal logging surface the store needs. It is satisfied
// by the saascore Logger implementations.
type Logger interface {
	Debugf(format string, args ...interface{})
	Warnf(format string, args ...interface{})
}

type noopLogger struct{}

func (noopLogger) Debugf(string, ...interface{}) {}
func (noopLogger) Warnf(string, ...interface{})  {}

// SigningKey is one provider public key. It is immutable once constructed
// and owned by the store's cache; callers must not retain mutable
// references to it.
type SigningKey struct {
	KeyID     string
	PublicKey *rsa.PublicKey
	FetchedAt time.Time
}

// keySnapshot is one full refresh of the provider key set. The snapshot is
// replaced wholesale, never mutated, so readers holding a reference always
// see a consistent mapping.
type keySnapshot struct {
	keys        map[string]*SigningKey
	refreshedAt time.Time
}

// Store resolves key ids to verification keys, caching a full key-set
// snapshot with a TTL. It is safe for concurrent use: reads take a shared
// lock and a refresh swaps the snapshot under the exclusive lock.
// Concurrent refreshes triggered by simultaneous misses are allowed as
// redundant work; last write wins.
type Store struct {
	endpoint string
	client   *http.Client
	ttl      time.Duration
	logger   Logger
	now      func() time.Time

	mu       sync.RWMutex
	snapshot *keySnapshot
}

// NewStore builds a Store for the given certificate endpoint.
//
// Optional options:
//   - WithTTL: cache freshness window (default: 1 hour)
//   - WithHTTPClient: custom HTTP client (default: 10s timeout)
//   - WithLogger: logger for skipped certificates and refreshes
//   - WithClock: clock override for tests
func NewStore(endpoint string, opts ...Option) (*Store, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("endpoint is required but was empty")
	}

	s := &Store{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
		ttl:      time.Hour,
		logger:   noopLogger{},
		now:      time.Now,
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	return s, nil
}

// Resolve returns the signing key for keyID. A cached, unexpired snapshot
// is consulted first; if there is none, one full refresh is performed
// before looking up the key id. A key id absent from a fresh snapshot
// fails with ErrKeyNotFound without another network call, so that a single
// bad token cannot amplify into repeated fetches; callers handling a
// rotation race should Invalidate and resolve once more.
func (s *Store) Resolve(ctx context.Context, keyID string) (*SigningKey, error) {
	if keyID == "" {
		return nil, fmt.Errorf("%w: empty key id", ErrKeyNotFound)
	}

	snap := s.freshSnapshot()
	if snap == nil {
		var err error
		snap, err = s.refresh(ctx)
		if err != nil {
			return nil, err
		}
	}

	key, ok := snap.keys[keyID]
	if !ok {
		return nil, fmt.Errorf("%w: key id %q is not in the provider key set", ErrKeyNotFound, keyID)
	}
	return key, nil
}

// Invalidate drops the cached snapshot so that the next Resolve performs a
// full refresh. Used to force a re-fetch on a suspected key rotation.
func (s *Store) Invalidate() {
	s.mu.Lock()
	s.snapshot = nil
	s.mu.Unlock()
}

func (s *Store) freshSnapshot() *keySnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.snapshot == nil {
		return nil
	}
	if s.now().Sub(s.snapshot.refreshedAt) >= s.ttl {
		return nil
	}
	return s.snapshot
}

// refresh fetches the full certificate mapping and swaps in a new
// snapshot. Individual malformed entries are skipped with a warning; a
// refresh that recovers zero usable keys is a hard fetch failure rather
// than a silent empty cache.
func (s *Store) refresh(ctx context.Context) (*keySnapshot, error) {
	certs, err := s.fetchCerts(ctx)
	if err != nil {
		return nil, err
	}

	fetchedAt := s.now()
	keys := make(map[string]*SigningKey, len(certs))
	for keyID, certPEM := range certs {
		pub, err := publicKeyFromCertPEM(certPEM)
		if err != nil {
			s.logger.Warnf("skipping unusable certificate for key id %q: %v", keyID, err)
			continue
		}
		keys[keyID] = &SigningKey{KeyID: keyID, PublicKey: pub, FetchedAt: fetchedAt}
	}

	if len(keys) == 0 {
		return nil, fmt.Errorf("%w: key set contained no usable keys", ErrFetchFailed)
	}

	snap := &keySnapshot{keys: keys, refreshedAt: fetchedAt}

	s.mu.Lock()
	s.snapshot = snap
	s.mu.Unlock()

	s.logger.Debugf("refreshed signing key set: %d usable keys", len(keys))
	return snap, nil
}

func (s *Store) fetchCerts(ctx context.Context) (map[string]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: endpoint returned status %d", ErrFetchFailed, resp.StatusCode)
	}

	// JWKS documents are typically well under 10KB; 1MB bounds a
	// misbehaving endpoint.
	limitedBody := io.LimitReader(resp.Body, 1*1024*1024)

	var certs map[string]string
	if err := json.NewDecoder(limitedBody).Decode(&certs); err != nil {
		return nil, fmt.Errorf("%w: could not decode response body: %v", ErrFetchFailed, err)
	}

	return certs, nil
}

func publicKeyFromCertPEM(certPEM string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(certPEM))
	if block == nil {
		return nil, fmt.Errorf("no PEM block found")
	}

	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("could not parse certificate: %w", err)
	}

	pub, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("certificate does not carry an RSA public key")
	}
	return pub, nil
}
