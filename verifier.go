package saascore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Symbiot01/saas-core/keystore"
	"github.com/Symbiot01/saas-core/validator"
)

// Verifier checks a raw bearer token and returns the trusted identity it
// asserts. Implementations are safe for concurrent use by many in-flight
// request handlers.
//
// Two implementations exist, selected once at construction by the
// credential variant and never branched on per call: a self-managed path
// that fetches X.509 signing certificates and verifies RS256 signatures
// itself, and a delegated path that hands the cryptography to the jwx
// key-set machinery. Both honor the same error taxonomy.
type Verifier interface {
	Verify(ctx context.Context, rawToken string) (*Identity, error)
}

// errMissingKeyID marks a token header without a kid so that the keyfunc
// failure can be classified precisely.
var errMissingKeyID = errors.New("token header missing kid (key id)")

// New builds a Verifier for the given configuration. AmbientProject
// credentials select the self-managed path; file and inline service-account
// credentials select the delegated path.
//
// Optional options:
//   - WithLogger: structured logging (default: standard library log)
//   - WithMetrics: verification outcome counters (default: noop)
//   - WithTracer: spans around Verify (default: noop)
//   - WithHTTPClient: client used for key fetches
//   - WithKeyStore: inject a pre-built key store (tests)
func New(cfg *Config, opts ...Option) (Verifier, error) {
	if cfg == nil {
		return nil, configError(ErrorCodeConfigInvalid, "config is required but was nil", nil)
	}

	o := defaultOptions()
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, configError(ErrorCodeConfigInvalid, "invalid option", err)
		}
	}

	switch cfg.Credentials.(type) {
	case AmbientProject:
		return newTokenVerifier(cfg, o)
	case CredentialsFile, CredentialsJSON:
		return newDelegatedVerifier(cfg, o)
	default:
		return nil, configError(ErrorCodeConfigInvalid,
			fmt.Sprintf("unknown credential mode %T", cfg.Credentials), nil)
	}
}

// tokenVerifier is the self-managed implementation: it resolves signing
// keys through a keystore.Store and performs RS256 signature verification
// before any claim is trusted.
type tokenVerifier struct {
	cfg     *Config
	keys    *keystore.Store
	claims  *validator.Validator
	parser  *jwt.Parser
	logger  Logger
	metrics Metrics
	tracer  Tracer
}

func newTokenVerifier(cfg *Config, o *options) (*tokenVerifier, error) {
	keys := o.keyStore
	if keys == nil {
		storeOpts := []keystore.Option{
			keystore.WithTTL(cfg.CacheTTL),
			keystore.WithLogger(o.logger),
		}
		if o.httpClient != nil {
			storeOpts = append(storeOpts, keystore.WithHTTPClient(o.httpClient))
		}
		var err error
		keys, err = keystore.NewStore(cfg.CertsEndpoint, storeOpts...)
		if err != nil {
			return nil, configError(ErrorCodeConfigInvalid, "could not build key store", err)
		}
	}

	claims, err := validator.New(cfg.Issuer, cfg.Audience, validator.WithLeeway(cfg.Leeway))
	if err != nil {
		return nil, configError(ErrorCodeConfigInvalid, "could not build claim validator", err)
	}

	// Claim validation is disabled in the parser and run explicitly
	// afterwards so that every failure carries a precise code.
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithoutClaimsValidation(),
	)

	return &tokenVerifier{
		cfg:     cfg,
		keys:    keys,
		claims:  claims,
		parser:  parser,
		logger:  o.logger,
		metrics: o.metrics,
		tracer:  o.tracer,
	}, nil
}

// Verify runs the verification state machine: reject empty input, decode
// the header for the key id, resolve the signing key, verify the RS256
// signature, validate claims, apply the email policy, and only then shape
// the identity record. Signature verification always happens before claims
// are trusted.
func (v *tokenVerifier) Verify(ctx context.Context, rawToken string) (*Identity, error) {
	span := v.tracer.StartSpan("saascore.verify")
	defer span.Finish()

	identity, err := v.verify(ctx, rawToken)
	v.recordOutcome(span, err)
	return identity, err
}

func (v *tokenVerifier) verify(ctx context.Context, rawToken string) (*Identity, error) {
	if rawToken == "" {
		return nil, authError(ErrorCodeTokenMissing, "token must be a non-empty string", nil)
	}

	token, err := v.parser.Parse(rawToken, v.keyFunc(ctx))
	if err != nil {
		return nil, v.classifyParseError(err)
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, authError(ErrorCodeTokenMalformed, "token carries no claims", nil)
	}

	claims := claimsFromMap(mapClaims)
	if err := v.claims.Validate(claims); err != nil {
		if claimErr := validator.AsClaimError(err); claimErr != nil {
			return nil, authError(claimErr.Code, claimErr.Message, nil)
		}
		return nil, authError(ErrorCodeTokenMalformed, "token claims could not be validated", err)
	}

	return applyEmailPolicy(v.cfg, claims)
}

// keyFunc resolves the token's kid through the key store. A KeyNotFound
// triggers exactly one forced cache-clear-and-retry to absorb a key
// rotation that outpaced the cache.
func (v *tokenVerifier) keyFunc(ctx context.Context) jwt.Keyfunc {
	return func(token *jwt.Token) (interface{}, error) {
		kid, ok := token.Header["kid"].(string)
		if !ok || kid == "" {
			return nil, errMissingKeyID
		}

		key, err := v.keys.Resolve(ctx, kid)
		if errors.Is(err, keystore.ErrKeyNotFound) {
			v.logger.Debugf("key id %q missing from cached key set, forcing refresh", kid)
			v.metrics.IncCounter("saas_core_key_refreshes_total", map[string]string{"reason": "unknown_kid"})
			v.keys.Invalidate()
			key, err = v.keys.Resolve(ctx, kid)
		}
		if err != nil {
			return nil, err
		}
		return key.PublicKey, nil
	}
}

func (v *tokenVerifier) classifyParseError(err error) *Error {
	switch {
	case errors.Is(err, errMissingKeyID):
		return authError(ErrorCodeMissingKeyID, "token header missing kid (key id)", nil)
	case errors.Is(err, keystore.ErrKeyNotFound):
		return authError(ErrorCodeKeyNotFound, "public key for the token's key id was not found in the provider key set", err)
	case errors.Is(err, keystore.ErrFetchFailed):
		return authError(ErrorCodeKeyFetchFailed, "failed to fetch provider public keys", err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return authError(ErrorCodeInvalidSignature, "token signature is invalid", err)
	case errors.Is(err, jwt.ErrTokenMalformed):
		return authError(ErrorCodeTokenMalformed, "invalid token format", err)
	default:
		return authError(ErrorCodeTokenMalformed, "token could not be verified", err)
	}
}

func (v *tokenVerifier) recordOutcome(span Span, err error) {
	result := "success"
	if err != nil {
		var verr *Error
		if errors.As(err, &verr) {
			result = verr.Code
		} else {
			result = "error"
		}
	}
	span.SetTag("result", result)
	v.metrics.IncCounter("saas_core_verifications_total", map[string]string{"result": result})
}

// applyEmailPolicy enforces the email-verification requirement and shapes
// the final identity record. Shared by both verifier implementations.
func applyEmailPolicy(cfg *Config, claims *validator.Claims) (*Identity, error) {
	if cfg.RequireEmailVerified && !claims.EmailVerified {
		return nil, &Error{
			Kind:    KindEmailNotVerified,
			Code:    ErrorCodeEmailNotVerified,
			Message: "email verification is required but email is not verified",
		}
	}

	return &Identity{
		UID:           claims.Subject,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		AuthTime:      claims.AuthTime,
	}, nil
}

// claimsFromMap converts the raw decoded payload into the claim structure
// the validator checks. JSON numbers arrive as float64.
func claimsFromMap(m jwt.MapClaims) *validator.Claims {
	claims := &validator.Claims{}

	if iss, ok := m["iss"].(string); ok {
		claims.Issuer = iss
	}
	if aud, ok := m["aud"].(string); ok {
		claims.Audience = aud
	}
	if sub, ok := m["sub"].(string); ok {
		claims.Subject = sub
	}
	if email, ok := m["email"].(string); ok {
		claims.Email = email
	}
	if verified, ok := m["email_verified"].(bool); ok {
		claims.EmailVerified = verified
	}
	claims.Expiry = numericClaim(m, "exp")
	claims.IssuedAt = numericClaim(m, "iat")
	claims.NotBefore = numericClaim(m, "nbf")
	if authTime := numericClaim(m, "auth_time"); authTime != 0 {
		claims.AuthTime = &authTime
	}

	return claims
}

func numericClaim(m jwt.MapClaims, name string) int64 {
	switch value := m[name].(type) {
	case float64:
		return int64(value)
	case int64:
		return value
	case json.Number:
		n, _ := value.Int64()
		return n
	default:
		return 0
	}
}
