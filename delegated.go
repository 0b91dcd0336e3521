package saascore

import (
	"context"
	"errors"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jws"
	jwxjwt "github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/Symbiot01/saas-core/validator"
)

// delegatedVerifier hands key management and signature verification to the
// jwx key-set machinery instead of the self-managed keystore. Its
// distinguishable failure modes (expired, invalid, key-set fetch failure,
// unknown key) are mapped onto the same error taxonomy as the self-managed
// path, so callers cannot tell which path performed the cryptography.
type delegatedVerifier struct {
	cfg     *Config
	jwks    *jwk.Cache
	claims  *validator.Validator
	logger  Logger
	metrics Metrics
	tracer  Tracer
}

func newDelegatedVerifier(cfg *Config, o *options) (*delegatedVerifier, error) {
	// The cache refreshes lazily on Get; the background goroutine it
	// spawns lives for the process, matching the verifier's lifetime.
	cache := jwk.NewCache(context.Background())

	registerOpts := []jwk.RegisterOption{
		jwk.WithMinRefreshInterval(cfg.CacheTTL),
	}
	if o.httpClient != nil {
		registerOpts = append(registerOpts, jwk.WithHTTPClient(o.httpClient))
	}
	if err := cache.Register(cfg.JWKSEndpoint, registerOpts...); err != nil {
		return nil, configError(ErrorCodeConfigInvalid, "could not register JWKS endpoint", err)
	}

	claims, err := validator.New(cfg.Issuer, cfg.Audience, validator.WithLeeway(cfg.Leeway))
	if err != nil {
		return nil, configError(ErrorCodeConfigInvalid, "could not build claim validator", err)
	}

	return &delegatedVerifier{
		cfg:     cfg,
		jwks:    cache,
		claims:  claims,
		logger:  o.logger,
		metrics: o.metrics,
		tracer:  o.tracer,
	}, nil
}

// Verify implements the Verifier contract over the delegated path.
func (d *delegatedVerifier) Verify(ctx context.Context, rawToken string) (*Identity, error) {
	span := d.tracer.StartSpan("saascore.verify")
	defer span.Finish()

	identity, err := d.verify(ctx, rawToken)
	d.recordOutcome(span, err)
	return identity, err
}

func (d *delegatedVerifier) verify(ctx context.Context, rawToken string) (*Identity, error) {
	if rawToken == "" {
		return nil, authError(ErrorCodeTokenMissing, "token must be a non-empty string", nil)
	}

	key, err := d.resolveKey(ctx, rawToken)
	if err != nil {
		return nil, err
	}

	token, parseErr := jwxjwt.ParseString(rawToken,
		jwxjwt.WithKey(jwa.RS256, key),
		jwxjwt.WithValidate(false),
	)
	if parseErr != nil {
		return nil, authError(ErrorCodeInvalidSignature, "token signature is invalid", parseErr)
	}

	claims := claimsFromToken(token)
	if err := d.claims.Validate(claims); err != nil {
		if claimErr := validator.AsClaimError(err); claimErr != nil {
			return nil, authError(claimErr.Code, claimErr.Message, nil)
		}
		return nil, authError(ErrorCodeTokenMalformed, "token claims could not be validated", err)
	}

	return applyEmailPolicy(d.cfg, claims)
}

// resolveKey decodes the token header without verification, then looks the
// kid up in the cached key set, forcing one refresh when it is absent.
func (d *delegatedVerifier) resolveKey(ctx context.Context, rawToken string) (jwk.Key, *Error) {
	msg, err := jws.Parse([]byte(rawToken))
	if err != nil {
		return nil, authError(ErrorCodeTokenMalformed, "invalid token format", err)
	}

	sigs := msg.Signatures()
	if len(sigs) == 0 {
		return nil, authError(ErrorCodeTokenMalformed, "token carries no signature", nil)
	}

	kid := sigs[0].ProtectedHeaders().KeyID()
	if kid == "" {
		return nil, authError(ErrorCodeMissingKeyID, "token header missing kid (key id)", nil)
	}

	set, err := d.jwks.Get(ctx, d.cfg.JWKSEndpoint)
	if err != nil {
		return nil, authError(ErrorCodeKeyFetchFailed, "failed to fetch provider public keys", err)
	}

	key, ok := set.LookupKeyID(kid)
	if !ok {
		d.logger.Debugf("key id %q missing from cached key set, forcing refresh", kid)
		d.metrics.IncCounter("saas_core_key_refreshes_total", map[string]string{"reason": "unknown_kid"})
		set, err = d.jwks.Refresh(ctx, d.cfg.JWKSEndpoint)
		if err != nil {
			return nil, authError(ErrorCodeKeyFetchFailed, "failed to fetch provider public keys", err)
		}
		key, ok = set.LookupKeyID(kid)
		if !ok {
			return nil, authError(ErrorCodeKeyNotFound, "public key for the token's key id was not found in the provider key set", nil)
		}
	}

	return key, nil
}

func (d *delegatedVerifier) recordOutcome(span Span, err error) {
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
	d.metrics.IncCounter("saas_core_verifications_total", map[string]string{"result": result})
}

// claimsFromToken extracts the claim structure from a parsed jwx token.
func claimsFromToken(token jwxjwt.Token) *validator.Claims {
	claims := &validator.Claims{
		Issuer:  token.Issuer(),
		Subject: token.Subject(),
	}

	if aud := token.Audience(); len(aud) > 0 {
		claims.Audience = aud[0]
	}
	if !token.Expiration().IsZero() {
		claims.Expiry = token.Expiration().Unix()
	}
	if !token.IssuedAt().IsZero() {
		claims.IssuedAt = token.IssuedAt().Unix()
	}
	if !token.NotBefore().IsZero() {
		claims.NotBefore = token.NotBefore().Unix()
	}
	if email, ok := token.Get("email"); ok {
		if s, ok := email.(string); ok {
			claims.Email = s
		}
	}
	if verified, ok := token.Get("email_verified"); ok {
		if b, ok := verified.(bool); ok {
			claims.EmailVerified = b
		}
	}
	if raw, ok := token.Get("auth_time"); ok {
		if f, ok := raw.(float64); ok {
			authTime := int64(f)
			claims.AuthTime = &authTime
		}
	}

	return claims
}
