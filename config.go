package saascore

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Default endpoints published by Google for Secure Token signing keys.
// The certs endpoint serves a JSON object mapping key id to a PEM-encoded
// X.509 certificate; the JWKS endpoint serves the same keys in JWK format.
const (
	DefaultCertsEndpoint = "https://www.googleapis.com/robot/v1/metadata/x509/securetoken@system.gserviceaccount.com"
	DefaultJWKSEndpoint  = "https://www.googleapis.com/service_accounts/v1/jwk/securetoken@system.gserviceaccount.com"

	issuerPrefix = "https://securetoken.google.com/"
)

// Defaults applied when the corresponding option or environment variable
// is absent.
const (
	DefaultCacheTTL = time.Hour
	DefaultLeeway   = 60 * time.Second
)

// envPrefix is the prefix for all environment variables read by ConfigFromEnv.
const envPrefix = "SAAS_CORE"

// Credentials is the tagged union of the three mutually exclusive
// credential-acquisition modes. Exactly one concrete variant is held by a
// Config; construction fails otherwise.
type Credentials interface {
	// Mode returns a short name for the credential variant, used in
	// error messages and logs.
	Mode() string

	// projectID resolves the Google Cloud project id for this variant.
	projectID() (string, error)
}

// CredentialsFile points at a service-account credential document on disk.
type CredentialsFile struct {
	Path string
}

func (c CredentialsFile) Mode() string { return "credentials_file" }

func (c CredentialsFile) projectID() (string, error) {
	raw, err := os.ReadFile(c.Path)
	if err != nil {
		return "", fmt.Errorf("could not read credentials file %q: %w", c.Path, err)
	}
	return projectIDFromServiceAccount(raw)
}

// CredentialsJSON holds an inline service-account credential document.
type CredentialsJSON struct {
	Raw string
}

func (c CredentialsJSON) Mode() string { return "credentials_json" }

func (c CredentialsJSON) projectID() (string, error) {
	return projectIDFromServiceAccount([]byte(c.Raw))
}

// AmbientProject identifies the project directly and relies on ambient
// credentials; no credential document is needed for token verification.
type AmbientProject struct {
	ProjectID string
}

func (c AmbientProject) Mode() string { return "ambient_project" }

func (c AmbientProject) projectID() (string, error) {
	if c.ProjectID == "" {
		return "", fmt.Errorf("project id is empty")
	}
	return c.ProjectID, nil
}

func projectIDFromServiceAccount(raw []byte) (string, error) {
	var doc struct {
		ProjectID string `json:"project_id"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return "", fmt.Errorf("credentials must be valid JSON: %w", err)
	}
	if doc.ProjectID == "" {
		return "", fmt.Errorf("credentials are missing project_id")
	}
	return doc.ProjectID, nil
}

// Config is an immutable snapshot of the verification settings. Build one
// with NewConfig or ConfigFromEnv and treat it as read-only; swap the whole
// value to reconfigure.
type Config struct {
	// Issuer is the expected iss claim. Derived from the project id
	// when left empty.
	Issuer string

	// Audience is the expected aud claim. Derived from the project id
	// when left empty.
	Audience string

	// CertsEndpoint serves the key-id to PEM X.509 certificate mapping
	// used by the self-managed verification path.
	CertsEndpoint string

	// JWKSEndpoint serves the provider JWKS used by the delegated
	// verification path.
	JWKSEndpoint string

	// CacheTTL bounds how long a fetched key set is treated as fresh.
	CacheTTL time.Duration

	// Leeway is the clock-skew tolerance applied to time-based claims.
	Leeway time.Duration

	// RequireEmailVerified enforces the email-verification policy.
	RequireEmailVerified bool

	// Credentials selects the credential-acquisition mode and, with it,
	// the verification path.
	Credentials Credentials

	// ProjectID is resolved from Credentials during construction.
	ProjectID string
}

// ConfigOption configures a Config during construction.
type ConfigOption func(*Config) error

// WithIssuer overrides the issuer derived from the project id.
func WithIssuer(issuer string) ConfigOption {
	return func(c *Config) error {
		if issuer == "" {
			return fmt.Errorf("issuer cannot be empty")
		}
		c.Issuer = issuer
		return nil
	}
}

// WithAudience overrides the audience derived from the project id.
func WithAudience(audience string) ConfigOption {
	return func(c *Config) error {
		if audience == "" {
			return fmt.Errorf("audience cannot be empty")
		}
		c.Audience = audience
		return nil
	}
}

// WithCertsEndpoint overrides the X.509 certificate endpoint.
func WithCertsEndpoint(endpoint string) ConfigOption {
	return func(c *Config) error {
		if endpoint == "" {
			return fmt.Errorf("certs endpoint cannot be empty")
		}
		c.CertsEndpoint = endpoint
		return nil
	}
}

// WithJWKSEndpoint overrides the JWKS endpoint used by the delegated path.
func WithJWKSEndpoint(endpoint string) ConfigOption {
	return func(c *Config) error {
		if endpoint == "" {
			return fmt.Errorf("JWKS endpoint cannot be empty")
		}
		c.JWKSEndpoint = endpoint
		return nil
	}
}

// WithCacheTTL sets how long fetched signing keys stay fresh.
//
// Default: 1 hour.
func WithCacheTTL(ttl time.Duration) ConfigOption {
	return func(c *Config) error {
		if ttl <= 0 {
			return fmt.Errorf("cache TTL must be positive")
		}
		c.CacheTTL = ttl
		return nil
	}
}

// WithLeeway sets the clock-skew tolerance for time-based claim checks.
//
// Default: 60 seconds.
func WithLeeway(leeway time.Duration) ConfigOption {
	return func(c *Config) error {
		if leeway < 0 {
			return fmt.Errorf("leeway cannot be negative")
		}
		c.Leeway = leeway
		return nil
	}
}

// WithRequireEmailVerified sets the email-verification policy.
//
// Default: true.
func WithRequireEmailVerified(require bool) ConfigOption {
	return func(c *Config) error {
		c.RequireEmailVerified = require
		return nil
	}
}

// WithCredentials sets the credential-acquisition mode (REQUIRED unless
// loading from the environment).
func WithCredentials(creds Credentials) ConfigOption {
	return func(c *Config) error {
		if creds == nil {
			return fmt.Errorf("credentials cannot be nil")
		}
		if c.Credentials != nil {
			return fmt.Errorf("credentials already set to %s", c.Credentials.Mode())
		}
		c.Credentials = creds
		return nil
	}
}

// NewConfig builds an immutable Config from the supplied options. Exactly
// one credential variant must be provided; inline credential JSON is
// validated eagerly so that a malformed document fails here rather than on
// the first request.
func NewConfig(opts ...ConfigOption) (*Config, error) {
	cfg := &Config{
		CertsEndpoint:        DefaultCertsEndpoint,
		JWKSEndpoint:         DefaultJWKSEndpoint,
		CacheTTL:             DefaultCacheTTL,
		Leeway:               DefaultLeeway,
		RequireEmailVerified: true,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, configError(ErrorCodeConfigInvalid, "invalid option", err)
		}
	}

	if cfg.Credentials == nil {
		return nil, configError(ErrorCodeConfigInvalid,
			"one of the following must be set: "+
				"SAAS_CORE_FIREBASE_CREDENTIALS_PATH, "+
				"SAAS_CORE_FIREBASE_CREDENTIALS_JSON, or "+
				"SAAS_CORE_GOOGLE_PROJECT_ID", nil)
	}

	projectID, err := cfg.Credentials.projectID()
	if err != nil {
		return nil, configError(ErrorCodeConfigInvalid,
			fmt.Sprintf("could not resolve project id from %s", cfg.Credentials.Mode()), err)
	}
	cfg.ProjectID = projectID

	if cfg.Issuer == "" {
		cfg.Issuer = issuerPrefix + projectID
	}
	if cfg.Audience == "" {
		cfg.Audience = projectID
	}

	return cfg, nil
}

// ConfigFromEnv loads a Config from SAAS_CORE_* environment variables:
//
//	SAAS_CORE_FIREBASE_CREDENTIALS_PATH   path to a service-account JSON file
//	SAAS_CORE_FIREBASE_CREDENTIALS_JSON   inline service-account JSON
//	SAAS_CORE_GOOGLE_PROJECT_ID           project id for ambient credentials
//	SAAS_CORE_ISSUER                      expected issuer (optional)
//	SAAS_CORE_AUDIENCE                    expected audience (optional)
//	SAAS_CORE_JWKS_ENDPOINT               key endpoint override (optional)
//	SAAS_CORE_JWKS_CACHE_TTL              key cache TTL in seconds (default 3600)
//	SAAS_CORE_JWT_LEEWAY                  clock leeway in seconds (default 60)
//	SAAS_CORE_REQUIRE_EMAIL_VERIFIED      email policy (default true)
//
// Exactly one of the three credential variables must be set.
func ConfigFromEnv() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	v.SetDefault("jwks_cache_ttl", int(DefaultCacheTTL/time.Second))
	v.SetDefault("jwt_leeway", int(DefaultLeeway/time.Second))
	v.SetDefault("require_email_verified", true)

	var opts []ConfigOption

	set := 0
	if path := v.GetString("firebase_credentials_path"); path != "" {
		opts = append(opts, WithCredentials(CredentialsFile{Path: path}))
		set++
	}
	if raw := v.GetString("firebase_credentials_json"); raw != "" {
		opts = append(opts, WithCredentials(CredentialsJSON{Raw: raw}))
		set++
	}
	if project := v.GetString("google_project_id"); project != "" {
		opts = append(opts, WithCredentials(AmbientProject{ProjectID: project}))
		set++
	}
	if set > 1 {
		return nil, configError(ErrorCodeConfigInvalid,
			"exactly one credential mode must be set, found multiple", nil)
	}

	if issuer := v.GetString("issuer"); issuer != "" {
		opts = append(opts, WithIssuer(issuer))
	}
	if audience := v.GetString("audience"); audience != "" {
		opts = append(opts, WithAudience(audience))
	}
	// Either verification path may be active depending on the credential
	// mode, so the endpoint override applies to both.
	if endpoint := v.GetString("jwks_endpoint"); endpoint != "" {
		opts = append(opts, WithCertsEndpoint(endpoint), WithJWKSEndpoint(endpoint))
	}

	ttl := v.GetInt("jwks_cache_ttl")
	if ttl <= 0 {
		return nil, configError(ErrorCodeConfigInvalid,
			"SAAS_CORE_JWKS_CACHE_TTL must be a positive integer", nil)
	}
	opts = append(opts, WithCacheTTL(time.Duration(ttl)*time.Second))

	leeway := v.GetInt("jwt_leeway")
	if leeway < 0 {
		return nil, configError(ErrorCodeConfigInvalid,
			"SAAS_CORE_JWT_LEEWAY cannot be negative", nil)
	}
	opts = append(opts, WithLeeway(time.Duration(leeway)*time.Second))

	opts = append(opts, WithRequireEmailVerified(v.GetBool("require_email_verified")))

	return NewConfig(opts...)
}
