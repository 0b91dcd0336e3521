package saascore

import "errors"

// Kind classifies a verification failure so that callers can map it onto
// a transport-level response without parsing error messages.
type Kind int

const (
	// KindConfiguration signals a deployment/setup fault: no resolvable
	// credential mode, malformed credential JSON, or a missing project id.
	// It is never a function of the request and should map to a 5xx-class
	// response rather than an auth failure.
	KindConfiguration Kind = iota + 1

	// KindAuthentication signals that the request's token is unacceptable.
	KindAuthentication

	// KindEmailNotVerified signals a token that is otherwise fully valid
	// but fails the email-verification policy. It is a distinguished
	// subtype of authentication failure.
	KindEmailNotVerified

	// KindDatabase signals a persistence-layer error. The database layer
	// is currently a placeholder; see database.go.
	KindDatabase
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindAuthentication:
		return "authentication"
	case KindEmailNotVerified:
		return "email_not_verified"
	case KindDatabase:
		return "database"
	default:
		return "unknown"
	}
}

// Sentinel errors for use with errors.Is. EmailNotVerified errors also
// match ErrAuthentication, mirroring the subtype relation callers rely on.
var (
	ErrConfiguration    = errors.New("configuration error")
	ErrAuthentication   = errors.New("authentication failed")
	ErrEmailNotVerified = errors.New("email not verified")
	ErrDatabase         = errors.New("database error")
)

// Machine-readable error codes carried by *Error. Callers can switch on
// these for diagnostics without string-parsing messages.
const (
	ErrorCodeTokenMissing     = "token_missing"
	ErrorCodeTokenMalformed   = "token_malformed"
	ErrorCodeMissingKeyID     = "missing_key_id"
	ErrorCodeKeyNotFound      = "key_not_found"
	ErrorCodeKeyFetchFailed   = "key_fetch_failed"
	ErrorCodeInvalidSignature = "invalid_signature"
	ErrorCodeTokenExpired     = "token_expired"
	ErrorCodeInvalidIssuer    = "invalid_issuer"
	ErrorCodeInvalidAudience  = "invalid_audience"
	ErrorCodeInvalidTiming    = "invalid_timing"
	ErrorCodeMissingSubject   = "missing_subject"
	ErrorCodeMissingEmail     = "missing_email"
	ErrorCodeEmailNotVerified = "email_not_verified"
	ErrorCodeConfigInvalid    = "config_invalid"
	ErrorCodeNotImplemented   = "not_implemented"
)

// Error is the structured error returned by this library. It carries the
// failure kind, a machine-readable code, a human-readable message and the
// underlying cause, if any.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap returns the underlying error for error unwrapping.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is supports equality against the kind sentinels. An email-not-verified
// error also matches ErrAuthentication.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrConfiguration:
		return e.Kind == KindConfiguration
	case ErrAuthentication:
		return e.Kind == KindAuthentication || e.Kind == KindEmailNotVerified
	case ErrEmailNotVerified:
		return e.Kind == KindEmailNotVerified
	case ErrDatabase:
		return e.Kind == KindDatabase
	}
	return false
}

// IsConfigurationError reports whether err is a deployment/setup fault.
func IsConfigurationError(err error) bool { return errors.Is(err, ErrConfiguration) }

// IsAuthenticationError reports whether err is an authentication failure,
// including the email-not-verified subtype.
func IsAuthenticationError(err error) bool { return errors.Is(err, ErrAuthentication) }

// IsEmailNotVerifiedError reports whether err is specifically the
// email-verification policy failure.
func IsEmailNotVerifiedError(err error) bool { return errors.Is(err, ErrEmailNotVerified) }

// NewError creates a new *Error with the given kind, code and message.
func NewError(kind Kind, code, message string, err error) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Err: err}
}

func authError(code, message string, err error) *Error {
	return &Error{Kind: KindAuthentication, Code: code, Message: message, Err: err}
}

func configError(code, message string, err error) *Error {
	return &Error{Kind: KindConfiguration, Code: code, Message: message, Err: err}
}
