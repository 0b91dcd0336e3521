package validator

// Claims is the decoded token payload handed to the Validator. It must
// only be built from a payload whose signature has already been verified;
// the Validator checks policy, not cryptography.
//
// Numeric-date fields use zero to mean "absent", matching the provider's
// behavior of omitting claims it does not set.
type Claims struct {
	Issuer        string `json:"iss"`
	Audience      string `json:"aud"`
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Expiry        int64  `json:"exp"`
	IssuedAt      int64  `json:"iat"`
	NotBefore     int64  `json:"nbf,omitempty"`
	AuthTime      *int64 `json:"auth_time,omitempty"`
}
