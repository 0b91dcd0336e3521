// Package testkeys builds RSA key pairs, self-signed certificates and
// signed tokens for tests. Nothing in here is safe for production use.
package testkeys

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"math/big"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
)

// KeyPair is a test RSA key with its key id.
type KeyPair struct {
	KeyID string
	Key   *rsa.PrivateKey
}

// New generates a 2048-bit RSA key pair under the given key id.
func New(keyID string) (*KeyPair, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, fmt.Errorf("could not generate RSA key: %w", err)
	}
	return &KeyPair{KeyID: keyID, Key: key}, nil
}

// CertPEM wraps the public key in a self-signed X.509 certificate and
// returns it PEM-encoded, the shape the provider's certs endpoint serves.
func (kp *KeyPair) CertPEM() (string, error) {
	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "test-signing-key"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &kp.Key.PublicKey, kp.Key)
	if err != nil {
		return "", fmt.Errorf("could not create certificate: %w", err)
	}

	return string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})), nil
}

// CertsJSON serializes key-id to PEM certificate mappings for the given
// pairs, the response body of the certs endpoint.
func CertsJSON(pairs ...*KeyPair) ([]byte, error) {
	certs := make(map[string]string, len(pairs))
	for _, kp := range pairs {
		pemCert, err := kp.CertPEM()
		if err != nil {
			return nil, err
		}
		certs[kp.KeyID] = pemCert
	}
	return json.Marshal(certs)
}

// JWKSJSON serializes the public halves of the given pairs as a JWKS
// document, the response body of the JWKS endpoint.
func JWKSJSON(pairs ...*KeyPair) ([]byte, error) {
	set := jwk.NewSet()
	for _, kp := range pairs {
		key, err := jwk.FromRaw(&kp.Key.PublicKey)
		if err != nil {
			return nil, fmt.Errorf("could not build JWK: %w", err)
		}
		if err := key.Set(jwk.KeyIDKey, kp.KeyID); err != nil {
			return nil, err
		}
		if err := key.Set(jwk.AlgorithmKey, jwa.RS256); err != nil {
			return nil, err
		}
		if err := set.AddKey(key); err != nil {
			return nil, err
		}
	}
	return json.Marshal(set)
}

// SignToken signs the given claims as an RS256 token carrying the pair's
// key id in the header.
func (kp *KeyPair) SignToken(claims map[string]interface{}) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims(claims))
	token.Header["kid"] = kp.KeyID
	signed, err := token.SignedString(kp.Key)
	if err != nil {
		return "", fmt.Errorf("could not sign token: %w", err)
	}
	return signed, nil
}

// SignTokenWithoutKeyID signs claims without a kid header, for tests that
// exercise the missing-key-id failure.
func (kp *KeyPair) SignTokenWithoutKeyID(claims map[string]interface{}) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims(claims))
	return token.SignedString(kp.Key)
}
