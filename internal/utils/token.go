package utils // package utils provides helper functions for token generation and hashing

import (
	"crypto/rand"  // secure random number generation
	"encoding/hex" // hex encoding for token material
	"time"         // expiration handling for provisioning tokens

	"github.com/golang-jwt/jwt/v5" // JWT library for signed provisioning tokens
)

// apiKeyBytes is the entropy of a generated API key: 32 random bytes encode
// to 64 hex characters. At 256 bits, collisions are practically impossible;
// the store's unique index is the backstop, not the primary defense.
const apiKeyBytes = 32

// NewAPIKey returns a fresh high-entropy API key as a hex string.
func NewAPIKey() (string, error) {
	return randomHex(apiKeyBytes)
}

// randomHex returns n random bytes hex-encoded (2n characters).
func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// ProvisionScope is the claim value that marks a token as authorizing key
// issuance. Provisioning tokens are minted out of band by operator tooling
// and presented as a Bearer credential on the create-key endpoint.
const ProvisionScope = "provision"

// NewProvisionToken builds and signs an HS256 JWT that authorizes calls to
// the key issuance endpoint for ttl. The issuer is recorded for audit only.
func NewProvisionToken(secret, issuer string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"iss":   issuer,
		"scope": ProvisionScope,
		"exp":   now.Add(ttl).Unix(),
		"iat":   now.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(secret))
}
