// Package auth verifies the bearer tokens that carry an account claim.
//
// A token is base64url(claims).base64url(signature) where the signature
// is ed25519 over the encoded claims.
package auth

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/ed25519"

	"github.com/sheikh-saqib/bank-ledger-service/internal/fault"
	"github.com/sheikh-saqib/bank-ledger-service/internal/interfaces"
)

var encoding = base64.RawURLEncoding

type claims struct {
	Account string `json:"acct"`
	Name    string `json:"name,omitempty"`
	Expires int64  `json:"exp"`
}

// Verifier implements interfaces.TokenVerifier.
type Verifier struct {
	key ed25519.PublicKey
	now func() time.Time
}

// NewVerifier creates a verifier from a hex encoded public key.
func NewVerifier(hexKey string) (*Verifier, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("auth: public key: %w", err)
	}
	if len(key) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("auth: public key length %d, expected %d", len(key), ed25519.PublicKeySize)
	}
	return &Verifier{key: ed25519.PublicKey(key), now: time.Now}, nil
}

// VerifyToken checks the signature and expiry and returns the claim.
func (v *Verifier) VerifyToken(token string) (interfaces.Claim, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 2 {
		return interfaces.Claim{}, fault.ErrUnauthorized
	}
	payload, err := encoding.DecodeString(parts[0])
	if err != nil {
		return interfaces.Claim{}, fault.ErrUnauthorized
	}
	signature, err := encoding.DecodeString(parts[1])
	if err != nil || !ed25519.Verify(v.key, []byte(parts[0]), signature) {
		return interfaces.Claim{}, fault.ErrUnauthorized
	}

	var c claims
	if err := json.Unmarshal(payload, &c); err != nil {
		return interfaces.Claim{}, fault.ErrUnauthorized
	}
	if c.Account == "" || v.now().Unix() >= c.Expires {
		return interfaces.Claim{}, fault.ErrUnauthorized
	}
	return interfaces.Claim{Account: c.Account, Name: c.Name}, nil
}

// Signer issues tokens; used by tests and local tooling.
type Signer struct {
	key ed25519.PrivateKey
}

func NewSigner(key ed25519.PrivateKey) *Signer {
	return &Signer{key: key}
}

// Sign returns a token for account that is valid for ttl.
func (s *Signer) Sign(account, name string, ttl time.Duration) (string, error) {
	payload, err := json.Marshal(claims{
		Account: account,
		Name:    name,
		Expires: time.Now().Add(ttl).Unix(),
	})
	if err != nil {
		return "", err
	}
	encoded := encoding.EncodeToString(payload)
	signature := ed25519.Sign(s.key, []byte(encoded))
	return encoded + "." + encoding.EncodeToString(signature), nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}

var _ interfaces.TokenVerifier = (*Verifier)(nil)
