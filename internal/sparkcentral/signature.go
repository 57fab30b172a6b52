package sparkcentral

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
)

// SignatureHeader carries the hex HMAC-SHA256 of the request body.
const SignatureHeader = "X-Sparkcentral-Signature"

var (
	ErrMissingSignature = errors.New("missing sparkcentral signature")
	ErrInvalidSignature = errors.New("invalid sparkcentral signature")
)

// Verifier checks webhook signatures against a shared secret.
type Verifier struct {
	secret []byte
}

// NewVerifier decodes the hex encoded shared secret once.
func NewVerifier(hexSecret string) (*Verifier, error) {
	if hexSecret == "" {
		return nil, errors.New("webhook secret is empty")
	}
	secret, err := hex.DecodeString(hexSecret)
	if err != nil {
		return nil, fmt.Errorf("decode webhook secret: %w", err)
	}
	return &Verifier{secret: secret}, nil
}

// Sign returns the lowercase hex HMAC-SHA256 of body.
func (v *Verifier) Sign(body []byte) string {
	mac := hmac.New(sha256.New, v.secret)
	_, _ = mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify returns nil iff signature is exactly Sign(body).
func (v *Verifier) Verify(body []byte, signature string) error {
	if signature == "" {
		return ErrMissingSignature
	}
	if !hmac.Equal([]byte(v.Sign(body)), []byte(signature)) {
		return ErrInvalidSignature
	}
	return nil
}
