package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

var (
	// ErrMissingSignature is returned when the webhook carried no signature header.
	ErrMissingSignature = errors.New("payment: signature missing")
	// ErrSignatureMismatch is returned when the recomputed HMAC differs from the supplied one.
	ErrSignatureMismatch = errors.New("payment: signature mismatch")
)

// HMACVerifier authenticates webhook bodies signed with HMAC-SHA256 over the exact raw bytes.
type HMACVerifier struct {
	secret []byte
}

// NewHMACVerifier builds a verifier for the shared webhook secret.
func NewHMACVerifier(secret string) *HMACVerifier {
	return &HMACVerifier{secret: []byte(secret)}
}

// Sign returns the lowercase hex signature for body.
func (v *HMACVerifier) Sign(body []byte) string {
	mac := hmac.New(sha256.New, v.secret)
	_, _ = mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks signature against body. The body must be the bytes received on the wire;
// re-encoded JSON will not match.
func (v *HMACVerifier) Verify(body []byte, signature string) error {
	signature = strings.TrimSpace(signature)
	if signature == "" {
		return ErrMissingSignature
	}
	if len(v.secret) == 0 {
		return ErrSignatureMismatch
	}
	provided, err := hex.DecodeString(strings.ToLower(signature))
	if err != nil {
		return ErrSignatureMismatch
	}
	mac := hmac.New(sha256.New, v.secret)
	_, _ = mac.Write(body)
	if !hmac.Equal(mac.Sum(nil), provided) {
		return ErrSignatureMismatch
	}
	return nil
}
