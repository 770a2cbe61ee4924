package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrInvalidToken covers malformed tokens and signature mismatches.
	ErrInvalidToken = errors.New("storage: invalid token")
	// ErrExpiredToken is returned when a well-formed token is past its expiry.
	ErrExpiredToken = errors.New("storage: token expired")
)

// SignedURLSigner creates and validates signed media tokens of the form key.expiry.signature.
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSignedURLSigner constructs a signer with the provided secret and TTL.
func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SignedURLSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Generate returns a token granting read access to key until the returned expiry.
func (s *SignedURLSigner) Generate(key string) (string, time.Time, error) {
	if key == "" {
		return "", time.Time{}, fmt.Errorf("storage: key required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("storage: signing secret missing")
	}
	expiresAt := s.now().Add(s.ttl).UTC()
	encodedKey := base64.RawURLEncoding.EncodeToString([]byte(key))
	ts := strconv.FormatInt(expiresAt.Unix(), 10)
	return strings.Join([]string{encodedKey, ts, s.sign(encodedKey, ts)}, "."), expiresAt, nil
}

// Parse validates a token and returns the object key it grants.
func (s *SignedURLSigner) Parse(token string) (string, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return "", ErrInvalidToken
	}
	encodedKey, ts, signature := parts[0], parts[1], parts[2]

	if !hmac.Equal([]byte(s.sign(encodedKey, ts)), []byte(signature)) {
		return "", ErrInvalidToken
	}
	rawKey, err := base64.RawURLEncoding.DecodeString(encodedKey)
	if err != nil {
		return "", ErrInvalidToken
	}
	expUnix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return "", ErrInvalidToken
	}
	if s.now().After(time.Unix(expUnix, 0)) {
		return "", ErrExpiredToken
	}
	return string(rawKey), nil
}

func (s *SignedURLSigner) sign(encodedKey, ts string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(encodedKey + "|" + ts))
	return hex.EncodeToString(mac.Sum(nil))
}
