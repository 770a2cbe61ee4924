package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	appErrors "github.com/noah-isme/studynotion-api/pkg/errors"
)

const otpKeyPrefix = "otp:signup:"

// OTPRepository stores one pending signup code per email in Redis with a TTL.
type OTPRepository struct {
	client *redis.Client
}

// NewOTPRepository constructs an OTP repository.
func NewOTPRepository(client *redis.Client) *OTPRepository {
	return &OTPRepository{client: client}
}

func otpKey(email string) string {
	return otpKeyPrefix + strings.ToLower(strings.TrimSpace(email))
}

// Save stores code for email, replacing any earlier code.
func (r *OTPRepository) Save(ctx context.Context, email, code string, ttl time.Duration) error {
	if err := r.client.Set(ctx, otpKey(email), code, ttl).Err(); err != nil {
		return fmt.Errorf("save otp: %w", err)
	}
	return nil
}

// Get returns the pending code for email or ErrCacheMiss when none is live.
func (r *OTPRepository) Get(ctx context.Context, email string) (string, error) {
	code, err := r.client.Get(ctx, otpKey(email)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", appErrors.ErrCacheMiss
		}
		return "", fmt.Errorf("get otp: %w", err)
	}
	return code, nil
}

// Delete consumes the code for email.
func (r *OTPRepository) Delete(ctx context.Context, email string) error {
	if err := r.client.Del(ctx, otpKey(email)).Err(); err != nil {
		return fmt.Errorf("delete otp: %w", err)
	}
	return nil
}
