package models

import (
	"errors"
	"time"
)

var (
	// ErrNoResetPending is returned when consuming a reset that was never issued or already used.
	ErrNoResetPending = errors.New("no password reset pending")
	// ErrResetTokenMismatch is returned when the presented token does not match the pending reset.
	ErrResetTokenMismatch = errors.New("password reset token mismatch")
	// ErrResetExpired is returned when the pending reset is past its expiry.
	ErrResetExpired = errors.New("password reset token expired")
)

// ResetPhase enumerates the password reset states.
type ResetPhase int

const (
	NoResetPending ResetPhase = iota
	ResetPending
)

// ResetState is the password reset state machine. Only ResetPending carries a token hash and expiry.
type ResetState struct {
	Phase     ResetPhase
	TokenHash string
	ExpiresAt time.Time
}

// ResetStateFromColumns decodes the nullable reset columns. A half-populated pair is treated as no reset.
func ResetStateFromColumns(tokenHash *string, expiresAt *time.Time) ResetState {
	if tokenHash == nil || *tokenHash == "" || expiresAt == nil {
		return ResetState{Phase: NoResetPending}
	}
	return ResetState{Phase: ResetPending, TokenHash: *tokenHash, ExpiresAt: expiresAt.UTC()}
}

// Columns encodes the state for storage.
func (s ResetState) Columns() (*string, *time.Time) {
	if s.Phase != ResetPending {
		return nil, nil
	}
	hash, exp := s.TokenHash, s.ExpiresAt
	return &hash, &exp
}

// Issue starts a new reset, replacing any pending one.
func (s ResetState) Issue(tokenHash string, now time.Time, ttl time.Duration) ResetState {
	return ResetState{Phase: ResetPending, TokenHash: tokenHash, ExpiresAt: now.Add(ttl).UTC()}
}

// Consume completes a pending reset when tokenHash matches and it has not expired.
func (s ResetState) Consume(tokenHash string, now time.Time) (ResetState, error) {
	if s.Phase != ResetPending {
		return s, ErrNoResetPending
	}
	if s.TokenHash != tokenHash {
		return s, ErrResetTokenMismatch
	}
	if !now.Before(s.ExpiresAt) {
		return s.Expire(now), ErrResetExpired
	}
	return ResetState{Phase: NoResetPending}, nil
}

// Expire drops a pending reset whose expiry has passed.
func (s ResetState) Expire(now time.Time) ResetState {
	if s.Phase == ResetPending && !now.Before(s.ExpiresAt) {
		return ResetState{Phase: NoResetPending}
	}
	return s
}
