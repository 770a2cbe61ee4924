package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResetStateLifecycle(t *testing.T) {
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	state := ResetStateFromColumns(nil, nil)
	assert.Equal(t, NoResetPending, state.Phase)

	state = state.Issue("h1", now, 5*time.Minute)
	assert.Equal(t, ResetPending, state.Phase)
	hash, exp := state.Columns()
	require.NotNil(t, hash)
	assert.Equal(t, "h1", *hash)
	assert.Equal(t, now.Add(5*time.Minute), *exp)

	_, err := state.Consume("h2", now)
	assert.ErrorIs(t, err, ErrResetTokenMismatch)

	state, err = state.Consume("h1", now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, NoResetPending, state.Phase)

	_, err = state.Consume("h1", now)
	assert.ErrorIs(t, err, ErrNoResetPending)
}

func TestResetStateExpiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	state := ResetState{}.Issue("h1", now, 5*time.Minute)

	next, err := state.Consume("h1", now.Add(5*time.Minute))
	assert.ErrorIs(t, err, ErrResetExpired)
	assert.Equal(t, NoResetPending, next.Phase)

	assert.Equal(t, ResetPending, state.Expire(now.Add(time.Minute)).Phase)
	assert.Equal(t, NoResetPending, state.Expire(now.Add(10*time.Minute)).Phase)

	hash, exp := next.Columns()
	assert.Nil(t, hash)
	assert.Nil(t, exp)
}

func TestResetStateFromHalfColumns(t *testing.T) {
	h := "h"
	assert.Equal(t, NoResetPending, ResetStateFromColumns(&h, nil).Phase)
}
