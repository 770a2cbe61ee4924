package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignedURLSignerGenerateAndParse(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, expiresAt, err := signer.Generate("thumbnails/c1.png")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 2*time.Second)

	key, err := signer.Parse(token)
	require.NoError(t, err)
	require.Equal(t, "thumbnails/c1.png", key)
}

func TestSignedURLSignerExpired(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)
	token, _, err := signer.Generate("videos/l1.mp4")
	require.NoError(t, err)

	signer.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = signer.Parse(token)
	require.ErrorIs(t, err, ErrExpiredToken)
}

func TestSignedURLSignerRejectsTampering(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, _, err := signer.Generate("videos/l1.mp4")
	require.NoError(t, err)

	_, err = NewSignedURLSigner("other", time.Hour).Parse(token)
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = signer.Parse(token + "x")
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = signer.Parse("garbage")
	require.ErrorIs(t, err, ErrInvalidToken)

	_, _, err = NewSignedURLSigner("", time.Hour).Generate("k")
	require.Error(t, err)
}
