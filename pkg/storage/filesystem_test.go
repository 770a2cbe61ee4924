package storage

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStoragePutOpenDelete(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir(), 0)
	require.NoError(t, err)

	n, err := store.Put("avatars/u1.png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, int64(9), n)

	f, err := store.Open("avatars/u1.png")
	require.NoError(t, err)
	body, err := io.ReadAll(f)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	assert.Equal(t, "png-bytes", string(body))

	require.NoError(t, store.Delete("avatars/u1.png"))
	_, err = store.Open("avatars/u1.png")
	assert.ErrorIs(t, err, ErrNotExist)
	require.NoError(t, store.Delete("avatars/u1.png"))
}

func TestLocalStorageLimitsSize(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir(), 4)
	require.NoError(t, err)

	_, err = store.Put("videos/big.mp4", strings.NewReader("12345"))
	assert.ErrorIs(t, err, ErrTooLarge)
	_, err = store.Open("videos/big.mp4")
	assert.ErrorIs(t, err, ErrNotExist)

	_, err = store.Put("videos/ok.mp4", strings.NewReader("1234"))
	assert.NoError(t, err)
}

func TestLocalStorageRejectsTraversal(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir(), 0)
	require.NoError(t, err)

	_, err = store.Put("../escape.txt", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrInvalidKey)
	_, err = store.Open("")
	assert.ErrorIs(t, err, ErrInvalidKey)
}
