package vault

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.enc")
	v := New(path, "correct horse")

	want := &Session{
		Username: "me",
		Token:    "account-token",
		ClientID: "client-1",
	}
	require.NoError(t, v.Save(want))

	got, err := v.Load()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestWrongPassphraseFailsClosed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.enc")
	require.NoError(t, New(path, "right").Save(&Session{Token: "secret"}))

	_, err := New(path, "wrong").Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wrong passphrase")
}

func TestLoadMissingFile(t *testing.T) {
	v := New(filepath.Join(t.TempDir(), "absent.enc"), "pass")
	_, err := v.Load()
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCloseScrubsPassphrase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.enc")
	v := New(path, "pass")
	require.NoError(t, v.Save(&Session{Token: "tok"}))

	require.NoError(t, v.Close(context.Background()))

	// without the key material the stored blob must stay sealed
	_, err := v.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wrong passphrase")
}

func TestClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.enc")
	v := New(path, "pass")
	require.NoError(t, v.Save(&Session{Token: "tok"}))
	require.NoError(t, v.Clear())

	_, err := v.Load()
	assert.ErrorIs(t, err, ErrNotFound)

	// clearing twice is fine
	assert.NoError(t, v.Clear())
}
