package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func backends(t *testing.T) map[string]KV {
	t.Helper()

	keyring.MockInit()

	dir := t.TempDir()
	sqliteKV, err := OpenSQLite(filepath.Join(dir, "kv.sqlite"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { sqliteKV.Close() })

	plainFile, err := OpenFile(filepath.Join(dir, "plain.json"), "")
	require.NoError(t, err)

	sealedFile, err := OpenFile(filepath.Join(dir, "sealed.json"), "correct horse")
	require.NoError(t, err)

	return map[string]KV{
		"memory":  NewMemory(),
		"sqlite":  sqliteKV,
		"keyring": NewKeyring("http://localhost:8000"),
		"file":    plainFile,
		"sealed":  sealedFile,
	}
}

func TestKV_Contract(t *testing.T) {
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := kv.Get("missing")
			require.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, kv.Put("auth_token", []byte("T1")))
			value, err := kv.Get("auth_token")
			require.NoError(t, err)
			assert.Equal(t, "T1", string(value))

			require.NoError(t, kv.Put("auth_token", []byte("T2")))
			value, err = kv.Get("auth_token")
			require.NoError(t, err)
			assert.Equal(t, "T2", string(value), "put overwrites")

			require.NoError(t, kv.Delete("auth_token"))
			_, err = kv.Get("auth_token")
			require.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, kv.Delete("auth_token"), "deleting twice is not an error")
		})
	}
}

func TestSQLite_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kv.sqlite")

	first, err := OpenSQLite(path, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, first.Put("auth-storage", []byte(`{"token":"T2"}`)))
	require.NoError(t, first.Close())

	second, err := OpenSQLite(path, zerolog.Nop())
	require.NoError(t, err)
	defer second.Close()

	value, err := second.Get("auth-storage")
	require.NoError(t, err)
	assert.JSONEq(t, `{"token":"T2"}`, string(value))
}

func TestFile_SealedRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")

	f, err := OpenFile(path, "s3cret")
	require.NoError(t, err)
	require.NoError(t, f.Put("auth_token", []byte("bearer-value")))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.False(t, strings.Contains(string(raw), "bearer-value"), "token must not be stored in clear text")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	reopened, err := OpenFile(path, "s3cret")
	require.NoError(t, err)
	value, err := reopened.Get("auth_token")
	require.NoError(t, err)
	assert.Equal(t, "bearer-value", string(value))

	_, err = OpenFile(path, "wrong")
	require.ErrorIs(t, err, ErrSealed)

	_, err = OpenFile(path, "")
	require.ErrorIs(t, err, ErrSealed)
}

func TestFile_PlainRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")

	f, err := OpenFile(path, "")
	require.NoError(t, err)
	require.NoError(t, f.Put("auth_token", []byte("T9")))

	reopened, err := OpenFile(path, "")
	require.NoError(t, err)
	value, err := reopened.Get("auth_token")
	require.NoError(t, err)
	assert.Equal(t, "T9", string(value))
}

func TestKeyring_ScopesKeysPerOrigin(t *testing.T) {
	keyring.MockInit()

	a := NewKeyring("http://a.test")
	b := NewKeyring("http://b.test")

	require.NoError(t, a.Put("auth_token", []byte("A")))
	_, err := b.Get("auth_token")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestTokenStore(t *testing.T) {
	tokens := NewTokenStore(NewMemory())

	_, ok := tokens.Get()
	assert.False(t, ok)

	require.NoError(t, tokens.Set("T1"))
	token, ok := tokens.Get()
	assert.True(t, ok)
	assert.Equal(t, "T1", token)

	require.NoError(t, tokens.Set(""))
	_, ok = tokens.Get()
	assert.False(t, ok, "setting an empty token clears it")

	require.NoError(t, tokens.Set("T2"))
	require.NoError(t, tokens.Clear())
	require.NoError(t, tokens.Clear())
	_, ok = tokens.Get()
	assert.False(t, ok)
}

func TestTokenStore_ClearIf(t *testing.T) {
	tokens := NewTokenStore(NewMemory())
	require.NoError(t, tokens.Set("NEW"))

	matched, err := tokens.ClearIf("OLD")
	require.NoError(t, err)
	assert.False(t, matched)
	token, ok := tokens.Get()
	assert.True(t, ok)
	assert.Equal(t, "NEW", token)

	matched, err = tokens.ClearIf("NEW")
	require.NoError(t, err)
	assert.True(t, matched)
	_, ok = tokens.Get()
	assert.False(t, ok)

	matched, err = tokens.ClearIf("NEW")
	require.NoError(t, err)
	assert.False(t, matched)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(Options{Driver: "redis"})
	require.Error(t, err)

	kv, err := Open(Options{Driver: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, kv)
}
