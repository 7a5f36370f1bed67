package auth

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "login.txt")
	return NewStore(path, zap.NewNop()), path
}

func TestRegisterThenLogin(t *testing.T) {
	s, path := newStore(t)

	require.NoError(t, s.Register("alice", "pw"))
	assert.NoError(t, s.Login("alice", "pw"))

	// Exact file format: one record per line, colon-separated.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "alice:pw\n", string(data))
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	s, _ := newStore(t)
	require.NoError(t, s.Register("alice", "pw"))

	assert.ErrorIs(t, s.Login("alice", "nope"), ErrAuthFailed)
	assert.ErrorIs(t, s.Login("bob", "pw"), ErrAuthFailed)
}

func TestLoginWithoutFileFails(t *testing.T) {
	s, _ := newStore(t)
	assert.ErrorIs(t, s.Login("alice", "pw"), ErrAuthFailed)
}

func TestRegisterRejectsDuplicateUsername(t *testing.T) {
	s, _ := newStore(t)
	require.NoError(t, s.Register("alice", "pw"))
	assert.ErrorIs(t, s.Register("alice", "other"), ErrUserExists)

	// Same password under a different name is fine.
	assert.NoError(t, s.Register("bob", "pw"))
}

func TestRegisterRejectsSeparator(t *testing.T) {
	s, _ := newStore(t)
	assert.ErrorIs(t, s.Register("a:b", "pw"), ErrInvalidCredential)
	assert.ErrorIs(t, s.Register("alice", "p:w"), ErrInvalidCredential)
}

func TestMultipleRecords(t *testing.T) {
	s, path := newStore(t)
	require.NoError(t, s.Register("alice", "pw1"))
	require.NoError(t, s.Register("bob", "pw2"))
	require.NoError(t, s.Register("carol", "pw3"))

	assert.NoError(t, s.Login("bob", "pw2"))
	assert.ErrorIs(t, s.Login("bob", "pw1"), ErrAuthFailed)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "alice:pw1\nbob:pw2\ncarol:pw3\n", string(data))
}
