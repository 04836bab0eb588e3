package session

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Thekirgo/calcwatch/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "session.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testCreds() domain.Credentials {
	return domain.Credentials{
		Token:    "jwt-abc",
		IssuedAt: time.UnixMilli(1700000000000),
		Username: "alice",
	}
}

func TestStore_EmptyOnFirstOpen(t *testing.T) {
	store := newTestStore(t)

	_, ok, err := store.Load()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Save(testCreds()))

	got, ok, err := store.Load()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, testCreds(), got)
}

func TestStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.db")

	store, err := NewStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Save(testCreds()))
	require.NoError(t, store.Close())

	reopened, err := NewStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, ok, err := reopened.Load()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "alice", got.Username)
}

func TestStore_ClearRemovesEverything(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Save(testCreds()))
	require.NoError(t, store.Clear())

	_, ok, err := store.Load()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_SaveReplacesPreviousSession(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Save(testCreds()))

	next := domain.Credentials{Token: "jwt-def", IssuedAt: time.UnixMilli(1700000060000), Username: "bob"}
	require.NoError(t, store.Save(next))

	got, ok, err := store.Load()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, next, got)
}
