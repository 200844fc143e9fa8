package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/you/trisonapp/domain"
)

// openBackends builds one instance of every backend against throwaway
// state, so the conformance suite runs once per implementation.
func openBackends(t *testing.T) map[string]domain.TokenStore {
	t.Helper()

	mr := miniredis.RunT(t)
	redisStore := NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	fileStore, err := NewFileStore(filepath.Join(t.TempDir(), "session.json"))
	require.NoError(t, err)

	sqliteStore, err := NewSQLiteStore(filepath.Join(t.TempDir(), "session.db"))
	require.NoError(t, err)

	stores := map[string]domain.TokenStore{
		"memory": NewMemoryStore(),
		"file":   fileStore,
		"sqlite": sqliteStore,
		"redis":  redisStore,
	}
	t.Cleanup(func() {
		for _, s := range stores {
			_ = s.Close()
		}
	})
	return stores
}

func TestTokenStore_Conformance(t *testing.T) {
	ctx := context.Background()
	for name, store := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Get(ctx, "missing")
			assert.ErrorIs(t, err, domain.ErrKeyNotFound)

			require.NoError(t, store.Set(ctx, domain.KeyAccessToken, "abc.def.ghi"))
			v, err := store.Get(ctx, domain.KeyAccessToken)
			require.NoError(t, err)
			assert.Equal(t, "abc.def.ghi", v)

			// Overwrite keeps the newest value.
			require.NoError(t, store.Set(ctx, domain.KeyAccessToken, "new.def.ghi"))
			v, err = store.Get(ctx, domain.KeyAccessToken)
			require.NoError(t, err)
			assert.Equal(t, "new.def.ghi", v)

			require.NoError(t, store.SetMulti(ctx, map[string]string{
				domain.KeyRefreshToken: "jkl.mno.pqr",
				domain.KeyIsLoggedIn:   "true",
				domain.KeyUserData:     `{"id":"user-1"}`,
			}))
			for _, key := range domain.AuthKeys() {
				_, err := store.Get(ctx, key)
				assert.NoError(t, err, key)
			}

			require.NoError(t, store.Delete(ctx, domain.AuthKeys()...))
			for _, key := range domain.AuthKeys() {
				_, err := store.Get(ctx, key)
				assert.ErrorIs(t, err, domain.ErrKeyNotFound, key)
			}

			// Deleting absent keys and empty key lists is not an error.
			assert.NoError(t, store.Delete(ctx, "missing"))
			assert.NoError(t, store.Delete(ctx))
		})
	}
}

func TestFileStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "session.json")

	first, err := NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, first.SetMulti(ctx, map[string]string{
		domain.KeyAccessToken: "abc.def.ghi",
		domain.KeyIsLoggedIn:  "true",
	}))
	require.NoError(t, first.Close())

	second, err := NewFileStore(path)
	require.NoError(t, err)
	v, err := second.Get(ctx, domain.KeyAccessToken)
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", v)
}

func TestFileStore_CorruptFileIsStorageError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	store, err := NewFileStore(path)
	require.NoError(t, err)
	_, err = store.Get(context.Background(), domain.KeyAccessToken)
	assert.True(t, domain.IsStorage(err))
}

func TestFileStore_Permissions(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.json")
	store, err := NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, domain.KeyAccessToken, "abc.def.ghi"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.db")

	first, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, domain.KeyRefreshToken, "jkl.mno.pqr"))
	require.NoError(t, first.Close())

	second, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer second.Close()
	v, err := second.Get(ctx, domain.KeyRefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "jkl.mno.pqr", v)
}

func TestRedisStore_KeysAreNamespaced(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	store := NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	defer store.Close()

	require.NoError(t, store.Set(ctx, domain.KeyAccessToken, "abc.def.ghi"))
	got, err := mr.Get("trisonauth:" + domain.KeyAccessToken)
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", got)
}

func TestRedisStore_DownServerIsStorageError(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	store := NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	defer store.Close()
	mr.Close()

	_, err := store.Get(ctx, domain.KeyAccessToken)
	assert.True(t, domain.IsStorage(err))
	assert.True(t, domain.IsStorage(store.Set(ctx, domain.KeyAccessToken, "x")))
}
