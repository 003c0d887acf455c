package kv_test

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-auth-core/internal/core/database"
	"go-auth-core/internal/core/kv"
	"go-auth-core/internal/domain"
)

// 每个后端都要满足同一组 KVStore 语义
func backends(t *testing.T) map[string]domain.KVStore {
	t.Helper()

	file, err := kv.NewFile(afero.NewMemMapFs(), "/data")
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	rds := kv.NewRedis(mr.Addr(), "", 0, "auth:")
	t.Cleanup(func() { _ = rds.Close() })

	db, err := database.NewGorm(database.Opts{Driver: "sqlite", DSN: ":memory:", LogLevel: "silent"})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, e := db.DB(); e == nil {
			_ = sqlDB.Close()
		}
	})
	g := kv.NewGorm(db)
	require.NoError(t, g.Migrate(context.Background()))

	return map[string]domain.KVStore{
		"memory": kv.NewMemory(),
		"file":   file,
		"redis":  rds,
		"gorm":   g,
	}
}

func TestStore_Contract(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			v, err := s.Get(ctx, domain.KeyUsers)
			require.NoError(t, err)
			assert.Nil(t, v, "absent key reads as nil")

			require.NoError(t, s.Set(ctx, domain.KeyUsers, []byte(`[1]`)))
			v, err = s.Get(ctx, domain.KeyUsers)
			require.NoError(t, err)
			assert.Equal(t, []byte(`[1]`), v)

			require.NoError(t, s.Set(ctx, domain.KeyUsers, []byte(`[1,2]`)))
			v, err = s.Get(ctx, domain.KeyUsers)
			require.NoError(t, err)
			assert.Equal(t, []byte(`[1,2]`), v, "set overwrites")

			require.NoError(t, s.Set(ctx, domain.KeyCurrentUser, []byte("a@x.io")))
			require.NoError(t, s.Delete(ctx, domain.KeyCurrentUser))
			v, err = s.Get(ctx, domain.KeyCurrentUser)
			require.NoError(t, err)
			assert.Nil(t, v)

			require.NoError(t, s.Delete(ctx, domain.KeyCurrentUser), "delete is idempotent")

			v, err = s.Get(ctx, domain.KeyUsers)
			require.NoError(t, err)
			assert.Equal(t, []byte(`[1,2]`), v, "other keys untouched")
		})
	}
}

func TestMemory_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m := kv.NewMemory()
	in := []byte("abc")
	require.NoError(t, m.Set(ctx, "k", in))
	in[0] = 'x'

	out, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(out))

	out[0] = 'y'
	again, _ := m.Get(ctx, "k")
	assert.Equal(t, "abc", string(again))
}

func TestFile_LeavesNoTempFiles(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	f, err := kv.NewFile(fs, "/store")
	require.NoError(t, err)

	require.NoError(t, f.Set(ctx, domain.KeyUsers, []byte("[]")))
	require.NoError(t, f.Set(ctx, domain.KeyUsers, []byte("[{}]")))

	entries, err := afero.ReadDir(fs, "/store")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.KeyUsers, entries[0].Name())
}

func TestFile_EscapesKeys(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	f, err := kv.NewFile(fs, "/store")
	require.NoError(t, err)

	require.NoError(t, f.Set(ctx, "../escape", []byte("v")))
	exists, err := afero.Exists(fs, "/escape")
	require.NoError(t, err)
	assert.False(t, exists)

	v, err := f.Get(ctx, "../escape")
	require.NoError(t, err)
	assert.Equal(t, "v", string(v))
}

func TestFile_InitFailure(t *testing.T) {
	_, err := kv.NewFile(afero.NewReadOnlyFs(afero.NewMemMapFs()), "/nope")
	require.Error(t, err)
}

func TestRedis_UsesPrefix(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	r := kv.NewRedis(mr.Addr(), "", 0, "auth:")
	t.Cleanup(func() { _ = r.Close() })

	require.NoError(t, r.Set(ctx, domain.KeyCurrentUser, []byte("a@x.io")))
	got, err := mr.Get("auth:" + domain.KeyCurrentUser)
	require.NoError(t, err)
	assert.Equal(t, "a@x.io", got)
}

func TestRedis_TransportError(t *testing.T) {
	mr := miniredis.RunT(t)
	r := kv.NewRedis(mr.Addr(), "", 0, "")
	t.Cleanup(func() { _ = r.Close() })
	mr.Close()

	_, err := r.Get(context.Background(), domain.KeyUsers)
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrStorageCorrupt)
}

func TestJSON_RoundTripAndAbsent(t *testing.T) {
	ctx := context.Background()
	s := kv.NewMemory()

	_, found, err := kv.GetJSON[[]domain.User](ctx, s, domain.KeyUsers)
	require.NoError(t, err)
	assert.False(t, found)

	in := []domain.User{{Name: "A", Email: "a@x.io", PasswordDigest: "d"}}
	require.NoError(t, kv.SetJSON(ctx, s, domain.KeyUsers, in))

	raw, _ := s.Get(ctx, domain.KeyUsers)
	assert.JSONEq(t, `[{"name":"A","email":"a@x.io","passwordDigest":"d"}]`, string(raw))

	out, found, err := kv.GetJSON[[]domain.User](ctx, s, domain.KeyUsers)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, in, out)
}

func TestJSON_Corrupt(t *testing.T) {
	ctx := context.Background()
	s := kv.NewMemory()
	require.NoError(t, s.Set(ctx, domain.KeyUsers, []byte("{not json")))

	_, found, err := kv.GetJSON[[]domain.User](ctx, s, domain.KeyUsers)
	require.Error(t, err)
	assert.True(t, found)
	assert.True(t, errors.Is(err, domain.ErrStorageCorrupt))
}
