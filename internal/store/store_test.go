package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/safeira/iglootrack/internal/ledger"
)

// kvContract exercises the behavior every backend must share.
func kvContract(t *testing.T, kv KV) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := kv.Get(ctx, "missing")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, kv.Set(ctx, "k", "v1"))
	val, ok, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v1", val)

	require.NoError(t, kv.Set(ctx, "k", "v2"))
	val, _, err = kv.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "v2", val)
}

func openTestSQLite(t *testing.T) *SQLite {
	t.Helper()
	kv, err := OpenSQLite(filepath.Join(t.TempDir(), "iglootrack.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })
	return kv
}

func TestSQLiteKV(t *testing.T) {
	kvContract(t, openTestSQLite(t))
}

func TestRedisKV(t *testing.T) {
	srv := miniredis.RunT(t)
	kv, err := OpenRedis(context.Background(), RedisConfig{Address: srv.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })

	kvContract(t, kv)
}

func TestSQLitePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "iglootrack.db")
	ctx := context.Background()

	kv, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, kv.Set(ctx, NotifyMarkerKey("2024-01-01"), "1"))
	require.NoError(t, kv.Close())

	kv, err = OpenSQLite(path)
	require.NoError(t, err)
	defer func() { _ = kv.Close() }()

	val, ok, err := kv.Get(ctx, NotifyMarkerKey("2024-01-01"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "1", val)
}

func TestLedgerStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	ls := NewLedgerStore(openTestSQLite(t))

	l := make(ledger.Ledger)
	rec := l.Day("2024-01-01").Item("123", "Snow Fort")
	rec.Count = 2
	rec.Timestamps = []string{"10:00:00", "11:00:00"}
	l.Day("2024-01-01").Total = 2

	require.NoError(t, ls.Save(ctx, l))
	require.Equal(t, l, ls.Load(ctx))
}

func TestLedgerStoreDefaultsOnBadBlob(t *testing.T) {
	ctx := context.Background()
	kv := openTestSQLite(t)
	ls := NewLedgerStore(kv)

	require.Empty(t, ls.Load(ctx), "absent blob loads empty")

	require.NoError(t, kv.Set(ctx, LedgerKey, "{corrupt"))
	require.Empty(t, ls.Load(ctx), "malformed blob loads empty")
}

func TestBoolFlags(t *testing.T) {
	ctx := context.Background()
	kv := openTestSQLite(t)

	require.False(t, GetBool(ctx, kv, NotifyEnabledKey, false))
	require.True(t, GetBool(ctx, kv, MinimizedKey, true))

	require.NoError(t, SetBool(ctx, kv, NotifyEnabledKey, true))
	require.True(t, GetBool(ctx, kv, NotifyEnabledKey, false))

	require.NoError(t, SetBool(ctx, kv, NotifyEnabledKey, false))
	require.False(t, GetBool(ctx, kv, NotifyEnabledKey, true))
}
