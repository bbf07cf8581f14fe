//go:build integration

package persistence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Config{Dialect: DialectSQLite, SQLite: SQLiteConfig{Path: ":memory:"}})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenDefaultConfigUsesSQLite(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	assert.Equal(t, DialectSQLite, cfg.Dialect)
}

func TestOpenInvalidDialectReturnsError(t *testing.T) {
	_, err := Open(Config{Dialect: "invalid"})
	require.Error(t, err)
}

func TestLocalAddressRoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, ok, err := s.LoadLocalAddress(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SaveLocalAddress(ctx, 1042))
	addr, ok, err := s.LoadLocalAddress(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(1042), addr)

	require.NoError(t, s.SaveLocalAddress(ctx, 1043))
	addr, ok, err = s.LoadLocalAddress(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(1043), addr)
}

func TestAllocatedAddressesRoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveAllocated(ctx, 100))
	require.NoError(t, s.SaveAllocated(ctx, 101))

	got, err := s.ListAllocated(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint64{100, 101}, got)

	require.NoError(t, s.DeleteAllocated(ctx, 100))
	got, err = s.ListAllocated(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint64{101}, got)
}

func TestDynamicRoutesRoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	route := DynamicRoute{Dst: 200, NextHopAddr: 200, NextHopEndpoint: "10.0.0.2:7632", ExpiresAtUnix: 1234}
	require.NoError(t, s.SaveRoute(ctx, route))

	got, err := s.ListRoutes(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, route, got[0])

	require.NoError(t, s.DeleteRoute(ctx, 200))
	got, err = s.ListRoutes(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}
