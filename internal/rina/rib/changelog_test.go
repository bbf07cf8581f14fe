package rib

import (
	"testing"
	"time"

	"github.com/rinacore/ipcpd/internal/rina/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChangeLogAppendAndSince(t *testing.T) {
	l := newChangeLog(10)
	l.append(newCreated(Object{Name: "/a", Version: 1, LastModified: time.Now()}))
	l.append(newCreated(Object{Name: "/b", Version: 2, LastModified: time.Now()}))
	l.append(newDeleted("/a", 3, time.Now()))

	changes, ok := l.since(0)
	require.True(t, ok)
	assert.Len(t, changes, 3)

	changes, ok = l.since(2)
	require.True(t, ok)
	require.Len(t, changes, 1)
	assert.Equal(t, ChangeDeleted, changes[0].Kind)
}

func TestChangeLogEvictsOnOverflow(t *testing.T) {
	l := newChangeLog(2)
	l.append(newCreated(Object{Name: "/a", Version: 1, LastModified: time.Now()}))
	l.append(newCreated(Object{Name: "/b", Version: 2, LastModified: time.Now()}))
	assert.Equal(t, 2, l.len())

	l.append(newCreated(Object{Name: "/c", Version: 3, LastModified: time.Now()}))
	assert.Equal(t, 2, l.len())
	assert.Equal(t, uint64(2), l.oldestVersion)

	_, ok := l.since(1)
	assert.False(t, ok)

	changes, ok := l.since(2)
	require.True(t, ok)
	require.Len(t, changes, 1)
	assert.Equal(t, "/c", changes[0].Name)
}

func TestChangeLogEmptySinceAnyVersionIsOK(t *testing.T) {
	l := newChangeLog(5)
	changes, ok := l.since(1000)
	assert.True(t, ok)
	assert.Nil(t, changes)
}

func TestChangeLogDefaultsCapacityWhenNonPositive(t *testing.T) {
	l := newChangeLog(0)
	assert.Equal(t, DefaultChangeLogCapacity, l.capacity)

	l = newChangeLog(-5)
	assert.Equal(t, DefaultChangeLogCapacity, l.capacity)
}

func TestChangeEncodeDecodeRoundTrip(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		c := newCreated(Object{Name: "/a", Class: "address", Version: 1, LastModified: time.Unix(100, 0).UTC()})
		roundTripChange(t, c)
	})
	t.Run("updated", func(t *testing.T) {
		c := newUpdated(Object{Name: "/a", Class: "address", Version: 2, LastModified: time.Unix(200, 0).UTC()})
		roundTripChange(t, c)
	})
	t.Run("deleted", func(t *testing.T) {
		c := newDeleted("/a", 3, time.Unix(300, 0).UTC())
		roundTripChange(t, c)
	})
}

func roundTripChange(t *testing.T, c Change) {
	t.Helper()
	w := wire.NewWriter()
	c.encode(w)
	r := wire.NewReader(w.Bytes())
	got, err := decodeChange(r)
	require.NoError(t, err)
	assert.Equal(t, c.Kind, got.Kind)
	assert.Equal(t, c.Name, got.Name)
	assert.Equal(t, c.Version, got.Version)
	assert.True(t, c.Timestamp.Equal(got.Timestamp))
	if c.Kind != ChangeDeleted {
		assert.True(t, c.Object.Value.Equal(got.Object.Value))
		assert.Equal(t, c.Object.Class, got.Object.Class)
	}
}
