package relay

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatrelay/internal/app/user"
)

func TestRegistry_RegisterLookup(t *testing.T) {
	r := NewRegistry()
	c := newFakeConn("c1")

	r.Register("u1", c)

	got, ok := r.Lookup("u1")
	require.True(t, ok)
	assert.Same(t, c, got)

	_, ok = r.Lookup("u2")
	assert.False(t, ok)
}

func TestRegistry_LastRegisterWins(t *testing.T) {
	r := NewRegistry()
	c1, c2 := newFakeConn("c1"), newFakeConn("c2")

	r.Register("u1", c1)
	r.Register("u1", c2)

	got, ok := r.Lookup("u1")
	require.True(t, ok)
	assert.Same(t, c2, got)
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_UnregisterIsIdempotent(t *testing.T) {
	r := NewRegistry()
	changes := 0
	var last Change
	r.OnChange(func(c Change) {
		changes++
		last = c
	})

	r.Register("u1", newFakeConn("c1"))
	require.Equal(t, 1, changes)
	assert.Equal(t, Change{UserID: "u1", Online: true}, last)

	assert.True(t, r.Unregister("u1"))
	assert.Equal(t, 2, changes)
	assert.Equal(t, Change{UserID: "u1"}, last)

	assert.False(t, r.Unregister("u1"))
	assert.Equal(t, 2, changes, "second unregister must not publish")

	_, ok := r.Lookup("u1")
	assert.False(t, ok)
}

func TestRegistry_UnregisterConnIgnoresStaleConnection(t *testing.T) {
	r := NewRegistry()
	c1, c2 := newFakeConn("c1"), newFakeConn("c2")

	r.Register("u1", c1)
	r.Register("u1", c2)

	assert.False(t, r.UnregisterConn("u1", c1))
	got, ok := r.Lookup("u1")
	require.True(t, ok)
	assert.Same(t, c2, got)

	assert.True(t, r.UnregisterConn("u1", c2))
	assert.Zero(t, r.Len())
}

func TestRegistry_SnapshotIsSorted(t *testing.T) {
	r := NewRegistry()
	for _, id := range []user.ID{"carol", "alice", "bob"} {
		r.Register(id, newFakeConn("c-"+id.String()))
	}

	assert.Equal(t, []user.ID{"alice", "bob", "carol"}, r.Snapshot())
	assert.Len(t, r.Conns(), 3)

	r.Clear()
	assert.Empty(t, r.Snapshot())
}

func TestRegistry_OnChangeRunsOutsideLock(t *testing.T) {
	r := NewRegistry()
	var seen []user.ID
	r.OnChange(func(Change) { seen = r.Snapshot() })

	r.Register("u1", newFakeConn("c1"))

	assert.Equal(t, []user.ID{"u1"}, seen)
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := user.ID(string(rune('a' + i%26)))
			c := newFakeConn(id.String())
			r.Register(id, c)
			r.Lookup(id)
			r.Snapshot()
			r.UnregisterConn(id, c)
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, r.Len(), 26)
}
