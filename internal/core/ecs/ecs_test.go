package ecs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pos struct{ X, Y float32 }
type vel struct{ X, Y float32 }
type tag struct{ N int }

func TestEntityLifecycle(t *testing.T) {
	w := NewWorld()

	e, err := w.CreateEntity()
	require.NoError(t, err)
	assert.True(t, w.Alive(e))

	w.Destroy(e)
	assert.False(t, w.Alive(e))

	// Index is recycled with a strictly greater generation.
	e2, err := w.CreateEntity()
	require.NoError(t, err)
	assert.Equal(t, e.Index(), e2.Index())
	assert.Greater(t, e2.Generation(), e.Generation())
	assert.False(t, w.Alive(e))
	assert.True(t, w.Alive(e2))
}

func TestDestroyStaleIsNoop(t *testing.T) {
	w := NewWorld()
	e, _ := w.CreateEntity()
	w.Destroy(e)
	w.Destroy(e) // stale, must not double-recycle

	a, _ := w.CreateEntity()
	b, _ := w.CreateEntity()
	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a.Index(), b.Index())
}

func TestStoreSetGetRemove(t *testing.T) {
	w := NewWorld()
	ps := NewStore[pos]()
	w.RegisterStore(ps)

	e, _ := w.CreateEntity()
	_, err := Add(w, ps, e, pos{1, 2})
	require.NoError(t, err)
	assert.True(t, Has(w, ps, e))

	p, err := Get(w, ps, e)
	require.NoError(t, err)
	assert.Equal(t, float32(1), p.X)

	// Add overwrites in place.
	_, err = Add(w, ps, e, pos{3, 4})
	require.NoError(t, err)
	p, _ = Get(w, ps, e)
	assert.Equal(t, float32(3), p.X)

	Remove(w, ps, e)
	assert.False(t, Has(w, ps, e))
	_, err = Get(w, ps, e)
	assert.ErrorIs(t, err, ErrMissing)
}

func TestAddToDeadEntityFails(t *testing.T) {
	w := NewWorld()
	ps := NewStore[pos]()
	w.RegisterStore(ps)

	e, _ := w.CreateEntity()
	w.Destroy(e)
	_, err := Add(w, ps, e, pos{})
	assert.ErrorIs(t, err, ErrStaleEntity)
}

func TestStaleHandleRejectedAfterIndexReuse(t *testing.T) {
	w := NewWorld()
	ps := NewStore[pos]()
	w.RegisterStore(ps)

	old, _ := w.CreateEntity()
	_, err := Add(w, ps, old, pos{1, 1})
	require.NoError(t, err)
	w.Destroy(old)

	// Same index, newer generation.
	fresh, _ := w.CreateEntity()
	require.Equal(t, old.Index(), fresh.Index())
	_, err = Add(w, ps, fresh, pos{9, 9})
	require.NoError(t, err)

	// The stale handle must not see the new entity's data.
	_, err = Get(w, ps, old)
	assert.ErrorIs(t, err, ErrMissing)
	assert.False(t, Has(w, ps, old))

	p, err := Get(w, ps, fresh)
	require.NoError(t, err)
	assert.Equal(t, float32(9), p.X)
}

func TestSwapAndPopKeepsDenseAligned(t *testing.T) {
	w := NewWorld()
	ps := NewStore[tag]()
	w.RegisterStore(ps)

	ids := make([]EntityID, 10)
	for i := range ids {
		e, _ := w.CreateEntity()
		ids[i] = e
		_, err := Add(w, ps, e, tag{N: i})
		require.NoError(t, err)
	}

	// Remove from the middle; the swapped-in element must stay reachable.
	Remove(w, ps, ids[3])
	Remove(w, ps, ids[0])
	assert.Equal(t, 8, ps.Len())

	seen := map[int]bool{}
	ps.Each(func(id EntityID, v *tag) {
		got, err := Get(w, ps, id)
		require.NoError(t, err)
		assert.Equal(t, v.N, got.N)
		seen[v.N] = true
	})
	assert.Len(t, seen, 8)
	assert.False(t, seen[0])
	assert.False(t, seen[3])
}

func TestDestroyClearsAllStores(t *testing.T) {
	w := NewWorld()
	ps := NewStore[pos]()
	vs := NewStore[vel]()
	w.RegisterStore(ps)
	w.RegisterStore(vs)

	e, _ := w.CreateEntity()
	Add(w, ps, e, pos{})
	Add(w, vs, e, vel{})

	w.Destroy(e)
	assert.Equal(t, 0, ps.Len())
	assert.Equal(t, 0, vs.Len())
}

func TestDeferredDestruction(t *testing.T) {
	w := NewWorld()
	ps := NewStore[pos]()
	w.RegisterStore(ps)

	e, _ := w.CreateEntity()
	Add(w, ps, e, pos{})
	w.MarkForDestruction(e)

	// Still alive until the flush.
	assert.True(t, w.Alive(e))
	w.FlushDestroyQueue()
	assert.False(t, w.Alive(e))
	assert.Equal(t, 0, ps.Len())

	// A double-queued entity must only be destroyed once.
	a, _ := w.CreateEntity()
	w.MarkForDestruction(a)
	w.MarkForDestruction(a)
	w.FlushDestroyQueue()
	b, _ := w.CreateEntity()
	c, _ := w.CreateEntity()
	assert.NotEqual(t, b.Index(), c.Index())
}

func TestView2Intersection(t *testing.T) {
	w := NewWorld()
	ps := NewStore[pos]()
	vs := NewStore[vel]()
	w.RegisterStore(ps)
	w.RegisterStore(vs)

	both, _ := w.CreateEntity()
	Add(w, ps, both, pos{1, 0})
	Add(w, vs, both, vel{2, 0})

	posOnly, _ := w.CreateEntity()
	Add(w, ps, posOnly, pos{5, 5})

	velOnly, _ := w.CreateEntity()
	Add(w, vs, velOnly, vel{7, 7})

	var visited []EntityID
	View2(w, ps, vs, func(id EntityID, p *pos, v *vel) {
		visited = append(visited, id)
		p.X += v.X
	})
	require.Equal(t, []EntityID{both}, visited)

	p, _ := Get(w, ps, both)
	assert.Equal(t, float32(3), p.X)
}

func TestView3DrivesSmallestStore(t *testing.T) {
	w := NewWorld()
	ps := NewStore[pos]()
	vs := NewStore[vel]()
	ts := NewStore[tag]()
	w.RegisterStore(ps)
	w.RegisterStore(vs)
	w.RegisterStore(ts)

	for i := 0; i < 5; i++ {
		e, _ := w.CreateEntity()
		Add(w, ps, e, pos{})
		if i < 3 {
			Add(w, vs, e, vel{})
		}
		if i < 2 {
			Add(w, ts, e, tag{N: i})
		}
	}

	count := 0
	View3(w, ps, vs, ts, func(EntityID, *pos, *vel, *tag) { count++ })
	assert.Equal(t, 2, count)
}
