package ecs

import "sync"

// World is the top-level ECS container. It owns the entity pool, the component
// registry, and a deferred destruction queue flushed at the end of each tick.
// A single reader-writer lock covers the pool and every registered store:
// spawn/destroy and component mutation take the write lock, views and reads
// take the read lock.
type World struct {
	mu           sync.RWMutex
	pool         *EntityPool
	registry     *Registry
	destroyQueue []EntityID
}

func NewWorld() *World {
	return &World{
		pool:         NewEntityPool(),
		registry:     NewRegistry(),
		destroyQueue: make([]EntityID, 0, 64),
	}
}

// RegisterStore attaches a store so Destroy can clear it. Idempotent.
func (w *World) RegisterStore(store Removable) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.registry.Register(store)
}

func (w *World) CreateEntity() (EntityID, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pool.Create()
}

func (w *World) Alive(id EntityID) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.pool.Alive(id)
}

// Destroy removes the entity from every store, bumps its generation and
// recycles the index. No-op on a stale handle.
func (w *World) Destroy(id EntityID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.pool.Alive(id) {
		return
	}
	w.registry.RemoveAll(id)
	w.pool.Destroy(id)
}

// MarkForDestruction queues an entity for end-of-tick cleanup.
func (w *World) MarkForDestruction(id EntityID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.destroyQueue = append(w.destroyQueue, id)
}

// FlushDestroyQueue destroys all queued entities and clears their components.
// Called by CleanupSystem at the end of each tick.
func (w *World) FlushDestroyQueue() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, id := range w.destroyQueue {
		if !w.pool.Alive(id) {
			continue
		}
		w.registry.RemoveAll(id)
		w.pool.Destroy(id)
	}
	w.destroyQueue = w.destroyQueue[:0]
}

// Live returns the number of live entities.
func (w *World) Live() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.pool.Live()
}

// Add sets a component on a live entity. ErrStaleEntity if the handle is dead.
// The returned pointer stays valid until the store's next structural mutation.
func Add[T any](w *World, s *Store[T], id EntityID, v T) (*T, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.pool.Alive(id) {
		return nil, ErrStaleEntity
	}
	return s.Set(id, v), nil
}

// Get reads a component under the read lock. ErrMissing when absent or stale.
func Get[T any](w *World, s *Store[T], id EntityID) (*T, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	v, ok := s.Get(id)
	if !ok {
		return nil, ErrMissing
	}
	return v, nil
}

// Has reports component presence under the read lock.
func Has[T any](w *World, s *Store[T], id EntityID) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return s.Has(id)
}

// Remove drops a component from one store. No-op when absent.
func Remove[T any](w *World, s *Store[T], id EntityID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	s.Remove(id)
}
