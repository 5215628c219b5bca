// Package session provides a small keyed registry for conversation state.
// It knows nothing about the conversations themselves; callers pick the key
// (a chat, or a chat+user pair) and the value type.
package session

import (
	"context"
	"sync"
	"time"
)

type entry[V any] struct {
	value   V
	touched time.Time
}

// Registry maps keys to live sessions under a single mutex.
// Values are copied in and out; use Update to change a stored session.
type Registry[K comparable, V any] struct {
	mu       sync.Mutex
	sessions map[K]*entry[V]
	now      func() time.Time
}

// NewRegistry constructs an empty registry.
func NewRegistry[K comparable, V any]() *Registry[K, V] {
	return &Registry[K, V]{
		sessions: make(map[K]*entry[V]),
		now:      time.Now,
	}
}

// Get returns the session stored under key.
func (r *Registry[K, V]) Get(key K) (V, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.sessions[key]; ok {
		return e.value, true
	}
	var zero V
	return zero, false
}

// Has reports whether a session exists for key.
func (r *Registry[K, V]) Has(key K) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[key]
	return ok
}

// Insert stores value only when key is free. It reports whether it did.
func (r *Registry[K, V]) Insert(key K, value V) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[key]; ok {
		return false
	}
	r.sessions[key] = &entry[V]{value: value, touched: r.now()}
	return true
}

// Put stores value under key, replacing any previous session.
// It returns the replaced value, if there was one.
func (r *Registry[K, V]) Put(key K, value V) (V, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev, had := r.sessions[key]
	r.sessions[key] = &entry[V]{value: value, touched: r.now()}
	if had {
		return prev.value, true
	}
	var zero V
	return zero, false
}

// Update runs fn on the stored session while holding the lock and keeps
// whatever fn leaves in *v. It returns false when no session exists.
func (r *Registry[K, V]) Update(key K, fn func(v *V)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[key]
	if !ok {
		return false
	}
	fn(&e.value)
	e.touched = r.now()
	return true
}

// Take removes and returns the session for key if accept approves it
// (a nil accept approves everything).
// The decision and the removal happen under one lock.
func (r *Registry[K, V]) Take(key K, accept func(v V) bool) (V, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var zero V
	e, ok := r.sessions[key]
	if !ok || (accept != nil && !accept(e.value)) {
		return zero, false
	}
	delete(r.sessions, key)
	return e.value, true
}

// Delete removes the session for key and reports whether one existed.
func (r *Registry[K, V]) Delete(key K) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[key]; !ok {
		return false
	}
	delete(r.sessions, key)
	return true
}

// Len returns the number of live sessions.
func (r *Registry[K, V]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep drops sessions idle for longer than maxIdle and returns their keys.
// A non-positive maxIdle never expires anything.
func (r *Registry[K, V]) Sweep(maxIdle time.Duration) []K {
	if maxIdle <= 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := r.now().Add(-maxIdle)
	var expired []K
	for k, e := range r.sessions {
		if e.touched.Before(cutoff) {
			expired = append(expired, k)
			delete(r.sessions, k)
		}
	}
	return expired
}

// RunSweeper calls Sweep every interval until ctx is done. onExpire, if set,
// receives the keys dropped by each pass.
func (r *Registry[K, V]) RunSweeper(ctx context.Context, interval, maxIdle time.Duration, onExpire func([]K)) {
	if interval <= 0 || maxIdle <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if expired := r.Sweep(maxIdle); len(expired) > 0 && onExpire != nil {
				onExpire(expired)
			}
		}
	}
}
