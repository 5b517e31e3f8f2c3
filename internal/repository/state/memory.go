package state

import (
	"context"
	"sync"

	"storefront/internal/domain"
)

type memoryRepo struct {
	mu      sync.RWMutex
	entries map[string]map[string][]byte
}

// NewMemory returns a process-local Repository.
func NewMemory() Repository {
	return &memoryRepo{entries: make(map[string]map[string][]byte)}
}

func (r *memoryRepo) Load(_ context.Context, namespace, key string) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.entries[namespace][key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (r *memoryRepo) Save(_ context.Context, namespace, key string, value []byte) error {
	stored := make([]byte, len(value))
	copy(stored, value)
	r.mu.Lock()
	defer r.mu.Unlock()
	ns, ok := r.entries[namespace]
	if !ok {
		ns = make(map[string][]byte)
		r.entries[namespace] = ns
	}
	ns[key] = stored
	return nil
}

func (r *memoryRepo) Delete(_ context.Context, namespace, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ns, ok := r.entries[namespace]; ok {
		delete(ns, key)
		if len(ns) == 0 {
			delete(r.entries, namespace)
		}
	}
	return nil
}
