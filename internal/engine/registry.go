package engine

import (
	"strconv"
	"sync"

	"modelforge/internal/metadata"
)

// Registry is the in-memory index of live models, keyed both by slug and by
// id. It is replaced wholesale on full reloads and patched in place when a
// single model changes.
type Registry struct {
	mu     sync.RWMutex
	bySlug map[string]*metadata.Model
	byID   map[int64]*metadata.Model
}

func NewRegistry() *Registry {
	return &Registry{
		bySlug: make(map[string]*metadata.Model),
		byID:   make(map[int64]*metadata.Model),
	}
}

// Resolve looks a model up by slug, or by numeric id when the key parses as
// an integer. Both spellings are accepted everywhere a model key appears.
func (r *Registry) Resolve(key string) (*metadata.Model, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if m, ok := r.bySlug[key]; ok {
		return m, nil
	}
	if id, err := strconv.ParseInt(key, 10, 64); err == nil {
		if m, ok := r.byID[id]; ok {
			return m, nil
		}
	}
	return nil, &MissingModelError{Key: key}
}

// ByID returns the model with the given id, or nil.
func (r *Registry) ByID(id int64) *metadata.Model {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byID[id]
}

// All returns the registered models, in no particular order.
func (r *Registry) All() []*metadata.Model {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*metadata.Model, 0, len(r.byID))
	for _, m := range r.bySlug {
		out = append(out, m)
	}
	return out
}

// Swap replaces the whole index.
func (r *Registry) Swap(models []*metadata.Model) {
	bySlug := make(map[string]*metadata.Model, len(models))
	byID := make(map[int64]*metadata.Model, len(models))
	for _, m := range models {
		bySlug[m.Slug] = m
		byID[m.ID] = m
	}
	r.mu.Lock()
	r.bySlug = bySlug
	r.byID = byID
	r.mu.Unlock()
}

// Alter upserts one model under both indexes. A model whose slug changed is
// first evicted by id so the stale slug entry does not linger.
func (r *Registry) Alter(m *metadata.Model) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.byID[m.ID]; ok && prev.Slug != m.Slug {
		delete(r.bySlug, prev.Slug)
	}
	r.bySlug[m.Slug] = m
	r.byID[m.ID] = m
}

// Evict removes a model from both indexes.
func (r *Registry) Evict(m *metadata.Model) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.bySlug, m.Slug)
	delete(r.byID, m.ID)
}
