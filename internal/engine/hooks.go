package engine

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"modelforge/internal/metadata"
	"modelforge/internal/store"
)

// Lifecycle timings, in the order they fire around a write.
const (
	BeforeSave    = "before_save"
	BeforeCreate  = "before_create"
	AfterCreate   = "after_create"
	BeforeUpdate  = "before_update"
	AfterUpdate   = "after_update"
	AfterSave     = "after_save"
	BeforeDestroy = "before_destroy"
	AfterDestroy  = "after_destroy"
)

// Timings returns every timing the dispatcher recognizes.
func Timings() []string {
	return []string{
		BeforeSave, BeforeCreate, AfterCreate,
		BeforeUpdate, AfterUpdate, AfterSave,
		BeforeDestroy, AfterDestroy,
	}
}

// Env is the folded state threaded through a hook chain. Hooks receive it by
// value and return the (possibly modified) copy; the returned value feeds the
// next hook. Tx is the write's transaction, so hook bodies that touch the
// database see uncommitted state and roll back with the caller.
type Env struct {
	Model    *metadata.Model
	Spec     metadata.Content
	Values   metadata.Content
	Content  metadata.Content
	Original metadata.Content
	Tx       store.Querier
}

// Hook is one lifecycle callback.
type Hook func(ctx context.Context, env Env) (Env, error)

type hookEntry struct {
	id string
	fn Hook
}

// hookSet stores hooks by model slug and timing, in registration order.
// Registering under an existing id replaces the hook in place.
type hookSet struct {
	mu    sync.RWMutex
	slugs map[string]map[string][]hookEntry
}

func newHookSet() *hookSet {
	return &hookSet{slugs: make(map[string]map[string][]hookEntry)}
}

// Ensure makes the slug known to the dispatcher with empty chains for every
// timing. Idempotent: existing hooks survive.
func (h *hookSet) Ensure(slug string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.slugs[slug]; ok {
		return
	}
	timings := make(map[string][]hookEntry, 8)
	for _, t := range Timings() {
		timings[t] = nil
	}
	h.slugs[slug] = timings
}

// Add upserts a hook. An empty id gets a generated one; the id is returned.
func (h *hookSet) Add(slug, timing, id string, fn Hook) string {
	if id == "" {
		id = uuid.NewString()
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	timings, ok := h.slugs[slug]
	if !ok {
		timings = make(map[string][]hookEntry, 8)
		h.slugs[slug] = timings
	}
	chain := timings[timing]
	for i := range chain {
		if chain[i].id == id {
			chain[i].fn = fn
			return id
		}
	}
	timings[timing] = append(chain, hookEntry{id: id, fn: fn})
	return id
}

// Remove deletes a hook by id. Unknown ids are a no-op.
func (h *hookSet) Remove(slug, timing, id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	timings, ok := h.slugs[slug]
	if !ok {
		return
	}
	chain := timings[timing]
	for i := range chain {
		if chain[i].id == id {
			timings[timing] = append(chain[:i:i], chain[i+1:]...)
			return
		}
	}
}

// RemovePrefix drops every hook whose id starts with prefix, across all slugs
// and timings. Used to reinstall rule hooks wholesale on reload.
func (h *hookSet) RemovePrefix(prefix string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, timings := range h.slugs {
		for t, chain := range timings {
			kept := chain[:0:0]
			for _, e := range chain {
				if !strings.HasPrefix(e.id, prefix) {
					kept = append(kept, e)
				}
			}
			timings[t] = kept
		}
	}
}

// Run folds env through the hook chain for slug and timing, in registration
// order. An unknown slug/timing pair returns env unchanged.
func (h *hookSet) Run(ctx context.Context, slug, timing string, env Env) (Env, error) {
	h.mu.RLock()
	var chain []hookEntry
	if timings, ok := h.slugs[slug]; ok {
		chain = append(chain, timings[timing]...)
	}
	h.mu.RUnlock()

	for _, e := range chain {
		next, err := e.fn(ctx, env)
		if err != nil {
			return env, &HookError{Slug: slug, Timing: timing, ID: e.id, Err: err}
		}
		env = next
	}
	return env, nil
}
