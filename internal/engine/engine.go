package engine

import (
	"context"
	"fmt"
	"sync"

	"modelforge/internal/metadata"
	"modelforge/internal/store"
)

// Engine owns the model registry, the hook dispatcher, and the write path.
// Writes are serialized through a single mutex and each public write runs in
// one transaction; DDL issued by lifecycle hooks joins that transaction.
type Engine struct {
	store    *store.Store
	registry *Registry
	hooks    *hookSet
	mu       sync.Mutex
}

func New(s *store.Store) *Engine {
	return &Engine{
		store:    s,
		registry: NewRegistry(),
		hooks:    newHookSet(),
	}
}

// Default is a process-wide convenience handle, set by SetDefault.
var Default *Engine

func SetDefault(e *Engine) { Default = e }

// Registry exposes the live model index.
func (e *Engine) Registry() *Registry { return e.registry }

// Store exposes the underlying database handle.
func (e *Engine) Store() *store.Store { return e.store }

// AddHook registers a lifecycle hook for a model slug. An empty id gets a
// generated one; registering under an existing id replaces that hook in
// place. The effective id is returned.
func (e *Engine) AddHook(slug, timing, id string, fn Hook) string {
	return e.hooks.Add(slug, timing, id, fn)
}

// RemoveHook deletes a previously registered hook.
func (e *Engine) RemoveHook(slug, timing, id string) {
	e.hooks.Remove(slug, timing, id)
}

// InvokeModels reloads every model from the database and swaps the registry.
func (e *Engine) InvokeModels(ctx context.Context) error {
	return e.invokeModels(ctx, e.store.DB)
}

// Create writes a new row for the model key. A spec carrying an id is
// treated as an update of that row.
func (e *Engine) Create(ctx context.Context, key string, spec metadata.Content) (metadata.Content, error) {
	return e.write(ctx, func(ctx context.Context, q store.Querier) (metadata.Content, error) {
		return e.create(ctx, q, key, spec)
	})
}

// Update applies spec to the row with the given id.
func (e *Engine) Update(ctx context.Context, key string, id any, spec metadata.Content) (metadata.Content, error) {
	return e.write(ctx, func(ctx context.Context, q store.Querier) (metadata.Content, error) {
		return e.update(ctx, q, key, id, spec)
	})
}

// Destroy deletes the row with the given id and returns its last content.
func (e *Engine) Destroy(ctx context.Context, key string, id any) (metadata.Content, error) {
	return e.write(ctx, func(ctx context.Context, q store.Querier) (metadata.Content, error) {
		return e.destroy(ctx, q, key, id)
	})
}

// write serializes a mutation and runs it in one transaction. The registry
// may be rebuilt from uncommitted state inside fn; a rollback leaves it stale
// until the next reload, which the following write performs via its hooks.
func (e *Engine) write(ctx context.Context, fn func(context.Context, store.Querier) (metadata.Content, error)) (metadata.Content, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	tx, err := e.store.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}

	content, err := fn(ctx, tx)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return content, nil
}
