package engine

import (
	"context"
	"errors"
	"fmt"
	"log"

	"modelforge/internal/metadata"
	"modelforge/internal/store"
)

// invokeModels rebuilds every model from its rows and swaps the registry
// wholesale, then reinstalls rule hooks. Runs against a transaction when
// triggered from a lifecycle hook, so uncommitted metadata is visible.
func (e *Engine) invokeModels(ctx context.Context, q store.Querier) error {
	rows, err := store.QueryRows(ctx, q, "SELECT * FROM model ORDER BY position, id")
	if err != nil {
		return fmt.Errorf("load models: %w", err)
	}
	models := make([]*metadata.Model, 0, len(rows))
	for _, row := range rows {
		m, err := e.invokeModel(ctx, q, row)
		if err != nil {
			return err
		}
		models = append(models, m)
	}
	e.registry.Swap(models)
	for _, m := range models {
		e.hooks.Ensure(m.Slug)
	}
	return e.loadRules(ctx, q)
}

// invokeModel builds one live model from its row, loading field descriptors
// in declaration order. A field row with an unknown kind is skipped with a
// warning rather than failing the whole reload.
func (e *Engine) invokeModel(ctx context.Context, q store.Querier, row metadata.Content) (*metadata.Model, error) {
	m := metadata.ModelFromContent(row)
	ph := e.store.Dialect.Placeholder(1)
	fieldRows, err := store.QueryRows(ctx, q,
		"SELECT * FROM field WHERE model_id = "+ph+" ORDER BY model_position, id", m.ID)
	if err != nil {
		return nil, fmt.Errorf("load fields for %s: %w", m.Slug, err)
	}
	for _, fr := range fieldRows {
		r := metadata.RowFromContent(fr)
		k, err := e.newKind(ctx, q, r)
		if err != nil {
			log.Printf("WARN: model %s: %v", m.Slug, err)
			continue
		}
		m.Fields.Add(k)
	}
	return m, nil
}

// alterModelByID reloads a single model and patches it into the registry.
// A model row that no longer exists is silently ignored; the next full
// reload evicts it.
func (e *Engine) alterModelByID(ctx context.Context, q store.Querier, id int64) error {
	c, err := store.Choose(ctx, q, e.store.Dialect, "model", id)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	m, err := e.invokeModel(ctx, q, c)
	if err != nil {
		return err
	}
	e.registry.Alter(m)
	e.hooks.Ensure(m.Slug)
	return nil
}
