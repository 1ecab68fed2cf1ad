package engine

import (
	"context"
	"fmt"
	"strings"

	"modelforge/internal/metadata"
	"modelforge/internal/store"
)

const defaultRallyLimit = 30

// Choose reads one row by id with the canonical projection.
func (e *Engine) Choose(ctx context.Context, key string, id any, opts *metadata.Options) (metadata.Content, error) {
	model, err := e.registry.Resolve(key)
	if err != nil {
		return nil, err
	}
	row, err := store.Choose(ctx, e.store.DB, e.store.Dialect, model.Slug, id)
	if err != nil {
		return nil, err
	}
	return e.from(ctx, e.store.DB, model, row, opts)
}

// Render reads one row by id with the display projection.
func (e *Engine) Render(ctx context.Context, key string, id any, opts *metadata.Options) (metadata.Content, error) {
	model, err := e.registry.Resolve(key)
	if err != nil {
		return nil, err
	}
	row, err := store.Choose(ctx, e.store.DB, e.store.Dialect, model.Slug, id)
	if err != nil {
		return nil, err
	}
	return e.render(ctx, e.store.DB, model, row, opts)
}

// Rally lists rows with ordering and paging. Defaults: position ascending,
// 30 rows, offset 0. The order column must be a field of the model.
func (e *Engine) Rally(ctx context.Context, key string, opts *metadata.Options) ([]metadata.Content, error) {
	model, err := e.registry.Resolve(key)
	if err != nil {
		return nil, err
	}
	d := e.store.Dialect

	orderBy := "position"
	order := "ASC"
	limit := defaultRallyLimit
	offset := 0
	if opts != nil {
		if opts.OrderBy != "" {
			if model.Field(opts.OrderBy) == nil {
				return nil, fmt.Errorf("unknown order field %q for %s", opts.OrderBy, model.Slug)
			}
			orderBy = opts.OrderBy
		}
		if strings.EqualFold(opts.Order, "desc") {
			order = "DESC"
		}
		if opts.Limit > 0 {
			limit = opts.Limit
		}
		if opts.Offset > 0 {
			offset = opts.Offset
		}
	}
	if err := store.CheckIdent(orderBy); err != nil {
		return nil, err
	}

	rows, err := store.QueryRows(ctx, e.store.DB,
		fmt.Sprintf("SELECT * FROM %s ORDER BY %s %s LIMIT %s OFFSET %s",
			model.Slug, orderBy, order, d.Placeholder(1), d.Placeholder(2)),
		limit, offset)
	if err != nil {
		return nil, err
	}
	return e.fromAll(ctx, model, rows, opts)
}

// Progenitors walks a nested model from a row up its parent chain, leaf
// first. On a non-nested model it degenerates to the row itself.
func (e *Engine) Progenitors(ctx context.Context, key string, id any, opts *metadata.Options) ([]metadata.Content, error) {
	return e.walk(ctx, key, id, opts, "p.id = rec.parent_id")
}

// Descendents walks a nested model from a row down through all children.
func (e *Engine) Descendents(ctx context.Context, key string, id any, opts *metadata.Options) ([]metadata.Content, error) {
	return e.walk(ctx, key, id, opts, "p.parent_id = rec.id")
}

func (e *Engine) walk(ctx context.Context, key string, id any, opts *metadata.Options, joinOn string) ([]metadata.Content, error) {
	model, err := e.registry.Resolve(key)
	if err != nil {
		return nil, err
	}
	if !model.Nested {
		row, err := store.Choose(ctx, e.store.DB, e.store.Dialect, model.Slug, id)
		if err != nil {
			return nil, err
		}
		return e.fromAll(ctx, model, []metadata.Content{row}, opts)
	}
	rows, err := store.RecursiveQuery(ctx, e.store.DB, e.store.Dialect,
		model.Slug, []string{"*"}, "id = %1", joinOn, id)
	if err != nil {
		return nil, err
	}
	return e.fromAll(ctx, model, rows, opts)
}

// From projects an already-fetched row through the canonical projection.
func (e *Engine) From(ctx context.Context, model *metadata.Model, row metadata.Content, opts *metadata.Options) (metadata.Content, error) {
	return e.from(ctx, e.store.DB, model, row, opts)
}

// ModelRender projects an already-fetched row through the display projection.
func (e *Engine) ModelRender(ctx context.Context, model *metadata.Model, row metadata.Content, opts *metadata.Options) (metadata.Content, error) {
	return e.render(ctx, e.store.DB, model, row, opts)
}

func (e *Engine) fromAll(ctx context.Context, model *metadata.Model, rows []metadata.Content, opts *metadata.Options) ([]metadata.Content, error) {
	out := make([]metadata.Content, 0, len(rows))
	for _, row := range rows {
		c, err := e.from(ctx, e.store.DB, model, row, opts)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// from replaces each field's raw column value with its kind's projection.
// Columns without a field descriptor pass through untouched.
func (e *Engine) from(ctx context.Context, q store.Querier, model *metadata.Model, row metadata.Content, opts *metadata.Options) (metadata.Content, error) {
	return projectRow(ctx, q, model, row, opts, func(k metadata.Kind) projectField {
		return k.From
	})
}

// render is from with display formatting: timestamps become RFC3339 strings.
func (e *Engine) render(ctx context.Context, q store.Querier, model *metadata.Model, row metadata.Content, opts *metadata.Options) (metadata.Content, error) {
	return projectRow(ctx, q, model, row, opts, func(k metadata.Kind) projectField {
		return k.Render
	})
}

type projectField func(ctx context.Context, q store.Querier, content metadata.Content, opts *metadata.Options) (any, error)

func projectRow(ctx context.Context, q store.Querier, model *metadata.Model, row metadata.Content, opts *metadata.Options, pick func(metadata.Kind) projectField) (metadata.Content, error) {
	out := make(metadata.Content, len(row))
	for k, v := range row {
		out[k] = v
	}
	err := model.Fields.Each(func(slug string, k metadata.Kind) error {
		v, err := pick(k)(ctx, q, row, opts)
		if err != nil {
			return err
		}
		out[slug] = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
