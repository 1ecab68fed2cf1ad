package engine

import (
	"context"
	"errors"
	"fmt"

	"modelforge/internal/metadata"
	"modelforge/internal/store"
)

// newKind builds the kind instance for a field row. Constructors only read:
// the linked field row is fetched so relational and slug kinds know their
// peer, but no DDL happens here.
func (e *Engine) newKind(ctx context.Context, q store.Querier, row *metadata.Row) (metadata.Kind, error) {
	base := baseKind{e: e, row: row}
	switch row.Type {
	case "id":
		return &idKind{base}, nil
	case "integer":
		return &integerKind{base}, nil
	case "string":
		return &stringKind{base}, nil
	case "text":
		return &textKind{base}, nil
	case "boolean":
		return &booleanKind{base}, nil
	case "timestamp":
		return &timestampKind{base}, nil
	case "image":
		return &imageKind{base}, nil
	case "link":
		return &linkKind{base}, nil
	case "slug":
		link, err := e.linkRow(ctx, q, row.LinkID)
		if err != nil {
			return nil, err
		}
		return &slugKind{baseKind: base, link: link}, nil
	case "collection":
		link, err := e.linkRow(ctx, q, row.LinkID)
		if err != nil {
			return nil, err
		}
		return &collectionKind{baseKind: base, link: link}, nil
	case "part":
		link, err := e.linkRow(ctx, q, row.LinkID)
		if err != nil {
			return nil, err
		}
		return &partKind{baseKind: base, link: link}, nil
	default:
		return nil, fmt.Errorf("unknown field kind %q for field %s", row.Type, row.Slug)
	}
}

// linkRow fetches the field row a LinkID points at. Unset or dangling links
// resolve to nil.
func (e *Engine) linkRow(ctx context.Context, q store.Querier, id int64) (*metadata.Row, error) {
	if id == 0 {
		return nil, nil
	}
	c, err := store.Choose(ctx, q, e.store.Dialect, "field", id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return metadata.RowFromContent(c), nil
}

// modelForField resolves a field's owning model, registry first, database
// second. Mid-transaction the database may know models the registry does not
// yet hold.
func (e *Engine) modelForField(ctx context.Context, q store.Querier, modelID int64) (*metadata.Model, error) {
	if m := e.registry.ByID(modelID); m != nil {
		return m, nil
	}
	c, err := store.Choose(ctx, q, e.store.Dialect, "model", modelID)
	if err != nil {
		return nil, err
	}
	return metadata.ModelFromContent(c), nil
}

// baseKind supplies the inert defaults of the field protocol: no columns, no
// reciprocal structure, value passthrough.
type baseKind struct {
	e   *Engine
	row *metadata.Row
}

func (b *baseKind) Descriptor() *metadata.Row { return b.row }

func (b *baseKind) TableAdditions(slug string) []store.ColumnSpec { return nil }

func (b *baseKind) SubfieldNames(slug string) []string { return nil }

func (b *baseKind) Setup(ctx context.Context, q store.Querier) error { return nil }

func (b *baseKind) Cleanup(ctx context.Context, q store.Querier) error { return nil }

func (b *baseKind) Target() *metadata.Model { return nil }

func (b *baseKind) UpdateValues(ctx context.Context, content, values metadata.Content) (metadata.Content, error) {
	if v, ok := content[b.row.Slug]; ok {
		values[b.row.Slug] = v
	}
	return values, nil
}

func (b *baseKind) PostUpdate(ctx context.Context, q store.Querier, content metadata.Content) (metadata.Content, error) {
	return content, nil
}

func (b *baseKind) PreDestroy(ctx context.Context, q store.Querier, content metadata.Content) (metadata.Content, error) {
	return content, nil
}

func (b *baseKind) From(ctx context.Context, q store.Querier, content metadata.Content, opts *metadata.Options) (any, error) {
	return content[b.row.Slug], nil
}

func (b *baseKind) Render(ctx context.Context, q store.Querier, content metadata.Content, opts *metadata.Options) (any, error) {
	return content[b.row.Slug], nil
}
