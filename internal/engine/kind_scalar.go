package engine

import (
	"context"
	"strconv"
	"strings"
	"time"

	"modelforge/internal/metadata"
	"modelforge/internal/store"
)

// idKind backs the primary key. The column is emitted by table creation and
// the value is database-assigned, so writes never touch it.
type idKind struct{ baseKind }

func (k *idKind) TableAdditions(slug string) []store.ColumnSpec {
	return []store.ColumnSpec{{Name: slug, Type: "serial"}}
}

func (k *idKind) UpdateValues(ctx context.Context, content, values metadata.Content) (metadata.Content, error) {
	return values, nil
}

type integerKind struct{ baseKind }

func (k *integerKind) TableAdditions(slug string) []store.ColumnSpec {
	return []store.ColumnSpec{{Name: slug, Type: "integer"}}
}

// UpdateValues accepts numeric shapes and numeric strings; anything else is
// dropped silently rather than poisoning the write.
func (k *integerKind) UpdateValues(ctx context.Context, content, values metadata.Content) (metadata.Content, error) {
	v, ok := content[k.row.Slug]
	if !ok {
		return values, nil
	}
	switch n := v.(type) {
	case nil:
		values[k.row.Slug] = nil
	case int, int32, int64, float64:
		values[k.row.Slug] = metadata.ToInt64(n)
	case string:
		if i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64); err == nil {
			values[k.row.Slug] = i
		}
	}
	return values, nil
}

type stringKind struct{ baseKind }

func (k *stringKind) TableAdditions(slug string) []store.ColumnSpec {
	return []store.ColumnSpec{{Name: slug, Type: "string"}}
}

type textKind struct{ baseKind }

func (k *textKind) TableAdditions(slug string) []store.ColumnSpec {
	return []store.ColumnSpec{{Name: slug, Type: "text"}}
}

type booleanKind struct{ baseKind }

func (k *booleanKind) TableAdditions(slug string) []store.ColumnSpec {
	return []store.ColumnSpec{{Name: slug, Type: "boolean"}}
}

func (k *booleanKind) UpdateValues(ctx context.Context, content, values metadata.Content) (metadata.Content, error) {
	v, ok := content[k.row.Slug]
	if !ok {
		return values, nil
	}
	switch b := v.(type) {
	case nil:
		values[k.row.Slug] = nil
	case bool:
		values[k.row.Slug] = b
	case int, int32, int64, float64:
		values[k.row.Slug] = metadata.ToInt64(b) != 0
	case string:
		if parsed, err := strconv.ParseBool(strings.TrimSpace(b)); err == nil {
			values[k.row.Slug] = parsed
		}
	}
	return values, nil
}

// From normalizes SQLite's 0/1 integers back to bool.
func (k *booleanKind) From(ctx context.Context, q store.Querier, content metadata.Content, opts *metadata.Options) (any, error) {
	v := content[k.row.Slug]
	if v == nil {
		return nil, nil
	}
	return metadata.ToBool(v), nil
}

func (k *booleanKind) Render(ctx context.Context, q store.Querier, content metadata.Content, opts *metadata.Options) (any, error) {
	return k.From(ctx, q, content, opts)
}

type timestampKind struct{ baseKind }

// TableAdditions always carries the clock default; the SQLite dialect strips
// it when the column arrives through ALTER TABLE, leaving a nullable column.
func (k *timestampKind) TableAdditions(slug string) []store.ColumnSpec {
	return []store.ColumnSpec{{Name: slug, Type: "timestamp",
		Extra: "NOT NULL DEFAULT CURRENT_TIMESTAMP"}}
}

// UpdateValues always stamps updated_at with the database clock; other
// timestamp fields pass through.
func (k *timestampKind) UpdateValues(ctx context.Context, content, values metadata.Content) (metadata.Content, error) {
	if k.row.Slug == "updated_at" {
		values[k.row.Slug] = store.Now
		return values, nil
	}
	if v, ok := content[k.row.Slug]; ok {
		values[k.row.Slug] = v
	}
	return values, nil
}

func (k *timestampKind) Render(ctx context.Context, q store.Querier, content metadata.Content, opts *metadata.Options) (any, error) {
	v := content[k.row.Slug]
	if t, ok := v.(time.Time); ok {
		return t.Format(time.RFC3339), nil
	}
	return v, nil
}

// slugKind derives an identifier-safe value from its linked sibling field,
// falling back to slugifying direct input.
type slugKind struct {
	baseKind
	link *metadata.Row
}

func (k *slugKind) TableAdditions(slug string) []store.ColumnSpec {
	return []store.ColumnSpec{{Name: slug, Type: "string"}}
}

func (k *slugKind) UpdateValues(ctx context.Context, content, values metadata.Content) (metadata.Content, error) {
	if k.link != nil {
		if v, ok := content[k.link.Slug]; ok && v != nil {
			values[k.row.Slug] = metadata.Slugify(metadata.ToString(v))
			return values, nil
		}
	}
	if v, ok := content[k.row.Slug]; ok && v != nil {
		values[k.row.Slug] = metadata.Slugify(metadata.ToString(v))
	}
	return values, nil
}

// imageKind is reserved: it declares its attachment subfield but stores and
// projects nothing yet.
type imageKind struct{ baseKind }

func (k *imageKind) SubfieldNames(slug string) []string {
	return []string{slug + "_id"}
}

func (k *imageKind) UpdateValues(ctx context.Context, content, values metadata.Content) (metadata.Content, error) {
	return values, nil
}

func (k *imageKind) From(ctx context.Context, q store.Querier, content metadata.Content, opts *metadata.Options) (any, error) {
	return nil, nil
}

func (k *imageKind) Render(ctx context.Context, q store.Querier, content metadata.Content, opts *metadata.Options) (any, error) {
	return nil, nil
}

// linkKind is reserved: a declared but inert reference.
type linkKind struct{ baseKind }

func (k *linkKind) UpdateValues(ctx context.Context, content, values metadata.Content) (metadata.Content, error) {
	return values, nil
}

func (k *linkKind) From(ctx context.Context, q store.Querier, content metadata.Content, opts *metadata.Options) (any, error) {
	return nil, nil
}

func (k *linkKind) Render(ctx context.Context, q store.Querier, content metadata.Content, opts *metadata.Options) (any, error) {
	return nil, nil
}
