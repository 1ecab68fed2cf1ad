package metadata

import (
	"context"

	"modelforge/internal/store"
)

// Content is an untyped row: field slug to value. Values may embed child
// submaps (parts) or sequences of submaps (collections); those are consumed
// by the relational kinds after the parent row is persisted.
type Content = map[string]any

// ParentKey marks the in-memory parent reference threaded into child content
// during recursive collection writes. It is never persisted.
const ParentKey = "_parent"

// Options drives read projection. Include declares which relational fields
// to expand; a relational slug absent from Include is not fetched.
type Options struct {
	Include map[string]*Options
	OrderBy string
	Order   string
	Limit   int
	Offset  int
}

// Expand returns the nested options for an included relational slug, or nil
// when the slug is not included.
func (o *Options) Expand(slug string) (*Options, bool) {
	if o == nil || o.Include == nil {
		return nil, false
	}
	sub, ok := o.Include[slug]
	if ok && sub == nil {
		sub = &Options{}
	}
	return sub, ok
}

// Kind is the closed behavioral protocol of a field type. A kind instance is
// bound to one field descriptor Row and drives that field's DDL contribution
// and its row-level read/write translation. Constructors never issue DDL;
// reciprocal structure is built in Setup and torn down in Cleanup, both of
// which must tolerate partial prior runs.
type Kind interface {
	// Descriptor returns the bound field row.
	Descriptor() *Row

	// TableAdditions lists the column DDL specs this field appends to the
	// owning model's table.
	TableAdditions(slug string) []store.ColumnSpec

	// SubfieldNames lists auxiliary field names synthesized by this kind.
	SubfieldNames(slug string) []string

	// Setup builds reciprocal structure after the field row is created.
	Setup(ctx context.Context, q store.Querier) error

	// Cleanup tears reciprocal structure down before the field row is
	// destroyed.
	Cleanup(ctx context.Context, q store.Querier) error

	// Target returns the peer model for relational kinds, nil otherwise.
	Target() *Model

	// UpdateValues merges this field's write contribution from content into
	// the accumulator and returns it. Runs before DML.
	UpdateValues(ctx context.Context, content, values Content) (Content, error)

	// PostUpdate runs after DML, once the parent id is known.
	PostUpdate(ctx context.Context, q store.Querier, content Content) (Content, error)

	// PreDestroy runs before the row is deleted.
	PreDestroy(ctx context.Context, q store.Querier, content Content) (Content, error)

	// From projects this field's read value from a row.
	From(ctx context.Context, q store.Querier, content Content, opts *Options) (any, error)

	// Render projects this field's display value from a row.
	Render(ctx context.Context, q store.Querier, content Content, opts *Options) (any, error)
}

// Merge copies over onto a shallow copy of base, over winning.
func Merge(base, over Content) Content {
	out := make(Content, len(base)+len(over))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range over {
		out[k] = v
	}
	return out
}
