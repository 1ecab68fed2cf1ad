package metadata

import (
	"context"
	"testing"

	"modelforge/internal/store"
)

// stubKind is the minimal Kind for registry-shape tests.
type stubKind struct {
	row *Row
}

func (s *stubKind) Descriptor() *Row                                { return s.row }
func (s *stubKind) TableAdditions(slug string) []store.ColumnSpec   { return nil }
func (s *stubKind) SubfieldNames(slug string) []string              { return nil }
func (s *stubKind) Setup(ctx context.Context, q store.Querier) error   { return nil }
func (s *stubKind) Cleanup(ctx context.Context, q store.Querier) error { return nil }
func (s *stubKind) Target() *Model                                  { return nil }
func (s *stubKind) UpdateValues(ctx context.Context, content, values Content) (Content, error) {
	return values, nil
}
func (s *stubKind) PostUpdate(ctx context.Context, q store.Querier, content Content) (Content, error) {
	return content, nil
}
func (s *stubKind) PreDestroy(ctx context.Context, q store.Querier, content Content) (Content, error) {
	return content, nil
}
func (s *stubKind) From(ctx context.Context, q store.Querier, content Content, opts *Options) (any, error) {
	return content[s.row.Slug], nil
}
func (s *stubKind) Render(ctx context.Context, q store.Querier, content Content, opts *Options) (any, error) {
	return content[s.row.Slug], nil
}

func TestFieldSetOrderAndUpsert(t *testing.T) {
	fs := NewFieldSet()
	fs.Add(&stubKind{row: &Row{ID: 1, Slug: "id"}})
	fs.Add(&stubKind{row: &Row{ID: 2, Slug: "name"}})
	fs.Add(&stubKind{row: &Row{ID: 3, Slug: "slug"}})

	slugs := fs.Slugs()
	want := []string{"id", "name", "slug"}
	for i, s := range want {
		if slugs[i] != s {
			t.Fatalf("order %v, want %v", slugs, want)
		}
	}

	// Re-adding an existing slug keeps position, replaces instance
	replacement := &stubKind{row: &Row{ID: 9, Slug: "name"}}
	fs.Add(replacement)
	if fs.Len() != 3 {
		t.Fatalf("Len = %d after upsert", fs.Len())
	}
	if fs.Get("name") != replacement {
		t.Fatal("upsert did not replace the kind")
	}
	if fs.Slugs()[1] != "name" {
		t.Fatal("upsert changed insertion order")
	}

	if k := fs.ByID(3); k == nil || k.Descriptor().Slug != "slug" {
		t.Fatal("ByID lookup failed")
	}
	if fs.ByID(99) != nil {
		t.Fatal("ByID should miss for unknown id")
	}
}
