package engine

import (
	"errors"
	"testing"

	"modelforge/internal/metadata"
)

func testModel(id int64, slug string) *metadata.Model {
	return &metadata.Model{ID: id, Slug: slug, Fields: metadata.NewFieldSet()}
}

func TestRegistryResolveBySlugAndID(t *testing.T) {
	r := NewRegistry()
	r.Swap([]*metadata.Model{testModel(1, "model"), testModel(2, "field"), testModel(7, "yellow")})

	if m, err := r.Resolve("yellow"); err != nil || m.ID != 7 {
		t.Fatalf("resolve by slug: %v %v", m, err)
	}
	// numeric keys resolve by id
	if m, err := r.Resolve("7"); err != nil || m.Slug != "yellow" {
		t.Fatalf("resolve by id: %v %v", m, err)
	}

	_, err := r.Resolve("nope")
	var missing *MissingModelError
	if !errors.As(err, &missing) || missing.Key != "nope" {
		t.Fatalf("expected MissingModelError, got %v", err)
	}
}

func TestRegistryNumericSlugWinsOverID(t *testing.T) {
	// a model literally slugged "7" shadows id lookup for that key
	r := NewRegistry()
	r.Swap([]*metadata.Model{testModel(1, "7"), testModel(7, "seven")})
	if m, _ := r.Resolve("7"); m == nil || m.ID != 1 {
		t.Fatalf("slug match should win: %+v", m)
	}
}

func TestRegistryAlterFollowsRename(t *testing.T) {
	r := NewRegistry()
	r.Swap([]*metadata.Model{testModel(3, "zap")})

	r.Alter(testModel(3, "zeb"))
	if _, err := r.Resolve("zap"); err == nil {
		t.Fatal("stale slug still resolves after rename")
	}
	if m, err := r.Resolve("zeb"); err != nil || m.ID != 3 {
		t.Fatalf("new slug does not resolve: %v", err)
	}
	if m, err := r.Resolve("3"); err != nil || m.Slug != "zeb" {
		t.Fatalf("id lookup stale after rename: %v %v", m, err)
	}
}

func TestRegistryEvict(t *testing.T) {
	r := NewRegistry()
	m := testModel(5, "gone")
	r.Swap([]*metadata.Model{m})
	r.Evict(m)
	if _, err := r.Resolve("gone"); err == nil {
		t.Fatal("evicted slug still resolves")
	}
	if r.ByID(5) != nil {
		t.Fatal("evicted id still resolves")
	}
}
