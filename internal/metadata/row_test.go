package metadata

import (
	"testing"
	"time"
)

func TestToInt64(t *testing.T) {
	cases := []struct {
		in   any
		want int64
	}{
		{int64(7), 7},
		{42, 42},
		{float64(3), 3},
		{"19", 19},
		{"nope", 0},
		{nil, 0},
	}
	for _, c := range cases {
		if got := ToInt64(c.in); got != c.want {
			t.Errorf("ToInt64(%v) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestToBool(t *testing.T) {
	cases := []struct {
		in   any
		want bool
	}{
		{true, true},
		{false, false},
		{int64(1), true},
		{int64(0), false},
		{"true", true},
		{"false", false},
		{"banana", false},
		{nil, false},
	}
	for _, c := range cases {
		if got := ToBool(c.in); got != c.want {
			t.Errorf("ToBool(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestToString(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	if got := ToString(ts); got != "2026-01-02T03:04:05Z" {
		t.Errorf("ToString(time) = %q", got)
	}
	if got := ToString(int64(9)); got != "9" {
		t.Errorf("ToString(int64) = %q", got)
	}
	if got := ToString(nil); got != "" {
		t.Errorf("ToString(nil) = %q", got)
	}
}

func TestRowFromContent(t *testing.T) {
	r := RowFromContent(Content{
		"id": int64(5), "name": "Wibib", "slug": "wibib", "type": "string",
		"model_id": int64(2), "dependent": int64(1), "locked": true,
	})
	if r.ID != 5 || r.Slug != "wibib" || r.Type != "string" || r.ModelID != 2 {
		t.Fatalf("unexpected row: %+v", r)
	}
	if !r.Dependent || !r.Locked {
		t.Fatalf("bool coercion failed: %+v", r)
	}
}

func TestMerge(t *testing.T) {
	base := Content{"a": 1, "b": 2}
	over := Content{"b": 3, "c": 4}
	out := Merge(base, over)
	if out["a"] != 1 || out["b"] != 3 || out["c"] != 4 {
		t.Fatalf("unexpected merge: %v", out)
	}
	if base["b"] != 2 {
		t.Fatal("merge mutated base")
	}
}

func TestOptionsExpand(t *testing.T) {
	var nilOpts *Options
	if _, ok := nilOpts.Expand("fields"); ok {
		t.Fatal("nil options should not expand")
	}
	opts := &Options{Include: map[string]*Options{"fields": nil}}
	sub, ok := opts.Expand("fields")
	if !ok || sub == nil {
		t.Fatal("expected expansion with non-nil sub options")
	}
	if _, ok := opts.Expand("other"); ok {
		t.Fatal("unrequested slug should not expand")
	}
}
