package engine

import (
	"context"
	"strings"
	"testing"

	"modelforge/internal/metadata"
	"modelforge/internal/store"
)

func scalarRow(slug, typ string) *metadata.Row {
	return &metadata.Row{Slug: slug, Type: typ}
}

func TestIntegerUpdateValues(t *testing.T) {
	k := &integerKind{baseKind{row: scalarRow("count", "integer")}}
	ctx := context.Background()

	v, err := k.UpdateValues(ctx, metadata.Content{"count": "42"}, metadata.Content{})
	if err != nil || v["count"] != int64(42) {
		t.Fatalf("string coercion: %v %v", v, err)
	}

	// unparseable input is dropped, not written
	v, _ = k.UpdateValues(ctx, metadata.Content{"count": "banana"}, metadata.Content{})
	if _, ok := v["count"]; ok {
		t.Fatalf("unparseable value written: %v", v)
	}

	// absent input leaves the accumulator alone
	v, _ = k.UpdateValues(ctx, metadata.Content{}, metadata.Content{"other": 1})
	if len(v) != 1 {
		t.Fatalf("accumulator changed: %v", v)
	}
}

func TestBooleanUpdateValues(t *testing.T) {
	k := &booleanKind{baseKind{row: scalarRow("locked", "boolean")}}
	ctx := context.Background()

	v, _ := k.UpdateValues(ctx, metadata.Content{"locked": "true"}, metadata.Content{})
	if v["locked"] != true {
		t.Fatalf("parse true: %v", v)
	}
	v, _ = k.UpdateValues(ctx, metadata.Content{"locked": float64(1)}, metadata.Content{})
	if v["locked"] != true {
		t.Fatalf("numeric true: %v", v)
	}
	v, _ = k.UpdateValues(ctx, metadata.Content{"locked": "whatever"}, metadata.Content{})
	if _, ok := v["locked"]; ok {
		t.Fatalf("unparseable bool written: %v", v)
	}
}

func TestBooleanFromNormalizesSQLiteIntegers(t *testing.T) {
	k := &booleanKind{baseKind{row: scalarRow("locked", "boolean")}}
	v, err := k.From(context.Background(), nil, metadata.Content{"locked": int64(1)}, nil)
	if err != nil || v != true {
		t.Fatalf("From = %v, %v", v, err)
	}
}

func TestTimestampStampsUpdatedAt(t *testing.T) {
	k := &timestampKind{baseKind{row: scalarRow("updated_at", "timestamp")}}
	v, _ := k.UpdateValues(context.Background(), metadata.Content{}, metadata.Content{})
	if v["updated_at"] != store.Now {
		t.Fatalf("updated_at not stamped: %v", v)
	}

	// other timestamp fields pass through only when present
	k2 := &timestampKind{baseKind{row: scalarRow("published_at", "timestamp")}}
	v, _ = k2.UpdateValues(context.Background(), metadata.Content{}, metadata.Content{})
	if _, ok := v["published_at"]; ok {
		t.Fatalf("absent timestamp written: %v", v)
	}
}

func TestTimestampColumnCarriesDefault(t *testing.T) {
	k := &timestampKind{baseKind{row: scalarRow("published_at", "timestamp")}}
	cols := k.TableAdditions("published_at")
	if len(cols) != 1 || !strings.Contains(cols[0].Extra, "DEFAULT CURRENT_TIMESTAMP") {
		t.Fatalf("columns = %v", cols)
	}
}

func TestSlugKindFollowsLink(t *testing.T) {
	k := &slugKind{
		baseKind: baseKind{row: scalarRow("slug", "slug")},
		link:     &metadata.Row{Slug: "name"},
	}
	ctx := context.Background()

	v, _ := k.UpdateValues(ctx, metadata.Content{"name": "Yellow Model"}, metadata.Content{})
	if v["slug"] != "yellow_model" {
		t.Fatalf("linked slug: %v", v)
	}

	// without linked input, direct input is slugified
	v, _ = k.UpdateValues(ctx, metadata.Content{"slug": "By Hand"}, metadata.Content{})
	if v["slug"] != "by_hand" {
		t.Fatalf("direct slug: %v", v)
	}

	// neither present: untouched
	v, _ = k.UpdateValues(ctx, metadata.Content{}, metadata.Content{})
	if _, ok := v["slug"]; ok {
		t.Fatalf("slug written from nothing: %v", v)
	}
}

func TestIDAndReservedKindsAreInert(t *testing.T) {
	ctx := context.Background()
	content := metadata.Content{"id": 9, "badge": "x", "ref": "y"}

	id := &idKind{baseKind{row: scalarRow("id", "id")}}
	v, _ := id.UpdateValues(ctx, content, metadata.Content{})
	if len(v) != 0 {
		t.Fatalf("id kind wrote values: %v", v)
	}

	img := &imageKind{baseKind{row: scalarRow("badge", "image")}}
	v, _ = img.UpdateValues(ctx, content, metadata.Content{})
	if len(v) != 0 {
		t.Fatalf("image kind wrote values: %v", v)
	}
	if subs := img.SubfieldNames("badge"); len(subs) != 1 || subs[0] != "badge_id" {
		t.Fatalf("image subfields: %v", subs)
	}

	lnk := &linkKind{baseKind{row: scalarRow("ref", "link")}}
	v, _ = lnk.UpdateValues(ctx, content, metadata.Content{})
	if len(v) != 0 {
		t.Fatalf("link kind wrote values: %v", v)
	}
}

func TestPartSubfieldNames(t *testing.T) {
	p := &partKind{baseKind: baseKind{row: &metadata.Row{Slug: "zap", Type: "part"}}}
	subs := p.SubfieldNames("zap")
	if len(subs) != 2 || subs[0] != "zap_id" || subs[1] != "zap_position" {
		t.Fatalf("part subfields: %v", subs)
	}
}
