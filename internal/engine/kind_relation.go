package engine

import (
	"context"
	"errors"
	"fmt"
	"log"

	"modelforge/internal/metadata"
	"modelforge/internal/store"
)

// toList coerces the submap-sequence shapes a collection value arrives in.
func toList(v any) []any {
	switch l := v.(type) {
	case []any:
		return l
	case []metadata.Content:
		out := make([]any, len(l))
		for i, c := range l {
			out[i] = c
		}
		return out
	default:
		return nil
	}
}

func toContent(v any) metadata.Content {
	if c, ok := v.(metadata.Content); ok {
		return c
	}
	return nil
}

// collectionKind is the one side of a reciprocal pair: this model owns many
// rows of the target model. link is the reciprocal part field on the target;
// children carry <link.Slug>_id back-references.
type collectionKind struct {
	baseKind
	link *metadata.Row
}

func (k *collectionKind) Target() *metadata.Model {
	return k.e.registry.ByID(k.row.TargetID)
}

// Setup ensures the reciprocal part field exists on the target model,
// adopting a matching one if a prior run already created it, and cross-links
// the pair. Idempotent.
func (k *collectionKind) Setup(ctx context.Context, q store.Querier) error {
	if k.link != nil {
		return nil
	}
	if k.row.TargetID == 0 {
		return &ReciprocalError{Field: k.row.Slug, Reason: "collection has no target model"}
	}
	d := k.e.store.Dialect

	rows, err := store.Fetch(ctx, q, d, "field",
		"model_id = %1 AND type = %2 AND target_id = %3", k.row.TargetID, "part", k.row.ModelID)
	if err != nil {
		return err
	}
	var part *metadata.Row
	if len(rows) > 0 {
		part = metadata.RowFromContent(rows[0])
	} else {
		owner, err := k.e.modelForField(ctx, q, k.row.ModelID)
		if err != nil {
			return &ReciprocalError{Field: k.row.Slug, Reason: fmt.Sprintf("owner model: %v", err)}
		}
		created, err := k.e.create(ctx, q, "field", metadata.Content{
			"name":      owner.Slug,
			"type":      "part",
			"model_id":  k.row.TargetID,
			"target_id": k.row.ModelID,
			"link_id":   k.row.ID,
			"editable":  false,
		})
		if err != nil {
			return err
		}
		part = metadata.RowFromContent(created)
	}

	if _, err := store.Update(ctx, q, d, "field",
		metadata.Content{"link_id": part.ID}, "id = %1", k.row.ID); err != nil {
		return err
	}
	if part.LinkID != k.row.ID {
		if _, err := store.Update(ctx, q, d, "field",
			metadata.Content{"link_id": k.row.ID}, "id = %1", part.ID); err != nil {
			return err
		}
		part.LinkID = k.row.ID
	}
	k.row.LinkID = part.ID
	k.link = part
	return nil
}

// Cleanup destroys the reciprocal part. By the time this runs the collection
// row is already gone, so the mutual destroy bottoms out on ErrNotFound.
func (k *collectionKind) Cleanup(ctx context.Context, q store.Querier) error {
	if k.row.LinkID == 0 {
		return nil
	}
	if _, err := k.e.destroy(ctx, q, "field", k.row.LinkID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	return nil
}

func (k *collectionKind) UpdateValues(ctx context.Context, content, values metadata.Content) (metadata.Content, error) {
	return values, nil
}

// PostUpdate writes the nested child submaps once the parent id is known.
// Children carrying their own id are updated, the rest inserted; each gets
// the part back-reference, its position, and an in-memory parent handle.
func (k *collectionKind) PostUpdate(ctx context.Context, q store.Querier, content metadata.Content) (metadata.Content, error) {
	raw, ok := content[k.row.Slug]
	if !ok || raw == nil {
		return content, nil
	}
	children := toList(raw)
	if len(children) == 0 {
		return content, nil
	}
	target := k.Target()
	if target == nil {
		return content, &ReciprocalError{Field: k.row.Slug, Reason: "target model not registered"}
	}
	ps := k.partSlug()
	if ps == "" {
		return content, &ReciprocalError{Field: k.row.Slug, Reason: "no reciprocal part"}
	}

	for i, item := range children {
		child := toContent(item)
		if child == nil {
			continue
		}
		spec := metadata.Merge(child, metadata.Content{
			ps + "_id":         content["id"],
			ps + "_position":   i,
			metadata.ParentKey: content,
		})
		if _, err := k.e.create(ctx, q, target.Slug, spec); err != nil {
			return content, err
		}
	}
	return content, nil
}

// PreDestroy cascades into children when either side of the pair is marked
// dependent.
func (k *collectionKind) PreDestroy(ctx context.Context, q store.Querier, content metadata.Content) (metadata.Content, error) {
	dependent := k.row.Dependent || (k.link != nil && k.link.Dependent)
	if !dependent {
		return content, nil
	}
	target := k.Target()
	ps := k.partSlug()
	if target == nil || ps == "" {
		return content, nil
	}
	children, err := store.Fetch(ctx, q, k.e.store.Dialect, target.Slug, ps+"_id = %1", content["id"])
	if err != nil {
		return content, err
	}
	for _, child := range children {
		if _, err := k.e.destroy(ctx, q, target.Slug, child["id"]); err != nil {
			return content, err
		}
	}
	return content, nil
}

// From expands children ordered by their position subfield when the slug is
// included; an unrequested collection projects as an empty list.
func (k *collectionKind) From(ctx context.Context, q store.Querier, content metadata.Content, opts *metadata.Options) (any, error) {
	return k.project(ctx, q, content, opts, k.e.from)
}

func (k *collectionKind) Render(ctx context.Context, q store.Querier, content metadata.Content, opts *metadata.Options) (any, error) {
	return k.project(ctx, q, content, opts, k.e.render)
}

func (k *collectionKind) project(ctx context.Context, q store.Querier, content metadata.Content, opts *metadata.Options, project projectFn) (any, error) {
	sub, ok := opts.Expand(k.row.Slug)
	if !ok {
		return []metadata.Content{}, nil
	}
	target := k.Target()
	ps := k.partSlug()
	if target == nil || ps == "" {
		return []metadata.Content{}, nil
	}
	d := k.e.store.Dialect
	for _, ident := range []string{target.Slug, ps + "_id", ps + "_position"} {
		if err := store.CheckIdent(ident); err != nil {
			return nil, err
		}
	}
	rows, err := store.QueryRows(ctx, q,
		fmt.Sprintf("SELECT * FROM %s WHERE %s_id = %s ORDER BY %s_position, id",
			target.Slug, ps, d.Placeholder(1), ps),
		content["id"])
	if err != nil {
		return nil, err
	}
	out := make([]metadata.Content, 0, len(rows))
	for _, row := range rows {
		c, err := project(ctx, q, target, row, sub)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (k *collectionKind) partSlug() string {
	if k.link != nil {
		return k.link.Slug
	}
	return ""
}

// partKind is the belongs-to side: the owning model carries <slug>_id and
// <slug>_position columns, materialized as locked integer fields in Setup.
type partKind struct {
	baseKind
	link *metadata.Row
}

func (k *partKind) Target() *metadata.Model {
	return k.e.registry.ByID(k.row.TargetID)
}

func (k *partKind) SubfieldNames(slug string) []string {
	return []string{slug + "_id", slug + "_position"}
}

func (k *partKind) UpdateValues(ctx context.Context, content, values metadata.Content) (metadata.Content, error) {
	return values, nil
}

// Setup materializes the aux subfields as locked integer field rows on the
// owning model, then ensures the reciprocal collection on the target. A
// reciprocal created here carries link_id already set, so its own Setup
// short-circuits instead of recursing back.
func (k *partKind) Setup(ctx context.Context, q store.Querier) error {
	if k.row.ModelID == 0 {
		return &ReciprocalError{Field: k.row.Slug, Reason: "part has no owning model"}
	}
	d := k.e.store.Dialect

	for _, name := range k.SubfieldNames(k.row.Slug) {
		rows, err := store.Fetch(ctx, q, d, "field", "model_id = %1 AND slug = %2", k.row.ModelID, name)
		if err != nil {
			return err
		}
		if len(rows) > 0 {
			continue
		}
		if _, err := k.e.create(ctx, q, "field", metadata.Content{
			"name":     name,
			"type":     "integer",
			"model_id": k.row.ModelID,
			"editable": false,
			"locked":   true,
		}); err != nil {
			return err
		}
	}

	if k.link != nil {
		return nil
	}
	if k.row.TargetID == 0 {
		return &ReciprocalError{Field: k.row.Slug, Reason: "part has no target model"}
	}

	rows, err := store.Fetch(ctx, q, d, "field",
		"model_id = %1 AND type = %2 AND target_id = %3", k.row.TargetID, "collection", k.row.ModelID)
	if err != nil {
		return err
	}
	var coll *metadata.Row
	if len(rows) > 0 {
		coll = metadata.RowFromContent(rows[0])
	} else {
		owner, err := k.e.modelForField(ctx, q, k.row.ModelID)
		if err != nil {
			return &ReciprocalError{Field: k.row.Slug, Reason: fmt.Sprintf("owner model: %v", err)}
		}
		created, err := k.e.create(ctx, q, "field", metadata.Content{
			"name":      owner.Slug + "s",
			"type":      "collection",
			"model_id":  k.row.TargetID,
			"target_id": k.row.ModelID,
			"link_id":   k.row.ID,
		})
		if err != nil {
			return err
		}
		coll = metadata.RowFromContent(created)
	}

	if _, err := store.Update(ctx, q, d, "field",
		metadata.Content{"link_id": coll.ID}, "id = %1", k.row.ID); err != nil {
		return err
	}
	if coll.LinkID != k.row.ID {
		if _, err := store.Update(ctx, q, d, "field",
			metadata.Content{"link_id": k.row.ID}, "id = %1", coll.ID); err != nil {
			return err
		}
		coll.LinkID = k.row.ID
	}
	k.row.LinkID = coll.ID
	k.link = coll
	return nil
}

// Cleanup destroys the aux field rows and the reciprocal collection. Errors
// here are reported but must not block the destroy that triggered them.
func (k *partKind) Cleanup(ctx context.Context, q store.Querier) error {
	d := k.e.store.Dialect
	for _, name := range k.SubfieldNames(k.row.Slug) {
		rows, err := store.Fetch(ctx, q, d, "field", "model_id = %1 AND slug = %2", k.row.ModelID, name)
		if err != nil {
			return err
		}
		for _, row := range rows {
			if _, err := k.e.destroy(ctx, q, "field", row["id"]); err != nil {
				log.Printf("WARN: cleanup subfield %s.%s: %v", k.row.Slug, name, err)
			}
		}
	}
	if k.row.LinkID != 0 {
		if _, err := k.e.destroy(ctx, q, "field", k.row.LinkID); err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
	}
	return nil
}

// From follows the aux id to the single parent row when the slug is
// included; otherwise the part projects as nil.
func (k *partKind) From(ctx context.Context, q store.Querier, content metadata.Content, opts *metadata.Options) (any, error) {
	return k.project(ctx, q, content, opts, k.e.from)
}

func (k *partKind) Render(ctx context.Context, q store.Querier, content metadata.Content, opts *metadata.Options) (any, error) {
	return k.project(ctx, q, content, opts, k.e.render)
}

func (k *partKind) project(ctx context.Context, q store.Querier, content metadata.Content, opts *metadata.Options, project projectFn) (any, error) {
	sub, ok := opts.Expand(k.row.Slug)
	if !ok {
		return nil, nil
	}
	target := k.Target()
	if target == nil {
		return nil, nil
	}
	id := content[k.row.Slug+"_id"]
	if id == nil {
		return nil, nil
	}
	row, err := store.Choose(ctx, q, k.e.store.Dialect, target.Slug, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return project(ctx, q, target, row, sub)
}

// projectFn abstracts over the two read projections.
type projectFn func(ctx context.Context, q store.Querier, m *metadata.Model, row metadata.Content, opts *metadata.Options) (metadata.Content, error)
