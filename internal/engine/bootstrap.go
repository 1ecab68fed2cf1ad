package engine

import (
	"context"
	"fmt"

	"modelforge/internal/metadata"
	"modelforge/internal/store"
)

// Init makes the engine operational: install the reflexive hooks, create and
// seed the meta tables on first run, and load the registry. After Init the
// meta models are ordinary models; their lifecycle hooks issue the DDL.
func (e *Engine) Init(ctx context.Context) error {
	e.installMetaHooks()
	if err := e.bootstrap(ctx); err != nil {
		return err
	}
	return e.InvokeModels(ctx)
}

func (e *Engine) bootstrap(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	tx, err := e.store.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	exists, err := e.store.Dialect.TableExists(ctx, tx, "model")
	if err != nil {
		tx.Rollback()
		return err
	}
	if !exists {
		if err := e.seedMeta(ctx, tx); err != nil {
			tx.Rollback()
			return fmt.Errorf("seed meta models: %w", err)
		}
	}
	return tx.Commit()
}

func metaBaseColumns() []store.ColumnSpec {
	return []store.ColumnSpec{
		{Name: "id", Type: "serial"},
		{Name: "position", Type: "integer"},
		{Name: "status", Type: "integer"},
		{Name: "locale_id", Type: "integer"},
		{Name: "env_id", Type: "integer"},
		{Name: "locked", Type: "boolean"},
		{Name: "created_at", Type: "timestamp", Extra: "NOT NULL DEFAULT CURRENT_TIMESTAMP"},
		{Name: "updated_at", Type: "timestamp", Extra: "NOT NULL DEFAULT CURRENT_TIMESTAMP"},
	}
}

func modelColumns() []store.ColumnSpec {
	return append(metaBaseColumns(),
		store.ColumnSpec{Name: "name", Type: "string"},
		store.ColumnSpec{Name: "slug", Type: "string"},
		store.ColumnSpec{Name: "description", Type: "text"},
		store.ColumnSpec{Name: "nested", Type: "boolean"},
	)
}

func fieldColumns() []store.ColumnSpec {
	return append(metaBaseColumns(),
		store.ColumnSpec{Name: "name", Type: "string"},
		store.ColumnSpec{Name: "slug", Type: "string"},
		store.ColumnSpec{Name: "type", Type: "string"},
		store.ColumnSpec{Name: "model_id", Type: "integer"},
		store.ColumnSpec{Name: "model_position", Type: "integer"},
		store.ColumnSpec{Name: "target_id", Type: "integer"},
		store.ColumnSpec{Name: "link_id", Type: "integer"},
		store.ColumnSpec{Name: "dependent", Type: "boolean"},
		store.ColumnSpec{Name: "editable", Type: "boolean"},
		store.ColumnSpec{Name: "immutable", Type: "boolean"},
	)
}

func ruleColumns() []store.ColumnSpec {
	return append(metaBaseColumns(),
		store.ColumnSpec{Name: "model_slug", Type: "string"},
		store.ColumnSpec{Name: "timing", Type: "string"},
		store.ColumnSpec{Name: "kind", Type: "string"},
		store.ColumnSpec{Name: "field", Type: "string"},
		store.ColumnSpec{Name: "expression", Type: "text"},
		store.ColumnSpec{Name: "message", Type: "string"},
		store.ColumnSpec{Name: "active", Type: "boolean"},
	)
}

// seeder threads a sticky error through the seed sequence.
type seeder struct {
	ctx context.Context
	q   store.Querier
	d   store.Dialect
	pos map[int64]int64
	err error
}

func (s *seeder) insert(table string, v metadata.Content) int64 {
	if s.err != nil {
		return 0
	}
	row, err := store.Insert(s.ctx, s.q, s.d, table, v)
	if err != nil {
		s.err = fmt.Errorf("seed %s: %w", table, err)
		return 0
	}
	return metadata.ToInt64(row["id"])
}

func (s *seeder) field(modelID int64, name, typ string, extra metadata.Content) int64 {
	s.pos[modelID]++
	v := metadata.Content{
		"name":           name,
		"slug":           metadata.Slugify(name),
		"type":           typ,
		"model_id":       modelID,
		"model_position": s.pos[modelID],
	}
	for k, val := range extra {
		v[k] = val
	}
	return s.insert("field", v)
}

func (s *seeder) link(fieldID, linkID int64) {
	if s.err != nil {
		return
	}
	if _, err := store.Update(s.ctx, s.q, s.d, "field",
		metadata.Content{"link_id": linkID}, "id = %1", fieldID); err != nil {
		s.err = fmt.Errorf("seed link: %w", err)
	}
}

// seedMeta creates the meta tables and inserts the rows that describe them.
// This happens with plain inserts, not through the write path: until both
// meta models are fully seeded there is no registry to run hooks against.
// RETURNING ids keep the serial sequences authoritative.
func (e *Engine) seedMeta(ctx context.Context, q store.Querier) error {
	d := e.store.Dialect
	if err := store.CreateTable(ctx, q, d, "model", modelColumns()); err != nil {
		return err
	}
	if err := store.CreateTable(ctx, q, d, "field", fieldColumns()); err != nil {
		return err
	}
	if err := store.CreateTable(ctx, q, d, "rule", ruleColumns()); err != nil {
		return err
	}

	s := &seeder{ctx: ctx, q: q, d: d, pos: make(map[int64]int64)}

	modelID := s.insert("model", metadata.Content{
		"name": "model", "slug": "model", "position": 1, "locked": true,
		"description": "self-describing model registry",
	})
	fieldID := s.insert("model", metadata.Content{
		"name": "field", "slug": "field", "position": 2, "locked": true,
		"description": "field descriptors",
	})
	ruleID := s.insert("model", metadata.Content{
		"name": "rule", "slug": "rule", "position": 3, "locked": true,
		"description": "declarative check and compute rules",
	})

	seedBase := func(ownerID int64) {
		s.field(ownerID, "position", "integer", nil)
		s.field(ownerID, "status", "integer", nil)
		s.field(ownerID, "locale_id", "integer", nil)
		s.field(ownerID, "env_id", "integer", nil)
		s.field(ownerID, "locked", "boolean", nil)
		s.field(ownerID, "created_at", "timestamp", metadata.Content{"locked": true, "editable": false})
		s.field(ownerID, "updated_at", "timestamp", metadata.Content{"locked": true, "editable": false})
	}

	s.field(modelID, "id", "id", metadata.Content{"locked": true, "editable": false})
	modelName := s.field(modelID, "name", "string", nil)
	modelSlug := s.field(modelID, "slug", "slug", nil)
	s.field(modelID, "description", "text", nil)
	s.field(modelID, "nested", "boolean", nil)
	seedBase(modelID)
	fieldsColl := s.field(modelID, "fields", "collection", metadata.Content{
		"target_id": fieldID, "dependent": true,
	})

	s.field(fieldID, "id", "id", metadata.Content{"locked": true, "editable": false})
	fieldName := s.field(fieldID, "name", "string", nil)
	fieldSlug := s.field(fieldID, "slug", "slug", nil)
	s.field(fieldID, "type", "string", nil)
	s.field(fieldID, "target_id", "integer", nil)
	s.field(fieldID, "link_id", "integer", nil)
	s.field(fieldID, "dependent", "boolean", nil)
	s.field(fieldID, "editable", "boolean", nil)
	s.field(fieldID, "immutable", "boolean", nil)
	seedBase(fieldID)
	modelPart := s.field(fieldID, "model", "part", metadata.Content{
		"target_id": modelID, "editable": false,
	})
	s.field(fieldID, "model_id", "integer", metadata.Content{"locked": true, "editable": false})
	s.field(fieldID, "model_position", "integer", metadata.Content{"locked": true, "editable": false})

	s.field(ruleID, "id", "id", metadata.Content{"locked": true, "editable": false})
	s.field(ruleID, "model_slug", "string", nil)
	s.field(ruleID, "timing", "string", nil)
	s.field(ruleID, "kind", "string", nil)
	s.field(ruleID, "field", "string", nil)
	s.field(ruleID, "expression", "text", nil)
	s.field(ruleID, "message", "string", nil)
	s.field(ruleID, "active", "boolean", nil)
	seedBase(ruleID)

	s.link(modelSlug, modelName)
	s.link(fieldSlug, fieldName)
	s.link(fieldsColl, modelPart)
	s.link(modelPart, fieldsColl)

	return s.err
}
