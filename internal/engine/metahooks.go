package engine

import (
	"context"
	"fmt"
	"log"

	"modelforge/internal/metadata"
	"modelforge/internal/store"
)

// installMetaHooks wires the reflexive lifecycle: saving model and field rows
// issues the DDL that keeps tables and metadata in lockstep. Idempotent.
func (e *Engine) installMetaHooks() {
	e.hooks.Ensure("model")
	e.hooks.Ensure("field")

	e.hooks.Add("model", BeforeCreate, "build_table", e.hookBuildTable)
	e.hooks.Add("model", BeforeCreate, "add_base_fields", e.hookAddBaseFields)
	e.hooks.Add("model", AfterCreate, "invoke", e.hookInvokeModel)
	e.hooks.Add("model", AfterUpdate, "rename", e.hookRenameModel)
	e.hooks.Add("model", AfterSave, "invoke_all", e.hookInvokeAll)
	e.hooks.Add("model", AfterDestroy, "cleanup", e.hookCleanupModel)

	e.hooks.Ensure("rule")
	e.hooks.Add("rule", AfterSave, "reload_rules", e.hookReloadRules)
	e.hooks.Add("rule", AfterDestroy, "reload_rules", e.hookReloadRules)

	e.hooks.Add("field", BeforeSave, "check_link_slug", e.hookCheckLinkSlug)
	e.hooks.Add("field", AfterCreate, "add_columns", e.hookAddColumns)
	e.hooks.Add("field", AfterUpdate, "reify_field", e.hookReifyField)
	e.hooks.Add("field", AfterDestroy, "drop_columns", e.hookDropColumns)
}

// baseFieldSpecs returns the field specs every model receives on top of its
// declared fields. id is listed so its descriptor row exists; its column is
// already emitted by table creation.
func baseFieldSpecs() []metadata.Content {
	return []metadata.Content{
		{"name": "id", "type": "id", "locked": true, "editable": false},
		{"name": "position", "type": "integer"},
		{"name": "status", "type": "integer"},
		{"name": "locale_id", "type": "integer"},
		{"name": "env_id", "type": "integer"},
		{"name": "locked", "type": "boolean"},
		{"name": "created_at", "type": "timestamp", "locked": true, "editable": false},
		{"name": "updated_at", "type": "timestamp", "locked": true, "editable": false},
	}
}

// hookBuildTable creates the model's backing table with just its primary
// key; every other column arrives through field creation.
func (e *Engine) hookBuildTable(ctx context.Context, env Env) (Env, error) {
	slug := metadata.ToString(env.Values["slug"])
	if slug == "" {
		slug = metadata.Slugify(metadata.ToString(env.Values["name"]))
		env.Values["slug"] = slug
	}
	if slug == "" {
		return env, fmt.Errorf("model needs a name or slug")
	}
	err := store.CreateTable(ctx, env.Tx, e.store.Dialect, slug,
		[]store.ColumnSpec{{Name: "id", Type: "serial"}})
	return env, err
}

// hookAddBaseFields appends the base field specs to the declared ones, so the
// post-write collection pass materializes them as ordinary fields.
func (e *Engine) hookAddBaseFields(ctx context.Context, env Env) (Env, error) {
	declared := toList(env.Spec["fields"])
	for _, spec := range baseFieldSpecs() {
		declared = append(declared, spec)
	}
	env.Spec["fields"] = declared
	return env, nil
}

// hookInvokeModel registers the just-created model. Nested models get a
// parent_id field appended so the tree walks have a column to follow.
func (e *Engine) hookInvokeModel(ctx context.Context, env Env) (Env, error) {
	if metadata.ToBool(env.Content["nested"]) {
		env.Content["fields"] = append(toList(env.Content["fields"]),
			metadata.Content{"name": "parent_id", "type": "integer"})
	}
	m, err := e.invokeModel(ctx, env.Tx, env.Content)
	if err != nil {
		return env, err
	}
	e.registry.Alter(m)
	e.hooks.Ensure(m.Slug)
	return env, nil
}

// hookRenameModel follows a slug change with a table rename, then reloads the
// model under its new identity.
func (e *Engine) hookRenameModel(ctx context.Context, env Env) (Env, error) {
	oldSlug := metadata.ToString(env.Original["slug"])
	newSlug := metadata.ToString(env.Content["slug"])
	if oldSlug != "" && newSlug != "" && oldSlug != newSlug {
		if err := store.RenameTable(ctx, env.Tx, e.store.Dialect, oldSlug, newSlug); err != nil {
			return env, err
		}
	}
	m, err := e.invokeModel(ctx, env.Tx, env.Content)
	if err != nil {
		return env, err
	}
	e.registry.Alter(m)
	e.hooks.Ensure(m.Slug)
	return env, nil
}

func (e *Engine) hookInvokeAll(ctx context.Context, env Env) (Env, error) {
	return env, e.invokeModels(ctx, env.Tx)
}

func (e *Engine) hookReloadRules(ctx context.Context, env Env) (Env, error) {
	return env, e.loadRules(ctx, env.Tx)
}

// hookCleanupModel drops the destroyed model's table and reloads. The drop
// is tolerant: a half-built model may never have gotten its table.
func (e *Engine) hookCleanupModel(ctx context.Context, env Env) (Env, error) {
	slug := metadata.ToString(env.Content["slug"])
	if slug != "" {
		if err := store.DropTable(ctx, env.Tx, e.store.Dialect, slug); err != nil {
			log.Printf("WARN: drop table %s: %v", slug, err)
		}
	}
	return env, e.invokeModels(ctx, env.Tx)
}

// hookCheckLinkSlug resolves a link_slug spec key to a sibling field on the
// same model and stores its id as link_id. The sibling must already exist,
// which field creation order guarantees for same-model links.
func (e *Engine) hookCheckLinkSlug(ctx context.Context, env Env) (Env, error) {
	ls := metadata.ToString(env.Spec["link_slug"])
	if ls == "" {
		return env, nil
	}
	modelID := metadata.ToInt64(env.Values["model_id"])
	if modelID == 0 {
		modelID = metadata.ToInt64(env.Spec["model_id"])
	}
	rows, err := store.Fetch(ctx, env.Tx, e.store.Dialect, "field",
		"model_id = %1 AND slug = %2", modelID, metadata.Slugify(ls))
	if err != nil {
		return env, err
	}
	if len(rows) == 0 {
		log.Printf("WARN: link_slug %q not found on model %d", ls, modelID)
		return env, nil
	}
	env.Values["link_id"] = rows[0]["id"]
	return env, nil
}

// hookAddColumns materializes a new field: add its columns to the owning
// table (skipping ones that already exist, which makes replays idempotent),
// run the kind's reciprocal setup, and patch the owner in the registry.
func (e *Engine) hookAddColumns(ctx context.Context, env Env) (Env, error) {
	row := metadata.RowFromContent(env.Content)
	model, err := e.modelForField(ctx, env.Tx, row.ModelID)
	if err != nil {
		return env, err
	}
	k, err := e.newKind(ctx, env.Tx, row)
	if err != nil {
		return env, err
	}

	existing, err := e.store.Dialect.GetColumns(ctx, env.Tx, model.Slug)
	if err != nil {
		return env, err
	}
	for _, col := range k.TableAdditions(row.Slug) {
		if _, ok := existing[col.Name]; ok {
			continue
		}
		if err := store.AddColumn(ctx, env.Tx, e.store.Dialect, model.Slug, col); err != nil {
			return env, err
		}
	}
	if err := k.Setup(ctx, env.Tx); err != nil {
		return env, err
	}
	return env, e.alterModelByID(ctx, env.Tx, row.ModelID)
}

// hookReifyField follows a field slug change with column renames, both for
// the field's own columns and for its synthesized subfields, whose rows are
// renamed recursively so their columns follow.
func (e *Engine) hookReifyField(ctx context.Context, env Env) (Env, error) {
	oldSlug := metadata.ToString(env.Original["slug"])
	newSlug := metadata.ToString(env.Content["slug"])
	row := metadata.RowFromContent(env.Content)
	if oldSlug == "" || newSlug == "" || oldSlug == newSlug {
		return env, e.alterModelByID(ctx, env.Tx, row.ModelID)
	}

	model, err := e.modelForField(ctx, env.Tx, row.ModelID)
	if err != nil {
		return env, err
	}
	k, err := e.newKind(ctx, env.Tx, row)
	if err != nil {
		return env, err
	}

	oldCols := k.TableAdditions(oldSlug)
	newCols := k.TableAdditions(newSlug)
	for i := range oldCols {
		if i >= len(newCols) || oldCols[i].Name == newCols[i].Name {
			continue
		}
		if err := store.RenameColumn(ctx, env.Tx, e.store.Dialect, model.Slug, oldCols[i].Name, newCols[i].Name); err != nil {
			return env, err
		}
	}

	oldSubs := k.SubfieldNames(oldSlug)
	newSubs := k.SubfieldNames(newSlug)
	for i, os := range oldSubs {
		if i >= len(newSubs) {
			break
		}
		rows, err := store.Fetch(ctx, env.Tx, e.store.Dialect, "field",
			"model_id = %1 AND slug = %2", row.ModelID, os)
		if err != nil {
			return env, err
		}
		for _, sub := range rows {
			if _, err := e.update(ctx, env.Tx, "field", sub["id"],
				metadata.Content{"name": newSubs[i]}); err != nil {
				return env, err
			}
		}
	}
	return env, e.alterModelByID(ctx, env.Tx, row.ModelID)
}

// hookDropColumns tears a destroyed field down. Cleanup and column drops are
// reported but never block: the field row is already gone and the destroy
// must land.
func (e *Engine) hookDropColumns(ctx context.Context, env Env) (Env, error) {
	row := metadata.RowFromContent(env.Content)
	k, err := e.newKind(ctx, env.Tx, row)
	if err != nil {
		log.Printf("WARN: drop columns for %s: %v", row.Slug, err)
		return env, nil
	}
	if err := k.Cleanup(ctx, env.Tx); err != nil {
		log.Printf("WARN: cleanup field %s: %v", row.Slug, err)
	}

	model, err := e.modelForField(ctx, env.Tx, row.ModelID)
	if err != nil {
		// owning model destroyed in the same cascade
		return env, nil
	}
	exists, err := e.store.Dialect.TableExists(ctx, env.Tx, model.Slug)
	if err != nil {
		return env, err
	}
	if exists {
		for _, col := range k.TableAdditions(row.Slug) {
			if err := store.DropColumn(ctx, env.Tx, e.store.Dialect, model.Slug, col.Name); err != nil {
				log.Printf("WARN: drop column %s.%s: %v", model.Slug, col.Name, err)
			}
		}
	}
	return env, e.alterModelByID(ctx, env.Tx, row.ModelID)
}
