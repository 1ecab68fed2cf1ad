package engine

import (
	"context"

	"modelforge/internal/metadata"
	"modelforge/internal/store"
)

// create runs the full create sequence inside the caller's transaction:
// fold update_values, before_save, before_create, INSERT, merge, after_create,
// fold post_update, after_save. A spec carrying an id routes to update, which
// makes nested collection writes natural upserts.
func (e *Engine) create(ctx context.Context, q store.Querier, key string, spec metadata.Content) (metadata.Content, error) {
	if id, ok := spec["id"]; ok && id != nil {
		return e.update(ctx, q, key, id, spec)
	}
	model, err := e.registry.Resolve(key)
	if err != nil {
		return nil, err
	}
	slug := model.Slug

	values := metadata.Content{}
	err = model.Fields.Each(func(fslug string, k metadata.Kind) error {
		if fslug == "updated_at" {
			return nil
		}
		var err error
		values, err = k.UpdateValues(ctx, spec, values)
		return err
	})
	if err != nil {
		return nil, err
	}

	env := Env{Model: model, Spec: spec, Values: values, Tx: q}
	if env, err = e.hooks.Run(ctx, slug, BeforeSave, env); err != nil {
		return nil, err
	}
	if env, err = e.hooks.Run(ctx, slug, BeforeCreate, env); err != nil {
		return nil, err
	}

	ins := make(metadata.Content, len(env.Values)+2)
	for name, v := range env.Values {
		if name == "id" || name == "updated_at" || name == metadata.ParentKey {
			continue
		}
		ins[name] = v
	}
	// dynamic tables on SQLite have no timestamp defaults, stamp explicitly
	if model.Field("created_at") != nil && ins["created_at"] == nil {
		ins["created_at"] = store.Now
	}
	if model.Field("updated_at") != nil {
		ins["updated_at"] = store.Now
	}
	row, err := store.Insert(ctx, q, e.store.Dialect, slug, ins)
	if err != nil {
		return nil, err
	}

	env.Content = metadata.Merge(env.Spec, row)
	if env, err = e.hooks.Run(ctx, slug, AfterCreate, env); err != nil {
		return nil, err
	}

	err = model.Fields.Each(func(fslug string, k metadata.Kind) error {
		c, err := k.PostUpdate(ctx, q, env.Content)
		if err != nil {
			return err
		}
		env.Content = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	if env, err = e.hooks.Run(ctx, slug, AfterSave, env); err != nil {
		return nil, err
	}
	return env.Content, nil
}

// update runs before_save, before_update, UPDATE, re-read, after_update,
// fold post_update, after_save. The pre-write row rides along as Original so
// hooks can compare.
func (e *Engine) update(ctx context.Context, q store.Querier, key string, id any, spec metadata.Content) (metadata.Content, error) {
	model, err := e.registry.Resolve(key)
	if err != nil {
		return nil, err
	}
	slug := model.Slug
	d := e.store.Dialect

	original, err := store.Choose(ctx, q, d, slug, id)
	if err != nil {
		return nil, err
	}

	values := metadata.Content{}
	err = model.Fields.Each(func(fslug string, k metadata.Kind) error {
		var err error
		values, err = k.UpdateValues(ctx, spec, values)
		return err
	})
	if err != nil {
		return nil, err
	}

	env := Env{Model: model, Spec: spec, Values: values, Original: original, Tx: q}
	if env, err = e.hooks.Run(ctx, slug, BeforeSave, env); err != nil {
		return nil, err
	}
	if env, err = e.hooks.Run(ctx, slug, BeforeUpdate, env); err != nil {
		return nil, err
	}

	delete(env.Values, "id")
	delete(env.Values, metadata.ParentKey)
	if len(env.Values) > 0 {
		if _, err := store.Update(ctx, q, d, slug, env.Values, "id = %1", id); err != nil {
			return nil, err
		}
	}

	row, err := store.Choose(ctx, q, d, slug, id)
	if err != nil {
		return nil, err
	}
	env.Content = metadata.Merge(env.Spec, row)
	if env, err = e.hooks.Run(ctx, slug, AfterUpdate, env); err != nil {
		return nil, err
	}

	err = model.Fields.Each(func(fslug string, k metadata.Kind) error {
		c, err := k.PostUpdate(ctx, q, env.Content)
		if err != nil {
			return err
		}
		env.Content = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	if env, err = e.hooks.Run(ctx, slug, AfterSave, env); err != nil {
		return nil, err
	}
	return env.Content, nil
}

// destroy reads the row, runs before_destroy and the pre_destroy fold (which
// cascades dependent collections), deletes, runs after_destroy, and returns
// the last content the row had.
func (e *Engine) destroy(ctx context.Context, q store.Querier, key string, id any) (metadata.Content, error) {
	model, err := e.registry.Resolve(key)
	if err != nil {
		return nil, err
	}
	slug := model.Slug
	d := e.store.Dialect

	content, err := store.Choose(ctx, q, d, slug, id)
	if err != nil {
		return nil, err
	}

	env := Env{Model: model, Content: content, Tx: q}
	if env, err = e.hooks.Run(ctx, slug, BeforeDestroy, env); err != nil {
		return nil, err
	}

	err = model.Fields.Each(func(fslug string, k metadata.Kind) error {
		c, err := k.PreDestroy(ctx, q, env.Content)
		if err != nil {
			return err
		}
		env.Content = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	if _, err := store.Delete(ctx, q, d, slug, "id = %1", id); err != nil {
		return nil, err
	}

	if env, err = e.hooks.Run(ctx, slug, AfterDestroy, env); err != nil {
		return nil, err
	}
	return env.Content, nil
}
