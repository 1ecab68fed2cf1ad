package engine

import (
	"context"
	"errors"
	"testing"
)

func appendHook(tag string) Hook {
	return func(ctx context.Context, env Env) (Env, error) {
		env.Values[tag] = true
		order, _ := env.Values["order"].([]string)
		env.Values["order"] = append(order, tag)
		return env, nil
	}
}

func TestHookSetRunsInRegistrationOrder(t *testing.T) {
	hs := newHookSet()
	hs.Add("zap", BeforeSave, "first", appendHook("first"))
	hs.Add("zap", BeforeSave, "second", appendHook("second"))
	hs.Add("zap", BeforeSave, "third", appendHook("third"))

	env, err := hs.Run(context.Background(), "zap", BeforeSave, Env{Values: map[string]any{}})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	order := env.Values["order"].([]string)
	want := []string{"first", "second", "third"}
	for i, id := range want {
		if order[i] != id {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestHookSetUpsertKeepsPosition(t *testing.T) {
	hs := newHookSet()
	hs.Add("zap", BeforeSave, "a", appendHook("a"))
	hs.Add("zap", BeforeSave, "b", appendHook("b"))
	// re-register "a" with a new body; it must keep its slot, not move to the end
	hs.Add("zap", BeforeSave, "a", appendHook("a2"))

	env, err := hs.Run(context.Background(), "zap", BeforeSave, Env{Values: map[string]any{}})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	order := env.Values["order"].([]string)
	if len(order) != 2 || order[0] != "a2" || order[1] != "b" {
		t.Fatalf("order = %v", order)
	}
}

func TestHookSetUnknownPairIsNoop(t *testing.T) {
	hs := newHookSet()
	in := Env{Values: map[string]any{"x": 1}}
	out, err := hs.Run(context.Background(), "nobody", AfterSave, in)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out.Values["x"] != 1 {
		t.Fatal("env changed on unknown slug/timing")
	}
}

func TestHookSetGeneratedID(t *testing.T) {
	hs := newHookSet()
	id := hs.Add("zap", AfterCreate, "", appendHook("gen"))
	if id == "" {
		t.Fatal("expected a generated id")
	}
	id2 := hs.Add("zap", AfterCreate, "", appendHook("gen2"))
	if id == id2 {
		t.Fatal("generated ids must be unique")
	}
}

func TestHookErrorWrapsCause(t *testing.T) {
	hs := newHookSet()
	cause := errors.New("boom")
	hs.Add("zap", BeforeDestroy, "fail", func(ctx context.Context, env Env) (Env, error) {
		return env, cause
	})

	_, err := hs.Run(context.Background(), "zap", BeforeDestroy, Env{})
	if err == nil {
		t.Fatal("expected error")
	}
	var hookErr *HookError
	if !errors.As(err, &hookErr) {
		t.Fatalf("expected HookError, got %T", err)
	}
	if hookErr.Slug != "zap" || hookErr.Timing != BeforeDestroy || hookErr.ID != "fail" {
		t.Fatalf("unexpected hook error: %+v", hookErr)
	}
	if !errors.Is(err, cause) {
		t.Fatal("HookError does not unwrap to cause")
	}
}

func TestHookSetRemovePrefix(t *testing.T) {
	hs := newHookSet()
	hs.Add("zap", BeforeSave, "rules:before_save", appendHook("rule"))
	hs.Add("zap", BeforeSave, "keep", appendHook("keep"))
	hs.RemovePrefix("rules:")

	env, err := hs.Run(context.Background(), "zap", BeforeSave, Env{Values: map[string]any{}})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	order := env.Values["order"].([]string)
	if len(order) != 1 || order[0] != "keep" {
		t.Fatalf("order = %v", order)
	}
}
