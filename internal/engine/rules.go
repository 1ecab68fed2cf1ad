package engine

import (
	"context"
	"log"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"modelforge/internal/metadata"
	"modelforge/internal/store"
)

// A rule row attaches a compiled expression to one model and timing. check
// rules flag a violation when the expression evaluates to true; compute rules
// write their result into the pending values under the rule's field.
type compiledRule struct {
	id      int64
	kind    string
	field   string
	message string
	prog    *vm.Program
}

type ruleKey struct {
	slug   string
	timing string
}

// ruleEnv declares the variables a rule expression may reference. Compiling
// against it is required: without an environment the identifier "values"
// resolves to expr's builtin function of the same name instead of the scope
// map.
func ruleEnv() map[string]any {
	return map[string]any{
		"spec":     metadata.Content{},
		"values":   metadata.Content{},
		"content":  metadata.Content{},
		"original": metadata.Content{},
		"action":   "",
	}
}

func compileRule(expression string) (*vm.Program, error) {
	return expr.Compile(expression, expr.Env(ruleEnv()), expr.AllowUndefinedVariables())
}

// loadRules recompiles all active rules and reinstalls their hooks. Stale
// rule hooks are removed wholesale first, so deactivated rules stop firing
// after a reload. A rule that fails to compile is skipped with a warning.
func (e *Engine) loadRules(ctx context.Context, q store.Querier) error {
	exists, err := e.store.Dialect.TableExists(ctx, q, "rule")
	if err != nil || !exists {
		return err
	}
	rows, err := store.QueryRows(ctx, q, "SELECT * FROM rule ORDER BY position, id")
	if err != nil {
		return err
	}

	e.hooks.RemovePrefix("rules:")

	groups := make(map[ruleKey][]compiledRule)
	for _, row := range rows {
		if !metadata.ToBool(row["active"]) {
			continue
		}
		key := ruleKey{
			slug:   metadata.ToString(row["model_slug"]),
			timing: metadata.ToString(row["timing"]),
		}
		expression := metadata.ToString(row["expression"])
		if key.slug == "" || key.timing == "" || expression == "" {
			continue
		}
		prog, err := compileRule(expression)
		if err != nil {
			log.Printf("WARN: rule %v: compile: %v", row["id"], err)
			continue
		}
		groups[key] = append(groups[key], compiledRule{
			id:      metadata.ToInt64(row["id"]),
			kind:    metadata.ToString(row["kind"]),
			field:   metadata.ToString(row["field"]),
			message: metadata.ToString(row["message"]),
			prog:    prog,
		})
	}

	for key, rules := range groups {
		e.hooks.Add(key.slug, key.timing, "rules:"+key.timing, e.ruleHook(rules))
	}
	return nil
}

func (e *Engine) ruleHook(rules []compiledRule) Hook {
	return func(ctx context.Context, env Env) (Env, error) {
		scope := map[string]any{
			"spec":     env.Spec,
			"values":   env.Values,
			"content":  env.Content,
			"original": env.Original,
			"action":   ruleAction(env),
		}
		var details []ErrorDetail
		for _, r := range rules {
			out, err := expr.Run(r.prog, scope)
			if err != nil {
				log.Printf("WARN: rule %d: run: %v", r.id, err)
				continue
			}
			switch r.kind {
			case "compute":
				if r.field != "" && env.Values != nil {
					env.Values[r.field] = out
				}
			default: // check
				if violated, _ := out.(bool); violated {
					msg := r.message
					if msg == "" {
						msg = "invalid"
					}
					details = append(details, ErrorDetail{Field: r.field, Rule: "check", Message: msg})
				}
			}
		}
		if len(details) > 0 {
			return env, &ValidationError{Details: details}
		}
		return env, nil
	}
}

func ruleAction(env Env) string {
	switch {
	case env.Original != nil:
		return "update"
	case env.Spec == nil:
		return "destroy"
	default:
		return "create"
	}
}
