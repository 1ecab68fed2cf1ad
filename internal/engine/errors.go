package engine

import (
	"fmt"
	"strings"
)

// MissingModelError is returned when a model key resolves to nothing in the
// registry, by slug or by id.
type MissingModelError struct {
	Key string
}

func (e *MissingModelError) Error() string {
	return fmt.Sprintf("unknown model: %s", e.Key)
}

// ReciprocalError is returned when a relational field cannot build or reach
// its reciprocal peer.
type ReciprocalError struct {
	Field  string
	Reason string
}

func (e *ReciprocalError) Error() string {
	return fmt.Sprintf("reciprocal setup for field %s: %s", e.Field, e.Reason)
}

// HookError wraps an error raised inside a lifecycle hook, identifying the
// model, timing, and hook id that failed. The write it interrupted is rolled
// back by the caller.
type HookError struct {
	Slug   string
	Timing string
	ID     string
	Err    error
}

func (e *HookError) Error() string {
	return fmt.Sprintf("hook %s/%s/%s: %v", e.Slug, e.Timing, e.ID, e.Err)
}

func (e *HookError) Unwrap() error { return e.Err }

// ErrorDetail is one rule violation.
type ErrorDetail struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// ValidationError aggregates rule violations for a single write.
type ValidationError struct {
	Details []ErrorDetail
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Details))
	for _, d := range e.Details {
		msgs = append(msgs, fmt.Sprintf("%s: %s", d.Field, d.Message))
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}
