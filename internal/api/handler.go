package api

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"modelforge/internal/engine"
	"modelforge/internal/metadata"
	"modelforge/internal/store"
)

type Handler struct {
	engine *engine.Engine
}

func NewHandler(e *engine.Engine) *Handler {
	return &Handler{engine: e}
}

// Rally handles GET /api/:model
func (h *Handler) Rally(c *fiber.Ctx) error {
	opts := parseOptions(c)
	rows, err := h.engine.Rally(c.Context(), c.Params("model"), opts)
	if err != nil {
		return mapError(c, err)
	}
	if rows == nil {
		rows = []metadata.Content{}
	}
	return c.JSON(fiber.Map{"data": rows})
}

// Choose handles GET /api/:model/:id
func (h *Handler) Choose(c *fiber.Ctx) error {
	row, err := h.engine.Choose(c.Context(), c.Params("model"), c.Params("id"), parseOptions(c))
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(fiber.Map{"data": row})
}

// Render handles GET /api/:model/:id/render
func (h *Handler) Render(c *fiber.Ctx) error {
	row, err := h.engine.Render(c.Context(), c.Params("model"), c.Params("id"), parseOptions(c))
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(fiber.Map{"data": row})
}

// Progenitors handles GET /api/:model/:id/progenitors
func (h *Handler) Progenitors(c *fiber.Ctx) error {
	rows, err := h.engine.Progenitors(c.Context(), c.Params("model"), c.Params("id"), parseOptions(c))
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(fiber.Map{"data": rows})
}

// Descendents handles GET /api/:model/:id/descendents
func (h *Handler) Descendents(c *fiber.Ctx) error {
	rows, err := h.engine.Descendents(c.Context(), c.Params("model"), c.Params("id"), parseOptions(c))
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(fiber.Map{"data": rows})
}

// Create handles POST /api/:model
func (h *Handler) Create(c *fiber.Ctx) error {
	var body map[string]any
	if err := c.BodyParser(&body); err != nil {
		return respondError(c, NewAppError("INVALID_PAYLOAD", 400, "Invalid JSON body"))
	}
	content, err := h.engine.Create(c.Context(), c.Params("model"), body)
	if err != nil {
		return mapError(c, err)
	}
	return c.Status(201).JSON(fiber.Map{"data": content})
}

// Update handles PUT /api/:model/:id
func (h *Handler) Update(c *fiber.Ctx) error {
	var body map[string]any
	if err := c.BodyParser(&body); err != nil {
		return respondError(c, NewAppError("INVALID_PAYLOAD", 400, "Invalid JSON body"))
	}
	content, err := h.engine.Update(c.Context(), c.Params("model"), c.Params("id"), body)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(fiber.Map{"data": content})
}

// Destroy handles DELETE /api/:model/:id
func (h *Handler) Destroy(c *fiber.Ctx) error {
	content, err := h.engine.Destroy(c.Context(), c.Params("model"), c.Params("id"))
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(fiber.Map{"data": content})
}

// parseOptions reads projection options from query params. include takes
// dotted paths, e.g. include=fields,children.fields.
func parseOptions(c *fiber.Ctx) *metadata.Options {
	opts := &metadata.Options{
		OrderBy: c.Query("order_by"),
		Order:   c.Query("order"),
	}
	if n, err := strconv.Atoi(c.Query("limit")); err == nil {
		opts.Limit = n
	}
	if n, err := strconv.Atoi(c.Query("offset")); err == nil {
		opts.Offset = n
	}
	if raw := c.Query("include"); raw != "" {
		for _, path := range strings.Split(raw, ",") {
			addIncludePath(opts, strings.Split(strings.TrimSpace(path), "."))
		}
	}
	return opts
}

func addIncludePath(opts *metadata.Options, path []string) {
	cur := opts
	for _, seg := range path {
		if seg == "" {
			return
		}
		if cur.Include == nil {
			cur.Include = make(map[string]*metadata.Options)
		}
		next, ok := cur.Include[seg]
		if !ok || next == nil {
			next = &metadata.Options{}
			cur.Include[seg] = next
		}
		cur = next
	}
}

func respondError(c *fiber.Ctx, appErr *AppError) error {
	return c.Status(appErr.Status).JSON(ErrorResponse{Error: appErr})
}

// mapError translates engine and store errors into the response envelope.
func mapError(c *fiber.Ctx, err error) error {
	var missing *engine.MissingModelError
	if errors.As(err, &missing) {
		return respondError(c, UnknownModelError(missing.Key))
	}

	var validation *engine.ValidationError
	if errors.As(err, &validation) {
		details := make([]ErrorDetail, 0, len(validation.Details))
		for _, d := range validation.Details {
			details = append(details, ErrorDetail{Field: d.Field, Rule: d.Rule, Message: d.Message})
		}
		return respondError(c, ValidationFailedError(details))
	}

	if errors.Is(err, store.ErrUniqueViolation) {
		return respondError(c, ConflictError("Unique constraint violation"))
	}
	if errors.Is(err, store.ErrNotFound) {
		return respondError(c, NotFoundError(c.Params("model"), c.Params("id")))
	}

	return fmt.Errorf("%s %s: %w", c.Method(), c.Path(), err)
}
