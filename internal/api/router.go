package api

import "github.com/gofiber/fiber/v2"

func RegisterRoutes(app *fiber.App, h *Handler) {
	api := app.Group("/api")

	api.Get("/:model", h.Rally)
	api.Get("/:model/:id", h.Choose)
	api.Get("/:model/:id/render", h.Render)
	api.Get("/:model/:id/progenitors", h.Progenitors)
	api.Get("/:model/:id/descendents", h.Descendents)
	api.Post("/:model", h.Create)
	api.Put("/:model/:id", h.Update)
	api.Delete("/:model/:id", h.Destroy)
}
