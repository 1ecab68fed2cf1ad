package api

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	"modelforge/internal/engine"
	"modelforge/internal/metadata"
	"modelforge/internal/store"
)

// testApp wires the routes against an engine with an empty registry: enough
// to exercise resolution errors and query parsing without a database.
func testApp() *fiber.App {
	e := engine.New(&store.Store{Dialect: store.NewDialect("sqlite")})
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(500).JSON(ErrorResponse{
				Error: &AppError{Code: "INTERNAL_ERROR", Message: "Internal server error"},
			})
		},
	})
	RegisterRoutes(app, NewHandler(e))
	return app
}

func TestUnknownModelReturns404(t *testing.T) {
	app := testApp()

	req := httptest.NewRequest("GET", "/api/nosuch", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != 404 {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	var envelope ErrorResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Error == nil || envelope.Error.Code != "UNKNOWN_MODEL" {
		t.Fatalf("envelope = %s", body)
	}
}

func TestInvalidBodyReturns400(t *testing.T) {
	app := testApp()

	req := httptest.NewRequest("POST", "/api/anything", nil)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != 400 {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestAddIncludePath(t *testing.T) {
	opts := &metadata.Options{}
	addIncludePath(opts, []string{"fields"})
	addIncludePath(opts, []string{"children", "fields"})

	if _, ok := opts.Expand("fields"); !ok {
		t.Fatal("fields not included")
	}
	sub, ok := opts.Expand("children")
	if !ok {
		t.Fatal("children not included")
	}
	if _, ok := sub.Expand("fields"); !ok {
		t.Fatal("nested include lost")
	}
	if _, ok := opts.Expand("other"); ok {
		t.Fatal("unrequested include present")
	}
}
