package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"alfredoptarigan/underwriting-intake/internal/metrics"
)

type Handlers struct {
	Sessions   *SessionHandler
	Intake     *IntakeHandler
	Dictionary *DictionaryHandler
}

var endpoints = []string{
	"POST /v1/sessions",
	"GET /v1/sessions/:id",
	"GET /v1/sessions/:id/next-question",
	"POST /v1/sessions/:id/answers",
	"DELETE /v1/sessions/:id",
	"GET /v1/sessions/:id/transcript",
	"POST /v1/intake/files",
	"GET /v1/intake/summary",
	"POST /v1/intake/confirmations",
	"GET /v1/dictionary/search",
}

func RegisterRoutes(app *fiber.App, h Handlers) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now(),
		})
	})

	app.Get("/metrics", metrics.Handler())

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message":   "Underwriting Intake API",
			"version":   "1.0.0",
			"endpoints": endpoints,
		})
	})

	v1 := app.Group("/v1")

	sessions := v1.Group("/sessions")
	sessions.Post("/", h.Sessions.HandleCreate)
	sessions.Get("/:id", h.Sessions.HandleGet)
	sessions.Get("/:id/next-question", h.Sessions.HandleNextQuestion)
	sessions.Post("/:id/answers", h.Sessions.HandleSubmitAnswer)
	sessions.Delete("/:id", h.Sessions.HandleEnd)
	sessions.Get("/:id/transcript", h.Sessions.HandleTranscript)

	intake := v1.Group("/intake")
	intake.Post("/files", h.Intake.HandleUpload)
	intake.Get("/summary", h.Intake.HandleSummary)
	intake.Post("/confirmations", h.Intake.HandleConfirm)

	v1.Get("/dictionary/search", h.Dictionary.HandleSearch)
}
