package handlers

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"alfredoptarigan/underwriting-intake/internal/apperrors"
	"alfredoptarigan/underwriting-intake/internal/models"
	"alfredoptarigan/underwriting-intake/internal/repositories"
	"alfredoptarigan/underwriting-intake/internal/services"
)

const idempotencyKeyHeader = "Idempotency-Key"

type SessionHandler struct {
	orchestrator *services.SessionOrchestrator
	idempotency  repositories.IdempotencyRepository
	log          *zap.Logger
}

func NewSessionHandler(
	orchestrator *services.SessionOrchestrator,
	idempotency repositories.IdempotencyRepository,
	log *zap.Logger,
) *SessionHandler {
	return &SessionHandler{
		orchestrator: orchestrator,
		idempotency:  idempotency,
		log:          log.Named("sessions"),
	}
}

// HandleCreate handles POST /v1/sessions
func (h *SessionHandler) HandleCreate(c *fiber.Ctx) error {
	var req models.CreateSessionRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return respondError(c, apperrors.BadRequest("Invalid request payload"))
		}
	}

	session, err := h.orchestrator.CreateSession(c.UserContext(), req.TenantID)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(session)
}

// HandleGet handles GET /v1/sessions/:id
func (h *SessionHandler) HandleGet(c *fiber.Ctx) error {
	session, err := h.orchestrator.GetSession(c.UserContext(), param(c, "id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(session)
}

// HandleNextQuestion handles GET /v1/sessions/:id/next-question
func (h *SessionHandler) HandleNextQuestion(c *fiber.Ctx) error {
	envelope, err := h.orchestrator.GetNextQuestion(c.UserContext(), param(c, "id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(envelope)
}

// HandleSubmitAnswer handles POST /v1/sessions/:id/answers. A repeated
// Idempotency-Key replays the first successful response.
func (h *SessionHandler) HandleSubmitAnswer(c *fiber.Ctx) error {
	ctx := c.UserContext()
	sessionID := param(c, "id")
	key := header(c, idempotencyKeyHeader)
	scope := "answers:" + sessionID

	if key != "" {
		stored, ok, err := h.idempotency.Get(ctx, scope, key)
		if err != nil {
			return respondError(c, err)
		}
		if ok {
			c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
			c.Set("Idempotent-Replayed", "true")
			return c.Status(stored.StatusCode).Send(stored.Body)
		}
	}

	var req models.SubmitAnswerRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, apperrors.BadRequest("Invalid request payload"))
	}
	resp, err := h.orchestrator.SubmitAnswer(ctx, sessionID, req)
	if err != nil {
		return respondError(c, err)
	}

	body, err := json.Marshal(resp)
	if err != nil {
		return respondError(c, apperrors.Internal(err))
	}

	if key != "" {
		err := h.idempotency.Put(ctx, scope, &repositories.IdempotentResponse{
			Key:        key,
			StatusCode: fiber.StatusOK,
			Body:       body,
		})
		if err != nil {
			h.log.Warn("Failed to store idempotent response", zap.String("session_id", sessionID), zap.Error(err))
		}
	}

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Status(fiber.StatusOK).Send(body)
}

// HandleEnd handles DELETE /v1/sessions/:id
func (h *SessionHandler) HandleEnd(c *fiber.Ctx) error {
	resp, err := h.orchestrator.EndSession(c.UserContext(), param(c, "id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(resp)
}

// HandleTranscript handles GET /v1/sessions/:id/transcript
func (h *SessionHandler) HandleTranscript(c *fiber.Ctx) error {
	transcript, err := h.orchestrator.GetTranscript(c.UserContext(), param(c, "id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(transcript)
}
