package handlers

import (
	"github.com/gofiber/fiber/v2"

	"alfredoptarigan/underwriting-intake/internal/apperrors"
	"alfredoptarigan/underwriting-intake/internal/models"
	"alfredoptarigan/underwriting-intake/internal/services"
)

const sessionIDHeader = "X-Session-Id"

type IntakeHandler struct {
	coordinator *services.IntakeCoordinator
}

func NewIntakeHandler(coordinator *services.IntakeCoordinator) *IntakeHandler {
	return &IntakeHandler{coordinator: coordinator}
}

// HandleUpload handles POST /v1/intake/files. The session id comes from the
// sessionId form field or the X-Session-Id header.
func (h *IntakeHandler) HandleUpload(c *fiber.Ctx) error {
	sessionID := formValue(c, "sessionId")
	if sessionID == "" {
		sessionID = header(c, sessionIDHeader)
	}
	if sessionID == "" {
		return respondError(c, apperrors.BadRequest("sessionId is required"))
	}

	file, err := c.FormFile("file")
	if err != nil {
		return respondError(c, apperrors.BadRequest("No file uploaded"))
	}

	resp, err := h.coordinator.AcceptUpload(c.UserContext(), sessionID, file)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(resp)
}

// HandleSummary handles GET /v1/intake/summary?sessionId=...&wait=true
func (h *IntakeHandler) HandleSummary(c *fiber.Ctx) error {
	sessionID := query(c, "sessionId")
	if sessionID == "" {
		return respondError(c, apperrors.BadRequest("sessionId is required"))
	}

	var (
		summary *models.SummaryResponse
		err     error
	)
	if c.QueryBool("wait") {
		summary, err = h.coordinator.WaitForSummary(c.UserContext(), sessionID)
	} else {
		summary, err = h.coordinator.GetSummary(c.UserContext(), sessionID)
	}
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(summary)
}

// HandleConfirm handles POST /v1/intake/confirmations
func (h *IntakeHandler) HandleConfirm(c *fiber.Ctx) error {
	var req models.ConfirmationRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, apperrors.BadRequest("Invalid request payload"))
	}

	resp, err := h.coordinator.SubmitConfirmation(c.UserContext(), req)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(resp)
}
