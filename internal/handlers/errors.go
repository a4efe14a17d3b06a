package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"alfredoptarigan/underwriting-intake/internal/apperrors"
)

type errorBody struct {
	Error *apperrors.AppError `json:"error"`
}

// respondError writes err as {"error": {code, message, fieldErrors}}.
func respondError(c *fiber.Ctx, err error) error {
	appErr := apperrors.As(err)
	return c.Status(appErr.HTTPStatus).JSON(errorBody{Error: appErr})
}

// ErrorHandler is the fiber fallback for errors no handler translated.
func ErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(errorBody{Error: &apperrors.AppError{
				Message:    fe.Message,
				Code:       "HTTP_ERROR",
				HTTPStatus: fe.Code,
			}})
		}

		appErr := apperrors.As(err)
		if appErr.HTTPStatus >= fiber.StatusInternalServerError {
			log.Error("Request failed",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Error(err),
			)
		}
		return c.Status(appErr.HTTPStatus).JSON(errorBody{Error: appErr})
	}
}
