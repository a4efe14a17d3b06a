// Package apperrors defines the error taxonomy shared by services and handlers.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound            = errors.New("resource not found")
	ErrValidation          = errors.New("validation error")
	ErrInvalidQuestion     = errors.New("invalid question")
	ErrInvalidAnswerFormat = errors.New("invalid answer format")
	ErrSessionClosed       = errors.New("session closed")
	ErrNoExtraction        = errors.New("no extraction for session")
	ErrBadRequest          = errors.New("bad request")
	ErrExtractionTimeout   = errors.New("extraction timed out")
	ErrProviderFailure     = errors.New("external provider failure")
	ErrInternal            = errors.New("internal error")
)

type FieldError struct {
	QuestionID string `json:"questionId,omitempty"`
	Field      string `json:"field,omitempty"`
	Message    string `json:"message"`
}

// AppError is an error with a stable code and the HTTP status it maps to.
type AppError struct {
	Err         error        `json:"-"`
	Message     string       `json:"message"`
	Code        string       `json:"code"`
	HTTPStatus  int          `json:"-"`
	FieldErrors []FieldError `json:"fieldErrors,omitempty"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:        ErrNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		Code:       "NOT_FOUND",
		HTTPStatus: http.StatusNotFound,
		FieldErrors: []FieldError{
			{Field: resource, Message: id},
		},
	}
}

func SessionNotFound(id string) *AppError {
	return NotFound("session", id)
}

func Validation(message string, fieldErrors ...FieldError) *AppError {
	return &AppError{
		Err:         ErrValidation,
		Message:     message,
		Code:        "VALIDATION_ERROR",
		HTTPStatus:  http.StatusUnprocessableEntity,
		FieldErrors: fieldErrors,
	}
}

func InvalidQuestion(questionID, expected string) *AppError {
	return &AppError{
		Err:        ErrInvalidQuestion,
		Message:    fmt.Sprintf("question %q is not the current question (expected %q)", questionID, expected),
		Code:       "INVALID_QUESTION",
		HTTPStatus: http.StatusBadRequest,
	}
}

func InvalidAnswerFormat(field, message string) *AppError {
	return &AppError{
		Err:         ErrInvalidAnswerFormat,
		Message:     message,
		Code:        "INVALID_ANSWER_FORMAT",
		HTTPStatus:  http.StatusUnprocessableEntity,
		FieldErrors: []FieldError{{Field: field, Message: message}},
	}
}

func SessionClosed(id string) *AppError {
	return &AppError{
		Err:        ErrSessionClosed,
		Message:    fmt.Sprintf("session %s is closed", id),
		Code:       "SESSION_CLOSED",
		HTTPStatus: http.StatusConflict,
	}
}

func NoExtractionForSession(sessionID string) *AppError {
	return &AppError{
		Err:        ErrNoExtraction,
		Message:    "Extraction not found for session",
		Code:       "NO_EXTRACTION_FOR_SESSION",
		HTTPStatus: http.StatusNotFound,
		FieldErrors: []FieldError{
			{Field: "sessionId", Message: sessionID},
		},
	}
}

func BadRequest(message string) *AppError {
	return &AppError{
		Err:        ErrBadRequest,
		Message:    message,
		Code:       "BAD_REQUEST",
		HTTPStatus: http.StatusBadRequest,
	}
}

// ExtractionTimeout is recorded on extraction jobs; handlers never return it.
func ExtractionTimeout(message string) *AppError {
	return &AppError{
		Err:        ErrExtractionTimeout,
		Message:    message,
		Code:       "EXTRACTION_TIMEOUT",
		HTTPStatus: http.StatusGatewayTimeout,
	}
}

func ProviderFailure(provider string, err error) *AppError {
	return &AppError{
		Err:        fmt.Errorf("%w: %v", ErrProviderFailure, err),
		Message:    fmt.Sprintf("%s provider failed", provider),
		Code:       "PROVIDER_FAILURE",
		HTTPStatus: http.StatusBadGateway,
	}
}

func Internal(err error) *AppError {
	return &AppError{
		Err:        err,
		Message:    "internal server error",
		Code:       "INTERNAL_ERROR",
		HTTPStatus: http.StatusInternalServerError,
	}
}

// As extracts an *AppError from err, wrapping unknown errors as Internal.
func As(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}
