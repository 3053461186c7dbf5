package models

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Stable error codes shared with the client.
const (
	CodeValidation           = "VALIDATION_ERROR"
	CodeUnauthorized         = "UNAUTHORIZED"
	CodeNotFound             = "NOT_FOUND"
	CodeInternal             = "INTERNAL_ERROR"
	CodeUpstream             = "UPSTREAM_ERROR"
	CodeAPIKeyNotConfigured  = "API_KEY_NOT_CONFIGURED"
	CodeProfileImageRequired = "PROFILE_IMAGE_REQUIRED"
	CodeImageTooLarge        = "IMAGE_TOO_LARGE"
	CodePromptFailed         = "PROMPT_GENERATION_FAILED"
	CodeImageFailed          = "IMAGE_GENERATION_FAILED"
	CodeLimitExceeded        = "GENERATION_LIMIT_EXCEEDED"
	CodeHostNotAllowed       = "IMAGE_HOST_NOT_ALLOWED"
)

// ErrorResponse represents a standardized API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// AppError represents a custom application error
type AppError struct {
	Code    string
	Status  int
	Message string
	Err     error
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

// Predefined error constructors
func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Status:  fiber.StatusNotFound,
		Message: fmt.Sprintf("%s with ID %v not found", resource, id),
	}
}

func NewValidationError(message string) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Status:  fiber.StatusBadRequest,
		Message: message,
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Code:    CodeUnauthorized,
		Status:  fiber.StatusUnauthorized,
		Message: message,
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Status:  fiber.StatusInternalServerError,
		Message: "Internal server error",
		Err:     err,
	}
}

// NewUpstreamError wraps a non-2xx response from the backend, keeping its
// status so the gateway can relay it unchanged.
func NewUpstreamError(status int, message string) *AppError {
	if message == "" {
		message = "upstream request failed"
	}
	return &AppError{
		Code:    CodeUpstream,
		Status:  status,
		Message: message,
	}
}

// NewCodedError builds an error with an explicit stable code, used by the AI
// and image-proxy routes where the client re-maps codes to friendlier text.
func NewCodedError(status int, code, message string) *AppError {
	return &AppError{
		Code:    code,
		Status:  status,
		Message: message,
	}
}

// RespondWithError creates a standardized error response
func RespondWithError(c *fiber.Ctx, status int, err error) error {
	var response ErrorResponse

	var appErr *AppError
	if errors.As(err, &appErr) {
		response = ErrorResponse{
			Error: appErr.Message,
			Code:  appErr.Code,
		}
		if appErr.Err != nil {
			response.Details = appErr.Err.Error()
		}
		if appErr.Status != 0 {
			status = appErr.Status
		}
	} else {
		response = ErrorResponse{
			Error: err.Error(),
		}
	}

	return c.Status(status).JSON(response)
}
