package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes
const (
	// Fatal-to-run errors: abort the campaign or poll iteration.
	CodeTokenRefreshFailed = "TOKEN_REFRESH_FAILED"
	CodeTemplateFetch      = "TEMPLATE_FETCH_FAILED"
	CodeContactFetch       = "CONTACT_FETCH_FAILED"

	// Per-item recoverable errors: counted and logged, loop continues.
	CodeSendFailed = "SEND_FAILED"

	// Generic
	CodeBackendError  = "BACKEND_ERROR"
	CodeBadRequest    = "BAD_REQUEST"
	CodeNotFound      = "NOT_FOUND"
	CodeInternalError = "INTERNAL_ERROR"
)

// AppError is a structured, coded application error.
type AppError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Status  int            `json:"-"`
	Details map[string]any `json:"details,omitempty"`
	Err     error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// HTTPStatus returns the HTTP status code for handler responses.
func (e *AppError) HTTPStatus() int {
	if e.Status == 0 {
		return http.StatusInternalServerError
	}
	return e.Status
}

func New(code, message string, status int) *AppError {
	return &AppError{Code: code, Message: message, Status: status}
}

func Wrap(err error, code, message string, status int) *AppError {
	return &AppError{Code: code, Message: message, Status: status, Err: err}
}

// IsCode reports whether err carries the given application error code.
func IsCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

func TokenRefreshFailed(err error) *AppError {
	return Wrap(err, CodeTokenRefreshFailed, "failed to refresh access token", http.StatusBadGateway)
}

func TemplateFetch(err error, templateID string) *AppError {
	return Wrap(err, CodeTemplateFetch, "failed to fetch template", http.StatusBadGateway).
		WithDetail("template_id", templateID)
}

func ContactFetch(err error, page int) *AppError {
	return Wrap(err, CodeContactFetch, "failed to fetch contact page", http.StatusBadGateway).
		WithDetail("page", page)
}

func BackendError(op string, err error) *AppError {
	return Wrap(err, CodeBackendError, fmt.Sprintf("backend call failed: %s", op), http.StatusBadGateway)
}

func BadRequest(message string) *AppError {
	return New(CodeBadRequest, message, http.StatusBadRequest)
}

func NotFound(message string) *AppError {
	return New(CodeNotFound, message, http.StatusNotFound)
}

func Internal(err error, message string) *AppError {
	return Wrap(err, CodeInternalError, message, http.StatusInternalServerError)
}
