package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Rrens/chat-archive/internal/domain"
	"github.com/rs/zerolog/log"
)

// Response represents a standard API response
type Response struct {
	Success bool `json:"success"`
	Data    any  `json:"data,omitempty"`
	Error   any  `json:"error,omitempty"`
}

// ErrorBody is the structured error payload
type ErrorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// JSON sends a JSON response
func JSON(w http.ResponseWriter, status int, data any) {
	write(w, status, Response{
		Success: status >= 200 && status < 300,
		Data:    data,
	})
}

// Error sends an error response
func Error(w http.ResponseWriter, status int, message any) {
	write(w, status, Response{
		Success: false,
		Error:   message,
	})
}

// ErrorWithCode sends a structured error response
func ErrorWithCode(w http.ResponseWriter, status int, code, message string) {
	Error(w, status, ErrorBody{Code: code, Message: message})
}

// ValidationError sends a 400 listing the rejected fields
func ValidationError(w http.ResponseWriter, fields map[string]string) {
	Error(w, http.StatusBadRequest, ErrorBody{
		Code:    "validation_failed",
		Message: "Please check the highlighted fields.",
		Fields:  fields,
	})
}

// DomainError maps err to a status code. Errors that are not a domain.Error
// are logged and reported as an opaque 500.
func DomainError(w http.ResponseWriter, err error) {
	var de *domain.Error
	if !errors.As(err, &de) {
		log.Error().Err(err).Msg("Request failed")
		ErrorWithCode(w, http.StatusInternalServerError, "internal_error", "Something went wrong. Please try again.")
		return
	}
	ErrorWithCode(w, StatusFor(de), de.Code, de.Message)
}

// StatusFor returns the HTTP status for a domain error code
func StatusFor(err *domain.Error) int {
	switch err.Code {
	case domain.ErrInvalidCredentials.Code,
		domain.ErrEmailNotConfirmed.Code,
		domain.ErrUnsupportedProvider.Code,
		domain.ErrUnknownService.Code,
		domain.ErrUnknownTable.Code:
		return http.StatusBadRequest
	case domain.ErrWeakPassword.Code, domain.ErrEmailTaken.Code:
		return http.StatusUnprocessableEntity
	case domain.ErrInvalidToken.Code:
		return http.StatusUnauthorized
	case domain.ErrNotFound.Code:
		return http.StatusNotFound
	default:
		return http.StatusBadRequest
	}
}

func write(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Debug().Err(err).Msg("Failed to write response")
	}
}

// NoContent sends a 204 No Content response
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Created sends a 201 Created response with data
func Created(w http.ResponseWriter, data any) {
	JSON(w, http.StatusCreated, data)
}

// OK sends a 200 OK response with data
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, data)
}

// BadRequest sends a 400 Bad Request response
func BadRequest(w http.ResponseWriter, message any) {
	Error(w, http.StatusBadRequest, message)
}

// Unauthorized sends a 401 Unauthorized response
func Unauthorized(w http.ResponseWriter, message any) {
	Error(w, http.StatusUnauthorized, message)
}

// NotFound sends a 404 Not Found response
func NotFound(w http.ResponseWriter, message any) {
	Error(w, http.StatusNotFound, message)
}

// InternalError sends a 500 Internal Server Error response
func InternalError(w http.ResponseWriter, message any) {
	Error(w, http.StatusInternalServerError, message)
}
