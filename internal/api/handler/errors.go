package handler

import (
	"net/http"

	"github.com/Rrens/chat-archive/internal/api/response"
	"github.com/go-playground/validator/v10"
)

func writeBadBody(w http.ResponseWriter) {
	response.ErrorWithCode(w, http.StatusBadRequest, "invalid_body", "invalid request body")
}

func writeValidation(w http.ResponseWriter, validationErrors validator.ValidationErrors) {
	response.ValidationError(w, validationFields(validationErrors))
}

func writeUnauthorized(w http.ResponseWriter) {
	response.ErrorWithCode(w, http.StatusUnauthorized, "not_authenticated", "unauthorized")
}
