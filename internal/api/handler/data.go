package handler

import (
	"net/http"

	"github.com/Rrens/chat-archive/internal/api/middleware"
	"github.com/Rrens/chat-archive/internal/api/response"
	"github.com/Rrens/chat-archive/internal/domain"
	"github.com/Rrens/chat-archive/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// ProfileHandler handles the caller's profile
type ProfileHandler struct {
	profileService *service.ProfileService
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(profileService *service.ProfileService) *ProfileHandler {
	return &ProfileHandler{profileService: profileService}
}

// Get returns the caller's profile
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}

	profile, err := h.profileService.Get(r.Context(), userID)
	if err != nil {
		response.DomainError(w, err)
		return
	}

	response.OK(w, profile)
}

// Update changes the caller's profile
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}

	var input domain.ProfileUpdate
	if !decode(w, r, &input) {
		return
	}

	profile, err := h.profileService.Update(r.Context(), userID, &input)
	if err != nil {
		response.DomainError(w, err)
		return
	}

	response.OK(w, profile)
}

// ServiceHandler handles AI service connection flags
type ServiceHandler struct {
	services *service.ServiceConnectionService
}

// NewServiceHandler creates a new service handler
func NewServiceHandler(services *service.ServiceConnectionService) *ServiceHandler {
	return &ServiceHandler{services: services}
}

// List returns every provider with the caller's flag
func (h *ServiceHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}

	services, err := h.services.List(r.Context(), userID)
	if err != nil {
		response.DomainError(w, err)
		return
	}

	response.OK(w, services)
}

// Update stores the flag for the provider in the path
func (h *ServiceHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}

	var input domain.ServiceConnectionUpdate
	if !decode(w, r, &input) {
		return
	}

	conn, err := h.services.Set(r.Context(), userID, chi.URLParam(r, "name"), *input.IsConnected)
	if err != nil {
		response.DomainError(w, err)
		return
	}

	response.OK(w, conn)
}

// ChatHandler handles archived chats
type ChatHandler struct {
	chats *service.ChatService
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chats *service.ChatService) *ChatHandler {
	return &ChatHandler{chats: chats}
}

// List returns the caller's chats filtered by the q parameter
func (h *ChatHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}

	chats, err := h.chats.List(r.Context(), userID, r.URL.Query().Get("q"))
	if err != nil {
		response.DomainError(w, err)
		return
	}

	response.OK(w, chats)
}

// Folders returns the tag folders filtered by the q parameter
func (h *ChatHandler) Folders(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}

	folders, err := h.chats.Folders(r.Context(), userID, r.URL.Query().Get("q"))
	if err != nil {
		response.DomainError(w, err)
		return
	}

	response.OK(w, folders)
}

// Create imports a captured chat
func (h *ChatHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}

	var input domain.ChatCreate
	if !decode(w, r, &input) {
		return
	}

	chat, err := h.chats.Create(r.Context(), userID, input)
	if err != nil {
		response.DomainError(w, err)
		return
	}

	response.Created(w, chat)
}

// CountRows counts rows of a whitelisted table. Anonymous callers see only
// rows owned by nobody, so the count proves the table is readable without
// exposing data.
func CountRows(counter domain.RowCounter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		table := chi.URLParam(r, "table")
		if !domain.CountableTables[table] {
			response.DomainError(w, domain.ErrUnknownTable.WithMessage("Unknown table: "+table))
			return
		}

		var owner *uuid.UUID
		if userID, ok := middleware.GetUserID(r.Context()); ok {
			owner = &userID
		}

		count, err := counter.CountRows(r.Context(), table, owner)
		if err != nil {
			response.DomainError(w, err)
			return
		}

		response.OK(w, map[string]any{
			"table": table,
			"count": count,
		})
	}
}
