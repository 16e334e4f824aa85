// Package message exposes the REST surface of the delivery router: sending,
// history and status updates.
package message

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/whatease/backend/internal/auth"
	model "github.com/whatease/backend/internal/model/chat"
	chatservice "github.com/whatease/backend/internal/service/chat"
	"github.com/whatease/backend/internal/store"
	"github.com/whatease/backend/pkg/utils"
)

type Handler struct {
	svc *chatservice.Service
}

func New(svc *chatservice.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the message routes; callers are already
// authenticated by the time these run.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/messages", h.handleSend)
	r.Get("/messages/{peer}", h.handleHistory)
	r.Put("/messages/{messageID}/status", h.handleSetStatus)
	r.Post("/assistant", h.handleAssistant)
}

func (h *Handler) handleSend(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		MessageID string `json:"message_id"`
		Recipient string `json:"recipient"`
		Content   string `json:"content"`
		// Accepted for wire compatibility; the server decides bot
		// attribution itself.
		IsBotResponse bool `json:"is_bot_response"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sender := auth.Identity(r.Context())
	msg, err := h.svc.SendDirectMessage(r.Context(), sender, payload.Recipient, payload.Content, payload.MessageID)
	if err != nil {
		if errors.Is(err, chatservice.ErrEmptyContent) || errors.Is(err, chatservice.ErrMissingParty) {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, "failed to send message")
		return
	}

	utils.RespondJSON(w, http.StatusCreated, msg)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	peer := chi.URLParam(r, "peer")
	caller := auth.Identity(r.Context())

	messages, err := h.svc.Conversation(r.Context(), caller, peer)
	if err != nil {
		if errors.Is(err, chatservice.ErrMissingParty) {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, "failed to load conversation")
		return
	}
	if messages == nil {
		messages = []model.Message{}
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

func (h *Handler) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Status string `json:"status"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	messageID := chi.URLParam(r, "messageID")
	err := h.svc.SetMessageStatus(r.Context(), messageID, model.Status(payload.Status))
	switch {
	case err == nil:
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
	case errors.Is(err, chatservice.ErrInvalidStatus):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrNotFound):
		utils.RespondError(w, http.StatusNotFound, "message not found")
	case errors.Is(err, store.ErrStatusRegression):
		utils.RespondError(w, http.StatusConflict, err.Error())
	default:
		utils.RespondError(w, http.StatusInternalServerError, "failed to update status")
	}
}

func (h *Handler) handleAssistant(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Content string `json:"content"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	caller := auth.Identity(r.Context())
	msg, err := h.svc.RequestAssistantReply(r.Context(), caller, payload.Content)
	if err != nil {
		if errors.Is(err, chatservice.ErrEmptyContent) || errors.Is(err, chatservice.ErrMissingParty) {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, "failed to produce assistant reply")
		return
	}

	utils.RespondJSON(w, http.StatusCreated, msg)
}
