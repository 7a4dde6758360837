package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ivankudzin/plutonic/backend/internal/domain/model"
	messagessvc "github.com/ivankudzin/plutonic/backend/internal/services/messages"
	"github.com/ivankudzin/plutonic/backend/internal/transport/http/dto"
	httperrors "github.com/ivankudzin/plutonic/backend/internal/transport/http/errors"
)

type MessagesHandler struct {
	service *messagessvc.Service
}

func NewMessagesHandler(service *messagessvc.Service) *MessagesHandler {
	return &MessagesHandler{service: service}
}

func (h *MessagesHandler) Send(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	if h.service == nil {
		writeInternal(w, "MESSAGES_SERVICE_UNAVAILABLE", "messages service is unavailable")
		return
	}

	var req dto.SendMessageRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	msg, err := h.service.Send(r.Context(), sess, chi.URLParam(r, "match_id"), req.Content)
	if err != nil {
		handleMessageError(w, err)
		return
	}
	httperrors.Write(w, http.StatusCreated, messageResponse(msg))
}

// List serves GET /v1/matches/{match_id}/messages?before=RFC3339&limit=50.
func (h *MessagesHandler) List(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	if h.service == nil {
		writeInternal(w, "MESSAGES_SERVICE_UNAVAILABLE", "messages service is unavailable")
		return
	}

	var before time.Time
	if raw := strings.TrimSpace(r.URL.Query().Get("before")); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeBadRequest(w, "VALIDATION_ERROR", "before must be an RFC 3339 timestamp")
			return
		}
		before = parsed
	}

	items, err := h.service.List(r.Context(), sess, chi.URLParam(r, "match_id"), before, parseIntOrDefault(r.URL.Query().Get("limit"), 50))
	if err != nil {
		handleMessageError(w, err)
		return
	}

	responseItems := make([]dto.MessageResponse, 0, len(items))
	for _, item := range items {
		responseItems = append(responseItems, messageResponse(item))
	}
	httperrors.Write(w, http.StatusOK, dto.MessagesResponse{Items: responseItems})
}

func (h *MessagesHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	if h.service == nil {
		writeInternal(w, "MESSAGES_SERVICE_UNAVAILABLE", "messages service is unavailable")
		return
	}

	n, err := h.service.MarkRead(r.Context(), sess, chi.URLParam(r, "match_id"))
	if err != nil {
		handleMessageError(w, err)
		return
	}
	httperrors.Write(w, http.StatusOK, dto.MarkReadResponse{Updated: n})
}

func (h *MessagesHandler) Conversations(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	if h.service == nil {
		writeInternal(w, "MESSAGES_SERVICE_UNAVAILABLE", "messages service is unavailable")
		return
	}

	items, err := h.service.Conversations(r.Context(), sess)
	if err != nil {
		handleMessageError(w, err)
		return
	}

	responseItems := make([]dto.ConversationResponse, 0, len(items))
	for _, item := range items {
		conv := dto.ConversationResponse{
			MatchID:     item.MatchID,
			OtherUserID: item.OtherUserID,
			OtherName:   item.OtherName,
			UnreadCount: item.UnreadCount,
			UpdatedAt:   item.UpdatedAt,
		}
		if item.LastMessage != nil {
			last := messageResponse(*item.LastMessage)
			conv.LastMessage = &last
		}
		responseItems = append(responseItems, conv)
	}
	httperrors.Write(w, http.StatusOK, dto.ConversationsResponse{Items: responseItems})
}

func (h *MessagesHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	if h.service == nil {
		writeInternal(w, "MESSAGES_SERVICE_UNAVAILABLE", "messages service is unavailable")
		return
	}

	n, err := h.service.UnreadCount(r.Context(), sess)
	if err != nil {
		handleMessageError(w, err)
		return
	}
	httperrors.Write(w, http.StatusOK, dto.UnreadCountResponse{Unread: n})
}

func messageResponse(m model.Message) dto.MessageResponse {
	return dto.MessageResponse{
		ID:        m.ID,
		MatchID:   m.MatchID,
		SenderID:  m.SenderID,
		Content:   m.Content,
		IsRead:    m.IsRead,
		CreatedAt: m.CreatedAt,
	}
}

func handleMessageError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, messagessvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", "invalid message request")
	case errors.Is(err, messagessvc.ErrNotFound):
		writeNotFound(w, "match not found")
	case errors.Is(err, messagessvc.ErrNotParticipant):
		writeForbidden(w, "not a participant of this match")
	case errors.Is(err, messagessvc.ErrMatchNotAccepted):
		writeConflict(w, "MATCH_NOT_ACCEPTED", "messages need an accepted match")
	case errors.Is(err, messagessvc.ErrUpstreamUnavailable):
		writeUnavailable(w)
	default:
		writeInternal(w, "INTERNAL_ERROR", "failed to process message request")
	}
}
