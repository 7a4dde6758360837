package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ivankudzin/plutonic/backend/internal/domain/model"
	meetupssvc "github.com/ivankudzin/plutonic/backend/internal/services/meetups"
	"github.com/ivankudzin/plutonic/backend/internal/session"
	"github.com/ivankudzin/plutonic/backend/internal/transport/http/dto"
	httperrors "github.com/ivankudzin/plutonic/backend/internal/transport/http/errors"
)

type MeetupsHandler struct {
	service *meetupssvc.Service
}

func NewMeetupsHandler(service *meetupssvc.Service) *MeetupsHandler {
	return &MeetupsHandler{service: service}
}

func (h *MeetupsHandler) Create(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.begin(w, r)
	if !ok {
		return
	}

	var req dto.CreateInviteRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	invite, err := h.service.Create(r.Context(), sess, meetupssvc.CreateInput{
		MatchID: req.MatchID,
		Place: model.Place{
			Name:     req.Place.Name,
			Address:  req.Place.Address,
			Category: req.Place.Category,
		},
		Datetime: req.Datetime,
		Message:  req.Message,
	})
	if err != nil {
		handleMeetupError(w, err)
		return
	}
	httperrors.Write(w, http.StatusCreated, inviteResponse(invite))
}

func (h *MeetupsHandler) Accept(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Accept)
}

func (h *MeetupsHandler) Decline(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Decline)
}

func (h *MeetupsHandler) AcceptProposedTime(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.AcceptProposedTime)
}

func (h *MeetupsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Cancel)
}

func (h *MeetupsHandler) ProposeTime(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.begin(w, r)
	if !ok {
		return
	}

	var req dto.ProposeTimeRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	invite, err := h.service.ProposeTimeChange(r.Context(), sess, chi.URLParam(r, "invite_id"), req.Datetime)
	if err != nil {
		handleMeetupError(w, err)
		return
	}
	httperrors.Write(w, http.StatusOK, inviteResponse(invite))
}

// List serves GET /v1/meetups?box=sent|received.
func (h *MeetupsHandler) List(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.begin(w, r)
	if !ok {
		return
	}

	items, err := h.service.List(r.Context(), sess, r.URL.Query().Get("box"))
	if err != nil {
		handleMeetupError(w, err)
		return
	}

	responseItems := make([]dto.InviteResponse, 0, len(items))
	for _, item := range items {
		responseItems = append(responseItems, inviteResponse(item))
	}
	httperrors.Write(w, http.StatusOK, dto.InvitesResponse{Items: responseItems})
}

type inviteAction func(ctx context.Context, sess session.Session, inviteID string) (model.MeetupInvite, error)

func (h *MeetupsHandler) transition(w http.ResponseWriter, r *http.Request, action inviteAction) {
	sess, ok := h.begin(w, r)
	if !ok {
		return
	}

	invite, err := action(r.Context(), sess, chi.URLParam(r, "invite_id"))
	if err != nil {
		handleMeetupError(w, err)
		return
	}
	httperrors.Write(w, http.StatusOK, inviteResponse(invite))
}

func (h *MeetupsHandler) begin(w http.ResponseWriter, r *http.Request) (session.Session, bool) {
	sess, ok := requireSession(w, r)
	if !ok {
		return session.Session{}, false
	}
	if h.service == nil {
		writeInternal(w, "MEETUPS_SERVICE_UNAVAILABLE", "meetups service is unavailable")
		return session.Session{}, false
	}
	return sess, true
}

func inviteResponse(inv model.MeetupInvite) dto.InviteResponse {
	return dto.InviteResponse{
		ID:         inv.ID,
		MatchID:    inv.MatchID,
		SenderID:   inv.SenderID,
		ReceiverID: inv.ReceiverID,
		Place: dto.PlaceResponse{
			Name:     inv.Place.Name,
			Address:  inv.Place.Address,
			Category: inv.Place.Category,
		},
		Datetime:         inv.Datetime,
		ProposedDatetime: inv.ProposedDatetime,
		Message:          inv.Message,
		Status:           string(inv.Status),
		CreatedAt:        inv.CreatedAt,
		UpdatedAt:        inv.UpdatedAt,
	}
}

func handleMeetupError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, meetupssvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", "invalid meetup request")
	case errors.Is(err, meetupssvc.ErrNotFound):
		writeNotFound(w, "meetup invite not found")
	case errors.Is(err, meetupssvc.ErrNotParticipant):
		writeForbidden(w, "caller may not act on this invite")
	case errors.Is(err, meetupssvc.ErrMatchNotAccepted):
		writeConflict(w, "MATCH_NOT_ACCEPTED", "meetups need an accepted match")
	case errors.Is(err, meetupssvc.ErrInvalidTransition):
		writeConflict(w, "INVALID_TRANSITION", "invite is not in a state that allows this action")
	case errors.Is(err, meetupssvc.ErrInvalidProposedTime):
		writeError(w, http.StatusUnprocessableEntity, "INVALID_PROPOSED_TIME", "proposed time must be in the future")
	case errors.Is(err, meetupssvc.ErrUpstreamUnavailable):
		writeUnavailable(w)
	default:
		writeInternal(w, "INTERNAL_ERROR", "failed to process meetup request")
	}
}
