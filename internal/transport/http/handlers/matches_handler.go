package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ivankudzin/plutonic/backend/internal/domain/model"
	matchessvc "github.com/ivankudzin/plutonic/backend/internal/services/matches"
	ratesvc "github.com/ivankudzin/plutonic/backend/internal/services/rate"
	"github.com/ivankudzin/plutonic/backend/internal/session"
	"github.com/ivankudzin/plutonic/backend/internal/transport/http/dto"
	httperrors "github.com/ivankudzin/plutonic/backend/internal/transport/http/errors"
)

const upgradePath = "/v1/premium"

type MatchesHandler struct {
	service *matchessvc.Service
}

func NewMatchesHandler(service *matchessvc.Service) *MatchesHandler {
	return &MatchesHandler{service: service}
}

func (h *MatchesHandler) Like(w http.ResponseWriter, r *http.Request) {
	h.propose(w, r, false)
}

func (h *MatchesHandler) SuperLike(w http.ResponseWriter, r *http.Request) {
	h.propose(w, r, true)
}

func (h *MatchesHandler) propose(w http.ResponseWriter, r *http.Request, superLike bool) {
	sess, ok := h.begin(w, r)
	if !ok {
		return
	}

	var req dto.ProposeRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	var (
		res matchessvc.ProposalResult
		err error
	)
	if superLike {
		res, err = h.service.SuperLike(r.Context(), sess, req.ToUserID)
	} else {
		res, err = h.service.Like(r.Context(), sess, req.ToUserID)
	}
	if err != nil {
		handleMatchError(w, err)
		return
	}

	status := http.StatusCreated
	if res.AutoAccepted {
		status = http.StatusOK
	}
	httperrors.Write(w, status, dto.ProposalResponse{
		Match:        matchResponse(res.Match),
		AutoAccepted: res.AutoAccepted,
	})
}

func (h *MatchesHandler) Accept(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.service.Accept)
}

func (h *MatchesHandler) Decline(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.service.Decline)
}

type matchAction func(ctx context.Context, sess session.Session, matchID string) (model.Match, error)

func (h *MatchesHandler) respond(w http.ResponseWriter, r *http.Request, action matchAction) {
	sess, ok := h.begin(w, r)
	if !ok {
		return
	}

	match, err := action(r.Context(), sess, chi.URLParam(r, "match_id"))
	if err != nil {
		handleMatchError(w, err)
		return
	}
	httperrors.Write(w, http.StatusOK, matchResponse(match))
}

func (h *MatchesHandler) Undo(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.begin(w, r)
	if !ok {
		return
	}

	match, err := h.service.Undo(r.Context(), sess)
	if err != nil {
		handleMatchError(w, err)
		return
	}
	httperrors.Write(w, http.StatusOK, matchResponse(match))
}

func (h *MatchesHandler) Quota(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.begin(w, r)
	if !ok {
		return
	}

	view, err := h.service.Quota(r.Context(), sess)
	if err != nil {
		handleMatchError(w, err)
		return
	}
	httperrors.Write(w, http.StatusOK, quotaResponse(view))
}

func (h *MatchesHandler) UpgradePremium(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.begin(w, r)
	if !ok {
		return
	}

	view, err := h.service.UpgradePremium(r.Context(), sess)
	if err != nil {
		handleMatchError(w, err)
		return
	}
	httperrors.Write(w, http.StatusOK, quotaResponse(view))
}

func (h *MatchesHandler) List(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.begin(w, r)
	if !ok {
		return
	}

	items, err := h.service.List(r.Context(), sess)
	if err != nil {
		handleMatchError(w, err)
		return
	}

	responseItems := make([]dto.MatchListItemResponse, 0, len(items))
	for _, item := range items {
		responseItems = append(responseItems, dto.MatchListItemResponse{
			Match:          matchResponse(item.Match),
			Incoming:       item.Incoming,
			OtherUserID:    item.OtherUserID,
			OtherName:      item.OtherName,
			OtherPhotoKey:  item.OtherPhotoKey,
			OtherHeadline:  item.OtherHeadline,
			OtherInterests: nonNilStrings(item.OtherInterests),
		})
	}
	httperrors.Write(w, http.StatusOK, dto.MatchesResponse{Items: responseItems})
}

func (h *MatchesHandler) begin(w http.ResponseWriter, r *http.Request) (session.Session, bool) {
	sess, ok := requireSession(w, r)
	if !ok {
		return session.Session{}, false
	}
	if h.service == nil {
		writeInternal(w, "MATCHES_SERVICE_UNAVAILABLE", "matches service is unavailable")
		return session.Session{}, false
	}
	return sess, true
}

func matchResponse(m model.Match) dto.MatchResponse {
	return dto.MatchResponse{
		ID:          m.ID,
		InitiatorID: m.InitiatorID,
		TargetID:    m.TargetID,
		Status:      string(m.Status),
		IsSuperLike: m.IsSuperLike,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func quotaResponse(view matchessvc.QuotaView) dto.QuotaResponse {
	return dto.QuotaResponse{
		IsPremium:     view.IsPremium,
		Remaining:     view.Remaining,
		CanSuperLike:  view.CanSuperLike,
		LastResetDate: view.LastResetDate,
		ResetAt:       view.ResetAt,
	}
}

func handleMatchError(w http.ResponseWriter, err error) {
	if tooFast, ok := ratesvc.IsTooFast(err); ok {
		httperrors.WriteRateLimited(w, tooFast.RetryAfter())
		return
	}

	switch {
	case errors.Is(err, matchessvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", "invalid match request")
	case errors.Is(err, matchessvc.ErrNotFound):
		writeNotFound(w, "match or user not found")
	case errors.Is(err, matchessvc.ErrNotParticipant):
		writeForbidden(w, "only the receiver may respond to this proposal")
	case errors.Is(err, matchessvc.ErrDuplicateProposal):
		writeConflict(w, "DUPLICATE_PROPOSAL", "a proposal between these users already exists")
	case errors.Is(err, matchessvc.ErrInvalidTransition):
		writeConflict(w, "INVALID_TRANSITION", "match is not in a state that allows this action")
	case errors.Is(err, matchessvc.ErrNothingToUndo):
		writeConflict(w, "NOTHING_TO_UNDO", "there is no response to undo")
	case errors.Is(err, matchessvc.ErrQuotaExhausted):
		httperrors.Write(w, http.StatusPaymentRequired, httperrors.UpgradeError{
			Code:    "QUOTA_EXHAUSTED",
			Message: "no super likes left today, upgrade to premium for unlimited super likes",
			Upgrade: upgradePath,
		})
	case errors.Is(err, matchessvc.ErrPremiumRequired):
		httperrors.Write(w, http.StatusPaymentRequired, httperrors.UpgradeError{
			Code:    "PREMIUM_REQUIRED",
			Message: "this action requires premium",
			Upgrade: upgradePath,
		})
	case errors.Is(err, matchessvc.ErrUpstreamUnavailable):
		writeUnavailable(w)
	default:
		writeInternal(w, "INTERNAL_ERROR", "failed to process match request")
	}
}
