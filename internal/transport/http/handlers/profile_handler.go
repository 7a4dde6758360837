package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ivankudzin/plutonic/backend/internal/session"
	userssvc "github.com/ivankudzin/plutonic/backend/internal/services/users"
	"github.com/ivankudzin/plutonic/backend/internal/transport/http/dto"
	httperrors "github.com/ivankudzin/plutonic/backend/internal/transport/http/errors"
)

type ProfileHandler struct {
	service *userssvc.Service
}

func NewProfileHandler(service *userssvc.Service) *ProfileHandler {
	return &ProfileHandler{service: service}
}

func (h *ProfileHandler) Me(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	if h.service == nil {
		writeInternal(w, "PROFILE_SERVICE_UNAVAILABLE", "profile service is unavailable")
		return
	}

	profile, err := h.service.Me(r.Context(), sess)
	if err != nil {
		handleProfileError(w, err)
		return
	}
	h.service.Touch(r.Context(), sess)
	httperrors.Write(w, http.StatusOK, profileResponse(sess, profile))
}

func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	if h.service == nil {
		writeInternal(w, "PROFILE_SERVICE_UNAVAILABLE", "profile service is unavailable")
		return
	}

	profile, err := h.service.Get(r.Context(), sess, chi.URLParam(r, "user_id"))
	if err != nil {
		handleProfileError(w, err)
		return
	}
	httperrors.Write(w, http.StatusOK, profileResponse(sess, profile))
}

func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	if h.service == nil {
		writeInternal(w, "PROFILE_SERVICE_UNAVAILABLE", "profile service is unavailable")
		return
	}

	var req dto.UpdateProfileRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	profile, err := h.service.Update(r.Context(), sess, userssvc.UpdateInput{
		Name:        req.Name,
		Headline:    req.Headline,
		AboutMe:     req.AboutMe,
		Bio:         req.Bio,
		Gender:      req.Gender,
		LookingFor:  req.LookingFor,
		SocialStyle: req.SocialStyle,
		Timezone:    req.Timezone,
		Interests:   req.Interests,
	})
	if err != nil {
		handleProfileError(w, err)
		return
	}
	httperrors.Write(w, http.StatusOK, profileResponse(sess, profile))
}

func profileResponse(sess session.Session, profile userssvc.Profile) dto.ProfileResponse {
	u := profile.User
	interests := make([]string, 0, len(u.Interests))
	for _, interest := range u.Interests {
		interests = append(interests, interest.Name)
	}

	res := dto.ProfileResponse{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		Headline:    u.Headline,
		About:       profile.About,
		Gender:      nonNilStrings(u.Gender),
		LookingFor:  nonNilStrings(u.LookingFor),
		SocialStyle: string(u.SocialStyle),
		Interests:   interests,
		PhotoURL:    profile.PhotoURL,
		IsPremium:   u.IsPremium,
	}
	if !u.LastActiveAt.IsZero() {
		lastActive := u.LastActiveAt
		res.LastActiveAt = &lastActive
	}
	if u.ID == sess.UserID {
		remaining := u.SuperLikesRemaining
		res.SuperLikesRemaining = &remaining
		res.Timezone = u.Timezone
	}
	return res
}

func handleProfileError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, userssvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", "invalid profile request")
	case errors.Is(err, userssvc.ErrNotFound):
		writeNotFound(w, "user not found")
	case errors.Is(err, userssvc.ErrUpstreamUnavailable):
		writeUnavailable(w)
	default:
		writeInternal(w, "INTERNAL_ERROR", "failed to process profile request")
	}
}

func nonNilStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
