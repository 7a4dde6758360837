package handlers

import (
	"errors"
	"net/http"

	candidatessvc "github.com/ivankudzin/plutonic/backend/internal/services/candidates"
	"github.com/ivankudzin/plutonic/backend/internal/transport/http/dto"
	httperrors "github.com/ivankudzin/plutonic/backend/internal/transport/http/errors"
)

type CandidateHandler struct {
	service *candidatessvc.Service
}

func NewCandidateHandler(service *candidatessvc.Service) *CandidateHandler {
	return &CandidateHandler{service: service}
}

// List serves GET /v1/candidates?gender=a,b&style=introvert&interests=chess&sort=recent&limit=20.
func (h *CandidateHandler) List(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	if h.service == nil {
		writeInternal(w, "CANDIDATES_SERVICE_UNAVAILABLE", "candidates service is unavailable")
		return
	}

	q := r.URL.Query()
	items, err := h.service.List(r.Context(), sess, candidatessvc.Query{
		Genders:      parseCSV(q.Get("gender")),
		SocialStyles: parseCSV(q.Get("style")),
		Interests:    parseCSV(q.Get("interests")),
		Sort:         q.Get("sort"),
		Limit:        parseIntOrDefault(q.Get("limit"), 0),
	})
	if err != nil {
		if errors.Is(err, candidatessvc.ErrValidation) {
			writeBadRequest(w, "VALIDATION_ERROR", "invalid candidate filter")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to load candidates")
		return
	}

	responseItems := make([]dto.CandidateResponse, 0, len(items))
	for _, item := range items {
		u := item.User
		responseItems = append(responseItems, dto.CandidateResponse{
			ID:          u.ID,
			Name:        u.Name,
			Headline:    u.Headline,
			About:       u.DisplayAbout(),
			Gender:      nonNilStrings(u.Gender),
			SocialStyle: string(u.SocialStyle),
			Interests:   nonNilStrings(u.InterestNames()),
			PhotoKey:    u.ProfilePhotoKey,
			Score:       item.Score,
		})
	}
	httperrors.Write(w, http.StatusOK, dto.CandidatesResponse{Items: responseItems})
}
