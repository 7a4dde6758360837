package handlers

import (
	"errors"
	"net/http"

	mediasvc "github.com/ivankudzin/plutonic/backend/internal/services/media"
	"github.com/ivankudzin/plutonic/backend/internal/transport/http/dto"
	httperrors "github.com/ivankudzin/plutonic/backend/internal/transport/http/errors"
)

type MediaHandler struct {
	service *mediasvc.Service
}

func NewMediaHandler(service *mediasvc.Service) *MediaHandler {
	return &MediaHandler{service: service}
}

// PhotoUpload hands out a presigned PUT URL; the client uploads directly
// and then calls PhotoConfirm with the returned key.
func (h *MediaHandler) PhotoUpload(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	if h.service == nil {
		writeInternal(w, "MEDIA_SERVICE_UNAVAILABLE", "media service is unavailable")
		return
	}

	var req dto.PhotoUploadRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	upload, err := h.service.CreateUpload(r.Context(), sess, req.ContentType)
	if err != nil {
		handleMediaError(w, err)
		return
	}
	httperrors.Write(w, http.StatusOK, dto.PhotoUploadResponse{
		Key:       upload.Key,
		UploadURL: upload.URL,
		ExpiresAt: upload.ExpiresAt,
	})
}

func (h *MediaHandler) PhotoConfirm(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	if h.service == nil {
		writeInternal(w, "MEDIA_SERVICE_UNAVAILABLE", "media service is unavailable")
		return
	}

	var req dto.PhotoConfirmRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	profile, err := h.service.Confirm(r.Context(), sess, req.Key)
	if err != nil {
		handleMediaError(w, err)
		return
	}
	httperrors.Write(w, http.StatusOK, profileResponse(sess, profile))
}

func handleMediaError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, mediasvc.ErrUnsupportedType):
		writeError(w, http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE", "photo must be jpeg, png, webp or heic")
	case errors.Is(err, mediasvc.ErrObjectMissing):
		writeError(w, http.StatusConflict, "UPLOAD_MISSING", "uploaded photo was not found")
	case errors.Is(err, mediasvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", "invalid media request")
	case errors.Is(err, mediasvc.ErrUpstreamUnavailable):
		writeUnavailable(w)
	default:
		handleProfileError(w, err)
	}
}
