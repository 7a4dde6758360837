package handlers

import (
	"errors"
	"net/http"

	pushsvc "github.com/ivankudzin/plutonic/backend/internal/services/push"
	"github.com/ivankudzin/plutonic/backend/internal/transport/http/dto"
	httperrors "github.com/ivankudzin/plutonic/backend/internal/transport/http/errors"
)

type DevicesHandler struct {
	service *pushsvc.Service
}

func NewDevicesHandler(service *pushsvc.Service) *DevicesHandler {
	return &DevicesHandler{service: service}
}

func (h *DevicesHandler) Register(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	if h.service == nil {
		writeInternal(w, "PUSH_SERVICE_UNAVAILABLE", "push service is unavailable")
		return
	}

	var req dto.RegisterDeviceRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	token, err := h.service.Register(r.Context(), sess, req.Token, req.Platform)
	if err != nil {
		handleDeviceError(w, err)
		return
	}
	httperrors.Write(w, http.StatusOK, dto.DeviceResponse{
		Token:      token.Token,
		Platform:   string(token.Platform),
		LastSeenAt: token.LastSeenAt,
	})
}

func (h *DevicesHandler) Unregister(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	if h.service == nil {
		writeInternal(w, "PUSH_SERVICE_UNAVAILABLE", "push service is unavailable")
		return
	}

	var req dto.UnregisterDeviceRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	removed, err := h.service.Unregister(r.Context(), sess, req.Token)
	if err != nil {
		handleDeviceError(w, err)
		return
	}
	httperrors.Write(w, http.StatusOK, dto.UnregisterDeviceResponse{OK: true, Removed: removed})
}

func handleDeviceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, pushsvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", "invalid device token")
	case errors.Is(err, pushsvc.ErrUpstreamUnavailable):
		writeUnavailable(w)
	default:
		writeInternal(w, "INTERNAL_ERROR", "failed to process device request")
	}
}
