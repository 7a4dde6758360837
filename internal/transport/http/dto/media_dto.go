package dto

import "time"

type PhotoUploadRequest struct {
	ContentType string `json:"content_type" validate:"required"`
}

type PhotoUploadResponse struct {
	Key       string    `json:"key"`
	UploadURL string    `json:"upload_url"`
	ExpiresAt time.Time `json:"expires_at"`
}

type PhotoConfirmRequest struct {
	Key string `json:"key" validate:"required"`
}
