package dto

import "time"

type RegisterDeviceRequest struct {
	Token    string `json:"token" validate:"required,max=512"`
	Platform string `json:"platform" validate:"required,oneof=ios android telegram"`
}

type UnregisterDeviceRequest struct {
	Token string `json:"token" validate:"required"`
}

type DeviceResponse struct {
	Token      string    `json:"token"`
	Platform   string    `json:"platform"`
	LastSeenAt time.Time `json:"last_seen_at"`
}

type UnregisterDeviceResponse struct {
	OK      bool `json:"ok"`
	Removed bool `json:"removed"`
}
