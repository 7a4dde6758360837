package model

import (
	"time"

	"github.com/ivankudzin/plutonic/backend/internal/domain/enums"
)

type DeviceToken struct {
	UserID     string         `json:"user_id"`
	Token      string         `json:"token"`
	Platform   enums.Platform `json:"platform"`
	LastSeenAt time.Time      `json:"last_seen_at"`
}
