package model

import (
	"time"

	"github.com/ivankudzin/plutonic/backend/internal/domain/enums"
)

type Notification struct {
	ID            string                 `json:"id"`
	Kind          enums.NotificationKind `json:"kind"`
	Text          string                 `json:"text"`
	RelatedUserID string                 `json:"related_user_id,omitempty"`
	IsRead        bool                   `json:"is_read"`
	CreatedAt     time.Time              `json:"created_at"`
	ActionURL     string                 `json:"action_url,omitempty"`
}
