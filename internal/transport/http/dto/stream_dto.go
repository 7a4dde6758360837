package dto

import "time"

const (
	StreamFrameNotification = "notification"
	StreamFrameSnapshot     = "snapshot"
	StreamFrameUnread       = "unread"
	StreamFrameError        = "error"

	StreamCommandMarkRead    = "mark_read"
	StreamCommandMarkAllRead = "mark_all_read"
)

type NotificationResponse struct {
	ID            string    `json:"id"`
	Kind          string    `json:"kind"`
	Text          string    `json:"text"`
	RelatedUserID string    `json:"related_user_id,omitempty"`
	IsRead        bool      `json:"is_read"`
	CreatedAt     time.Time `json:"created_at"`
	ActionURL     string    `json:"action_url,omitempty"`
}

// StreamFrame is one server to client websocket message.
type StreamFrame struct {
	Type          string                 `json:"type"`
	Notification  *NotificationResponse  `json:"notification,omitempty"`
	Notifications []NotificationResponse `json:"notifications,omitempty"`
	UnreadCount   int                    `json:"unread_count"`
	Error         string                 `json:"error,omitempty"`
}

// StreamCommand is one client to server websocket message.
type StreamCommand struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`
}
