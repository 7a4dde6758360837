package model

import (
	"time"

	"github.com/ivankudzin/plutonic/backend/internal/domain/enums"
)

type Place struct {
	Name     string `json:"name"`
	Address  string `json:"address"`
	Category string `json:"category"`
}

type MeetupInvite struct {
	ID               string             `json:"id"`
	MatchID          string             `json:"match_id"`
	SenderID         string             `json:"sender_id"`
	ReceiverID       string             `json:"receiver_id"`
	Place            Place              `json:"place"`
	Datetime         time.Time          `json:"datetime"`
	ProposedDatetime *time.Time         `json:"proposed_datetime,omitempty"`
	Message          string             `json:"message,omitempty"`
	Status           enums.InviteStatus `json:"status"`
	Revision         int64              `json:"revision"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

func (i MeetupInvite) HasParticipant(userID string) bool {
	return userID != "" && (i.SenderID == userID || i.ReceiverID == userID)
}
