package model

import (
	"time"

	"github.com/ivankudzin/plutonic/backend/internal/domain/enums"
)

// Match is a directed proposal from InitiatorID to TargetID.
type Match struct {
	ID          string            `json:"id"`
	InitiatorID string            `json:"initiator_id"`
	TargetID    string            `json:"target_id"`
	Status      enums.MatchStatus `json:"status"`
	IsSuperLike bool              `json:"is_super_like"`
	Revision    int64             `json:"revision"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

func (m Match) HasParticipant(userID string) bool {
	return userID != "" && (m.InitiatorID == userID || m.TargetID == userID)
}

func (m Match) OtherParticipant(userID string) string {
	if m.InitiatorID == userID {
		return m.TargetID
	}
	return m.InitiatorID
}
