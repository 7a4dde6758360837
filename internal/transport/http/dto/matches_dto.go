package dto

import "time"

type ProposeRequest struct {
	ToUserID string `json:"to_user_id" validate:"required,uuid"`
}

type MatchResponse struct {
	ID          string    `json:"id"`
	InitiatorID string    `json:"initiator_id"`
	TargetID    string    `json:"target_id"`
	Status      string    `json:"status"`
	IsSuperLike bool      `json:"is_super_like"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type ProposalResponse struct {
	Match        MatchResponse `json:"match"`
	AutoAccepted bool          `json:"auto_accepted"`
}

type QuotaResponse struct {
	IsPremium     bool      `json:"is_premium"`
	Remaining     int       `json:"remaining"`
	CanSuperLike  bool      `json:"can_super_like"`
	LastResetDate string    `json:"last_reset_date"`
	ResetAt       time.Time `json:"reset_at"`
}

type MatchListItemResponse struct {
	Match          MatchResponse `json:"match"`
	Incoming       bool          `json:"incoming"`
	OtherUserID    string        `json:"other_user_id"`
	OtherName      string        `json:"other_name"`
	OtherPhotoKey  string        `json:"other_photo_key,omitempty"`
	OtherHeadline  string        `json:"other_headline,omitempty"`
	OtherInterests []string      `json:"other_interests"`
}

type MatchesResponse struct {
	Items []MatchListItemResponse `json:"items"`
}
