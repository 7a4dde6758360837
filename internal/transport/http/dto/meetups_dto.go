package dto

import "time"

type PlaceRequest struct {
	Name     string `json:"name" validate:"required,max=120"`
	Address  string `json:"address" validate:"max=200"`
	Category string `json:"category" validate:"max=60"`
}

type CreateInviteRequest struct {
	MatchID  string       `json:"match_id" validate:"required,uuid"`
	Place    PlaceRequest `json:"place"`
	Datetime time.Time    `json:"datetime" validate:"required"`
	Message  string       `json:"message" validate:"max=500"`
}

type ProposeTimeRequest struct {
	Datetime time.Time `json:"datetime" validate:"required"`
}

type PlaceResponse struct {
	Name     string `json:"name"`
	Address  string `json:"address,omitempty"`
	Category string `json:"category,omitempty"`
}

type InviteResponse struct {
	ID               string        `json:"id"`
	MatchID          string        `json:"match_id"`
	SenderID         string        `json:"sender_id"`
	ReceiverID       string        `json:"receiver_id"`
	Place            PlaceResponse `json:"place"`
	Datetime         time.Time     `json:"datetime"`
	ProposedDatetime *time.Time    `json:"proposed_datetime,omitempty"`
	Message          string        `json:"message,omitempty"`
	Status           string        `json:"status"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

type InvitesResponse struct {
	Items []InviteResponse `json:"items"`
}
