package dto

import "time"

type UpdateProfileRequest struct {
	Name        *string  `json:"name" validate:"omitempty,max=80"`
	Headline    *string  `json:"headline" validate:"omitempty,max=120"`
	AboutMe     *string  `json:"about_me" validate:"omitempty,max=1000"`
	Bio         *string  `json:"bio" validate:"omitempty,max=1000"`
	Gender      []string `json:"gender" validate:"omitempty,max=10,dive,max=40"`
	LookingFor  []string `json:"looking_for" validate:"omitempty,max=10,dive,max=40"`
	SocialStyle *string  `json:"social_style"`
	Timezone    *string  `json:"timezone" validate:"omitempty,timezone"`
	Interests   []string `json:"interests" validate:"omitempty,max=30,dive,max=40"`
}

type ProfileResponse struct {
	ID                  string     `json:"id"`
	Email               string     `json:"email,omitempty"`
	Name                string     `json:"name"`
	Headline            string     `json:"headline,omitempty"`
	About               string     `json:"about,omitempty"`
	Gender              []string   `json:"gender"`
	LookingFor          []string   `json:"looking_for"`
	SocialStyle         string     `json:"social_style"`
	Interests           []string   `json:"interests"`
	PhotoURL            string     `json:"photo_url,omitempty"`
	Timezone            string     `json:"timezone,omitempty"`
	IsPremium           bool       `json:"is_premium"`
	SuperLikesRemaining *int       `json:"super_likes_remaining,omitempty"`
	LastActiveAt        *time.Time `json:"last_active_at,omitempty"`
}
