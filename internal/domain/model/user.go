package model

import (
	"strings"
	"time"

	"github.com/ivankudzin/plutonic/backend/internal/domain/enums"
)

type Interest struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

type User struct {
	ID                  string            `json:"id"`
	Email               string            `json:"email"`
	Name                string            `json:"name"`
	Headline            string            `json:"headline,omitempty"`
	AboutMe             string            `json:"about_me,omitempty"`
	Bio                 string            `json:"bio,omitempty"`
	Gender              []string          `json:"gender"`
	LookingFor          []string          `json:"looking_for"`
	SocialStyle         enums.SocialStyle `json:"social_style"`
	Interests           []Interest        `json:"interests"`
	ProfilePhotoKey     string            `json:"profile_photo_key,omitempty"`
	Timezone            string            `json:"timezone"`
	IsPremium           bool              `json:"is_premium"`
	SuperLikesRemaining int               `json:"super_likes_remaining"`
	LastResetDate       string            `json:"last_reset_date"`
	LastActiveAt        time.Time         `json:"last_active_at"`
	CreatedAt           time.Time         `json:"created_at"`
	UpdatedAt           time.Time         `json:"updated_at"`
}

// DisplayAbout collapses the three overlapping profile texts into one.
// Precedence: about_me, then bio, then headline.
func (u User) DisplayAbout() string {
	for _, candidate := range []string{u.AboutMe, u.Bio, u.Headline} {
		if v := strings.TrimSpace(candidate); v != "" {
			return v
		}
	}
	return ""
}

func (u User) InterestNames() []string {
	names := make([]string, 0, len(u.Interests))
	for _, interest := range u.Interests {
		names = append(names, interest.Name)
	}
	return names
}
