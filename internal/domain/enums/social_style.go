package enums

import "strings"

type SocialStyle string

const (
	SocialStyleIntrovert SocialStyle = "introvert"
	SocialStyleAmbivert  SocialStyle = "ambivert"
	SocialStyleExtrovert SocialStyle = "extrovert"
)

func ParseSocialStyle(raw string) (SocialStyle, bool) {
	switch SocialStyle(strings.ToLower(strings.TrimSpace(raw))) {
	case SocialStyleIntrovert:
		return SocialStyleIntrovert, true
	case SocialStyleAmbivert:
		return SocialStyleAmbivert, true
	case SocialStyleExtrovert:
		return SocialStyleExtrovert, true
	default:
		return "", false
	}
}

// Rank places styles on a line so that distance can be compared.
func (s SocialStyle) Rank() int {
	switch s {
	case SocialStyleIntrovert:
		return 0
	case SocialStyleExtrovert:
		return 2
	default:
		return 1
	}
}

func (s SocialStyle) Valid() bool {
	switch s {
	case SocialStyleIntrovert, SocialStyleAmbivert, SocialStyleExtrovert:
		return true
	default:
		return false
	}
}
