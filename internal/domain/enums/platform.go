package enums

import "strings"

type Platform string

const (
	PlatformIOS      Platform = "ios"
	PlatformAndroid  Platform = "android"
	PlatformTelegram Platform = "telegram"
)

func ParsePlatform(raw string) (Platform, bool) {
	switch Platform(strings.ToLower(strings.TrimSpace(raw))) {
	case PlatformIOS:
		return PlatformIOS, true
	case PlatformAndroid:
		return PlatformAndroid, true
	case PlatformTelegram:
		return PlatformTelegram, true
	default:
		return "", false
	}
}

func (p Platform) Valid() bool {
	switch p {
	case PlatformIOS, PlatformAndroid, PlatformTelegram:
		return true
	default:
		return false
	}
}
