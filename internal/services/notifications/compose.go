package notifications

import (
	"strings"

	"github.com/ivankudzin/plutonic/backend/internal/domain/enums"
	"github.com/ivankudzin/plutonic/backend/internal/domain/events"
)

const fallbackName = "Someone"

// Draft is the user-facing part of a notification before it gets an id.
type Draft struct {
	Kind          enums.NotificationKind
	Text          string
	RelatedUserID string
	ActionURL     string
}

// Describe returns the notification userID should see for event, or false
// when the event is not addressed to userID. New proposals notify their
// target; new messages notify every participant except the sender.
func Describe(userID string, event events.Event) (Draft, bool) {
	if userID == "" {
		return Draft{}, false
	}

	switch e := event.(type) {
	case events.MatchInserted:
		if e.Match.TargetID != userID || e.Match.InitiatorID == userID {
			return Draft{}, false
		}
		name := displayName(e.InitiatorName)
		if e.Match.IsSuperLike {
			return Draft{
				Kind:          enums.NotificationKindSuperLike,
				Text:          name + " Super Liked you!",
				RelatedUserID: e.Match.InitiatorID,
				ActionURL:     "/matches",
			}, true
		}
		return Draft{
			Kind:          enums.NotificationKindMatch,
			Text:          name + " liked you!",
			RelatedUserID: e.Match.InitiatorID,
			ActionURL:     "/matches",
		}, true
	case events.MessageInserted:
		if e.Message.SenderID == userID || !contains(e.Participants, userID) {
			return Draft{}, false
		}
		return Draft{
			Kind:          enums.NotificationKindMessage,
			Text:          "New message from " + displayName(e.SenderName),
			RelatedUserID: e.Message.SenderID,
			ActionURL:     "/messages/" + e.Message.MatchID,
		}, true
	default:
		return Draft{}, false
	}
}

func displayName(name string) string {
	if name = strings.TrimSpace(name); name != "" {
		return name
	}
	return fallbackName
}

func contains(values []string, v string) bool {
	for _, value := range values {
		if value == v {
			return true
		}
	}
	return false
}
