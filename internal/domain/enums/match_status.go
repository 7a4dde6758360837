package enums

type MatchStatus string

const (
	MatchStatusPending  MatchStatus = "pending"
	MatchStatusAccepted MatchStatus = "accepted"
	MatchStatusDeclined MatchStatus = "declined"
)

func (s MatchStatus) Valid() bool {
	switch s {
	case MatchStatusPending, MatchStatusAccepted, MatchStatusDeclined:
		return true
	default:
		return false
	}
}

// Active statuses block a second proposal for the same direction.
func (s MatchStatus) Active() bool {
	return s == MatchStatusPending || s == MatchStatusAccepted
}
