package enums

type InviteStatus string

const (
	InviteStatusPending        InviteStatus = "pending"
	InviteStatusAccepted       InviteStatus = "accepted"
	InviteStatusDeclined       InviteStatus = "declined"
	InviteStatusCancelled      InviteStatus = "cancelled"
	InviteStatusProposedChange InviteStatus = "proposed_change"
)

func (s InviteStatus) Valid() bool {
	switch s {
	case InviteStatusPending,
		InviteStatusAccepted,
		InviteStatusDeclined,
		InviteStatusCancelled,
		InviteStatusProposedChange:
		return true
	default:
		return false
	}
}

func (s InviteStatus) Terminal() bool {
	switch s {
	case InviteStatusAccepted, InviteStatusDeclined, InviteStatusCancelled:
		return true
	default:
		return false
	}
}
