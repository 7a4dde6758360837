package rules

import "github.com/ivankudzin/plutonic/backend/internal/domain/enums"

// MatchAction is a state-changing call on a Match.
type MatchAction string

const (
	MatchAccept  MatchAction = "accept"
	MatchDecline MatchAction = "decline"
	MatchUndo    MatchAction = "undo"
)

var matchTransitions = map[enums.MatchStatus]map[MatchAction]enums.MatchStatus{
	enums.MatchStatusPending: {
		MatchAccept:  enums.MatchStatusAccepted,
		MatchDecline: enums.MatchStatusDeclined,
	},
	// undo is the only edge back to pending.
	enums.MatchStatusAccepted: {
		MatchUndo: enums.MatchStatusPending,
	},
	enums.MatchStatusDeclined: {
		MatchUndo: enums.MatchStatusPending,
	},
}

// NextMatchStatus returns the target status for action or false when the
// transition is not allowed from current.
func NextMatchStatus(current enums.MatchStatus, action MatchAction) (enums.MatchStatus, bool) {
	next, ok := matchTransitions[current][action]
	return next, ok
}

// InviteAction is a state-changing call on a MeetupInvite.
type InviteAction string

const (
	InviteAccept             InviteAction = "accept"
	InviteDecline            InviteAction = "decline"
	InviteProposeTime        InviteAction = "propose_time"
	InviteAcceptProposedTime InviteAction = "accept_proposed_time"
	InviteCancel             InviteAction = "cancel"
)

// InviteRole is the caller's side of an invite.
type InviteRole string

const (
	InviteRoleSender   InviteRole = "sender"
	InviteRoleReceiver InviteRole = "receiver"
)

type inviteEdge struct {
	next  enums.InviteStatus
	roles []InviteRole
}

var inviteTransitions = map[enums.InviteStatus]map[InviteAction]inviteEdge{
	enums.InviteStatusPending: {
		InviteAccept:      {next: enums.InviteStatusAccepted, roles: []InviteRole{InviteRoleReceiver}},
		InviteDecline:     {next: enums.InviteStatusDeclined, roles: []InviteRole{InviteRoleReceiver}},
		InviteProposeTime: {next: enums.InviteStatusProposedChange, roles: []InviteRole{InviteRoleReceiver}},
		InviteCancel:      {next: enums.InviteStatusCancelled, roles: []InviteRole{InviteRoleSender, InviteRoleReceiver}},
	},
	enums.InviteStatusProposedChange: {
		InviteAcceptProposedTime: {next: enums.InviteStatusAccepted, roles: []InviteRole{InviteRoleSender}},
		InviteDecline:            {next: enums.InviteStatusDeclined, roles: []InviteRole{InviteRoleSender, InviteRoleReceiver}},
		InviteCancel:             {next: enums.InviteStatusCancelled, roles: []InviteRole{InviteRoleSender, InviteRoleReceiver}},
	},
}

// NextInviteStatus resolves an invite transition. stateOK is false when the
// action is not defined for current; roleOK is false when the action exists
// but role may not perform it.
func NextInviteStatus(current enums.InviteStatus, action InviteAction, role InviteRole) (next enums.InviteStatus, stateOK bool, roleOK bool) {
	edge, ok := inviteTransitions[current][action]
	if !ok {
		return current, false, false
	}
	for _, allowed := range edge.roles {
		if allowed == role {
			return edge.next, true, true
		}
	}
	return current, true, false
}
