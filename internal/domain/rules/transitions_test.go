package rules

import (
	"testing"

	"github.com/ivankudzin/plutonic/backend/internal/domain/enums"
)

func TestNextMatchStatus(t *testing.T) {
	tests := []struct {
		name    string
		current enums.MatchStatus
		action  MatchAction
		want    enums.MatchStatus
		ok      bool
	}{
		{name: "accept pending", current: enums.MatchStatusPending, action: MatchAccept, want: enums.MatchStatusAccepted, ok: true},
		{name: "decline pending", current: enums.MatchStatusPending, action: MatchDecline, want: enums.MatchStatusDeclined, ok: true},
		{name: "accept accepted", current: enums.MatchStatusAccepted, action: MatchAccept, ok: false},
		{name: "decline accepted", current: enums.MatchStatusAccepted, action: MatchDecline, ok: false},
		{name: "accept declined", current: enums.MatchStatusDeclined, action: MatchAccept, ok: false},
		{name: "undo accepted", current: enums.MatchStatusAccepted, action: MatchUndo, want: enums.MatchStatusPending, ok: true},
		{name: "undo declined", current: enums.MatchStatusDeclined, action: MatchUndo, want: enums.MatchStatusPending, ok: true},
		{name: "undo pending", current: enums.MatchStatusPending, action: MatchUndo, ok: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := NextMatchStatus(tc.current, tc.action)
			if ok != tc.ok {
				t.Fatalf("unexpected ok: got %v want %v", ok, tc.ok)
			}
			if ok && got != tc.want {
				t.Fatalf("unexpected status: got %s want %s", got, tc.want)
			}
		})
	}
}

func TestNextInviteStatus(t *testing.T) {
	tests := []struct {
		name    string
		current enums.InviteStatus
		action  InviteAction
		role    InviteRole
		want    enums.InviteStatus
		stateOK bool
		roleOK  bool
	}{
		{name: "receiver accepts", current: enums.InviteStatusPending, action: InviteAccept, role: InviteRoleReceiver, want: enums.InviteStatusAccepted, stateOK: true, roleOK: true},
		{name: "sender cannot accept own", current: enums.InviteStatusPending, action: InviteAccept, role: InviteRoleSender, stateOK: true, roleOK: false},
		{name: "receiver proposes", current: enums.InviteStatusPending, action: InviteProposeTime, role: InviteRoleReceiver, want: enums.InviteStatusProposedChange, stateOK: true, roleOK: true},
		{name: "sender accepts proposal", current: enums.InviteStatusProposedChange, action: InviteAcceptProposedTime, role: InviteRoleSender, want: enums.InviteStatusAccepted, stateOK: true, roleOK: true},
		{name: "receiver cannot accept own proposal", current: enums.InviteStatusProposedChange, action: InviteAcceptProposedTime, role: InviteRoleReceiver, stateOK: true, roleOK: false},
		{name: "sender declines proposal", current: enums.InviteStatusProposedChange, action: InviteDecline, role: InviteRoleSender, want: enums.InviteStatusDeclined, stateOK: true, roleOK: true},
		{name: "sender cancels pending", current: enums.InviteStatusPending, action: InviteCancel, role: InviteRoleSender, want: enums.InviteStatusCancelled, stateOK: true, roleOK: true},
		{name: "receiver cancels proposal", current: enums.InviteStatusProposedChange, action: InviteCancel, role: InviteRoleReceiver, want: enums.InviteStatusCancelled, stateOK: true, roleOK: true},
		{name: "cancel accepted", current: enums.InviteStatusAccepted, action: InviteCancel, role: InviteRoleSender, stateOK: false},
		{name: "accept declined", current: enums.InviteStatusDeclined, action: InviteAccept, role: InviteRoleReceiver, stateOK: false},
		{name: "cancel cancelled", current: enums.InviteStatusCancelled, action: InviteCancel, role: InviteRoleReceiver, stateOK: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, stateOK, roleOK := NextInviteStatus(tc.current, tc.action, tc.role)
			if stateOK != tc.stateOK || roleOK != tc.roleOK {
				t.Fatalf("unexpected result: stateOK=%v roleOK=%v want %v/%v", stateOK, roleOK, tc.stateOK, tc.roleOK)
			}
			if stateOK && roleOK && got != tc.want {
				t.Fatalf("unexpected status: got %s want %s", got, tc.want)
			}
		})
	}
}

func TestTerminalInviteStatusesHaveNoEdges(t *testing.T) {
	for _, status := range []enums.InviteStatus{enums.InviteStatusAccepted, enums.InviteStatusDeclined, enums.InviteStatusCancelled} {
		if !status.Terminal() {
			t.Fatalf("expected %s to be terminal", status)
		}
		if edges := inviteTransitions[status]; len(edges) != 0 {
			t.Fatalf("terminal status %s has transitions: %v", status, edges)
		}
	}
}
