// Package events is the closed set of row changes the backend reacts to.
// Producers are the Postgres change triggers; consumers are the per-user
// notification relays.
package events

import (
	"github.com/ivankudzin/plutonic/backend/internal/domain/model"
)

type Kind string

const (
	KindMatchInserted   Kind = "match_inserted"
	KindMatchUpdated    Kind = "match_updated"
	KindMessageInserted Kind = "message_inserted"
	KindInviteInserted  Kind = "invite_inserted"
	KindInviteUpdated   Kind = "invite_updated"
)

// Event is implemented only by the types in this package.
type Event interface {
	Kind() Kind
	// Recipients are the users whose channels receive the event.
	Recipients() []string
	sealed()
}

type MatchInserted struct {
	Match         model.Match `json:"match"`
	InitiatorName string      `json:"initiator_name"`
}

type MatchUpdated struct {
	Match model.Match `json:"match"`
}

type MessageInserted struct {
	Message      model.Message `json:"message"`
	SenderName   string        `json:"sender_name"`
	Participants []string      `json:"participants"`
}

type InviteInserted struct {
	Invite     model.MeetupInvite `json:"invite"`
	SenderName string             `json:"sender_name"`
}

type InviteUpdated struct {
	Invite model.MeetupInvite `json:"invite"`
}

func (MatchInserted) Kind() Kind   { return KindMatchInserted }
func (MatchUpdated) Kind() Kind    { return KindMatchUpdated }
func (MessageInserted) Kind() Kind { return KindMessageInserted }
func (InviteInserted) Kind() Kind  { return KindInviteInserted }
func (InviteUpdated) Kind() Kind   { return KindInviteUpdated }

func (MatchInserted) sealed()   {}
func (MatchUpdated) sealed()    {}
func (MessageInserted) sealed() {}
func (InviteInserted) sealed()  {}
func (InviteUpdated) sealed()   {}

func (e MatchInserted) Recipients() []string {
	return compact(e.Match.InitiatorID, e.Match.TargetID)
}

func (e MatchUpdated) Recipients() []string {
	return compact(e.Match.InitiatorID, e.Match.TargetID)
}

func (e MessageInserted) Recipients() []string {
	return compact(e.Participants...)
}

func (e InviteInserted) Recipients() []string {
	return compact(e.Invite.SenderID, e.Invite.ReceiverID)
}

func (e InviteUpdated) Recipients() []string {
	return compact(e.Invite.SenderID, e.Invite.ReceiverID)
}

func compact(ids ...string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
