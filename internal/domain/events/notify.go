package events

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/ivankudzin/plutonic/backend/internal/domain/enums"
	"github.com/ivankudzin/plutonic/backend/internal/domain/model"
)

var (
	ErrMalformed   = errors.New("malformed change payload")
	ErrUnsupported = errors.New("unsupported change")
)

// FromNotification translates a pg_notify payload produced by the change
// triggers:
//
//	{"table":"matches","op":"INSERT","actor_name":"Ann","participants":[...],"record":{...}}
func FromNotification(payload string) (Event, error) {
	if !gjson.Valid(payload) {
		return nil, ErrMalformed
	}
	root := gjson.Parse(payload)
	record := root.Get("record")
	if !record.IsObject() {
		return nil, fmt.Errorf("%w: record missing", ErrMalformed)
	}

	table := root.Get("table").String()
	op := strings.ToUpper(root.Get("op").String())
	actor := root.Get("actor_name").String()

	switch table {
	case "matches":
		match, err := matchFromRecord(record)
		if err != nil {
			return nil, err
		}
		switch op {
		case "INSERT":
			return MatchInserted{Match: match, InitiatorName: actor}, nil
		case "UPDATE":
			return MatchUpdated{Match: match}, nil
		}
	case "messages":
		message, err := messageFromRecord(record)
		if err != nil {
			return nil, err
		}
		if op == "INSERT" {
			participants := make([]string, 0, 2)
			for _, id := range root.Get("participants").Array() {
				participants = append(participants, id.String())
			}
			return MessageInserted{Message: message, SenderName: actor, Participants: participants}, nil
		}
	case "meetup_invites":
		invite, err := inviteFromRecord(record)
		if err != nil {
			return nil, err
		}
		switch op {
		case "INSERT":
			return InviteInserted{Invite: invite, SenderName: actor}, nil
		case "UPDATE":
			return InviteUpdated{Invite: invite}, nil
		}
	}

	return nil, fmt.Errorf("%w: %s %s", ErrUnsupported, table, op)
}

func matchFromRecord(record gjson.Result) (model.Match, error) {
	match := model.Match{
		ID:          record.Get("id").String(),
		InitiatorID: record.Get("initiator_id").String(),
		TargetID:    record.Get("target_id").String(),
		Status:      enums.MatchStatus(record.Get("status").String()),
		IsSuperLike: record.Get("is_super_like").Bool(),
		Revision:    record.Get("revision").Int(),
		CreatedAt:   parseTime(record.Get("created_at")),
		UpdatedAt:   parseTime(record.Get("updated_at")),
	}
	if match.ID == "" || match.InitiatorID == "" || match.TargetID == "" || !match.Status.Valid() {
		return model.Match{}, fmt.Errorf("%w: match record", ErrMalformed)
	}
	return match, nil
}

func messageFromRecord(record gjson.Result) (model.Message, error) {
	message := model.Message{
		ID:        record.Get("id").String(),
		MatchID:   record.Get("match_id").String(),
		SenderID:  record.Get("sender_id").String(),
		Content:   record.Get("content").String(),
		IsRead:    record.Get("is_read").Bool(),
		CreatedAt: parseTime(record.Get("created_at")),
	}
	if message.ID == "" || message.MatchID == "" || message.SenderID == "" {
		return model.Message{}, fmt.Errorf("%w: message record", ErrMalformed)
	}
	return message, nil
}

func inviteFromRecord(record gjson.Result) (model.MeetupInvite, error) {
	invite := model.MeetupInvite{
		ID:         record.Get("id").String(),
		MatchID:    record.Get("match_id").String(),
		SenderID:   record.Get("sender_id").String(),
		ReceiverID: record.Get("receiver_id").String(),
		Place: model.Place{
			Name:     record.Get("place_name").String(),
			Address:  record.Get("place_address").String(),
			Category: record.Get("place_category").String(),
		},
		Datetime:  parseTime(record.Get("datetime")),
		Message:   record.Get("message").String(),
		Status:    enums.InviteStatus(record.Get("status").String()),
		Revision:  record.Get("revision").Int(),
		CreatedAt: parseTime(record.Get("created_at")),
		UpdatedAt: parseTime(record.Get("updated_at")),
	}
	if proposed := record.Get("proposed_datetime"); proposed.Exists() && proposed.Type != gjson.Null {
		ts := parseTime(proposed)
		if !ts.IsZero() {
			invite.ProposedDatetime = &ts
		}
	}
	if invite.ID == "" || invite.SenderID == "" || invite.ReceiverID == "" || !invite.Status.Valid() {
		return model.MeetupInvite{}, fmt.Errorf("%w: invite record", ErrMalformed)
	}
	return invite, nil
}

func parseTime(value gjson.Result) time.Time {
	raw := strings.TrimSpace(value.String())
	if raw == "" {
		return time.Time{}
	}
	ts, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		// row_to_json on timestamp without zone omits the offset
		ts, err = time.Parse("2006-01-02T15:04:05.999999999", raw)
		if err != nil {
			return time.Time{}
		}
	}
	return ts.UTC()
}
