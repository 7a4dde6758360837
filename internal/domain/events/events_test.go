package events

import (
	"errors"
	"testing"
	"time"

	"github.com/ivankudzin/plutonic/backend/internal/domain/enums"
)

const matchInsertPayload = `{
	"table": "matches",
	"op": "INSERT",
	"actor_name": "Ann",
	"record": {
		"id": "m-1",
		"initiator_id": "u-1",
		"target_id": "u-2",
		"status": "pending",
		"is_super_like": true,
		"revision": 1,
		"created_at": "2026-10-19T10:00:00.123456+00:00",
		"updated_at": "2026-10-19T10:00:00.123456+00:00"
	}
}`

func TestFromNotificationMatchInserted(t *testing.T) {
	event, err := FromNotification(matchInsertPayload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	inserted, ok := event.(MatchInserted)
	if !ok {
		t.Fatalf("unexpected event type: %T", event)
	}
	if inserted.InitiatorName != "Ann" || !inserted.Match.IsSuperLike || inserted.Match.Status != enums.MatchStatusPending {
		t.Fatalf("unexpected event: %+v", inserted)
	}
	want := time.Date(2026, 10, 19, 10, 0, 0, 123456000, time.UTC)
	if !inserted.Match.CreatedAt.Equal(want) {
		t.Fatalf("unexpected created_at: got %s want %s", inserted.Match.CreatedAt, want)
	}
	if got := inserted.Recipients(); len(got) != 2 || got[0] != "u-1" || got[1] != "u-2" {
		t.Fatalf("unexpected recipients: %v", got)
	}
}

func TestFromNotificationMessageInserted(t *testing.T) {
	payload := `{"table":"messages","op":"INSERT","actor_name":"Bob","participants":["u-1","u-2"],
		"record":{"id":"msg-1","match_id":"m-1","sender_id":"u-2","content":"hi","is_read":false,"created_at":"2026-10-19T10:00:00+00:00"}}`

	event, err := FromNotification(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	inserted, ok := event.(MessageInserted)
	if !ok {
		t.Fatalf("unexpected event type: %T", event)
	}
	if inserted.SenderName != "Bob" || inserted.Message.Content != "hi" || len(inserted.Participants) != 2 {
		t.Fatalf("unexpected event: %+v", inserted)
	}
}

func TestFromNotificationInviteUpdatedProposedTime(t *testing.T) {
	payload := `{"table":"meetup_invites","op":"UPDATE","record":{"id":"i-1","match_id":"m-1","sender_id":"u-1","receiver_id":"u-2",
		"place_name":"Cafe","place_address":"Main st","place_category":"cafe","datetime":"2026-10-20T18:00:00+00:00",
		"proposed_datetime":"2026-10-21T18:00:00+00:00","status":"proposed_change","revision":2}}`

	event, err := FromNotification(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	updated, ok := event.(InviteUpdated)
	if !ok {
		t.Fatalf("unexpected event type: %T", event)
	}
	if updated.Invite.ProposedDatetime == nil || updated.Invite.Place.Name != "Cafe" {
		t.Fatalf("unexpected invite: %+v", updated.Invite)
	}
}

func TestFromNotificationRejectsBadInput(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    error
	}{
		{name: "not json", payload: "{", want: ErrMalformed},
		{name: "no record", payload: `{"table":"matches","op":"INSERT"}`, want: ErrMalformed},
		{name: "bad status", payload: `{"table":"matches","op":"INSERT","record":{"id":"m","initiator_id":"a","target_id":"b","status":"maybe"}}`, want: ErrMalformed},
		{name: "delete", payload: `{"table":"matches","op":"DELETE","record":{"id":"m","initiator_id":"a","target_id":"b","status":"pending"}}`, want: ErrUnsupported},
		{name: "unknown table", payload: `{"table":"users","op":"INSERT","record":{}}`, want: ErrUnsupported},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := FromNotification(tc.payload)
			if !errors.Is(err, tc.want) {
				t.Fatalf("unexpected error: got %v want %v", err, tc.want)
			}
		})
	}
}

func TestEnvelopeRoundTripKeepsVariant(t *testing.T) {
	event, err := FromNotification(matchInsertPayload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := Marshal(event, time.Now())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	decoded, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	got, ok := decoded.(MatchInserted)
	if !ok {
		t.Fatalf("unexpected variant: %T", decoded)
	}
	if got.Match.ID != "m-1" || got.InitiatorName != "Ann" {
		t.Fatalf("unexpected decoded event: %+v", got)
	}
}

func TestUnmarshalUnknownType(t *testing.T) {
	_, err := Unmarshal([]byte(`{"v":"v1","type":"profile_updated","payload":{}}`))
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("unexpected error: %v", err)
	}
}
