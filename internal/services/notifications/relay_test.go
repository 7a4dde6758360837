package notifications

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ivankudzin/plutonic/backend/internal/domain/enums"
	"github.com/ivankudzin/plutonic/backend/internal/domain/events"
	"github.com/ivankudzin/plutonic/backend/internal/domain/model"
)

const (
	me     = "user-me"
	friend = "user-friend"
)

func matchInserted(initiator, target string, super bool) events.MatchInserted {
	return events.MatchInserted{
		Match:         model.Match{ID: "m-1", InitiatorID: initiator, TargetID: target, Status: enums.MatchStatusPending, IsSuperLike: super},
		InitiatorName: "Ann",
	}
}

func messageInserted(sender string) events.MessageInserted {
	return events.MessageInserted{
		Message:      model.Message{ID: "msg-1", MatchID: "m-9", SenderID: sender, Content: "hi"},
		SenderName:   "Ann",
		Participants: []string{me, friend},
	}
}

func newTestRelay(t *testing.T) *Relay {
	t.Helper()
	relay, err := NewRelay(me, Config{})
	if err != nil {
		t.Fatalf("new relay: %v", err)
	}
	return relay
}

func TestDescribeTexts(t *testing.T) {
	tests := []struct {
		name  string
		event events.Event
		kind  enums.NotificationKind
		text  string
		url   string
	}{
		{name: "like", event: matchInserted(friend, me, false), kind: enums.NotificationKindMatch, text: "Ann liked you!", url: "/matches"},
		{name: "super like", event: matchInserted(friend, me, true), kind: enums.NotificationKindSuperLike, text: "Ann Super Liked you!", url: "/matches"},
		{name: "message", event: messageInserted(friend), kind: enums.NotificationKindMessage, text: "New message from Ann", url: "/messages/m-9"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			draft, ok := Describe(me, tc.event)
			if !ok {
				t.Fatalf("expected a notification")
			}
			if draft.Kind != tc.kind || draft.Text != tc.text || draft.ActionURL != tc.url || draft.RelatedUserID != friend {
				t.Fatalf("unexpected draft: %+v", draft)
			}
		})
	}
}

func TestDescribeScoping(t *testing.T) {
	outsider := messageInserted(friend)
	outsider.Participants = []string{friend, "someone-else"}

	for name, event := range map[string]events.Event{
		"own proposal":        matchInserted(me, friend, false),
		"proposal to another": matchInserted(friend, "someone-else", false),
		"own message":         messageInserted(me),
		"foreign match":       outsider,
		"match update":        events.MatchUpdated{Match: model.Match{InitiatorID: friend, TargetID: me}},
	} {
		if _, ok := Describe(me, event); ok {
			t.Fatalf("%s must not notify", name)
		}
	}
}

func TestDescribeFallsBackOnMissingName(t *testing.T) {
	event := matchInserted(friend, me, false)
	event.InitiatorName = " "
	draft, _ := Describe(me, event)
	if draft.Text != "Someone liked you!" {
		t.Fatalf("unexpected text: %q", draft.Text)
	}
}

func TestRelayNewestFirstAndUnread(t *testing.T) {
	relay := newTestRelay(t)
	ctx := context.Background()

	first, ok := relay.OnMatchCreated(ctx, matchInserted(friend, me, false))
	if !ok {
		t.Fatalf("match notification expected")
	}
	second, ok := relay.OnMessageCreated(ctx, messageInserted(friend))
	if !ok {
		t.Fatalf("message notification expected")
	}
	if _, ok := relay.OnMessageCreated(ctx, messageInserted(me)); ok {
		t.Fatalf("own message must be ignored")
	}

	list := relay.List()
	if len(list) != 2 || list[0].ID != second.ID || list[1].ID != first.ID {
		t.Fatalf("expected newest first, got %+v", list)
	}
	if first.ID == second.ID || first.ID == "" {
		t.Fatalf("ids must be unique and non-empty")
	}
	if relay.UnreadCount() != 2 {
		t.Fatalf("unexpected unread: %d", relay.UnreadCount())
	}
}

func TestRelayMarkReadIsIdempotent(t *testing.T) {
	relay := newTestRelay(t)
	n, _ := relay.OnMatchCreated(context.Background(), matchInserted(friend, me, true))

	relay.MarkRead(n.ID)
	relay.MarkRead(n.ID)
	relay.MarkRead("unknown")
	if relay.UnreadCount() != 0 {
		t.Fatalf("unread must not go negative, got %d", relay.UnreadCount())
	}
	if !relay.List()[0].IsRead {
		t.Fatalf("notification should be read")
	}
}

func TestRelayMarkAllRead(t *testing.T) {
	relay := newTestRelay(t)
	ctx := context.Background()
	relay.OnMatchCreated(ctx, matchInserted(friend, me, false))
	relay.OnMessageCreated(ctx, messageInserted(friend))

	relay.MarkAllRead()
	if relay.UnreadCount() != 0 {
		t.Fatalf("unexpected unread: %d", relay.UnreadCount())
	}
	for _, n := range relay.List() {
		if !n.IsRead {
			t.Fatalf("notification %s still unread", n.ID)
		}
	}
}

func TestRelayDuplicateDeliveryYieldsDuplicateEntry(t *testing.T) {
	relay := newTestRelay(t)
	event := matchInserted(friend, me, false)
	relay.OnMatchCreated(context.Background(), event)
	relay.OnMatchCreated(context.Background(), event)

	if got := len(relay.List()); got != 2 {
		t.Fatalf("expected 2 entries, got %d", got)
	}
}

func TestRelayHistoryBound(t *testing.T) {
	relay, _ := NewRelay(me, Config{History: 2})
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		relay.OnMatchCreated(ctx, matchInserted(friend, me, false))
	}
	if len(relay.List()) != 2 || relay.UnreadCount() != 2 {
		t.Fatalf("expected 2 entries and 2 unread, got %d and %d", len(relay.List()), relay.UnreadCount())
	}
}

type chanSubscription struct {
	ch     chan events.Event
	once   sync.Once
	closed chan struct{}
}

func newChanSubscription() *chanSubscription {
	return &chanSubscription{ch: make(chan events.Event, 4), closed: make(chan struct{})}
}

func (s *chanSubscription) Events() <-chan events.Event { return s.ch }

func (s *chanSubscription) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}

func TestRunConsumesUntilSubscriptionEnds(t *testing.T) {
	var (
		mu     sync.Mutex
		pushed []int
	)
	relay, _ := NewRelay(me, Config{Sink: func(_ model.Notification, unread int) {
		mu.Lock()
		pushed = append(pushed, unread)
		mu.Unlock()
	}})

	sub := newChanSubscription()
	sub.ch <- matchInserted(friend, me, false)
	sub.ch <- events.InviteUpdated{}
	sub.ch <- messageInserted(friend)
	close(sub.ch)

	if err := relay.Run(context.Background(), sub); err != nil {
		t.Fatalf("run: %v", err)
	}
	select {
	case <-sub.closed:
	default:
		t.Fatalf("subscription must be released when Run returns")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(pushed) != 2 || pushed[0] != 1 || pushed[1] != 2 {
		t.Fatalf("unexpected sink calls: %v", pushed)
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	relay := newTestRelay(t)
	sub := newChanSubscription()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx, sub) }()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("run did not stop")
	}
}
