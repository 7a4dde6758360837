package push

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ivankudzin/plutonic/backend/internal/domain/enums"
	"github.com/ivankudzin/plutonic/backend/internal/domain/events"
	"github.com/ivankudzin/plutonic/backend/internal/domain/model"
	"github.com/ivankudzin/plutonic/backend/internal/session"
)

type tokenStoreStub struct {
	mu      sync.Mutex
	tokens  map[string][]model.DeviceToken
	listErr error
}

func (s *tokenStoreStub) Upsert(_ context.Context, token model.DeviceToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tokens == nil {
		s.tokens = make(map[string][]model.DeviceToken)
	}
	s.tokens[token.UserID] = append(s.tokens[token.UserID], token)
	return nil
}

func (s *tokenStoreStub) Delete(_ context.Context, userID, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.tokens[userID]
	for i, t := range list {
		if t.Token == token {
			s.tokens[userID] = append(list[:i], list[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (s *tokenStoreStub) ListByUser(_ context.Context, userID string) ([]model.DeviceToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	return append([]model.DeviceToken(nil), s.tokens[userID]...), nil
}

type sentMessage struct {
	chatID int64
	text   string
	link   string
}

type telegramStub struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (s *telegramStub) SendText(_ context.Context, chatID int64, text, link string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sentMessage{chatID: chatID, text: text, link: link})
	return s.err
}

func TestRegisterValidatesPlatformAndToken(t *testing.T) {
	svc := NewService(&tokenStoreStub{}, nil, nil, Config{})
	sess := session.Session{UserID: "u1"}

	if _, err := svc.Register(context.Background(), sess, "abc", "pager"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for platform, got %v", err)
	}
	if _, err := svc.Register(context.Background(), sess, "not-a-chat", "telegram"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for telegram chat id, got %v", err)
	}
	token, err := svc.Register(context.Background(), sess, " fcm-token ", "Android")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if token.Token != "fcm-token" || token.Platform != enums.PlatformAndroid {
		t.Fatalf("unexpected token: %+v", token)
	}

	removed, err := svc.Unregister(context.Background(), sess, "fcm-token")
	if err != nil || !removed {
		t.Fatalf("unregister: removed=%v err=%v", removed, err)
	}
}

func TestHandleEventSendsToTelegramTokensOfTarget(t *testing.T) {
	store := &tokenStoreStub{}
	tg := &telegramStub{}
	svc := NewService(store, tg, nil, Config{RatePerSecond: 1000, Burst: 10, LinkBaseURL: "https://plutonic.test/"})

	_ = store.Upsert(context.Background(), model.DeviceToken{UserID: "target", Token: "4242", Platform: enums.PlatformTelegram})
	_ = store.Upsert(context.Background(), model.DeviceToken{UserID: "target", Token: "apns", Platform: enums.PlatformIOS})
	_ = store.Upsert(context.Background(), model.DeviceToken{UserID: "initiator", Token: "1111", Platform: enums.PlatformTelegram})

	event := events.MatchInserted{
		Match:         model.Match{ID: "m1", InitiatorID: "initiator", TargetID: "target", IsSuperLike: true},
		InitiatorName: "Ann",
	}
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle event: %v", err)
	}

	if len(tg.sent) != 1 {
		t.Fatalf("expected one telegram message, got %+v", tg.sent)
	}
	got := tg.sent[0]
	if got.chatID != 4242 || got.text != "Ann Super Liked you!" || got.link != "https://plutonic.test/matches" {
		t.Fatalf("unexpected message: %+v", got)
	}
}

func TestHandleEventIsBestEffort(t *testing.T) {
	store := &tokenStoreStub{}
	tg := &telegramStub{err: errors.New("bot blocked")}
	svc := NewService(store, tg, nil, Config{RatePerSecond: 1000, Burst: 10})
	_ = store.Upsert(context.Background(), model.DeviceToken{UserID: "bob", Token: "7", Platform: enums.PlatformTelegram})

	event := events.MessageInserted{
		Message:      model.Message{MatchID: "m1", SenderID: "ann"},
		SenderName:   "Ann",
		Participants: []string{"ann", "bob"},
	}
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("delivery failures must not surface, got %v", err)
	}
	if len(tg.sent) != 1 || tg.sent[0].link != "" {
		t.Fatalf("unexpected sends: %+v", tg.sent)
	}
}

func TestHandleEventWithoutSenderIsNoop(t *testing.T) {
	store := &tokenStoreStub{listErr: errors.New("should not be called")}
	svc := NewService(store, nil, nil, Config{})
	if err := svc.HandleEvent(context.Background(), events.MatchUpdated{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
