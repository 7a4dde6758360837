package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/ivankudzin/plutonic/backend/internal/domain/events"
	"github.com/ivankudzin/plutonic/backend/internal/domain/model"
	"github.com/ivankudzin/plutonic/backend/internal/services/notifications"
	"github.com/ivankudzin/plutonic/backend/internal/transport/http/dto"
)

type chanSubscription struct {
	ch   chan events.Event
	once sync.Once
}

func newChanSubscription() *chanSubscription {
	return &chanSubscription{ch: make(chan events.Event, 8)}
}

func (s *chanSubscription) Events() <-chan events.Event { return s.ch }

func (s *chanSubscription) Close() error {
	s.once.Do(func() { close(s.ch) })
	return nil
}

func dialStream(t *testing.T, h *StreamHandler, userID string) (*websocket.Conn, context.Context) {
	t.Helper()
	srv := httptest.NewServer(withSession(userID)(http.HandlerFunc(h.Handle)))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial stream: %v", err)
	}
	t.Cleanup(func() { conn.CloseNow() })
	return conn, ctx
}

func readFrame(t *testing.T, ctx context.Context, conn *websocket.Conn) dto.StreamFrame {
	t.Helper()
	var frame dto.StreamFrame
	if err := wsjson.Read(ctx, conn, &frame); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return frame
}

func TestStreamRelaysNotificationsAndMarkRead(t *testing.T) {
	sub := newChanSubscription()
	h := NewStreamHandler(func(_ context.Context, userID string) (notifications.Subscription, error) {
		if userID != bobID {
			t.Errorf("unexpected subscriber: %s", userID)
		}
		return sub, nil
	}, StreamConfig{PingInterval: time.Minute}, nil)

	conn, ctx := dialStream(t, h, bobID)

	if frame := readFrame(t, ctx, conn); frame.Type != dto.StreamFrameSnapshot || frame.UnreadCount != 0 {
		t.Fatalf("unexpected first frame: %+v", frame)
	}

	sub.ch <- events.MatchInserted{
		Match:         model.Match{ID: matchID, InitiatorID: aliceID, TargetID: bobID},
		InitiatorName: "Alice",
	}
	frame := readFrame(t, ctx, conn)
	if frame.Type != dto.StreamFrameNotification || frame.Notification == nil {
		t.Fatalf("unexpected notification frame: %+v", frame)
	}
	if frame.Notification.Text != "Alice liked you!" || frame.UnreadCount != 1 {
		t.Fatalf("unexpected notification: %+v unread=%d", frame.Notification, frame.UnreadCount)
	}

	if err := wsjson.Write(ctx, conn, dto.StreamCommand{Type: dto.StreamCommandMarkRead, ID: frame.Notification.ID}); err != nil {
		t.Fatalf("write command: %v", err)
	}
	if frame := readFrame(t, ctx, conn); frame.Type != dto.StreamFrameUnread || frame.UnreadCount != 0 {
		t.Fatalf("unexpected unread frame: %+v", frame)
	}

	if err := wsjson.Write(ctx, conn, dto.StreamCommand{Type: "explode"}); err != nil {
		t.Fatalf("write command: %v", err)
	}
	if frame := readFrame(t, ctx, conn); frame.Type != dto.StreamFrameError {
		t.Fatalf("expected error frame, got %+v", frame)
	}
}

func TestStreamSubscribeFailureIsUnavailable(t *testing.T) {
	h := NewStreamHandler(func(context.Context, string) (notifications.Subscription, error) {
		return nil, errors.New("redis down")
	}, StreamConfig{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/stream", nil)
	rr := httptest.NewRecorder()
	withSession(bobID)(http.HandlerFunc(h.Handle)).ServeHTTP(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusServiceUnavailable)
	}
}
