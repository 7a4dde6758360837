package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"

	"github.com/ivankudzin/plutonic/backend/internal/domain/model"
	"github.com/ivankudzin/plutonic/backend/internal/infra/metrics"
	"github.com/ivankudzin/plutonic/backend/internal/services/notifications"
	"github.com/ivankudzin/plutonic/backend/internal/transport/http/dto"
)

const (
	defaultPingInterval   = 30 * time.Second
	defaultSendQueueSize  = 64
	defaultMaxMessageSize = 4 << 10
	streamWriteTimeout    = 5 * time.Second
)

// SubscribeFunc opens the change event stream of one user.
type SubscribeFunc func(ctx context.Context, userID string) (notifications.Subscription, error)

type StreamConfig struct {
	PingInterval   time.Duration
	SendQueueSize  int
	MaxMessageSize int64
	OriginPatterns []string
}

// StreamHandler serves the per-session notification websocket. Each
// connection owns one Relay: a relay goroutine feeds it from the change
// stream, a reader goroutine applies mark-read commands, and the handler
// goroutine writes frames and pings.
type StreamHandler struct {
	subscribe SubscribeFunc
	cfg       StreamConfig
	logger    *zap.Logger
}

func NewStreamHandler(subscribe SubscribeFunc, cfg StreamConfig, logger *zap.Logger) *StreamHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = defaultPingInterval
	}
	if cfg.SendQueueSize <= 0 {
		cfg.SendQueueSize = defaultSendQueueSize
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = defaultMaxMessageSize
	}
	return &StreamHandler{subscribe: subscribe, cfg: cfg, logger: logger}
}

func (h *StreamHandler) Handle(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	if h.subscribe == nil {
		writeInternal(w, "STREAM_UNAVAILABLE", "notification stream is unavailable")
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sub, err := h.subscribe(ctx, sess.UserID)
	if err != nil {
		h.logger.Warn("stream subscribe failed", zap.String("user_id", sess.UserID), zap.Error(err))
		writeUnavailable(w)
		return
	}

	// The server-wide timeouts must not apply to a long-lived stream.
	rc := http.NewResponseController(w)
	_ = rc.SetReadDeadline(time.Time{})
	_ = rc.SetWriteDeadline(time.Time{})

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.cfg.OriginPatterns})
	if err != nil {
		_ = sub.Close()
		h.logger.Info("stream accept failed", zap.String("user_id", sess.UserID), zap.Error(err))
		return
	}
	defer conn.CloseNow()
	conn.SetReadLimit(h.cfg.MaxMessageSize)

	metrics.StreamOpened()
	defer metrics.StreamClosed()

	log := h.logger.With(zap.String("user_id", sess.UserID), zap.String("session_id", sess.SessionID))
	frames := make(chan dto.StreamFrame, h.cfg.SendQueueSize)
	enqueue := func(frame dto.StreamFrame) {
		select {
		case frames <- frame:
		default:
			log.Warn("stream send queue full, closing")
			cancel()
		}
	}

	relay, err := notifications.NewRelay(sess.UserID, notifications.Config{
		Logger: log,
		Sink: func(n model.Notification, unread int) {
			item := notificationResponse(n)
			enqueue(dto.StreamFrame{Type: dto.StreamFrameNotification, Notification: &item, UnreadCount: unread})
		},
	})
	if err != nil {
		_ = sub.Close()
		_ = conn.Close(websocket.StatusInternalError, "relay unavailable")
		return
	}

	enqueue(snapshotFrame(relay))

	go func() {
		defer cancel()
		if err := relay.Run(ctx, sub); err != nil && !errors.Is(err, context.Canceled) {
			log.Info("stream relay stopped", zap.Error(err))
		}
	}()

	go func() {
		defer cancel()
		h.readCommands(ctx, conn, relay, enqueue)
	}()

	ticker := time.NewTicker(h.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "")
			return
		case frame := <-frames:
			if err := writeFrame(ctx, conn, frame); err != nil {
				log.Info("stream write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			pingCtx, pingCancel := context.WithTimeout(ctx, streamWriteTimeout)
			err := conn.Ping(pingCtx)
			pingCancel()
			if err != nil {
				log.Info("stream ping failed", zap.Error(err))
				return
			}
		}
	}
}

func (h *StreamHandler) readCommands(ctx context.Context, conn *websocket.Conn, relay *notifications.Relay, enqueue func(dto.StreamFrame)) {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}

		var cmd dto.StreamCommand
		if err := json.Unmarshal(data, &cmd); err != nil {
			enqueue(dto.StreamFrame{Type: dto.StreamFrameError, Error: "invalid command", UnreadCount: relay.UnreadCount()})
			continue
		}

		switch cmd.Type {
		case dto.StreamCommandMarkRead:
			relay.MarkRead(cmd.ID)
		case dto.StreamCommandMarkAllRead:
			relay.MarkAllRead()
		default:
			enqueue(dto.StreamFrame{Type: dto.StreamFrameError, Error: "unsupported command", UnreadCount: relay.UnreadCount()})
			continue
		}
		enqueue(dto.StreamFrame{Type: dto.StreamFrameUnread, UnreadCount: relay.UnreadCount()})
	}
}

func writeFrame(ctx context.Context, conn *websocket.Conn, frame dto.StreamFrame) error {
	writeCtx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
	defer cancel()
	return wsjson.Write(writeCtx, conn, frame)
}

func snapshotFrame(relay *notifications.Relay) dto.StreamFrame {
	items := relay.List()
	out := make([]dto.NotificationResponse, 0, len(items))
	for _, item := range items {
		out = append(out, notificationResponse(item))
	}
	return dto.StreamFrame{Type: dto.StreamFrameSnapshot, Notifications: out, UnreadCount: relay.UnreadCount()}
}

func notificationResponse(n model.Notification) dto.NotificationResponse {
	return dto.NotificationResponse{
		ID:            n.ID,
		Kind:          string(n.Kind),
		Text:          n.Text,
		RelatedUserID: n.RelatedUserID,
		IsRead:        n.IsRead,
		CreatedAt:     n.CreatedAt,
		ActionURL:     n.ActionURL,
	}
}
