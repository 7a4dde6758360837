package redis

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ivankudzin/plutonic/backend/internal/domain/events"
)

const changeChannelPrefix = "changes:user:"

// ChangeBus fans change events out to per-user channels so that every API
// instance can serve the websocket of any user.
type ChangeBus struct {
	client *goredis.Client
	logger *zap.Logger
	now    func() time.Time
}

func NewChangeBus(client *goredis.Client, logger *zap.Logger) *ChangeBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChangeBus{client: client, logger: logger, now: time.Now}
}

func (b *ChangeBus) Publish(ctx context.Context, event events.Event) error {
	if b.client == nil {
		return errNilClient
	}
	payload, err := events.Marshal(event, b.now())
	if err != nil {
		return err
	}

	pipe := b.client.Pipeline()
	for _, userID := range event.Recipients() {
		pipe.Publish(ctx, changeChannel(userID), payload)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish %s: %w", event.Kind(), err)
	}
	return nil
}

// Subscribe returns once the subscription is confirmed by the server.
func (b *ChangeBus) Subscribe(ctx context.Context, userID string) (*ChangeSubscription, error) {
	if b.client == nil {
		return nil, errNilClient
	}
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("invalid user id")
	}

	pubsub := b.client.Subscribe(ctx, changeChannel(userID))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe changes: %w", err)
	}

	sub := &ChangeSubscription{
		pubsub: pubsub,
		events: make(chan events.Event, 16),
		done:   make(chan struct{}),
	}
	go sub.pump(b.logger.With(zap.String("user_id", userID)))
	return sub, nil
}

type ChangeSubscription struct {
	pubsub    *goredis.PubSub
	events    chan events.Event
	done      chan struct{}
	closeOnce sync.Once
}

// Events is closed after Close or when the underlying connection ends.
func (s *ChangeSubscription) Events() <-chan events.Event {
	return s.events
}

func (s *ChangeSubscription) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.pubsub.Close()
	})
	return err
}

func (s *ChangeSubscription) pump(logger *zap.Logger) {
	defer close(s.events)

	for msg := range s.pubsub.Channel() {
		event, err := events.Unmarshal([]byte(msg.Payload))
		if err != nil {
			logger.Warn("drop malformed change", zap.Error(err))
			continue
		}
		select {
		case s.events <- event:
		case <-s.done:
			return
		}
	}
}

func changeChannel(userID string) string {
	return changeChannelPrefix + userID
}
