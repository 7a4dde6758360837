package notifications

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/ivankudzin/plutonic/backend/internal/domain/events"
	"github.com/ivankudzin/plutonic/backend/internal/domain/model"
	"github.com/ivankudzin/plutonic/backend/internal/infra/metrics"
)

const defaultHistory = 200

var ErrNoUser = errors.New("relay requires a user id")

// Subscription is a stream of change events addressed to one user.
type Subscription interface {
	Events() <-chan events.Event
	Close() error
}

// Sink receives every notification added to a relay along with the unread
// count after the addition. It runs with the relay lock released.
type Sink func(n model.Notification, unread int)

type Config struct {
	Logger  *zap.Logger
	History int
	Sink    Sink
}

// Relay turns change events into the notification list of one session.
// Entries are kept newest first; the list is not persisted.
type Relay struct {
	userID  string
	logger  *zap.Logger
	history int
	sink    Sink
	now     func() time.Time

	mu     sync.Mutex
	items  []model.Notification
	unread int
}

func NewRelay(userID string, cfg Config) (*Relay, error) {
	if userID == "" {
		return nil, ErrNoUser
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.History <= 0 {
		cfg.History = defaultHistory
	}
	return &Relay{
		userID:  userID,
		logger:  cfg.Logger.With(zap.String("user_id", userID)),
		history: cfg.History,
		sink:    cfg.Sink,
		now:     time.Now,
		items:   make([]model.Notification, 0),
	}, nil
}

// Run consumes sub until ctx ends or the subscription closes, and closes sub
// before returning.
func (r *Relay) Run(ctx context.Context, sub Subscription) error {
	defer func() {
		if err := sub.Close(); err != nil {
			r.logger.Warn("close change subscription", zap.Error(err))
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-sub.Events():
			if !ok {
				return nil
			}
			r.Handle(ctx, event)
		}
	}
}

// Handle dispatches one event. Events of other kinds are ignored.
func (r *Relay) Handle(ctx context.Context, event events.Event) {
	switch e := event.(type) {
	case events.MatchInserted:
		r.OnMatchCreated(ctx, e)
	case events.MessageInserted:
		r.OnMessageCreated(ctx, e)
	}
}

func (r *Relay) OnMatchCreated(_ context.Context, event events.MatchInserted) (model.Notification, bool) {
	return r.add(event)
}

func (r *Relay) OnMessageCreated(_ context.Context, event events.MessageInserted) (model.Notification, bool) {
	return r.add(event)
}

// MarkRead is a no-op for unknown or already read ids.
func (r *Relay) MarkRead(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.items {
		if r.items[i].ID != id {
			continue
		}
		if !r.items[i].IsRead {
			r.items[i].IsRead = true
			if r.unread > 0 {
				r.unread--
			}
		}
		return
	}
}

func (r *Relay) MarkAllRead() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.items {
		r.items[i].IsRead = true
	}
	r.unread = 0
}

// List returns a copy, newest first.
func (r *Relay) List() []model.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]model.Notification, len(r.items))
	copy(out, r.items)
	return out
}

func (r *Relay) UnreadCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.unread
}

func (r *Relay) add(event events.Event) (model.Notification, bool) {
	draft, ok := Describe(r.userID, event)
	if !ok {
		return model.Notification{}, false
	}

	n := model.Notification{
		ID:            ulid.Make().String(),
		Kind:          draft.Kind,
		Text:          draft.Text,
		RelatedUserID: draft.RelatedUserID,
		ActionURL:     draft.ActionURL,
		CreatedAt:     r.now().UTC(),
	}

	r.mu.Lock()
	r.items = append([]model.Notification{n}, r.items...)
	if len(r.items) > r.history {
		// unread entries that fall off the end no longer count
		for _, dropped := range r.items[r.history:] {
			if !dropped.IsRead && r.unread > 0 {
				r.unread--
			}
		}
		r.items = r.items[:r.history]
	}
	r.unread++
	unread := r.unread
	r.mu.Unlock()

	metrics.NotificationRelayed(string(n.Kind))
	if r.sink != nil {
		r.sink(n, unread)
	}
	return n, true
}
