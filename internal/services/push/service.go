package push

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ivankudzin/plutonic/backend/internal/domain/enums"
	"github.com/ivankudzin/plutonic/backend/internal/domain/events"
	"github.com/ivankudzin/plutonic/backend/internal/domain/model"
	"github.com/ivankudzin/plutonic/backend/internal/infra/metrics"
	"github.com/ivankudzin/plutonic/backend/internal/services/notifications"
	"github.com/ivankudzin/plutonic/backend/internal/session"
)

const maxTokenLength = 512

var (
	ErrValidation          = errors.New("validation error")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)

type TokenStore interface {
	Upsert(ctx context.Context, token model.DeviceToken) error
	Delete(ctx context.Context, userID, token string) (bool, error)
	ListByUser(ctx context.Context, userID string) ([]model.DeviceToken, error)
}

// TelegramSender posts a text message to a chat.
type TelegramSender interface {
	SendText(ctx context.Context, chatID int64, text, link string) error
}

type Config struct {
	RatePerSecond float64
	Burst         int
	LinkBaseURL   string
}

type Service struct {
	tokens   TokenStore
	telegram TelegramSender
	limiter  *rate.Limiter
	linkBase string
	logger   *zap.Logger
	now      func() time.Time
}

// NewService builds the push fan-out. A nil telegram sender disables
// delivery while registration keeps working.
func NewService(tokens TokenStore, telegram TelegramSender, logger *zap.Logger, cfg Config) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = 25
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	return &Service{
		tokens:   tokens,
		telegram: telegram,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst),
		linkBase: strings.TrimRight(strings.TrimSpace(cfg.LinkBaseURL), "/"),
		logger:   logger,
		now:      time.Now,
	}
}

func (s *Service) Register(ctx context.Context, sess session.Session, token, platform string) (model.DeviceToken, error) {
	if !sess.Valid() {
		return model.DeviceToken{}, ErrValidation
	}
	token = strings.TrimSpace(token)
	p, ok := enums.ParsePlatform(platform)
	if !ok || token == "" || len(token) > maxTokenLength {
		return model.DeviceToken{}, ErrValidation
	}
	if p == enums.PlatformTelegram {
		if _, err := strconv.ParseInt(token, 10, 64); err != nil {
			return model.DeviceToken{}, ErrValidation
		}
	}
	if s.tokens == nil {
		return model.DeviceToken{}, fmt.Errorf("%w: token store is not configured", ErrUpstreamUnavailable)
	}

	record := model.DeviceToken{UserID: sess.UserID, Token: token, Platform: p, LastSeenAt: s.now().UTC()}
	if err := s.tokens.Upsert(ctx, record); err != nil {
		return model.DeviceToken{}, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	return record, nil
}

// Unregister reports whether the token was registered.
func (s *Service) Unregister(ctx context.Context, sess session.Session, token string) (bool, error) {
	if !sess.Valid() || strings.TrimSpace(token) == "" {
		return false, ErrValidation
	}
	if s.tokens == nil {
		return false, fmt.Errorf("%w: token store is not configured", ErrUpstreamUnavailable)
	}
	removed, err := s.tokens.Delete(ctx, sess.UserID, token)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	return removed, nil
}

// HandleEvent sends the notification text of event to every telegram token
// of each addressed user. Delivery is best effort: failures are counted and
// logged, never retried.
func (s *Service) HandleEvent(ctx context.Context, event events.Event) error {
	if s.telegram == nil || s.tokens == nil {
		return nil
	}

	for _, userID := range event.Recipients() {
		draft, ok := notifications.Describe(userID, event)
		if !ok {
			continue
		}
		tokens, err := s.tokens.ListByUser(ctx, userID)
		if err != nil {
			s.logger.Warn("list device tokens failed", zap.String("user_id", userID), zap.Error(err))
			continue
		}
		for _, token := range tokens {
			if token.Platform != enums.PlatformTelegram {
				continue
			}
			if err := s.sendTelegram(ctx, token, draft); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				s.logger.Warn("push delivery failed",
					zap.String("user_id", userID),
					zap.String("kind", string(draft.Kind)),
					zap.Error(err),
				)
			}
		}
	}
	return nil
}

func (s *Service) sendTelegram(ctx context.Context, token model.DeviceToken, draft notifications.Draft) error {
	chatID, err := strconv.ParseInt(token.Token, 10, 64)
	if err != nil {
		return fmt.Errorf("parse telegram chat id: %w", err)
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	link := ""
	if s.linkBase != "" && draft.ActionURL != "" {
		link = s.linkBase + draft.ActionURL
	}
	err = s.telegram.SendText(ctx, chatID, draft.Text, link)
	metrics.PushSent(string(enums.PlatformTelegram), err)
	return err
}
