package messages

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/ivankudzin/plutonic/backend/internal/domain/enums"
	"github.com/ivankudzin/plutonic/backend/internal/domain/model"
	pgrepo "github.com/ivankudzin/plutonic/backend/internal/repo/postgres"
	"github.com/ivankudzin/plutonic/backend/internal/session"
)

// MaxContentRunes bounds a message body. Bodies are not part of change
// notifications, so the byte size is only limited by the column check.
const MaxContentRunes = 2000

var (
	ErrValidation          = errors.New("validation error")
	ErrNotFound            = errors.New("match not found")
	ErrNotParticipant      = errors.New("not a participant of this match")
	ErrMatchNotAccepted    = errors.New("match is not accepted")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)

type MessageStore interface {
	Insert(ctx context.Context, matchID, senderID, content string, now time.Time) (model.Message, error)
	ListByMatch(ctx context.Context, matchID string, before time.Time, limit int) ([]model.Message, error)
	MarkRead(ctx context.Context, matchID, readerID string) (int64, error)
	ListConversations(ctx context.Context, userID string, limit int) ([]model.Conversation, error)
	CountUnread(ctx context.Context, userID string) (int, error)
}

type MatchReader interface {
	Get(ctx context.Context, tx pgx.Tx, matchID string) (model.Match, error)
}

type Service struct {
	messages MessageStore
	matches  MatchReader
	logger   *zap.Logger
	now      func() time.Time
}

func NewService(messages MessageStore, matches MatchReader, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{messages: messages, matches: matches, logger: logger, now: time.Now}
}

// Send requires an accepted match with the caller as participant.
func (s *Service) Send(ctx context.Context, sess session.Session, matchID, content string) (model.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" || utf8.RuneCountInString(content) > MaxContentRunes {
		return model.Message{}, ErrValidation
	}
	match, err := s.participantMatch(ctx, sess, matchID)
	if err != nil {
		return model.Message{}, err
	}
	if match.Status != enums.MatchStatusAccepted {
		return model.Message{}, ErrMatchNotAccepted
	}

	msg, err := s.messages.Insert(ctx, match.ID, sess.UserID, content, s.now())
	if err != nil {
		return model.Message{}, upstream("insert message", err)
	}
	return msg, nil
}

func (s *Service) List(ctx context.Context, sess session.Session, matchID string, before time.Time, limit int) ([]model.Message, error) {
	match, err := s.participantMatch(ctx, sess, matchID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	items, err := s.messages.ListByMatch(ctx, match.ID, before, limit)
	if err != nil {
		s.logger.Warn("list messages degraded", zap.String("match_id", match.ID), zap.Error(err))
		return []model.Message{}, nil
	}
	return items, nil
}

// MarkRead flips the messages the other participant sent in matchID.
func (s *Service) MarkRead(ctx context.Context, sess session.Session, matchID string) (int64, error) {
	match, err := s.participantMatch(ctx, sess, matchID)
	if err != nil {
		return 0, err
	}
	n, err := s.messages.MarkRead(ctx, match.ID, sess.UserID)
	if err != nil {
		return 0, upstream("mark read", err)
	}
	return n, nil
}

func (s *Service) Conversations(ctx context.Context, sess session.Session) ([]model.Conversation, error) {
	if !sess.Valid() {
		return nil, ErrValidation
	}
	if s.messages == nil {
		return []model.Conversation{}, nil
	}
	items, err := s.messages.ListConversations(ctx, sess.UserID, 100)
	if err != nil {
		s.logger.Warn("list conversations degraded", zap.String("user_id", sess.UserID), zap.Error(err))
		return []model.Conversation{}, nil
	}
	return items, nil
}

func (s *Service) UnreadCount(ctx context.Context, sess session.Session) (int, error) {
	if !sess.Valid() {
		return 0, ErrValidation
	}
	if s.messages == nil {
		return 0, nil
	}
	n, err := s.messages.CountUnread(ctx, sess.UserID)
	if err != nil {
		s.logger.Warn("count unread degraded", zap.String("user_id", sess.UserID), zap.Error(err))
		return 0, nil
	}
	return n, nil
}

func (s *Service) participantMatch(ctx context.Context, sess session.Session, matchID string) (model.Match, error) {
	if !sess.Valid() {
		return model.Match{}, ErrValidation
	}
	matchID = strings.TrimSpace(matchID)
	if _, err := uuid.Parse(matchID); err != nil {
		return model.Match{}, ErrValidation
	}
	if s.messages == nil || s.matches == nil {
		return model.Match{}, fmt.Errorf("%w: message dependencies are not configured", ErrUpstreamUnavailable)
	}

	match, err := s.matches.Get(ctx, nil, matchID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrMatchNotFound) {
			return model.Match{}, ErrNotFound
		}
		return model.Match{}, upstream("get match", err)
	}
	if !match.HasParticipant(sess.UserID) {
		return model.Match{}, ErrNotParticipant
	}
	return match, nil
}

func upstream(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrUpstreamUnavailable, op, err)
}
