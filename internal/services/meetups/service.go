package meetups

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
	"github.com/ivankudzin/plutonic/backend/internal/domain/rules"
	"github.com/ivankudzin/plutonic/backend/internal/infra/metrics"
	pgrepo "github.com/ivankudzin/plutonic/backend/internal/repo/postgres"
	"github.com/ivankudzin/plutonic/backend/internal/session"
)

const (
	MaxPlaceName     = 120
	MaxPlaceAddress  = 200
	MaxPlaceCategory = 60
	MaxMessage       = 500
)

var (
	ErrValidation          = errors.New("validation error")
	ErrNotFound            = errors.New("meetup invite not found")
	ErrNotParticipant      = errors.New("caller may not act on this invite")
	ErrMatchNotAccepted    = errors.New("match is not accepted")
	ErrInvalidTransition   = errors.New("invalid invite transition")
	ErrInvalidProposedTime = errors.New("proposed time must be in the future")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)

type InviteStore interface {
	Insert(ctx context.Context, invite model.MeetupInvite, now time.Time) (model.MeetupInvite, error)
	Get(ctx context.Context, inviteID string) (model.MeetupInvite, error)
	Transition(ctx context.Context, inviteID string, t pgrepo.InviteTransition, now time.Time) (model.MeetupInvite, error)
	ListForUser(ctx context.Context, userID string, box pgrepo.InviteBox, limit int) ([]model.MeetupInvite, error)
}

type MatchReader interface {
	Get(ctx context.Context, tx pgx.Tx, matchID string) (model.Match, error)
}

type CreateInput struct {
	MatchID  string
	Place    model.Place
	Datetime time.Time
	Message  string
}

type Service struct {
	invites InviteStore
	matches MatchReader
	logger  *zap.Logger
	now     func() time.Time
}

func NewService(invites InviteStore, matches MatchReader, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{invites: invites, matches: matches, logger: logger, now: time.Now}
}

// Create invites the other participant of an accepted match.
func (s *Service) Create(ctx context.Context, sess session.Session, input CreateInput) (model.MeetupInvite, error) {
	invite, err := s.create(ctx, sess, input)
	metrics.InviteTransition("create", err)
	return invite, err
}

func (s *Service) create(ctx context.Context, sess session.Session, input CreateInput) (model.MeetupInvite, error) {
	if !sess.Valid() {
		return model.MeetupInvite{}, ErrValidation
	}
	matchID := strings.TrimSpace(input.MatchID)
	if _, err := uuid.Parse(matchID); err != nil {
		return model.MeetupInvite{}, ErrValidation
	}
	place, err := normalizePlace(input.Place)
	if err != nil {
		return model.MeetupInvite{}, err
	}
	message := strings.TrimSpace(input.Message)
	if utf8.RuneCountInString(message) > MaxMessage {
		return model.MeetupInvite{}, ErrValidation
	}
	now := s.now().UTC()
	if !input.Datetime.After(now) {
		return model.MeetupInvite{}, ErrValidation
	}
	if s.invites == nil || s.matches == nil {
		return model.MeetupInvite{}, fmt.Errorf("%w: meetup dependencies are not configured", ErrUpstreamUnavailable)
	}

	match, err := s.matches.Get(ctx, nil, matchID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrMatchNotFound) {
			return model.MeetupInvite{}, ErrNotFound
		}
		return model.MeetupInvite{}, upstream("get match", err)
	}
	if !match.HasParticipant(sess.UserID) {
		return model.MeetupInvite{}, ErrNotParticipant
	}
	if match.Status != enums.MatchStatusAccepted {
		return model.MeetupInvite{}, ErrMatchNotAccepted
	}

	created, err := s.invites.Insert(ctx, model.MeetupInvite{
		MatchID:    match.ID,
		SenderID:   sess.UserID,
		ReceiverID: match.OtherParticipant(sess.UserID),
		Place:      place,
		Datetime:   input.Datetime.UTC(),
		Message:    message,
	}, now)
	if err != nil {
		return model.MeetupInvite{}, upstream("insert invite", err)
	}
	return created, nil
}

func (s *Service) Accept(ctx context.Context, sess session.Session, inviteID string) (model.MeetupInvite, error) {
	return s.transition(ctx, sess, inviteID, rules.InviteAccept, nil)
}

func (s *Service) Decline(ctx context.Context, sess session.Session, inviteID string) (model.MeetupInvite, error) {
	return s.transition(ctx, sess, inviteID, rules.InviteDecline, nil)
}

// ProposeTimeChange asks the sender to move the meetup to at.
func (s *Service) ProposeTimeChange(ctx context.Context, sess session.Session, inviteID string, at time.Time) (model.MeetupInvite, error) {
	return s.transition(ctx, sess, inviteID, rules.InviteProposeTime, &at)
}

func (s *Service) AcceptProposedTime(ctx context.Context, sess session.Session, inviteID string) (model.MeetupInvite, error) {
	return s.transition(ctx, sess, inviteID, rules.InviteAcceptProposedTime, nil)
}

func (s *Service) Cancel(ctx context.Context, sess session.Session, inviteID string) (model.MeetupInvite, error) {
	return s.transition(ctx, sess, inviteID, rules.InviteCancel, nil)
}

func (s *Service) transition(ctx context.Context, sess session.Session, inviteID string, action rules.InviteAction, proposed *time.Time) (model.MeetupInvite, error) {
	invite, err := s.apply(ctx, sess, inviteID, action, proposed)
	metrics.InviteTransition(string(action), err)
	return invite, err
}

func (s *Service) apply(ctx context.Context, sess session.Session, inviteID string, action rules.InviteAction, proposed *time.Time) (model.MeetupInvite, error) {
	if !sess.Valid() {
		return model.MeetupInvite{}, ErrValidation
	}
	inviteID = strings.TrimSpace(inviteID)
	if _, err := uuid.Parse(inviteID); err != nil {
		return model.MeetupInvite{}, ErrValidation
	}
	if s.invites == nil {
		return model.MeetupInvite{}, fmt.Errorf("%w: invite store is not configured", ErrUpstreamUnavailable)
	}

	current, err := s.invites.Get(ctx, inviteID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrInviteNotFound) {
			return model.MeetupInvite{}, ErrNotFound
		}
		return model.MeetupInvite{}, upstream("get invite", err)
	}

	var role rules.InviteRole
	switch sess.UserID {
	case current.SenderID:
		role = rules.InviteRoleSender
	case current.ReceiverID:
		role = rules.InviteRoleReceiver
	default:
		return model.MeetupInvite{}, ErrNotParticipant
	}

	next, stateOK, roleOK := rules.NextInviteStatus(current.Status, action, role)
	if !stateOK {
		return model.MeetupInvite{}, ErrInvalidTransition
	}
	if !roleOK {
		return model.MeetupInvite{}, ErrNotParticipant
	}

	now := s.now().UTC()
	change := pgrepo.InviteTransition{From: current.Status, To: next, Revision: current.Revision}
	switch action {
	case rules.InviteProposeTime:
		if proposed == nil || !proposed.After(now) {
			return model.MeetupInvite{}, ErrInvalidProposedTime
		}
		at := proposed.UTC()
		change.ProposedDatetime = &at
	case rules.InviteAcceptProposedTime:
		if current.ProposedDatetime == nil {
			return model.MeetupInvite{}, ErrInvalidTransition
		}
		at := *current.ProposedDatetime
		change.Datetime = &at
	}

	updated, err := s.invites.Transition(ctx, current.ID, change, now)
	if err != nil {
		if errors.Is(err, pgrepo.ErrInviteStale) {
			return model.MeetupInvite{}, ErrInvalidTransition
		}
		return model.MeetupInvite{}, upstream("transition invite", err)
	}
	return updated, nil
}

// List returns invites on the given side: "sent", "received" or "" for both.
func (s *Service) List(ctx context.Context, sess session.Session, box string) ([]model.MeetupInvite, error) {
	if !sess.Valid() {
		return nil, ErrValidation
	}
	var parsed pgrepo.InviteBox
	switch strings.ToLower(strings.TrimSpace(box)) {
	case "", string(pgrepo.InviteBoxAll):
		parsed = pgrepo.InviteBoxAll
	case string(pgrepo.InviteBoxSent):
		parsed = pgrepo.InviteBoxSent
	case string(pgrepo.InviteBoxReceived):
		parsed = pgrepo.InviteBoxReceived
	default:
		return nil, ErrValidation
	}
	if s.invites == nil {
		return []model.MeetupInvite{}, nil
	}

	items, err := s.invites.ListForUser(ctx, sess.UserID, parsed, 100)
	if err != nil {
		s.logger.Warn("list invites degraded", zap.String("user_id", sess.UserID), zap.Error(err))
		return []model.MeetupInvite{}, nil
	}
	return items, nil
}

func normalizePlace(p model.Place) (model.Place, error) {
	p.Name = strings.TrimSpace(p.Name)
	p.Address = strings.TrimSpace(p.Address)
	p.Category = strings.TrimSpace(p.Category)
	if p.Name == "" || utf8.RuneCountInString(p.Name) > MaxPlaceName {
		return p, ErrValidation
	}
	if utf8.RuneCountInString(p.Address) > MaxPlaceAddress || utf8.RuneCountInString(p.Category) > MaxPlaceCategory {
		return p, ErrValidation
	}
	return p, nil
}

func upstream(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrUpstreamUnavailable, op, err)
}
