package matches

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/ivankudzin/plutonic/backend/internal/domain/enums"
	"github.com/ivankudzin/plutonic/backend/internal/domain/model"
	"github.com/ivankudzin/plutonic/backend/internal/domain/rules"
	"github.com/ivankudzin/plutonic/backend/internal/infra/metrics"
	pgrepo "github.com/ivankudzin/plutonic/backend/internal/repo/postgres"
	redrepo "github.com/ivankudzin/plutonic/backend/internal/repo/redis"
	ratesvc "github.com/ivankudzin/plutonic/backend/internal/services/rate"
	"github.com/ivankudzin/plutonic/backend/internal/session"
)

var (
	ErrValidation          = errors.New("validation error")
	ErrNotFound            = errors.New("match not found")
	ErrNotParticipant      = errors.New("caller may not act on this match")
	ErrDuplicateProposal   = errors.New("proposal already exists")
	ErrQuotaExhausted      = errors.New("super like quota exhausted")
	ErrInvalidTransition   = errors.New("invalid match transition")
	ErrPremiumRequired     = errors.New("premium required")
	ErrNothingToUndo       = errors.New("nothing to undo")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)

type MatchStore interface {
	Insert(ctx context.Context, tx pgx.Tx, initiatorID, targetID string, superLike bool, now time.Time) (model.Match, error)
	FindActive(ctx context.Context, tx pgx.Tx, initiatorID, targetID string) (model.Match, error)
	Get(ctx context.Context, tx pgx.Tx, matchID string) (model.Match, error)
	Transition(ctx context.Context, tx pgx.Tx, matchID string, from, to enums.MatchStatus, revision int64, now time.Time) (model.Match, error)
	ListForUser(ctx context.Context, userID string, limit int) ([]pgrepo.MatchListItem, error)
}

type QuotaStore interface {
	GetQuotaForUpdate(ctx context.Context, tx pgx.Tx, userID string) (pgrepo.QuotaRecord, error)
	GetQuota(ctx context.Context, userID string) (pgrepo.QuotaRecord, error)
	SaveQuota(ctx context.Context, tx pgx.Tx, userID string, quota rules.SuperLikeQuota) error
}

type UndoStore interface {
	Remember(ctx context.Context, userID string, rec redrepo.UndoRecord, ttl time.Duration) error
	Last(ctx context.Context, userID string) (redrepo.UndoRecord, error)
	Forget(ctx context.Context, userID, matchID string) error
}

type RateLimiter interface {
	CheckLike(ctx context.Context, userID string) error
}

type Dependencies struct {
	Pool        *pgxpool.Pool
	RunInTx     pgrepo.TxRunner
	Matches     MatchStore
	Quotas      QuotaStore
	Undo        UndoStore
	RateLimiter RateLimiter
	Logger      *zap.Logger
}

type Config struct {
	FreeSuperLikesPerDay int
	DefaultTimezone      string
	UndoTTL              time.Duration
	ListLimit            int
}

type Service struct {
	runInTx pgrepo.TxRunner
	matches MatchStore
	quotas  QuotaStore
	undo    UndoStore
	limiter RateLimiter
	logger  *zap.Logger
	cfg     Config
	now     func() time.Time
}

// ProposalResult is the outcome of Like or SuperLike. AutoAccepted is set
// when the call accepted the other user's pending proposal instead of
// creating a new one.
type ProposalResult struct {
	Match        model.Match
	AutoAccepted bool
}

type QuotaView struct {
	IsPremium     bool
	Remaining     int
	CanSuperLike  bool
	LastResetDate string
	ResetAt       time.Time
}

type ListItem struct {
	Match          model.Match
	Incoming       bool
	OtherUserID    string
	OtherName      string
	OtherPhotoKey  string
	OtherHeadline  string
	OtherInterests []string
}

func NewService(deps Dependencies, cfg Config) *Service {
	if cfg.FreeSuperLikesPerDay < 0 {
		cfg.FreeSuperLikesPerDay = rules.FreeSuperLikesPerDay
	}
	if strings.TrimSpace(cfg.DefaultTimezone) == "" {
		cfg.DefaultTimezone = "UTC"
	}
	if cfg.UndoTTL <= 0 {
		cfg.UndoTTL = 24 * time.Hour
	}
	if cfg.ListLimit <= 0 {
		cfg.ListLimit = 100
	}
	runInTx := deps.RunInTx
	if runInTx == nil {
		runInTx = pgrepo.TxRunnerFor(deps.Pool)
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		runInTx: runInTx,
		matches: deps.Matches,
		quotas:  deps.Quotas,
		undo:    deps.Undo,
		limiter: deps.RateLimiter,
		logger:  logger,
		cfg:     cfg,
		now:     time.Now,
	}
}

func (s *Service) Like(ctx context.Context, sess session.Session, toUserID string) (ProposalResult, error) {
	res, err := s.propose(ctx, sess, toUserID, false)
	metrics.MatchTransition("like", err)
	return res, err
}

func (s *Service) SuperLike(ctx context.Context, sess session.Session, toUserID string) (ProposalResult, error) {
	res, err := s.propose(ctx, sess, toUserID, true)
	metrics.MatchTransition("super_like", err)
	return res, err
}

func (s *Service) propose(ctx context.Context, sess session.Session, toUserID string, superLike bool) (ProposalResult, error) {
	if !sess.Valid() {
		return ProposalResult{}, ErrValidation
	}
	toUserID = strings.TrimSpace(toUserID)
	if _, err := uuid.Parse(toUserID); err != nil || toUserID == sess.UserID {
		return ProposalResult{}, ErrValidation
	}
	if s.matches == nil || s.quotas == nil {
		return ProposalResult{}, fmt.Errorf("%w: match dependencies are not configured", ErrUpstreamUnavailable)
	}

	if s.limiter != nil {
		if err := s.limiter.CheckLike(ctx, sess.UserID); err != nil {
			if _, ok := ratesvc.IsTooFast(err); ok {
				return ProposalResult{}, err
			}
			return ProposalResult{}, upstream("check like rate", err)
		}
	}

	now := s.now().UTC()
	var result ProposalResult
	err := s.runInTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		// A like toward someone whose proposal is pending accepts it. This
		// counts as the caller's accept for undo and never spends quota.
		reverse, err := s.matches.FindActive(ctx, tx, toUserID, sess.UserID)
		switch {
		case err == nil && reverse.Status == enums.MatchStatusPending:
			accepted, err := s.matches.Transition(ctx, tx, reverse.ID, enums.MatchStatusPending, enums.MatchStatusAccepted, reverse.Revision, now)
			if err != nil {
				return err
			}
			if err := s.rememberUndo(ctx, sess.UserID, accepted, rules.MatchAccept, now); err != nil {
				return err
			}
			result = ProposalResult{Match: accepted, AutoAccepted: true}
			return nil
		case err == nil:
			// already friends through the reverse record
			return ErrDuplicateProposal
		case !errors.Is(err, pgrepo.ErrMatchNotFound):
			return err
		}

		var quota rules.SuperLikeQuota
		if superLike {
			rec, err := s.quotas.GetQuotaForUpdate(ctx, tx, sess.UserID)
			if err != nil {
				return err
			}
			quota = s.viewQuota(rec, sess, now)
			if !quota.CanSuperLike() {
				metrics.QuotaDenied()
				return ErrQuotaExhausted
			}
		}

		match, err := s.matches.Insert(ctx, tx, sess.UserID, toUserID, superLike, now)
		if err != nil {
			return err
		}
		if superLike {
			consumed, _ := quota.Consume()
			if err := s.quotas.SaveQuota(ctx, tx, sess.UserID, consumed); err != nil {
				return err
			}
		}
		result = ProposalResult{Match: match}
		return nil
	})
	if err != nil {
		return ProposalResult{}, mapStoreError(err)
	}
	return result, nil
}

func (s *Service) Accept(ctx context.Context, sess session.Session, matchID string) (model.Match, error) {
	match, err := s.respond(ctx, sess, matchID, rules.MatchAccept)
	metrics.MatchTransition(string(rules.MatchAccept), err)
	return match, err
}

func (s *Service) Decline(ctx context.Context, sess session.Session, matchID string) (model.Match, error) {
	match, err := s.respond(ctx, sess, matchID, rules.MatchDecline)
	metrics.MatchTransition(string(rules.MatchDecline), err)
	return match, err
}

func (s *Service) respond(ctx context.Context, sess session.Session, matchID string, action rules.MatchAction) (model.Match, error) {
	if !sess.Valid() {
		return model.Match{}, ErrValidation
	}
	matchID = strings.TrimSpace(matchID)
	if _, err := uuid.Parse(matchID); err != nil {
		return model.Match{}, ErrValidation
	}
	if s.matches == nil {
		return model.Match{}, fmt.Errorf("%w: match store is not configured", ErrUpstreamUnavailable)
	}

	now := s.now().UTC()
	var updated model.Match
	err := s.runInTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		current, err := s.matches.Get(ctx, tx, matchID)
		if err != nil {
			return err
		}
		if current.TargetID != sess.UserID {
			return ErrNotParticipant
		}
		next, ok := rules.NextMatchStatus(current.Status, action)
		if !ok {
			return ErrInvalidTransition
		}
		updated, err = s.matches.Transition(ctx, tx, current.ID, current.Status, next, current.Revision, now)
		if err != nil {
			return err
		}
		return s.rememberUndo(ctx, sess.UserID, updated, action, now)
	})
	if err != nil {
		return model.Match{}, mapStoreError(err)
	}
	return updated, nil
}

func (s *Service) rememberUndo(ctx context.Context, userID string, match model.Match, action rules.MatchAction, now time.Time) error {
	if s.undo == nil {
		return nil
	}
	rec := redrepo.UndoRecord{MatchID: match.ID, Action: string(action), Revision: match.Revision, At: now}
	if err := s.undo.Remember(ctx, userID, rec, s.cfg.UndoTTL); err != nil {
		return upstream("remember undo", err)
	}
	return nil
}

// Undo reverts the caller's last accept or decline back to pending.
func (s *Service) Undo(ctx context.Context, sess session.Session) (model.Match, error) {
	match, err := s.undoLast(ctx, sess)
	metrics.MatchTransition(string(rules.MatchUndo), err)
	return match, err
}

func (s *Service) undoLast(ctx context.Context, sess session.Session) (model.Match, error) {
	if !sess.Valid() {
		return model.Match{}, ErrValidation
	}
	if s.matches == nil || s.quotas == nil || s.undo == nil {
		return model.Match{}, fmt.Errorf("%w: undo dependencies are not configured", ErrUpstreamUnavailable)
	}

	quota, err := s.quotas.GetQuota(ctx, sess.UserID)
	if err != nil {
		return model.Match{}, mapStoreError(err)
	}
	if !quota.Quota.IsPremium {
		return model.Match{}, ErrPremiumRequired
	}

	rec, err := s.undo.Last(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, redrepo.ErrNoUndoRecord) {
			return model.Match{}, ErrNothingToUndo
		}
		return model.Match{}, upstream("load undo record", err)
	}

	now := s.now().UTC()
	var reverted model.Match
	err = s.runInTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		current, err := s.matches.Get(ctx, tx, rec.MatchID)
		if err != nil {
			if errors.Is(err, pgrepo.ErrMatchNotFound) {
				return ErrNothingToUndo
			}
			return err
		}
		if current.Revision != rec.Revision {
			return ErrNothingToUndo
		}
		next, ok := rules.NextMatchStatus(current.Status, rules.MatchUndo)
		if !ok {
			return ErrNothingToUndo
		}
		reverted, err = s.matches.Transition(ctx, tx, current.ID, current.Status, next, current.Revision, now)
		if err != nil {
			if errors.Is(err, pgrepo.ErrMatchStale) {
				return ErrNothingToUndo
			}
			if errors.Is(err, pgrepo.ErrMatchDuplicate) {
				// the initiator proposed again after the decline
				return ErrInvalidTransition
			}
			return err
		}
		if err := s.undo.Forget(ctx, sess.UserID, current.ID); err != nil {
			return upstream("forget undo", err)
		}
		return nil
	})
	if err != nil {
		return model.Match{}, mapStoreError(err)
	}
	return reverted, nil
}

func (s *Service) UpgradePremium(ctx context.Context, sess session.Session) (QuotaView, error) {
	if !sess.Valid() {
		return QuotaView{}, ErrValidation
	}
	if s.quotas == nil {
		return QuotaView{}, fmt.Errorf("%w: quota store is not configured", ErrUpstreamUnavailable)
	}

	now := s.now().UTC()
	var view QuotaView
	err := s.runInTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		rec, err := s.quotas.GetQuotaForUpdate(ctx, tx, sess.UserID)
		if err != nil {
			return err
		}
		premium := rules.Premium(rec.Quota)
		if err := s.quotas.SaveQuota(ctx, tx, sess.UserID, premium); err != nil {
			return err
		}
		rec.Quota = premium
		view = s.toView(rec, sess, now)
		return nil
	})
	if err != nil {
		return QuotaView{}, mapStoreError(err)
	}
	return view, nil
}

// Quota reports the allowance as the next super-like would see it.
func (s *Service) Quota(ctx context.Context, sess session.Session) (QuotaView, error) {
	if !sess.Valid() {
		return QuotaView{}, ErrValidation
	}
	if s.quotas == nil {
		return QuotaView{}, fmt.Errorf("%w: quota store is not configured", ErrUpstreamUnavailable)
	}

	rec, err := s.quotas.GetQuota(ctx, sess.UserID)
	if err != nil {
		return QuotaView{}, mapStoreError(err)
	}
	return s.toView(rec, sess, s.now().UTC()), nil
}

func (s *Service) List(ctx context.Context, sess session.Session) ([]ListItem, error) {
	if !sess.Valid() {
		return nil, ErrValidation
	}
	if s.matches == nil {
		return []ListItem{}, nil
	}

	rows, err := s.matches.ListForUser(ctx, sess.UserID, s.cfg.ListLimit)
	if err != nil {
		s.logger.Warn("list matches degraded", zap.String("user_id", sess.UserID), zap.Error(err))
		return []ListItem{}, nil
	}

	items := make([]ListItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, ListItem{
			Match:          row.Match,
			Incoming:       row.Match.Status == enums.MatchStatusPending && row.Match.TargetID == sess.UserID,
			OtherUserID:    row.OtherUserID,
			OtherName:      row.OtherName,
			OtherPhotoKey:  row.OtherPhotoKey,
			OtherHeadline:  row.OtherHeadline,
			OtherInterests: row.OtherInterests,
		})
	}
	return items, nil
}

// viewQuota applies the lazy daily reset in the user's timezone.
func (s *Service) viewQuota(rec pgrepo.QuotaRecord, sess session.Session, now time.Time) rules.SuperLikeQuota {
	loc := s.location(rec, sess)
	quota, _ := rec.Quota.ResetForDay(rules.DayKey(now, loc), s.cfg.FreeSuperLikesPerDay)
	return quota
}

func (s *Service) toView(rec pgrepo.QuotaRecord, sess session.Session, now time.Time) QuotaView {
	quota := s.viewQuota(rec, sess, now)
	return QuotaView{
		IsPremium:     quota.IsPremium,
		Remaining:     quota.Remaining,
		CanSuperLike:  quota.CanSuperLike(),
		LastResetDate: quota.LastResetDate,
		ResetAt:       rules.NextResetAt(now, s.location(rec, sess)),
	}
}

func (s *Service) location(rec pgrepo.QuotaRecord, sess session.Session) *time.Location {
	timezone := rec.Timezone
	if strings.TrimSpace(timezone) == "" {
		timezone = sess.Timezone
	}
	loc, _ := rules.ResolveLocation(timezone, s.cfg.DefaultTimezone)
	return loc
}

func mapStoreError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrNotFound),
		errors.Is(err, ErrNotParticipant),
		errors.Is(err, ErrDuplicateProposal),
		errors.Is(err, ErrQuotaExhausted),
		errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrPremiumRequired),
		errors.Is(err, ErrNothingToUndo),
		errors.Is(err, ErrUpstreamUnavailable):
		return err
	case errors.Is(err, pgrepo.ErrMatchNotFound), errors.Is(err, pgrepo.ErrUserNotFound):
		return ErrNotFound
	case errors.Is(err, pgrepo.ErrMatchDuplicate):
		return ErrDuplicateProposal
	case errors.Is(err, pgrepo.ErrMatchStale):
		return ErrInvalidTransition
	default:
		return upstream("match store", err)
	}
}

func upstream(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrUpstreamUnavailable, op, err)
}
