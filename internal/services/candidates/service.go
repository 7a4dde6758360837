package candidates

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/ivankudzin/plutonic/backend/internal/domain/enums"
	"github.com/ivankudzin/plutonic/backend/internal/domain/model"
	"github.com/ivankudzin/plutonic/backend/internal/domain/rules"
	"github.com/ivankudzin/plutonic/backend/internal/session"
)

const defaultLimit = 50

var ErrValidation = errors.New("validation error")

type CandidateStore interface {
	ListForViewer(ctx context.Context, viewerID string, limit int) ([]model.User, error)
}

type ViewerStore interface {
	GetByID(ctx context.Context, userID string) (model.User, error)
}

type Query struct {
	Genders      []string
	SocialStyles []string
	Interests    []string
	Sort         string
	Limit        int
}

type Service struct {
	candidates CandidateStore
	viewers    ViewerStore
	logger     *zap.Logger
	limit      int
}

func NewService(candidates CandidateStore, viewers ViewerStore, logger *zap.Logger, limit int) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	return &Service{candidates: candidates, viewers: viewers, logger: logger, limit: limit}
}

// List returns scored candidates for the caller after filtering and sorting.
// Store failures degrade to an empty result.
func (s *Service) List(ctx context.Context, sess session.Session, q Query) ([]rules.Candidate, error) {
	if !sess.Valid() {
		return nil, ErrValidation
	}
	by, ok := rules.ParseCandidateSort(q.Sort)
	if !ok {
		return nil, ErrValidation
	}
	styles := make([]enums.SocialStyle, 0, len(q.SocialStyles))
	for _, raw := range q.SocialStyles {
		style, ok := enums.ParseSocialStyle(raw)
		if !ok {
			return nil, ErrValidation
		}
		styles = append(styles, style)
	}
	limit := q.Limit
	if limit <= 0 || limit > s.limit {
		limit = s.limit
	}
	if s.candidates == nil || s.viewers == nil {
		return []rules.Candidate{}, nil
	}

	viewer, err := s.viewers.GetByID(ctx, sess.UserID)
	if err != nil {
		s.logger.Warn("load viewer for candidates degraded", zap.String("user_id", sess.UserID), zap.Error(err))
		return []rules.Candidate{}, nil
	}
	users, err := s.candidates.ListForViewer(ctx, sess.UserID, limit)
	if err != nil {
		s.logger.Warn("list candidates degraded", zap.String("user_id", sess.UserID), zap.Error(err))
		return []rules.Candidate{}, nil
	}

	scored := make([]rules.Candidate, 0, len(users))
	for _, user := range users {
		scored = append(scored, rules.Candidate{User: user, Score: rules.Compatibility(viewer, user)})
	}

	filtered := rules.FilterCandidates(scored, rules.CandidateFilter{
		Genders:      q.Genders,
		SocialStyles: styles,
		Interests:    q.Interests,
	})
	return rules.SortCandidates(filtered, by), nil
}
