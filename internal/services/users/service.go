package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/ivankudzin/plutonic/backend/internal/domain/enums"
	"github.com/ivankudzin/plutonic/backend/internal/domain/model"
	pgrepo "github.com/ivankudzin/plutonic/backend/internal/repo/postgres"
	"github.com/ivankudzin/plutonic/backend/internal/session"
)

const (
	signedURLTTL     = 15 * time.Minute
	maxNameLength    = 80
	maxTextLength    = 1000
	maxInterests     = 30
	maxInterestRunes = 40
	maxTags          = 10
)

var (
	ErrValidation          = errors.New("validation error")
	ErrNotFound            = errors.New("user not found")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)

type UserStore interface {
	GetByID(ctx context.Context, userID string) (model.User, error)
	UpdateProfile(ctx context.Context, tx pgx.Tx, userID string, patch pgrepo.ProfilePatch, now time.Time) error
	ReplaceInterests(ctx context.Context, tx pgx.Tx, userID string, names []string) error
	SetProfilePhoto(ctx context.Context, userID, key string, now time.Time) error
	TouchLastActive(ctx context.Context, userID string, at time.Time) error
}

type URLSigner interface {
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

type Dependencies struct {
	Pool      *pgxpool.Pool
	RunInTx   pgrepo.TxRunner
	Users     UserStore
	URLSigner URLSigner
	Logger    *zap.Logger
}

type Service struct {
	runInTx   pgrepo.TxRunner
	users     UserStore
	urlSigner URLSigner
	logger    *zap.Logger
	now       func() time.Time
}

// Profile is a user record as returned to clients.
type Profile struct {
	User     model.User
	About    string
	PhotoURL string
}

// UpdateInput mirrors pgrepo.ProfilePatch. Interests replaces the whole set
// when non-nil.
type UpdateInput struct {
	Name        *string
	Headline    *string
	AboutMe     *string
	Bio         *string
	Gender      []string
	LookingFor  []string
	SocialStyle *string
	Timezone    *string
	Interests   []string
}

func NewService(deps Dependencies) *Service {
	runInTx := deps.RunInTx
	if runInTx == nil {
		runInTx = pgrepo.TxRunnerFor(deps.Pool)
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		runInTx:   runInTx,
		users:     deps.Users,
		urlSigner: deps.URLSigner,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *Service) Me(ctx context.Context, sess session.Session) (Profile, error) {
	if !sess.Valid() {
		return Profile{}, ErrValidation
	}
	return s.load(ctx, sess.UserID)
}

// Get returns another user's profile. Email is not exposed.
func (s *Service) Get(ctx context.Context, sess session.Session, userID string) (Profile, error) {
	if !sess.Valid() {
		return Profile{}, ErrValidation
	}
	userID = strings.TrimSpace(userID)
	if _, err := uuid.Parse(userID); err != nil {
		return Profile{}, ErrValidation
	}

	profile, err := s.load(ctx, userID)
	if err != nil {
		return Profile{}, err
	}
	if userID != sess.UserID {
		profile.User.Email = ""
		profile.User.SuperLikesRemaining = 0
		profile.User.LastResetDate = ""
	}
	return profile, nil
}

func (s *Service) Update(ctx context.Context, sess session.Session, input UpdateInput) (Profile, error) {
	if !sess.Valid() {
		return Profile{}, ErrValidation
	}
	patch, err := buildPatch(input)
	if err != nil {
		return Profile{}, err
	}
	var interests []string
	if input.Interests != nil {
		interests, err = NormalizeInterests(input.Interests)
		if err != nil {
			return Profile{}, err
		}
	}
	if s.users == nil {
		return Profile{}, fmt.Errorf("%w: user store is not configured", ErrUpstreamUnavailable)
	}

	now := s.now().UTC()
	err = s.runInTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if err := s.users.UpdateProfile(ctx, tx, sess.UserID, patch, now); err != nil {
			return err
		}
		if input.Interests != nil {
			return s.users.ReplaceInterests(ctx, tx, sess.UserID, interests)
		}
		return nil
	})
	if err != nil {
		return Profile{}, mapStoreError(err)
	}
	return s.load(ctx, sess.UserID)
}

// SetPhoto stores the object key of an uploaded profile photo.
func (s *Service) SetPhoto(ctx context.Context, sess session.Session, key string) (Profile, error) {
	if !sess.Valid() {
		return Profile{}, ErrValidation
	}
	key = strings.TrimSpace(key)
	if key == "" || !strings.HasPrefix(key, PhotoKeyPrefix(sess.UserID)) {
		return Profile{}, ErrValidation
	}
	if s.users == nil {
		return Profile{}, fmt.Errorf("%w: user store is not configured", ErrUpstreamUnavailable)
	}
	if err := s.users.SetProfilePhoto(ctx, sess.UserID, key, s.now()); err != nil {
		return Profile{}, mapStoreError(err)
	}
	return s.load(ctx, sess.UserID)
}

// Touch records activity. Failures are logged only.
func (s *Service) Touch(ctx context.Context, sess session.Session) {
	if !sess.Valid() || s.users == nil {
		return
	}
	if err := s.users.TouchLastActive(ctx, sess.UserID, s.now()); err != nil {
		s.logger.Warn("touch last active failed", zap.String("user_id", sess.UserID), zap.Error(err))
	}
}

func (s *Service) load(ctx context.Context, userID string) (Profile, error) {
	if s.users == nil {
		return Profile{}, ErrNotFound
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return Profile{}, mapStoreError(err)
	}

	profile := Profile{User: user, About: user.DisplayAbout()}
	if user.ProfilePhotoKey != "" && s.urlSigner != nil {
		url, err := s.urlSigner.PresignGet(ctx, user.ProfilePhotoKey, signedURLTTL)
		if err != nil {
			s.logger.Warn("sign profile photo failed", zap.String("user_id", userID), zap.Error(err))
		} else {
			profile.PhotoURL = url
		}
	}
	return profile, nil
}

// PhotoKeyPrefix scopes uploaded objects to their owner.
func PhotoKeyPrefix(userID string) string {
	return "users/" + userID + "/photos/"
}

// NormalizeInterests trims names, drops blanks and keeps the first spelling
// of names that differ only in case.
func NormalizeInterests(names []string) ([]string, error) {
	out := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, raw := range names {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		if utf8.RuneCountInString(name) > maxInterestRunes {
			return nil, ErrValidation
		}
		key := strings.ToLower(name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, name)
	}
	if len(out) > maxInterests {
		return nil, ErrValidation
	}
	return out, nil
}

func buildPatch(input UpdateInput) (pgrepo.ProfilePatch, error) {
	var patch pgrepo.ProfilePatch

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" || utf8.RuneCountInString(name) > maxNameLength {
			return patch, ErrValidation
		}
		patch.Name = &name
	}
	for _, field := range []struct {
		in  *string
		out **string
	}{
		{input.Headline, &patch.Headline},
		{input.AboutMe, &patch.AboutMe},
		{input.Bio, &patch.Bio},
	} {
		if field.in == nil {
			continue
		}
		text := strings.TrimSpace(*field.in)
		if utf8.RuneCountInString(text) > maxTextLength {
			return patch, ErrValidation
		}
		*field.out = &text
	}

	if input.Gender != nil {
		tags, err := normalizeTags(input.Gender)
		if err != nil {
			return patch, err
		}
		patch.Gender = tags
	}
	if input.LookingFor != nil {
		tags, err := normalizeTags(input.LookingFor)
		if err != nil {
			return patch, err
		}
		patch.LookingFor = tags
	}
	if input.SocialStyle != nil {
		style, ok := enums.ParseSocialStyle(*input.SocialStyle)
		if !ok {
			return patch, ErrValidation
		}
		patch.SocialStyle = &style
	}
	if input.Timezone != nil {
		tz := strings.TrimSpace(*input.Timezone)
		if tz == "" {
			return patch, ErrValidation
		}
		if _, err := time.LoadLocation(tz); err != nil {
			return patch, ErrValidation
		}
		patch.Timezone = &tz
	}
	return patch, nil
}

func normalizeTags(raw []string) ([]string, error) {
	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, tag := range raw {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	if len(out) > maxTags {
		return nil, ErrValidation
	}
	return out, nil
}

func mapStoreError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrValidation), errors.Is(err, ErrNotFound), errors.Is(err, ErrUpstreamUnavailable):
		return err
	case errors.Is(err, pgrepo.ErrUserNotFound):
		return ErrNotFound
	default:
		return fmt.Errorf("%w: user store: %v", ErrUpstreamUnavailable, err)
	}
}
