package media

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ivankudzin/plutonic/backend/internal/services/users"
	"github.com/ivankudzin/plutonic/backend/internal/session"
)

var (
	ErrValidation          = errors.New("validation error")
	ErrUnsupportedType     = errors.New("unsupported content type")
	ErrObjectMissing       = errors.New("uploaded object not found")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)

const defaultUploadTTL = 15 * time.Minute

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/heic": ".heic",
}

type ObjectStorage interface {
	Ensure(ctx context.Context) error
	PresignPut(ctx context.Context, key string, ttl time.Duration) (string, error)
	Exists(ctx context.Context, key string) (bool, error)
	Remove(ctx context.Context, key string) error
}

type ProfilePhotos interface {
	Me(ctx context.Context, sess session.Session) (users.Profile, error)
	SetPhoto(ctx context.Context, sess session.Session, key string) (users.Profile, error)
}

type Service struct {
	storage  ObjectStorage
	profiles ProfilePhotos
	logger   *zap.Logger
	ttl      time.Duration
	now      func() time.Time
}

// Upload is a presigned PUT the client uses to send the photo directly to
// object storage.
type Upload struct {
	Key       string
	URL       string
	ExpiresAt time.Time
}

func NewService(storage ObjectStorage, profiles ProfilePhotos, logger *zap.Logger, ttl time.Duration) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = defaultUploadTTL
	}
	return &Service{storage: storage, profiles: profiles, logger: logger, ttl: ttl, now: time.Now}
}

func (s *Service) CreateUpload(ctx context.Context, sess session.Session, contentType string) (Upload, error) {
	if !sess.Valid() {
		return Upload{}, ErrValidation
	}
	ext, ok := extensions[strings.ToLower(strings.TrimSpace(contentType))]
	if !ok {
		return Upload{}, ErrUnsupportedType
	}
	if s.storage == nil {
		return Upload{}, fmt.Errorf("%w: object storage is not configured", ErrUpstreamUnavailable)
	}
	if err := s.storage.Ensure(ctx); err != nil {
		return Upload{}, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	now := s.now().UTC()
	key, err := buildPhotoObjectKey(sess.UserID, ext, now)
	if err != nil {
		return Upload{}, fmt.Errorf("build object key: %w", err)
	}
	url, err := s.storage.PresignPut(ctx, key, s.ttl)
	if err != nil {
		return Upload{}, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	return Upload{Key: key, URL: url, ExpiresAt: now.Add(s.ttl)}, nil
}

// Confirm makes an uploaded object the caller's profile photo and removes
// the previous one.
func (s *Service) Confirm(ctx context.Context, sess session.Session, key string) (users.Profile, error) {
	if !sess.Valid() {
		return users.Profile{}, ErrValidation
	}
	key = strings.TrimSpace(key)
	if !strings.HasPrefix(key, users.PhotoKeyPrefix(sess.UserID)) {
		return users.Profile{}, ErrValidation
	}
	if s.storage == nil || s.profiles == nil {
		return users.Profile{}, fmt.Errorf("%w: media dependencies are not configured", ErrUpstreamUnavailable)
	}

	exists, err := s.storage.Exists(ctx, key)
	if err != nil {
		return users.Profile{}, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	if !exists {
		return users.Profile{}, ErrObjectMissing
	}

	current, err := s.profiles.Me(ctx, sess)
	if err != nil {
		return users.Profile{}, err
	}
	updated, err := s.profiles.SetPhoto(ctx, sess, key)
	if err != nil {
		return users.Profile{}, err
	}

	if prev := current.User.ProfilePhotoKey; prev != "" && prev != key {
		if err := s.storage.Remove(ctx, prev); err != nil {
			s.logger.Warn("remove previous photo failed", zap.String("key", prev), zap.Error(err))
		}
	}
	return updated, nil
}

func buildPhotoObjectKey(userID, ext string, now time.Time) (string, error) {
	rnd := make([]byte, 8)
	if _, err := rand.Read(rnd); err != nil {
		return "", err
	}
	stamp := now.Format("20060102T150405")
	return users.PhotoKeyPrefix(userID) + stamp + "_" + hex.EncodeToString(rnd) + ext, nil
}
