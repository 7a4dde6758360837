package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	authsvc "github.com/ivankudzin/plutonic/backend/internal/services/auth"
)

// Layout:
//
//	auth:session:{sid}        hash  user_id role timezone expires_at refresh
//	auth:refresh:{digest}     string sid
//	auth:user_sessions:{uid}  set   sid...
//
// Refresh tokens are addressed by their SHA-256 digest.
const (
	authSessionPrefix      = "auth:session:"
	authRefreshPrefix      = "auth:refresh:"
	authUserSessionsPrefix = "auth:user_sessions:"

	rotateAttempts = 3
)

var errNilClient = errors.New("redis client is nil")

type SessionRepo struct {
	client *goredis.Client
}

func NewSessionRepo(client *goredis.Client) *SessionRepo {
	return &SessionRepo{client: client}
}

func (r *SessionRepo) Create(ctx context.Context, session authsvc.SessionRecord, refreshToken string) error {
	if r.client == nil {
		return errNilClient
	}
	if strings.TrimSpace(session.SID) == "" || strings.TrimSpace(session.UserID) == "" || strings.TrimSpace(refreshToken) == "" {
		return authsvc.ErrInvalidInput
	}

	digest := authsvc.RefreshDigest(refreshToken)
	ttl := ttlFor(session.ExpiresAt)

	_, err := r.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		writeSession(ctx, pipe, session, digest, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (r *SessionRepo) GetSession(ctx context.Context, sid string) (authsvc.SessionRecord, error) {
	if r.client == nil {
		return authsvc.SessionRecord{}, errNilClient
	}

	values, err := r.client.HGetAll(ctx, sessionKey(sid)).Result()
	if err != nil {
		return authsvc.SessionRecord{}, fmt.Errorf("get session: %w", err)
	}
	if len(values) == 0 {
		return authsvc.SessionRecord{}, authsvc.ErrSessionNotFound
	}
	return parseSession(sid, values)
}

func (r *SessionRepo) GetByRefreshToken(ctx context.Context, refreshToken string) (authsvc.SessionRecord, error) {
	if r.client == nil {
		return authsvc.SessionRecord{}, errNilClient
	}

	sid, err := r.client.Get(ctx, refreshKey(authsvc.RefreshDigest(refreshToken))).Result()
	if errors.Is(err, goredis.Nil) {
		return authsvc.SessionRecord{}, authsvc.ErrRefreshNotFound
	}
	if err != nil {
		return authsvc.SessionRecord{}, fmt.Errorf("resolve refresh token: %w", err)
	}

	session, err := r.GetSession(ctx, sid)
	if errors.Is(err, authsvc.ErrSessionNotFound) {
		return authsvc.SessionRecord{}, authsvc.ErrRefreshNotFound
	}
	return session, err
}

// RotateRefresh swaps the session's refresh token under WATCH, so two
// concurrent refreshes with the same token cannot both succeed.
func (r *SessionRepo) RotateRefresh(ctx context.Context, sid, oldRefreshToken, newRefreshToken string, expiresAt time.Time) error {
	if r.client == nil {
		return errNilClient
	}

	oldDigest := authsvc.RefreshDigest(oldRefreshToken)
	newDigest := authsvc.RefreshDigest(newRefreshToken)
	oldKey := refreshKey(oldDigest)

	rotate := func(tx *goredis.Tx) error {
		owner, err := tx.Get(ctx, oldKey).Result()
		if errors.Is(err, goredis.Nil) {
			return authsvc.ErrRefreshNotFound
		}
		if err != nil {
			return err
		}
		if sid != "" && owner != sid {
			return authsvc.ErrRefreshNotFound
		}

		values, err := tx.HGetAll(ctx, sessionKey(owner)).Result()
		if err != nil {
			return err
		}
		if len(values) == 0 {
			return authsvc.ErrRefreshNotFound
		}
		session, err := parseSession(owner, values)
		if err != nil {
			return err
		}
		session.ExpiresAt = expiresAt

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Del(ctx, oldKey)
			writeSession(ctx, pipe, session, newDigest, ttlFor(expiresAt))
			return nil
		})
		return err
	}

	for attempt := 0; attempt < rotateAttempts; attempt++ {
		err := r.client.Watch(ctx, rotate, oldKey)
		if errors.Is(err, goredis.TxFailedErr) {
			continue
		}
		if err != nil && !errors.Is(err, authsvc.ErrRefreshNotFound) {
			return fmt.Errorf("rotate refresh token: %w", err)
		}
		return err
	}
	// Lost every race: someone else already rotated this token.
	return authsvc.ErrRefreshNotFound
}

func (r *SessionRepo) DeleteSession(ctx context.Context, sid string) error {
	if r.client == nil {
		return errNilClient
	}
	if strings.TrimSpace(sid) == "" {
		return nil
	}

	values, err := r.client.HMGet(ctx, sessionKey(sid), "user_id", "refresh").Result()
	if err != nil {
		return fmt.Errorf("load session for delete: %w", err)
	}
	userID, _ := values[0].(string)
	digest, _ := values[1].(string)

	_, err = r.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, sessionKey(sid))
		if digest != "" {
			pipe.Del(ctx, refreshKey(digest))
		}
		if userID != "" {
			pipe.SRem(ctx, userSessionsKey(userID), sid)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (r *SessionRepo) DeleteAllForUser(ctx context.Context, userID string) error {
	if r.client == nil {
		return errNilClient
	}
	if strings.TrimSpace(userID) == "" {
		return authsvc.ErrInvalidInput
	}

	sids, err := r.client.SMembers(ctx, userSessionsKey(userID)).Result()
	if err != nil {
		return fmt.Errorf("list user sessions: %w", err)
	}
	for _, sid := range sids {
		if err := r.DeleteSession(ctx, sid); err != nil {
			return err
		}
	}

	if err := r.client.Del(ctx, userSessionsKey(userID)).Err(); err != nil {
		return fmt.Errorf("delete user sessions: %w", err)
	}
	return nil
}

func writeSession(ctx context.Context, pipe goredis.Pipeliner, session authsvc.SessionRecord, digest string, ttl time.Duration) {
	pipe.HSet(ctx, sessionKey(session.SID),
		"user_id", session.UserID,
		"role", session.Role,
		"timezone", session.Timezone,
		"expires_at", session.ExpiresAt.Unix(),
		"refresh", digest,
	)
	pipe.Expire(ctx, sessionKey(session.SID), ttl)
	pipe.Set(ctx, refreshKey(digest), session.SID, ttl)
	pipe.SAdd(ctx, userSessionsKey(session.UserID), session.SID)
	pipe.Expire(ctx, userSessionsKey(session.UserID), ttl)
}

func parseSession(sid string, values map[string]string) (authsvc.SessionRecord, error) {
	userID := strings.TrimSpace(values["user_id"])
	if userID == "" {
		return authsvc.SessionRecord{}, authsvc.ErrUnauthorized
	}
	expiresUnix, err := strconv.ParseInt(values["expires_at"], 10, 64)
	if err != nil {
		return authsvc.SessionRecord{}, authsvc.ErrUnauthorized
	}

	return authsvc.SessionRecord{
		SID:       sid,
		UserID:    userID,
		Role:      values["role"],
		Timezone:  values["timezone"],
		ExpiresAt: time.Unix(expiresUnix, 0).UTC(),
	}, nil
}

func ttlFor(expiresAt time.Time) time.Duration {
	if ttl := time.Until(expiresAt); ttl > 0 {
		return ttl
	}
	return time.Second
}

func sessionKey(sid string) string {
	return authSessionPrefix + sid
}

func refreshKey(digest string) string {
	return authRefreshPrefix + digest
}

func userSessionsKey(userID string) string {
	return authUserSessionsPrefix + userID
}
