package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ivankudzin/plutonic/backend/internal/domain/enums"
	"github.com/ivankudzin/plutonic/backend/internal/domain/model"
)

type DeviceTokenRepo struct {
	pool *pgxpool.Pool
}

func NewDeviceTokenRepo(pool *pgxpool.Pool) *DeviceTokenRepo {
	return &DeviceTokenRepo{pool: pool}
}

func (r *DeviceTokenRepo) Upsert(ctx context.Context, token model.DeviceToken) error {
	value := strings.TrimSpace(token.Token)
	if strings.TrimSpace(token.UserID) == "" || value == "" || !token.Platform.Valid() {
		return fmt.Errorf("invalid device token payload")
	}
	seenAt := token.LastSeenAt
	if seenAt.IsZero() {
		seenAt = time.Now()
	}
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	if _, err := r.pool.Exec(ctx, `
INSERT INTO device_tokens (
	user_id,
	token,
	platform,
	last_seen_at
) VALUES ($1, $2, $3, $4)
ON CONFLICT (user_id, token) DO UPDATE SET
	platform = EXCLUDED.platform,
	last_seen_at = GREATEST(device_tokens.last_seen_at, EXCLUDED.last_seen_at)
`, token.UserID, value, string(token.Platform), seenAt.UTC()); err != nil {
		return fmt.Errorf("upsert device token: %w", err)
	}
	return nil
}

func (r *DeviceTokenRepo) Delete(ctx context.Context, userID, token string) (bool, error) {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(token) == "" {
		return false, fmt.Errorf("invalid device token delete payload")
	}
	if r.pool == nil {
		return false, nil
	}

	tag, err := r.pool.Exec(ctx, `DELETE FROM device_tokens WHERE user_id = $1 AND token = $2`, userID, strings.TrimSpace(token))
	if err != nil {
		return false, fmt.Errorf("delete device token: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *DeviceTokenRepo) ListByUser(ctx context.Context, userID string) ([]model.DeviceToken, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("invalid user id")
	}
	if r.pool == nil {
		return []model.DeviceToken{}, nil
	}

	rows, err := r.pool.Query(ctx, `
SELECT user_id::text, token, platform, last_seen_at
FROM device_tokens
WHERE user_id = $1
ORDER BY last_seen_at DESC
`, userID)
	if err != nil {
		return nil, fmt.Errorf("list device tokens: %w", err)
	}
	defer rows.Close()

	items := make([]model.DeviceToken, 0)
	for rows.Next() {
		var (
			item     model.DeviceToken
			platform string
		)
		if err := rows.Scan(&item.UserID, &item.Token, &platform, &item.LastSeenAt); err != nil {
			return nil, fmt.Errorf("scan device token: %w", err)
		}
		item.Platform = enums.Platform(platform)
		items = append(items, item)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate device tokens: %w", rows.Err())
	}
	return items, nil
}

// DeleteSeenBefore removes tokens that have not checked in since cutoff.
func (r *DeviceTokenRepo) DeleteSeenBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	if cutoff.IsZero() {
		return 0, fmt.Errorf("cutoff is required")
	}
	if r.pool == nil {
		return 0, nil
	}

	tag, err := r.pool.Exec(ctx, `DELETE FROM device_tokens WHERE last_seen_at < $1`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("prune device tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}
