package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ivankudzin/plutonic/backend/internal/domain/model"
)

type CandidateRepo struct {
	pool *pgxpool.Pool
}

func NewCandidateRepo(pool *pgxpool.Pool) *CandidateRepo {
	return &CandidateRepo{pool: pool}
}

// ListForViewer returns users the viewer has not proposed to and is not
// matched with, most recently active first. Users with a pending proposal
// toward the viewer stay listed so the viewer can like them back.
func (r *CandidateRepo) ListForViewer(ctx context.Context, viewerID string, limit int) ([]model.User, error) {
	if strings.TrimSpace(viewerID) == "" {
		return nil, fmt.Errorf("invalid viewer id")
	}
	if limit <= 0 {
		limit = 50
	}
	if r.pool == nil {
		return []model.User{}, nil
	}

	rows, err := r.pool.Query(ctx, `
SELECT `+userColumns+`
FROM users u
WHERE u.id <> $1
	AND NOT EXISTS (
		SELECT 1
		FROM matches m
		WHERE (m.initiator_id = $1 AND m.target_id = u.id AND m.status IN ('pending', 'accepted'))
			OR (m.target_id = $1 AND m.initiator_id = u.id AND m.status = 'accepted')
	)
ORDER BY u.last_active_at DESC, u.id
LIMIT $2
`, viewerID, limit)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	defer rows.Close()

	items := make([]model.User, 0, limit)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		user.Email = ""
		items = append(items, user)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate candidates: %w", rows.Err())
	}
	return items, nil
}
