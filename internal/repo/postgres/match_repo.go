package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ivankudzin/plutonic/backend/internal/domain/enums"
	"github.com/ivankudzin/plutonic/backend/internal/domain/model"
)

var (
	ErrMatchNotFound  = errors.New("match not found")
	ErrMatchDuplicate = errors.New("active match already exists")
	// ErrMatchStale means the compare-and-swap lost: status or revision moved.
	ErrMatchStale = errors.New("match changed concurrently")
)

const matchColumns = `
	id::text,
	initiator_id::text,
	target_id::text,
	status,
	is_super_like,
	revision,
	created_at,
	updated_at`

type MatchRepo struct {
	pool *pgxpool.Pool
}

// MatchListItem is a match as seen by one participant.
type MatchListItem struct {
	Match          model.Match
	OtherUserID    string
	OtherName      string
	OtherPhotoKey  string
	OtherHeadline  string
	OtherInterests []string
}

func NewMatchRepo(pool *pgxpool.Pool) *MatchRepo {
	return &MatchRepo{pool: pool}
}

func (r *MatchRepo) Insert(ctx context.Context, tx pgx.Tx, initiatorID, targetID string, superLike bool, now time.Time) (model.Match, error) {
	if strings.TrimSpace(initiatorID) == "" || strings.TrimSpace(targetID) == "" || initiatorID == targetID {
		return model.Match{}, fmt.Errorf("invalid match payload")
	}
	if tx == nil {
		return model.Match{}, fmt.Errorf("transaction is required")
	}

	match, err := scanMatch(tx.QueryRow(ctx, `
INSERT INTO matches (
	initiator_id,
	target_id,
	status,
	is_super_like,
	revision,
	created_at,
	updated_at
) VALUES ($1, $2, 'pending', $3, 1, $4, $4)
RETURNING `+matchColumns, initiatorID, targetID, superLike, now.UTC()))
	if err != nil {
		if isUniqueViolation(err, "matches_active_pair_key") {
			return model.Match{}, ErrMatchDuplicate
		}
		if isForeignKeyViolation(err) {
			return model.Match{}, ErrUserNotFound
		}
		return model.Match{}, fmt.Errorf("insert match: %w", err)
	}
	return match, nil
}

// FindActive returns the pending or accepted record from initiatorID to targetID.
func (r *MatchRepo) FindActive(ctx context.Context, tx pgx.Tx, initiatorID, targetID string) (model.Match, error) {
	if tx == nil {
		return model.Match{}, fmt.Errorf("transaction is required")
	}

	match, err := scanMatch(tx.QueryRow(ctx, `
SELECT `+matchColumns+`
FROM matches
WHERE initiator_id = $1
	AND target_id = $2
	AND status IN ('pending', 'accepted')
LIMIT 1
`, initiatorID, targetID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Match{}, ErrMatchNotFound
		}
		return model.Match{}, fmt.Errorf("find active match: %w", err)
	}
	return match, nil
}

func (r *MatchRepo) Get(ctx context.Context, tx pgx.Tx, matchID string) (model.Match, error) {
	if strings.TrimSpace(matchID) == "" {
		return model.Match{}, fmt.Errorf("invalid match id")
	}

	var row pgx.Row
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1`
	switch {
	case tx != nil:
		row = tx.QueryRow(ctx, query, matchID)
	case r.pool != nil:
		row = r.pool.QueryRow(ctx, query, matchID)
	default:
		return model.Match{}, ErrMatchNotFound
	}

	match, err := scanMatch(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Match{}, ErrMatchNotFound
		}
		return model.Match{}, fmt.Errorf("get match: %w", err)
	}
	return match, nil
}

// Transition moves a match from one status to another when the stored
// revision still equals revision. The returned record carries revision+1.
func (r *MatchRepo) Transition(ctx context.Context, tx pgx.Tx, matchID string, from, to enums.MatchStatus, revision int64, now time.Time) (model.Match, error) {
	if strings.TrimSpace(matchID) == "" || !from.Valid() || !to.Valid() {
		return model.Match{}, fmt.Errorf("invalid match transition payload")
	}
	if tx == nil {
		return model.Match{}, fmt.Errorf("transaction is required")
	}

	match, err := scanMatch(tx.QueryRow(ctx, `
UPDATE matches SET
	status = $3,
	revision = revision + 1,
	updated_at = $5
WHERE id = $1
	AND status = $2
	AND revision = $4
RETURNING `+matchColumns, matchID, string(from), string(to), revision, now.UTC()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Match{}, ErrMatchStale
		}
		if isUniqueViolation(err, "matches_active_pair_key") {
			return model.Match{}, ErrMatchDuplicate
		}
		return model.Match{}, fmt.Errorf("transition match: %w", err)
	}
	return match, nil
}

// ListForUser returns incoming pending proposals and accepted matches in
// either direction, newest first.
func (r *MatchRepo) ListForUser(ctx context.Context, userID string, limit int) ([]MatchListItem, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("invalid user id")
	}
	if limit <= 0 {
		limit = 100
	}
	if r.pool == nil {
		return []MatchListItem{}, nil
	}

	rows, err := r.pool.Query(ctx, `
SELECT
	m.id::text,
	m.initiator_id::text,
	m.target_id::text,
	m.status,
	m.is_super_like,
	m.revision,
	m.created_at,
	m.updated_at,
	o.id::text,
	o.name,
	o.profile_photo_key,
	o.headline,
	COALESCE(
		(SELECT ARRAY_AGG(i.name ORDER BY lower(i.name)) FROM user_interests i WHERE i.user_id = o.id),
		'{}'::text[]
	)
FROM matches m
JOIN users o ON o.id = CASE WHEN m.initiator_id = $1 THEN m.target_id ELSE m.initiator_id END
WHERE
	(m.status = 'pending' AND m.target_id = $1)
	OR (m.status = 'accepted' AND (m.initiator_id = $1 OR m.target_id = $1))
ORDER BY m.updated_at DESC, m.id DESC
LIMIT $2
`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	defer rows.Close()

	items := make([]MatchListItem, 0)
	for rows.Next() {
		var (
			item   MatchListItem
			status string
		)
		if err := rows.Scan(
			&item.Match.ID,
			&item.Match.InitiatorID,
			&item.Match.TargetID,
			&status,
			&item.Match.IsSuperLike,
			&item.Match.Revision,
			&item.Match.CreatedAt,
			&item.Match.UpdatedAt,
			&item.OtherUserID,
			&item.OtherName,
			&item.OtherPhotoKey,
			&item.OtherHeadline,
			&item.OtherInterests,
		); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		item.Match.Status = enums.MatchStatus(status)
		items = append(items, item)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate matches: %w", rows.Err())
	}

	return items, nil
}

func scanMatch(row pgx.Row) (model.Match, error) {
	var (
		match  model.Match
		status string
	)
	if err := row.Scan(
		&match.ID,
		&match.InitiatorID,
		&match.TargetID,
		&status,
		&match.IsSuperLike,
		&match.Revision,
		&match.CreatedAt,
		&match.UpdatedAt,
	); err != nil {
		return model.Match{}, err
	}
	match.Status = enums.MatchStatus(status)
	return match, nil
}
