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
	ErrInviteNotFound = errors.New("meetup invite not found")
	ErrInviteStale    = errors.New("meetup invite changed concurrently")
)

const inviteColumns = `
	id::text,
	match_id::text,
	sender_id::text,
	receiver_id::text,
	place_name,
	place_address,
	place_category,
	datetime,
	proposed_datetime,
	message,
	status,
	revision,
	created_at,
	updated_at`

// InviteBox selects which side of invites to list.
type InviteBox string

const (
	InviteBoxAll      InviteBox = "all"
	InviteBoxSent     InviteBox = "sent"
	InviteBoxReceived InviteBox = "received"
)

type MeetupRepo struct {
	pool *pgxpool.Pool
}

// InviteTransition is a compare-and-swap update. ProposedDatetime is written
// as given, so any target other than proposed_change clears it.
type InviteTransition struct {
	From             enums.InviteStatus
	To               enums.InviteStatus
	Revision         int64
	Datetime         *time.Time
	ProposedDatetime *time.Time
}

func NewMeetupRepo(pool *pgxpool.Pool) *MeetupRepo {
	return &MeetupRepo{pool: pool}
}

func (r *MeetupRepo) Insert(ctx context.Context, invite model.MeetupInvite, now time.Time) (model.MeetupInvite, error) {
	if strings.TrimSpace(invite.MatchID) == "" || strings.TrimSpace(invite.SenderID) == "" || strings.TrimSpace(invite.ReceiverID) == "" {
		return model.MeetupInvite{}, fmt.Errorf("invalid invite payload")
	}
	if r.pool == nil {
		return model.MeetupInvite{}, fmt.Errorf("postgres pool is nil")
	}

	created, err := scanInvite(r.pool.QueryRow(ctx, `
INSERT INTO meetup_invites (
	match_id,
	sender_id,
	receiver_id,
	place_name,
	place_address,
	place_category,
	datetime,
	proposed_datetime,
	message,
	status,
	revision,
	created_at,
	updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, NULL, $8, 'pending', 1, $9, $9)
RETURNING `+inviteColumns,
		invite.MatchID,
		invite.SenderID,
		invite.ReceiverID,
		invite.Place.Name,
		invite.Place.Address,
		invite.Place.Category,
		invite.Datetime.UTC(),
		invite.Message,
		now.UTC(),
	))
	if err != nil {
		return model.MeetupInvite{}, fmt.Errorf("insert invite: %w", err)
	}
	return created, nil
}

func (r *MeetupRepo) Get(ctx context.Context, inviteID string) (model.MeetupInvite, error) {
	if strings.TrimSpace(inviteID) == "" {
		return model.MeetupInvite{}, fmt.Errorf("invalid invite id")
	}
	if r.pool == nil {
		return model.MeetupInvite{}, ErrInviteNotFound
	}

	invite, err := scanInvite(r.pool.QueryRow(ctx, `SELECT `+inviteColumns+` FROM meetup_invites WHERE id = $1`, inviteID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.MeetupInvite{}, ErrInviteNotFound
		}
		return model.MeetupInvite{}, fmt.Errorf("get invite: %w", err)
	}
	return invite, nil
}

func (r *MeetupRepo) Transition(ctx context.Context, inviteID string, t InviteTransition, now time.Time) (model.MeetupInvite, error) {
	if strings.TrimSpace(inviteID) == "" || !t.From.Valid() || !t.To.Valid() {
		return model.MeetupInvite{}, fmt.Errorf("invalid invite transition payload")
	}
	if r.pool == nil {
		return model.MeetupInvite{}, fmt.Errorf("postgres pool is nil")
	}

	var datetime, proposed *time.Time
	if t.Datetime != nil {
		v := t.Datetime.UTC()
		datetime = &v
	}
	if t.ProposedDatetime != nil {
		v := t.ProposedDatetime.UTC()
		proposed = &v
	}

	invite, err := scanInvite(r.pool.QueryRow(ctx, `
UPDATE meetup_invites SET
	status = $3,
	datetime = COALESCE($5, datetime),
	proposed_datetime = $6,
	revision = revision + 1,
	updated_at = $7
WHERE id = $1
	AND status = $2
	AND revision = $4
RETURNING `+inviteColumns, inviteID, string(t.From), string(t.To), t.Revision, datetime, proposed, now.UTC()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.MeetupInvite{}, ErrInviteStale
		}
		return model.MeetupInvite{}, fmt.Errorf("transition invite: %w", err)
	}
	return invite, nil
}

func (r *MeetupRepo) ListForUser(ctx context.Context, userID string, box InviteBox, limit int) ([]model.MeetupInvite, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("invalid user id")
	}
	if limit <= 0 {
		limit = 100
	}
	if r.pool == nil {
		return []model.MeetupInvite{}, nil
	}

	var where string
	switch box {
	case InviteBoxSent:
		where = `sender_id = $1`
	case InviteBoxReceived:
		where = `receiver_id = $1`
	default:
		where = `(sender_id = $1 OR receiver_id = $1)`
	}

	rows, err := r.pool.Query(ctx, `
SELECT `+inviteColumns+`
FROM meetup_invites
WHERE `+where+`
ORDER BY created_at DESC, id DESC
LIMIT $2
`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list invites: %w", err)
	}
	defer rows.Close()

	items := make([]model.MeetupInvite, 0)
	for rows.Next() {
		invite, err := scanInvite(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invite: %w", err)
		}
		items = append(items, invite)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate invites: %w", rows.Err())
	}
	return items, nil
}

func scanInvite(row pgx.Row) (model.MeetupInvite, error) {
	var (
		invite model.MeetupInvite
		status string
	)
	if err := row.Scan(
		&invite.ID,
		&invite.MatchID,
		&invite.SenderID,
		&invite.ReceiverID,
		&invite.Place.Name,
		&invite.Place.Address,
		&invite.Place.Category,
		&invite.Datetime,
		&invite.ProposedDatetime,
		&invite.Message,
		&status,
		&invite.Revision,
		&invite.CreatedAt,
		&invite.UpdatedAt,
	); err != nil {
		return model.MeetupInvite{}, err
	}
	invite.Status = enums.InviteStatus(status)
	return invite, nil
}
