package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ivankudzin/plutonic/backend/internal/domain/model"
)

type MessageRepo struct {
	pool *pgxpool.Pool
}

func NewMessageRepo(pool *pgxpool.Pool) *MessageRepo {
	return &MessageRepo{pool: pool}
}

func (r *MessageRepo) Insert(ctx context.Context, matchID, senderID, content string, now time.Time) (model.Message, error) {
	if strings.TrimSpace(matchID) == "" || strings.TrimSpace(senderID) == "" || content == "" {
		return model.Message{}, fmt.Errorf("invalid message payload")
	}
	if r.pool == nil {
		return model.Message{}, fmt.Errorf("postgres pool is nil")
	}

	var msg model.Message
	err := r.pool.QueryRow(ctx, `
INSERT INTO messages (
	match_id,
	sender_id,
	content,
	is_read,
	created_at
) VALUES ($1, $2, $3, false, $4)
RETURNING id::text, match_id::text, sender_id::text, content, is_read, created_at
`, matchID, senderID, content, now.UTC()).Scan(
		&msg.ID,
		&msg.MatchID,
		&msg.SenderID,
		&msg.Content,
		&msg.IsRead,
		&msg.CreatedAt,
	)
	if err != nil {
		return model.Message{}, fmt.Errorf("insert message: %w", err)
	}
	return msg, nil
}

// ListByMatch pages backwards from before (exclusive) and returns messages
// oldest first.
func (r *MessageRepo) ListByMatch(ctx context.Context, matchID string, before time.Time, limit int) ([]model.Message, error) {
	if strings.TrimSpace(matchID) == "" {
		return nil, fmt.Errorf("invalid match id")
	}
	if limit <= 0 {
		limit = 50
	}
	if r.pool == nil {
		return []model.Message{}, nil
	}
	if before.IsZero() {
		before = time.Now().Add(time.Minute)
	}

	rows, err := r.pool.Query(ctx, `
SELECT id::text, match_id::text, sender_id::text, content, is_read, created_at
FROM (
	SELECT *
	FROM messages
	WHERE match_id = $1 AND created_at < $2
	ORDER BY created_at DESC, id DESC
	LIMIT $3
) page
ORDER BY created_at ASC, id ASC
`, matchID, before.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	items := make([]model.Message, 0, limit)
	for rows.Next() {
		var msg model.Message
		if err := rows.Scan(&msg.ID, &msg.MatchID, &msg.SenderID, &msg.Content, &msg.IsRead, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		items = append(items, msg)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate messages: %w", rows.Err())
	}
	return items, nil
}

// MarkRead flips unread messages addressed to readerID. Read messages are
// never flipped back.
func (r *MessageRepo) MarkRead(ctx context.Context, matchID, readerID string) (int64, error) {
	if strings.TrimSpace(matchID) == "" || strings.TrimSpace(readerID) == "" {
		return 0, fmt.Errorf("invalid mark read payload")
	}
	if r.pool == nil {
		return 0, nil
	}

	tag, err := r.pool.Exec(ctx, `
UPDATE messages SET is_read = true
WHERE match_id = $1 AND sender_id <> $2 AND is_read = false
`, matchID, readerID)
	if err != nil {
		return 0, fmt.Errorf("mark messages read: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *MessageRepo) ListConversations(ctx context.Context, userID string, limit int) ([]model.Conversation, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("invalid user id")
	}
	if limit <= 0 {
		limit = 100
	}
	if r.pool == nil {
		return []model.Conversation{}, nil
	}

	rows, err := r.pool.Query(ctx, `
SELECT
	m.id::text,
	o.id::text,
	o.name,
	last.id::text,
	last.sender_id::text,
	last.content,
	last.is_read,
	last.created_at,
	(
		SELECT COUNT(*)
		FROM messages u
		WHERE u.match_id = m.id AND u.sender_id <> $1 AND u.is_read = false
	)::int,
	GREATEST(m.updated_at, COALESCE(last.created_at, m.updated_at))
FROM matches m
JOIN users o ON o.id = CASE WHEN m.initiator_id = $1 THEN m.target_id ELSE m.initiator_id END
LEFT JOIN LATERAL (
	SELECT id, sender_id, content, is_read, created_at
	FROM messages
	WHERE match_id = m.id
	ORDER BY created_at DESC, id DESC
	LIMIT 1
) last ON true
WHERE m.status = 'accepted' AND (m.initiator_id = $1 OR m.target_id = $1)
ORDER BY 10 DESC
LIMIT $2
`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	items := make([]model.Conversation, 0)
	for rows.Next() {
		var (
			conv          model.Conversation
			lastID        *string
			lastSender    *string
			lastContent   *string
			lastRead      *bool
			lastCreatedAt *time.Time
		)
		if err := rows.Scan(
			&conv.MatchID,
			&conv.OtherUserID,
			&conv.OtherName,
			&lastID,
			&lastSender,
			&lastContent,
			&lastRead,
			&lastCreatedAt,
			&conv.UnreadCount,
			&conv.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		if lastID != nil {
			conv.LastMessage = &model.Message{
				ID:        *lastID,
				MatchID:   conv.MatchID,
				SenderID:  derefString(lastSender),
				Content:   derefString(lastContent),
				IsRead:    lastRead != nil && *lastRead,
				CreatedAt: derefTime(lastCreatedAt),
			}
		}
		items = append(items, conv)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate conversations: %w", rows.Err())
	}
	return items, nil
}

// CountUnread sums unread messages addressed to userID across matches.
func (r *MessageRepo) CountUnread(ctx context.Context, userID string) (int, error) {
	if strings.TrimSpace(userID) == "" {
		return 0, fmt.Errorf("invalid user id")
	}
	if r.pool == nil {
		return 0, nil
	}

	var count int
	if err := r.pool.QueryRow(ctx, `
SELECT COUNT(*)::int
FROM messages msg
JOIN matches m ON m.id = msg.match_id
WHERE (m.initiator_id = $1 OR m.target_id = $1)
	AND msg.sender_id <> $1
	AND msg.is_read = false
`, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count unread messages: %w", err)
	}
	return count, nil
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func derefTime(v *time.Time) time.Time {
	if v == nil {
		return time.Time{}
	}
	return *v
}
