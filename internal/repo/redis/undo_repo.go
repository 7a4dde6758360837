package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const undoPrefix = "undo:last:"

var ErrNoUndoRecord = errors.New("no undo record")

// UndoRecord is the last accept or decline a user made.
type UndoRecord struct {
	MatchID  string
	Action   string
	Revision int64
	At       time.Time
}

type UndoRepo struct {
	client *goredis.Client
}

func NewUndoRepo(client *goredis.Client) *UndoRepo {
	return &UndoRepo{client: client}
}

// Remember replaces any earlier record for userID.
func (r *UndoRepo) Remember(ctx context.Context, userID string, rec UndoRecord, ttl time.Duration) error {
	if r.client == nil {
		return errNilClient
	}
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(rec.MatchID) == "" || rec.Action == "" {
		return fmt.Errorf("invalid undo payload")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, undoKey(userID))
	pipe.HSet(ctx, undoKey(userID), map[string]interface{}{
		"match_id": rec.MatchID,
		"action":   rec.Action,
		"revision": rec.Revision,
		"at":       rec.At.UTC().Unix(),
	})
	pipe.Expire(ctx, undoKey(userID), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("remember undo: %w", err)
	}
	return nil
}

func (r *UndoRepo) Last(ctx context.Context, userID string) (UndoRecord, error) {
	if r.client == nil {
		return UndoRecord{}, errNilClient
	}
	if strings.TrimSpace(userID) == "" {
		return UndoRecord{}, fmt.Errorf("invalid user id")
	}

	values, err := r.client.HGetAll(ctx, undoKey(userID)).Result()
	if err != nil {
		return UndoRecord{}, fmt.Errorf("get undo record: %w", err)
	}
	if len(values) == 0 || values["match_id"] == "" {
		return UndoRecord{}, ErrNoUndoRecord
	}

	revision, err := strconv.ParseInt(values["revision"], 10, 64)
	if err != nil {
		return UndoRecord{}, fmt.Errorf("parse undo revision: %w", err)
	}
	atUnix, _ := strconv.ParseInt(values["at"], 10, 64)

	return UndoRecord{
		MatchID:  values["match_id"],
		Action:   values["action"],
		Revision: revision,
		At:       time.Unix(atUnix, 0).UTC(),
	}, nil
}

// Forget deletes the record only if it still points at matchID, so a newer
// action recorded in between survives.
func (r *UndoRepo) Forget(ctx context.Context, userID, matchID string) error {
	if r.client == nil {
		return errNilClient
	}

	key := undoKey(userID)
	err := r.client.Watch(ctx, func(tx *goredis.Tx) error {
		current, err := tx.HGet(ctx, key, "match_id").Result()
		if errors.Is(err, goredis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}
		if current != matchID {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Del(ctx, key)
			return nil
		})
		return err
	}, key)
	if err != nil {
		return fmt.Errorf("forget undo: %w", err)
	}
	return nil
}

func undoKey(userID string) string {
	return undoPrefix + userID
}
