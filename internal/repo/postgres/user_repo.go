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
	"github.com/ivankudzin/plutonic/backend/internal/domain/rules"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already registered")
)

const userColumns = `
	u.id::text,
	u.email,
	u.name,
	u.headline,
	u.about_me,
	u.bio,
	u.gender,
	u.looking_for,
	u.social_style,
	u.profile_photo_key,
	u.timezone,
	u.is_premium,
	u.super_likes_remaining,
	u.last_reset_date,
	u.last_active_at,
	u.created_at,
	u.updated_at,
	COALESCE(
		(SELECT ARRAY_AGG(i.name ORDER BY lower(i.name)) FROM user_interests i WHERE i.user_id = u.id),
		'{}'::text[]
	)`

type UserRepo struct {
	pool *pgxpool.Pool
}

type CreateUserInput struct {
	Email        string
	PasswordHash string
	Name         string
	Timezone     string
}

type CredentialsRecord struct {
	UserID       string
	PasswordHash string
}

// ProfilePatch holds optional profile fields; nil leaves a column unchanged.
type ProfilePatch struct {
	Name        *string
	Headline    *string
	AboutMe     *string
	Bio         *string
	Gender      []string
	LookingFor  []string
	SocialStyle *enums.SocialStyle
	Timezone    *string
}

type QuotaRecord struct {
	UserID   string
	Timezone string
	Quota    rules.SuperLikeQuota
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

func (r *UserRepo) Create(ctx context.Context, input CreateUserInput, freeSuperLikes int) (model.User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || input.PasswordHash == "" || strings.TrimSpace(input.Name) == "" {
		return model.User{}, fmt.Errorf("invalid user payload")
	}
	if r.pool == nil {
		return model.User{}, fmt.Errorf("postgres pool is nil")
	}

	var id string
	err := r.pool.QueryRow(ctx, `
INSERT INTO users (
	email,
	password_hash,
	name,
	timezone,
	super_likes_remaining
) VALUES ($1, $2, $3, $4, $5)
RETURNING id::text
`, email, input.PasswordHash, strings.TrimSpace(input.Name), strings.TrimSpace(input.Timezone), freeSuperLikes).Scan(&id)
	if err != nil {
		if isUniqueViolation(err, "users_email_key") {
			return model.User{}, ErrEmailTaken
		}
		return model.User{}, fmt.Errorf("insert user: %w", err)
	}

	return r.GetByID(ctx, id)
}

func (r *UserRepo) GetByID(ctx context.Context, userID string) (model.User, error) {
	if strings.TrimSpace(userID) == "" {
		return model.User{}, fmt.Errorf("invalid user id")
	}
	if r.pool == nil {
		return model.User{}, ErrUserNotFound
	}

	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users u WHERE u.id = $1`, userID)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, ErrUserNotFound
		}
		return model.User{}, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// NamesByID resolves display names for a set of users.
func (r *UserRepo) NamesByID(ctx context.Context, userIDs []string) (map[string]string, error) {
	names := make(map[string]string, len(userIDs))
	if len(userIDs) == 0 || r.pool == nil {
		return names, nil
	}

	rows, err := r.pool.Query(ctx, `SELECT id::text, name FROM users WHERE id::text = ANY($1)`, userIDs)
	if err != nil {
		return nil, fmt.Errorf("list user names: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("scan user name: %w", err)
		}
		names[id] = name
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate user names: %w", rows.Err())
	}
	return names, nil
}

func (r *UserRepo) GetCredentials(ctx context.Context, email string) (CredentialsRecord, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return CredentialsRecord{}, fmt.Errorf("email is required")
	}
	if r.pool == nil {
		return CredentialsRecord{}, ErrUserNotFound
	}

	var rec CredentialsRecord
	err := r.pool.QueryRow(ctx, `
SELECT id::text, password_hash
FROM users
WHERE lower(email) = $1
`, email).Scan(&rec.UserID, &rec.PasswordHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return CredentialsRecord{}, ErrUserNotFound
		}
		return CredentialsRecord{}, fmt.Errorf("get credentials: %w", err)
	}
	return rec, nil
}

func (r *UserRepo) UpdateProfile(ctx context.Context, tx pgx.Tx, userID string, patch ProfilePatch, now time.Time) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("invalid user id")
	}
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}

	var socialStyle *string
	if patch.SocialStyle != nil {
		v := string(*patch.SocialStyle)
		socialStyle = &v
	}

	tag, err := tx.Exec(ctx, `
UPDATE users SET
	name = COALESCE($2, name),
	headline = COALESCE($3, headline),
	about_me = COALESCE($4, about_me),
	bio = COALESCE($5, bio),
	gender = COALESCE($6, gender),
	looking_for = COALESCE($7, looking_for),
	social_style = COALESCE($8, social_style),
	timezone = COALESCE($9, timezone),
	updated_at = $10
WHERE id = $1
`, userID, patch.Name, patch.Headline, patch.AboutMe, patch.Bio, patch.Gender, patch.LookingFor, socialStyle, patch.Timezone, now.UTC())
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// ReplaceInterests swaps the interest set. Names are unique case-insensitively;
// the first spelling wins.
func (r *UserRepo) ReplaceInterests(ctx context.Context, tx pgx.Tx, userID string, names []string) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("invalid user id")
	}
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}

	if _, err := tx.Exec(ctx, `DELETE FROM user_interests WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("clear interests: %w", err)
	}
	if len(names) == 0 {
		return nil
	}

	if _, err := tx.Exec(ctx, `
INSERT INTO user_interests (user_id, name)
SELECT $1::uuid, btrim(n)
FROM unnest($2::text[]) WITH ORDINALITY AS t(n, pos)
WHERE btrim(n) <> ''
ORDER BY pos
ON CONFLICT (user_id, lower(name)) DO NOTHING
`, userID, names); err != nil {
		return fmt.Errorf("insert interests: %w", err)
	}
	return nil
}

func (r *UserRepo) SetProfilePhoto(ctx context.Context, userID, key string, now time.Time) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("invalid user id")
	}
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	tag, err := r.pool.Exec(ctx, `
UPDATE users SET profile_photo_key = $2, updated_at = $3 WHERE id = $1
`, userID, key, now.UTC())
	if err != nil {
		return fmt.Errorf("set profile photo: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *UserRepo) TouchLastActive(ctx context.Context, userID string, at time.Time) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("invalid user id")
	}
	if r.pool == nil {
		return nil
	}

	if _, err := r.pool.Exec(ctx, `
UPDATE users SET last_active_at = GREATEST(last_active_at, $2) WHERE id = $1
`, userID, at.UTC()); err != nil {
		return fmt.Errorf("touch last active: %w", err)
	}
	return nil
}

// GetQuotaForUpdate locks the user row for the rest of tx.
func (r *UserRepo) GetQuotaForUpdate(ctx context.Context, tx pgx.Tx, userID string) (QuotaRecord, error) {
	if strings.TrimSpace(userID) == "" {
		return QuotaRecord{}, fmt.Errorf("invalid user id")
	}
	if tx == nil {
		return QuotaRecord{}, fmt.Errorf("transaction is required")
	}
	return scanQuota(tx.QueryRow(ctx, `
SELECT id::text, timezone, is_premium, super_likes_remaining, last_reset_date
FROM users
WHERE id = $1
FOR UPDATE
`, userID))
}

func (r *UserRepo) GetQuota(ctx context.Context, userID string) (QuotaRecord, error) {
	if strings.TrimSpace(userID) == "" {
		return QuotaRecord{}, fmt.Errorf("invalid user id")
	}
	if r.pool == nil {
		return QuotaRecord{}, ErrUserNotFound
	}
	return scanQuota(r.pool.QueryRow(ctx, `
SELECT id::text, timezone, is_premium, super_likes_remaining, last_reset_date
FROM users
WHERE id = $1
`, userID))
}

func (r *UserRepo) SaveQuota(ctx context.Context, tx pgx.Tx, userID string, quota rules.SuperLikeQuota) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("invalid user id")
	}
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}

	tag, err := tx.Exec(ctx, `
UPDATE users SET
	is_premium = $2,
	super_likes_remaining = $3,
	last_reset_date = $4,
	updated_at = NOW()
WHERE id = $1
`, userID, quota.IsPremium, quota.Remaining, quota.LastResetDate)
	if err != nil {
		return fmt.Errorf("save quota: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func scanQuota(row pgx.Row) (QuotaRecord, error) {
	var rec QuotaRecord
	if err := row.Scan(
		&rec.UserID,
		&rec.Timezone,
		&rec.Quota.IsPremium,
		&rec.Quota.Remaining,
		&rec.Quota.LastResetDate,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return QuotaRecord{}, ErrUserNotFound
		}
		return QuotaRecord{}, fmt.Errorf("scan quota: %w", err)
	}
	return rec, nil
}

func scanUser(row pgx.Row) (model.User, error) {
	var (
		user        model.User
		socialStyle string
		interests   []string
	)
	if err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.Headline,
		&user.AboutMe,
		&user.Bio,
		&user.Gender,
		&user.LookingFor,
		&socialStyle,
		&user.ProfilePhotoKey,
		&user.Timezone,
		&user.IsPremium,
		&user.SuperLikesRemaining,
		&user.LastResetDate,
		&user.LastActiveAt,
		&user.CreatedAt,
		&user.UpdatedAt,
		&interests,
	); err != nil {
		return model.User{}, err
	}

	user.SocialStyle = enums.SocialStyle(socialStyle)
	user.Interests = make([]model.Interest, 0, len(interests))
	for _, name := range interests {
		user.Interests = append(user.Interests, model.Interest{Name: name})
	}
	if user.Gender == nil {
		user.Gender = []string{}
	}
	if user.LookingFor == nil {
		user.LookingFor = []string{}
	}
	return user, nil
}

func (r *UserRepo) GetTimezone(ctx context.Context, userID string) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", fmt.Errorf("invalid user id")
	}
	if r.pool == nil {
		return "", nil
	}

	var timezone string
	if err := r.pool.QueryRow(ctx, `SELECT timezone FROM users WHERE id = $1`, userID).Scan(&timezone); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrUserNotFound
		}
		return "", fmt.Errorf("get timezone: %w", err)
	}
	return timezone, nil
}
