package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"chat-client/internal/models"
)

// ProfileKey is the single persisted key holding the authenticated user.
const ProfileKey = "userInfo"

var ErrProfileNotFound = errors.New("profile not found")

// ProfileRepository persists the authenticated user between runs.
type ProfileRepository interface {
	Save(ctx context.Context, user models.User) error
	Load(ctx context.Context) (models.User, error)
	Clear(ctx context.Context) error
}

// ProfileRepo is a sqlx implementation of ProfileRepository over the kv table.
type ProfileRepo struct {
	db *sqlx.DB
}

// NewProfileRepo constructs a ProfileRepo.
func NewProfileRepo(db *sqlx.DB) *ProfileRepo {
	return &ProfileRepo{db: db}
}

// Save stores user, token included, replacing any previous profile.
func (r *ProfileRepo) Save(ctx context.Context, user models.User) error {
	value, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
         ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		ProfileKey, string(value), time.Now().UTC())
	return err
}

// Load returns the stored profile or ErrProfileNotFound.
func (r *ProfileRepo) Load(ctx context.Context) (models.User, error) {
	var value string
	if err := r.db.GetContext(ctx, &value, `SELECT value FROM kv WHERE key = ?`, ProfileKey); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrProfileNotFound
		}
		return models.User{}, err
	}

	var user models.User
	if err := json.Unmarshal([]byte(value), &user); err != nil {
		return models.User{}, fmt.Errorf("decode profile: %w", err)
	}
	return user, nil
}

// Clear deletes the stored profile. Clearing an absent profile is not an error.
func (r *ProfileRepo) Clear(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, ProfileKey)
	return err
}
