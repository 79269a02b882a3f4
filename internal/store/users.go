package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"llm-stock-prediction/internal/common/database"
	"llm-stock-prediction/internal/models"

	"github.com/google/uuid"
)

// UserStore implements models.UserRepository on PostgreSQL.
type UserStore struct {
	pg *database.PostgresClient
}

func NewUserStore(pg *database.PostgresClient) *UserStore {
	return &UserStore{pg: pg}
}

var _ models.UserRepository = (*UserStore)(nil)

// Create inserts user, assigning an ID and creation time when unset.
func (s *UserStore) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.pg.Exec(ctx,
		`INSERT INTO users (id, username, password_hash, created_at) VALUES ($1, $2, $3, $4)`,
		user.ID, user.Username, user.PasswordHash, user.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrUsernameTaken, user.Username)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *UserStore) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.findOne(ctx,
		`SELECT id, username, password_hash, created_at, last_login FROM users WHERE username = $1`,
		username,
	)
}

func (s *UserStore) FindByID(ctx context.Context, userID string) (*models.User, error) {
	return s.findOne(ctx,
		`SELECT id, username, password_hash, created_at, last_login FROM users WHERE id = $1`,
		userID,
	)
}

func (s *UserStore) findOne(ctx context.Context, query string, arg interface{}) (*models.User, error) {
	var (
		u         models.User
		lastLogin sql.NullTime
	)
	err := s.pg.QueryRow(ctx, query, arg).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt, &lastLogin)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLogin = &t
	}
	return &u, nil
}

func (s *UserStore) UpdateLastLogin(ctx context.Context, userID string, at time.Time) error {
	res, err := s.pg.Exec(ctx, `UPDATE users SET last_login = $2 WHERE id = $1`, userID, at)
	if err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
