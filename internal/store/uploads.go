package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"llm-stock-prediction/internal/common/database"
	"llm-stock-prediction/internal/models"
)

// UploadStore keeps one document per (user, kind) in PostgreSQL.
type UploadStore struct {
	pg *database.PostgresClient
}

func NewUploadStore(pg *database.PostgresClient) *UploadStore {
	return &UploadStore{pg: pg}
}

var _ models.UploadRepository = (*UploadStore)(nil)

// Put stores content as the user's document of kind, replacing any previous one.
func (s *UploadStore) Put(ctx context.Context, userID string, kind models.UploadKind, filename string, content []byte) error {
	if !kind.Valid() {
		return fmt.Errorf("unknown upload kind %q", kind)
	}
	if content == nil {
		content = []byte{}
	}

	_, err := s.pg.Exec(ctx, `
		INSERT INTO uploads (user_id, kind, filename, content, size, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, kind) DO UPDATE SET
			filename = EXCLUDED.filename,
			content = EXCLUDED.content,
			size = EXCLUDED.size,
			updated_at = EXCLUDED.updated_at`,
		userID, string(kind), filename, content, int64(len(content)), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert upload: %w", err)
	}
	return nil
}

// Get returns the user's document of kind, or ErrNotFound.
func (s *UploadStore) Get(ctx context.Context, userID string, kind models.UploadKind) (*models.Upload, error) {
	u := models.Upload{UserID: userID, Kind: kind}
	err := s.pg.QueryRow(ctx,
		`SELECT filename, content, size, updated_at FROM uploads WHERE user_id = $1 AND kind = $2`,
		userID, string(kind),
	).Scan(&u.Filename, &u.Content, &u.Size, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query upload: %w", err)
	}
	return &u, nil
}
