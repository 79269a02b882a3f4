package models

import (
	"context"
	"time"
)

// UploadKind names the two documents a user may store.
type UploadKind string

const (
	UploadKindCSV          UploadKind = "csv"
	UploadKindInstructions UploadKind = "instructions"
)

// Valid reports whether k is a known kind.
func (k UploadKind) Valid() bool {
	return k == UploadKindCSV || k == UploadKindInstructions
}

// Upload is the latest document of a kind for a user. A new upload of the
// same kind replaces the previous one.
type Upload struct {
	UserID    string     `json:"userId" db:"user_id"`
	Kind      UploadKind `json:"kind" db:"kind"`
	Filename  string     `json:"filename" db:"filename"`
	Content   []byte     `json:"-" db:"content"`
	Size      int64      `json:"size" db:"size"`
	UpdatedAt time.Time  `json:"updatedAt" db:"updated_at"`
}

// UploadRepository defines upload data access
type UploadRepository interface {
	Put(ctx context.Context, userID string, kind UploadKind, filename string, content []byte) error
	Get(ctx context.Context, userID string, kind UploadKind) (*Upload, error)
}
