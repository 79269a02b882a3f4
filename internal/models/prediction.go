package models

import (
	"context"
	"time"
)

// PredictionRecord is the last prediction shown to a user, kept so the
// predicted CSV can be downloaded after the page was rendered.
type PredictionRecord struct {
	UserID         string    `json:"userId"`
	PredictionCSV  string    `json:"predictionCsv"`
	TableHTML      string    `json:"tableHtml"`
	Explanations   string    `json:"explanations"`
	IsCSVPlausible bool      `json:"isCsvPlausible"`
	RowCount       int       `json:"rowCount"`
	Model          string    `json:"model,omitempty"`
	DurationMs     int64     `json:"durationMs"`
	CreatedAt      time.Time `json:"createdAt"`
}

// PredictionRepository defines access to each user's latest prediction
type PredictionRepository interface {
	SaveLatest(ctx context.Context, record *PredictionRecord) error
	Latest(ctx context.Context, userID string) (*PredictionRecord, error)
}
