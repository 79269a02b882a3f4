package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"llm-stock-prediction/internal/common/database"
	"llm-stock-prediction/internal/models"
)

func predictionKey(userID string) string {
	return fmt.Sprintf("prediction:%s:latest", userID)
}

// PredictionStore keeps only the most recent prediction of each user.
type PredictionStore struct {
	rdb *database.RedisClient
	ttl time.Duration
}

func NewPredictionStore(rdb *database.RedisClient, ttl time.Duration) *PredictionStore {
	return &PredictionStore{rdb: rdb, ttl: ttl}
}

var _ models.PredictionRepository = (*PredictionStore)(nil)

func (s *PredictionStore) SaveLatest(ctx context.Context, record *models.PredictionRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal prediction: %w", err)
	}
	if err := s.rdb.Set(ctx, predictionKey(record.UserID), payload, s.ttl); err != nil {
		return fmt.Errorf("store prediction: %w", err)
	}
	return nil
}

func (s *PredictionStore) Latest(ctx context.Context, userID string) (*models.PredictionRecord, error) {
	raw, err := s.rdb.Get(ctx, predictionKey(userID))
	if database.IsNil(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load prediction: %w", err)
	}
	var record models.PredictionRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return nil, fmt.Errorf("decode prediction: %w", err)
	}
	return &record, nil
}
