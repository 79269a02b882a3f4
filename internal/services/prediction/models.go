package prediction

import (
	"context"
	"time"

	"llm-stock-prediction/internal/common/errors"
	"llm-stock-prediction/internal/common/logger"
	"llm-stock-prediction/internal/common/observability"
	"llm-stock-prediction/internal/llm"
	"llm-stock-prediction/internal/llmoutput"
	"llm-stock-prediction/internal/models"
)

// UploadLoader is the part of the upload service the predict flow reads from.
// Load returns upload.ErrNotFound for a missing document.
type UploadLoader interface {
	Load(ctx context.Context, userID string, kind models.UploadKind) (*models.Upload, error)
}

type Input struct {
	UserID string
}

// Output is everything the result fragment and the JSON API render.
type Output struct {
	llmoutput.Result

	Rows        [][]string              `json:"rows"`
	RowCount    int                     `json:"rowCount"`
	Predictions llmoutput.PredictionSet `json:"predictions"`

	// Valid is false when the CSV block failed the row-count check. Table
	// and explanations are still returned.
	Valid             bool                  `json:"valid"`
	ValidationMessage string                `json:"validationMessage,omitempty"`
	Warning           *errors.StandardError `json:"warning,omitempty"`

	UsedDefaultInstructions bool          `json:"usedDefaultInstructions"`
	Model                   string        `json:"model,omitempty"`
	Duration                time.Duration `json:"-"`
	DurationMs              int64         `json:"durationMs"`
}

type ServiceDependencies struct {
	Logger        logger.Logger
	Uploads       UploadLoader
	LLM           llm.Completer
	Extractor     llmoutput.Extractor
	Predictions   models.PredictionRepository
	Observability *observability.Observability
	// Model is the model name recorded with each prediction.
	Model string
}
