// Package prediction runs the predict flow: load the user's documents, ask
// the model, scrape its reply and keep the result for download.
package prediction

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"llm-stock-prediction/internal/common/errors"
	"llm-stock-prediction/internal/common/logger"
	"llm-stock-prediction/internal/common/metrics"
	"llm-stock-prediction/internal/common/observability"
	"llm-stock-prediction/internal/llm"
	"llm-stock-prediction/internal/llmoutput"
	"llm-stock-prediction/internal/models"
	"llm-stock-prediction/internal/services/upload"
	"llm-stock-prediction/internal/store"
)

// MsgUploadCSVFirst is shown when predict is requested without a CSV.
const MsgUploadCSVFirst = "Please upload a CSV file first."

type Service struct {
	config      *Config
	logger      logger.Logger
	uploads     UploadLoader
	llm         llm.Completer
	extractor   llmoutput.Extractor
	predictions models.PredictionRepository
	obs         *observability.Observability
	model       string
	now         func() time.Time
}

func NewService(deps ServiceDependencies, config *Config) *Service {
	if config == nil {
		config = DefaultConfig()
	}
	extractor := deps.Extractor
	if extractor == nil {
		extractor = llmoutput.RegexpExtractor{}
	}
	obs := deps.Observability
	if obs == nil {
		obs = observability.Noop()
	}
	return &Service{
		config:      config,
		logger:      deps.Logger.WithFields(map[string]interface{}{"service": "prediction"}),
		uploads:     deps.Uploads,
		llm:         deps.LLM,
		extractor:   extractor,
		predictions: deps.Predictions,
		obs:         obs,
		model:       deps.Model,
		now:         time.Now,
	}
}

// Predict runs one prediction for the user. A missing CSV and a failed LLM
// call are returned as errors; an implausible CSV is not, it only clears
// Output.Valid.
func (s *Service) Predict(ctx context.Context, input *Input) (*Output, error) {
	start := s.now()
	log := s.logger.WithFields(map[string]interface{}{"userId": input.UserID})

	if s.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
	}

	csvDoc, err := s.uploads.Load(ctx, input.UserID, models.UploadKindCSV)
	if stderrors.Is(err, upload.ErrNotFound) {
		s.record(ctx, metrics.OutcomeNoCSV, start)
		stdErr := errors.NewUploadNotFoundError(string(models.UploadKindCSV))
		stdErr.Message = MsgUploadCSVFirst
		return nil, stdErr
	}
	if err != nil {
		s.record(ctx, metrics.OutcomeStoreError, start)
		return nil, err
	}

	instructions, usedDefault, err := s.instructions(ctx, input.UserID)
	if err != nil {
		s.record(ctx, metrics.OutcomeStoreError, start)
		return nil, err
	}

	raw, err := s.llm.Complete(ctx, instructions, string(csvDoc.Content))
	if err != nil {
		s.record(ctx, metrics.OutcomeLLMError, start)
		log.Warn("LLM call failed", map[string]interface{}{"error": err.Error()})
		return nil, errors.NewLLMCallFailedError(err)
	}
	s.obs.RecordResponseSize(ctx, len(raw))

	result := s.extractor.Extract(raw)
	rows := result.Rows()
	metrics.PredictionCSVRows.Observe(float64(len(rows)))

	out := &Output{
		Result:                  result,
		Rows:                    rows,
		RowCount:                len(rows),
		Predictions:             llmoutput.ParsePredictions(rows),
		Valid:                   result.IsCSVPlausible,
		UsedDefaultInstructions: usedDefault,
		Model:                   s.model,
	}

	outcome := metrics.OutcomeSuccess
	switch {
	case result.PredictionCSV == "":
		outcome = metrics.OutcomeImplausible
		out.ValidationMessage = "The model response did not contain a CSV block."
		out.Warning = errors.NewPredictionCSVImplausibleError(0, llmoutput.MinPlausibleRows, llmoutput.MaxPlausibleRows)
	case !result.IsCSVPlausible:
		outcome = metrics.OutcomeImplausible
		out.ValidationMessage = ValidationMessage(len(rows))
		out.Warning = errors.NewPredictionCSVImplausibleError(len(rows), llmoutput.MinPlausibleRows, llmoutput.MaxPlausibleRows)
	}

	out.Duration = s.now().Sub(start)
	out.DurationMs = out.Duration.Milliseconds()

	if s.config.SaveLatest && s.predictions != nil {
		s.saveLatest(ctx, input.UserID, out)
	}

	s.record(ctx, outcome, start)
	log.Info("Prediction completed", map[string]interface{}{
		"rows":       out.RowCount,
		"valid":      out.Valid,
		"hasTable":   out.TableHTML != "",
		"durationMs": out.DurationMs,
	})
	return out, nil
}

// Latest returns the user's most recent prediction.
func (s *Service) Latest(ctx context.Context, userID string) (*models.PredictionRecord, error) {
	if s.predictions == nil {
		return nil, errors.NewPredictionNotFoundError()
	}
	rec, err := s.predictions.Latest(ctx, userID)
	if stderrors.Is(err, store.ErrNotFound) {
		return nil, errors.NewPredictionNotFoundError()
	}
	if err != nil {
		return nil, errors.NewCacheOperationFailedError("load_prediction", err)
	}
	return rec, nil
}

// ValidationMessage states the row count against the accepted range.
func ValidationMessage(rows int) string {
	return fmt.Sprintf("The predicted CSV has %d rows; expected between %d and %d including the header.",
		rows, llmoutput.MinPlausibleRows, llmoutput.MaxPlausibleRows)
}

func (s *Service) instructions(ctx context.Context, userID string) (string, bool, error) {
	doc, err := s.uploads.Load(ctx, userID, models.UploadKindInstructions)
	if stderrors.Is(err, upload.ErrNotFound) {
		return llm.DefaultInstructions, true, nil
	}
	if err != nil {
		return "", false, err
	}
	text := strings.TrimSpace(string(doc.Content))
	if text == "" {
		return llm.DefaultInstructions, true, nil
	}
	return text, false, nil
}

func (s *Service) saveLatest(ctx context.Context, userID string, out *Output) {
	rec := &models.PredictionRecord{
		UserID:         userID,
		PredictionCSV:  out.PredictionCSV,
		TableHTML:      out.TableHTML,
		Explanations:   out.Explanations,
		IsCSVPlausible: out.IsCSVPlausible,
		RowCount:       out.RowCount,
		Model:          out.Model,
		DurationMs:     out.DurationMs,
		CreatedAt:      s.now().UTC(),
	}
	if err := s.predictions.SaveLatest(ctx, rec); err != nil {
		s.logger.Warn("Failed to store latest prediction", map[string]interface{}{
			"userId": userID,
			"error":  err.Error(),
		})
	}
}

func (s *Service) record(ctx context.Context, outcome string, start time.Time) {
	metrics.PredictionsTotal.WithLabelValues(outcome).Inc()
	s.obs.RecordPrediction(ctx, outcome)
	s.obs.RecordPredictionDuration(ctx, s.now().Sub(start), outcome)
}
