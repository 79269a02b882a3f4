package prediction

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"llm-stock-prediction/internal/common/database"
	commonerrors "llm-stock-prediction/internal/common/errors"
	"llm-stock-prediction/internal/common/logger"
	"llm-stock-prediction/internal/llm"
	"llm-stock-prediction/internal/models"
	"llm-stock-prediction/internal/services/upload"
	"llm-stock-prediction/internal/store"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

type fakeUploads struct {
	docs map[models.UploadKind]string
	err  error
}

func (f *fakeUploads) Load(_ context.Context, userID string, kind models.UploadKind) (*models.Upload, error) {
	if f.err != nil {
		return nil, f.err
	}
	text, ok := f.docs[kind]
	if !ok {
		return nil, upload.ErrNotFound
	}
	return &models.Upload{UserID: userID, Kind: kind, Content: []byte(text)}, nil
}

type fakeLLM struct {
	reply string
	err   error

	gotPrompt string
	gotData   string
	calls     int
}

func (f *fakeLLM) Complete(_ context.Context, systemPrompt, data string) (string, error) {
	f.calls++
	f.gotPrompt, f.gotData = systemPrompt, data
	return f.reply, f.err
}

const priceCSV = "date,symbol,close\n2024-06-03,AAPL,194.03\n"

const goodReply = "Here you go.\n```csv\nsymbol,month,predicted_price\nAAPL,2024-07,200\nAAPL,2024-08,204.5\n```\n" +
	"<table><tr><td>AAPL</td></tr></table>\nExplanations: AAPL looks strong."

type testEnv struct {
	svc     *Service
	uploads *fakeUploads
	llm     *fakeLLM
	mr      *miniredis.Miniredis
	store   *store.PredictionStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	predictions := store.NewPredictionStore(database.NewRedisFromClient(client), time.Hour)

	uploads := &fakeUploads{docs: map[models.UploadKind]string{models.UploadKindCSV: priceCSV}}
	model := &fakeLLM{reply: goodReply}
	svc := NewService(ServiceDependencies{
		Logger:      logger.NewTestLogger(t),
		Uploads:     uploads,
		LLM:         model,
		Predictions: predictions,
		Model:       "gpt-test",
	}, nil)
	return &testEnv{svc: svc, uploads: uploads, llm: model, mr: mr, store: predictions}
}

func csvReply(rows int) string {
	var b strings.Builder
	b.WriteString("```csv\nsymbol,month,predicted_price\n")
	for i := 1; i < rows; i++ {
		fmt.Fprintf(&b, "T%d,2024-07,%d\n", i, i)
	}
	b.WriteString("```\n<table><tr><td>x</td></tr></table>\nExplanation: many rows")
	return b.String()
}

// ==========================
// Predict
// ==========================

func TestService_Predict_Success(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	out, err := env.svc.Predict(ctx, &Input{UserID: "u1"})
	require.NoError(t, err)

	assert.True(t, out.Valid)
	assert.Empty(t, out.ValidationMessage)
	assert.Nil(t, out.Warning)
	assert.Equal(t, 3, out.RowCount)
	assert.Equal(t, []string{"AAPL", "2024-08", "204.5"}, out.Rows[2])
	assert.Equal(t, "<table><tr><td>AAPL</td></tr></table>", out.TableHTML)
	assert.Equal(t, "AAPL looks strong.", out.Explanations)
	assert.True(t, out.Predictions.HeaderMatched)
	assert.Len(t, out.Predictions.Predictions, 2)
	assert.Equal(t, "gpt-test", out.Model)

	// no instructions upload: the default prompt is used
	assert.True(t, out.UsedDefaultInstructions)
	assert.Equal(t, llm.DefaultInstructions, env.llm.gotPrompt)
	assert.Equal(t, priceCSV, env.llm.gotData)

	rec, err := env.svc.Latest(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, out.PredictionCSV, rec.PredictionCSV)
	assert.Equal(t, 3, rec.RowCount)
	assert.Equal(t, "gpt-test", rec.Model)
}

func TestService_Predict_UsesUploadedInstructions(t *testing.T) {
	env := newTestEnv(t)
	env.uploads.docs[models.UploadKindInstructions] = "  Only predict 3 months.\n"

	out, err := env.svc.Predict(context.Background(), &Input{UserID: "u1"})
	require.NoError(t, err)
	assert.False(t, out.UsedDefaultInstructions)
	assert.Equal(t, "Only predict 3 months.", env.llm.gotPrompt)
}

func TestService_Predict_NoCSV(t *testing.T) {
	env := newTestEnv(t)
	delete(env.uploads.docs, models.UploadKindCSV)

	_, err := env.svc.Predict(context.Background(), &Input{UserID: "u1"})
	require.Error(t, err)

	std := commonerrors.Normalize(err)
	assert.Equal(t, commonerrors.ErrCodeUploadNotFound, std.Code)
	assert.Equal(t, MsgUploadCSVFirst, std.Message)
	assert.Zero(t, env.llm.calls)
}

func TestService_Predict_UploadStoreFailure(t *testing.T) {
	env := newTestEnv(t)
	env.uploads.err = commonerrors.NewQueryExecutionFailedError("get_upload", errors.New("timeout"))

	_, err := env.svc.Predict(context.Background(), &Input{UserID: "u1"})
	assert.True(t, commonerrors.HasCode(err, commonerrors.ErrCodeQueryExecutionFailed))
	assert.Zero(t, env.llm.calls)
}

func TestService_Predict_LLMFailure(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{
			name:    "client sentinel",
			err:     fmt.Errorf("%w: %v", llm.ErrLLMCallFailed, "401 invalid api key"),
			wantMsg: "LLM call failed: 401 invalid api key",
		},
		{
			name:    "bare error",
			err:     errors.New("connection refused"),
			wantMsg: "LLM call failed: connection refused",
		},
		{
			name:    "deadline",
			err:     fmt.Errorf("%w: %w", llm.ErrLLMCallFailed, context.DeadlineExceeded),
			wantMsg: "LLM call failed: context deadline exceeded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.llm.err = tt.err

			_, err := env.svc.Predict(context.Background(), &Input{UserID: "u1"})
			std := commonerrors.Normalize(err)
			require.NotNil(t, std)
			assert.Equal(t, commonerrors.ErrCodeLLMCallFailed, std.Code)
			assert.Equal(t, tt.wantMsg, std.Message)
			assert.False(t, std.Retryable)
			assert.ErrorIs(t, err, tt.err)

			// nothing is stored for a failed call
			_, err = env.svc.Latest(context.Background(), "u1")
			assert.True(t, commonerrors.HasCode(err, commonerrors.ErrCodePredictionNotFound))
		})
	}
}

func TestService_Predict_RowCountValidation(t *testing.T) {
	tests := []struct {
		name      string
		reply     string
		wantValid bool
		wantRows  int
	}{
		{"header only", csvReply(1), false, 1},
		{"header plus one", csvReply(2), true, 2},
		{"upper bound", csvReply(121), true, 121},
		{"over upper bound", csvReply(122), false, 122},
		{"no csv block", "No CSV here.", false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.llm.reply = tt.reply

			out, err := env.svc.Predict(context.Background(), &Input{UserID: "u1"})
			require.NoError(t, err)
			assert.Equal(t, tt.wantValid, out.Valid)
			assert.Equal(t, tt.wantRows, out.RowCount)

			if tt.wantValid {
				assert.Nil(t, out.Warning)
				return
			}
			require.NotNil(t, out.Warning)
			assert.Equal(t, commonerrors.ErrCodePredictionCSVImplausible, out.Warning.Code)
			assert.NotEmpty(t, out.ValidationMessage)
			if tt.wantRows > 0 {
				assert.Contains(t, out.ValidationMessage, fmt.Sprintf("has %d rows", tt.wantRows))
				assert.Contains(t, out.ValidationMessage, "between 2 and 121")
				// the table and explanations are still shown
				assert.NotEmpty(t, out.TableHTML)
				assert.Equal(t, "many rows", out.Explanations)
			}
		})
	}
}

func TestService_Predict_SaveLatestFailureIsNotFatal(t *testing.T) {
	env := newTestEnv(t)
	env.mr.Close()

	out, err := env.svc.Predict(context.Background(), &Input{UserID: "u1"})
	require.NoError(t, err)
	assert.True(t, out.Valid)
}

func TestService_Latest_NotFound(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.svc.Latest(context.Background(), "nobody")
	assert.True(t, commonerrors.HasCode(err, commonerrors.ErrCodePredictionNotFound))
}

func TestService_Predict_Timeout(t *testing.T) {
	env := newTestEnv(t)
	env.svc.config.Timeout = time.Millisecond
	slow := &ctxLLM{}
	env.svc.llm = slow

	_, err := env.svc.Predict(context.Background(), &Input{UserID: "u1"})
	assert.True(t, commonerrors.HasCode(err, commonerrors.ErrCodeLLMCallFailed))
	assert.Contains(t, commonerrors.Normalize(err).Message, context.DeadlineExceeded.Error())
}

type ctxLLM struct{}

func (ctxLLM) Complete(ctx context.Context, _, _ string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestValidationMessage(t *testing.T) {
	assert.Equal(t,
		"The predicted CSV has 1 rows; expected between 2 and 121 including the header.",
		ValidationMessage(1))
}
