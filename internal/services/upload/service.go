// Package upload stores the price history CSV and instructions document of
// each user.
package upload

import (
	"bytes"
	"context"
	"encoding/csv"
	stderrors "errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"llm-stock-prediction/internal/common/errors"
	"llm-stock-prediction/internal/common/logger"
	"llm-stock-prediction/internal/common/metrics"
	"llm-stock-prediction/internal/models"
	"llm-stock-prediction/internal/store"
)

// ErrNotFound is returned by Load when the user has no document of the kind.
var ErrNotFound = stderrors.New("no file uploaded yet")

var (
	errEmptyFile = stderrors.New("The submitted file is empty.")
	errNotText   = stderrors.New("file is not UTF-8 text")
	errNoRows    = stderrors.New("file contains no CSV rows")
)

type Service struct {
	config  *Config
	logger  logger.Logger
	uploads models.UploadRepository
}

func NewService(deps ServiceDependencies, config *Config) *Service {
	if config == nil {
		config = DefaultConfig()
	}
	return &Service{
		config:  config,
		logger:  deps.Logger.WithFields(map[string]interface{}{"service": "upload"}),
		uploads: deps.Uploads,
	}
}

// SaveCSV validates r as a CSV document and stores it as the user's price history.
func (s *Service) SaveCSV(ctx context.Context, userID, filename string, r io.Reader) (*models.Upload, error) {
	return s.save(ctx, userID, models.UploadKindCSV, filename, r, validateCSV)
}

// SaveInstructions stores r as the user's instructions document.
func (s *Service) SaveInstructions(ctx context.Context, userID, filename string, r io.Reader) (*models.Upload, error) {
	return s.save(ctx, userID, models.UploadKindInstructions, filename, r, nil)
}

func (s *Service) save(ctx context.Context, userID string, kind models.UploadKind, filename string, r io.Reader, check func([]byte) error) (*models.Upload, error) {
	log := s.logger.WithFields(map[string]interface{}{"userId": userID, "kind": string(kind)})

	if r == nil {
		metrics.UploadsTotal.WithLabelValues(string(kind), "invalid").Inc()
		return nil, errors.NewUploadInvalidError(string(kind), "This field is required.")
	}

	limit := s.config.limit(string(kind))
	content, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		metrics.UploadsTotal.WithLabelValues(string(kind), "error").Inc()
		return nil, errors.NewUploadInvalidError(string(kind), fmt.Sprintf("read upload: %v", err))
	}
	if int64(len(content)) > limit {
		metrics.UploadsTotal.WithLabelValues(string(kind), "too_large").Inc()
		return nil, errors.NewUploadTooLargeError(string(kind), limit)
	}

	if err := validateText(content); err != nil {
		metrics.UploadsTotal.WithLabelValues(string(kind), "invalid").Inc()
		return nil, errors.NewUploadInvalidError(string(kind), err.Error())
	}
	if check != nil {
		if err := check(content); err != nil {
			metrics.UploadsTotal.WithLabelValues(string(kind), "invalid").Inc()
			return nil, errors.NewUploadInvalidError(string(kind), err.Error())
		}
	}

	filename = cleanFilename(filename, kind)
	if err := s.uploads.Put(ctx, userID, kind, filename, content); err != nil {
		metrics.UploadsTotal.WithLabelValues(string(kind), "error").Inc()
		log.Error("Failed to store upload", map[string]interface{}{"error": err.Error()})
		return nil, errors.NewQueryExecutionFailedError("put_upload", err)
	}

	metrics.UploadsTotal.WithLabelValues(string(kind), "ok").Inc()
	log.Info("Upload stored", map[string]interface{}{
		"filename": filename,
		"size":     len(content),
	})
	return &models.Upload{
		UserID:   userID,
		Kind:     kind,
		Filename: filename,
		Content:  content,
		Size:     int64(len(content)),
	}, nil
}

// Load returns the user's stored document of kind. A missing document is
// reported as ErrNotFound.
func (s *Service) Load(ctx context.Context, userID string, kind models.UploadKind) (*models.Upload, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown upload kind %q", kind)
	}
	u, err := s.uploads.Get(ctx, userID, kind)
	if stderrors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("get_upload", err)
	}
	return u, nil
}

// Download returns the stored document of kind in servable form.
func (s *Service) Download(ctx context.Context, userID string, kind models.UploadKind) (*Document, error) {
	u, err := s.Load(ctx, userID, kind)
	if err != nil {
		if stderrors.Is(err, ErrNotFound) {
			return nil, errors.NewUploadNotFoundError(string(kind))
		}
		return nil, err
	}
	ct := "text/csv"
	if kind == models.UploadKindInstructions {
		ct = "text/markdown; charset=utf-8"
	}
	return &Document{Filename: u.Filename, ContentType: ct, Content: u.Content}, nil
}

func validateText(content []byte) error {
	if len(bytes.TrimSpace(content)) == 0 {
		return errEmptyFile
	}
	if !utf8.Valid(content) {
		return errNotText
	}
	return nil
}

// validateCSV requires at least one row with a non-empty cell.
func validateCSV(content []byte) error {
	r := csv.NewReader(bytes.NewReader(content))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	for {
		rec, err := r.Read()
		if err == io.EOF {
			return errNoRows
		}
		if err != nil {
			return fmt.Errorf("file is not valid CSV: %v", err)
		}
		for _, cell := range rec {
			if strings.TrimSpace(cell) != "" {
				return nil
			}
		}
	}
}

func cleanFilename(name string, kind models.UploadKind) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	if name == "." || name == "/" || name == "" {
		if kind == models.UploadKindInstructions {
			return "instructions.md"
		}
		return "data.csv"
	}
	return name
}
