// Package web serves the HTML pages, the HTMX fragments and the JSON API.
package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"llm-stock-prediction/internal/common/database"
	commonerrors "llm-stock-prediction/internal/common/errors"
	"llm-stock-prediction/internal/common/logger"
	"llm-stock-prediction/internal/models"
	"llm-stock-prediction/internal/services/auth"
	"llm-stock-prediction/internal/services/prediction"
	"llm-stock-prediction/internal/services/upload"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

// AuthService is the part of auth.Service used by the handlers.
type AuthService interface {
	Signup(ctx context.Context, input *auth.SignupInput) (*auth.Output, error)
	Login(ctx context.Context, input *auth.LoginInput) (*auth.Output, error)
	Logout(ctx context.Context, token string) error
	LogoutAll(ctx context.Context, userID string) error
	Authenticate(ctx context.Context, token string) (*models.User, *models.Session, error)
}

type UploadService interface {
	SaveCSV(ctx context.Context, userID, filename string, r io.Reader) (*models.Upload, error)
	SaveInstructions(ctx context.Context, userID, filename string, r io.Reader) (*models.Upload, error)
	Download(ctx context.Context, userID string, kind models.UploadKind) (*upload.Document, error)
}

type PredictionService interface {
	Predict(ctx context.Context, input *prediction.Input) (*prediction.Output, error)
	Latest(ctx context.Context, userID string) (*models.PredictionRecord, error)
}

type Dependencies struct {
	Logger      logger.Logger
	Auth        AuthService
	Uploads     UploadService
	Predictions PredictionService
	// Ready lists the backends checked by /ready.
	Ready map[string]database.Pinger
	// Gatherer backs /metrics; nil means the default registry.
	Gatherer prometheus.Gatherer
}

type Server struct {
	config      *Config
	logger      logger.Logger
	auth        AuthService
	uploads     UploadService
	predictions PredictionService
	ready       map[string]database.Pinger
	gatherer    prometheus.Gatherer
	errs        *commonerrors.ErrorHandler
	views       *renderer
}

func NewServer(deps Dependencies, config *Config) (*Server, error) {
	if config == nil {
		config = DefaultConfig()
	}
	views, err := newRenderer()
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	log := deps.Logger.WithFields(map[string]interface{}{"component": "web"})
	return &Server{
		config:      config,
		logger:      log,
		auth:        deps.Auth,
		uploads:     deps.Uploads,
		predictions: deps.Predictions,
		ready:       deps.Ready,
		gatherer:    gatherer,
		errs:        commonerrors.NewErrorHandler(log),
		views:       views,
	}, nil
}

// Handler builds the router with all middleware applied.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.recoverMiddleware, s.metricsMiddleware, s.loggingMiddleware, s.sessionMiddleware)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/ready", s.handleReady).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/signup/", s.handleSignup).Methods(http.MethodGet, http.MethodPost)
	r.HandleFunc("/login/", s.handleLogin).Methods(http.MethodGet, http.MethodPost)
	r.HandleFunc("/logout/", s.handleLogout).Methods(http.MethodGet, http.MethodPost)

	r.HandleFunc("/download/sample-csv/", s.handleSampleCSV).Methods(http.MethodGet)
	r.HandleFunc("/download/sample-instructions/", s.handleSampleInstructions).Methods(http.MethodGet)

	pages := r.NewRoute().Subrouter()
	pages.Use(s.requireUser)
	pages.HandleFunc("/upload/csv/", s.handleUpload(models.UploadKindCSV, "csv_file")).Methods(http.MethodPost)
	pages.HandleFunc("/upload/instructions/", s.handleUpload(models.UploadKindInstructions, "instructions_file")).Methods(http.MethodPost)
	pages.HandleFunc("/download/uploaded-csv/", s.handleDownloadUpload(models.UploadKindCSV)).Methods(http.MethodGet)
	pages.HandleFunc("/download/uploaded-instructions/", s.handleDownloadUpload(models.UploadKindInstructions)).Methods(http.MethodGet)
	pages.HandleFunc("/instructions/", s.handleViewInstructions).Methods(http.MethodGet)
	pages.HandleFunc("/predict/", s.handlePredict).Methods(http.MethodPost)
	pages.HandleFunc("/download/prediction-csv/", s.handleDownloadPrediction).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.requireUserAPI)
	api.HandleFunc("/predict", s.handleAPIPredict).Methods(http.MethodPost)

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.config.Address,
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("HTTP server listening", map[string]interface{}{"address": s.config.Address})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("Shutting down HTTP server", nil)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
