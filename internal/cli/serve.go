package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"llm-stock-prediction/internal/common/config"
	"llm-stock-prediction/internal/common/database"
	"llm-stock-prediction/internal/common/observability"
	"llm-stock-prediction/internal/llm"
	"llm-stock-prediction/internal/llmoutput"
	"llm-stock-prediction/internal/services/auth"
	"llm-stock-prediction/internal/services/prediction"
	"llm-stock-prediction/internal/services/upload"
	"llm-stock-prediction/internal/store"
	"llm-stock-prediction/internal/web"

	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			migrate, _ := cmd.Flags().GetBool("migrate")
			if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
				cfg.Server.Address = addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg, migrate)
		},
	}

	cmd.Flags().Bool("migrate", true, "Create missing tables before serving")
	cmd.Flags().String("addr", "", "Listen address (overrides server.address)")

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config, migrate bool) error {
	log := newLogger(cfg)
	defer log.Sync()

	log.Info("Starting stockpredict", map[string]interface{}{
		"version":     cfg.App.Version,
		"environment": cfg.App.Environment,
	})

	obs, err := observability.New(cfg.App.Name)
	if err != nil {
		return fmt.Errorf("init observability: %w", err)
	}
	defer obs.Shutdown(context.Background())

	pg, err := connectPostgres(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer pg.Close()

	rdb, err := connectRedis(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer rdb.Close()

	if migrate {
		if err := store.Migrate(ctx, pg); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	llmClient, err := llm.NewClient(ctx, cfg.LLM, log)
	if err != nil {
		return fmt.Errorf("init llm client: %w", err)
	}

	authCfg := auth.DefaultConfig()
	authCfg.SessionTTL = cfg.Session.SessionTTL()
	if err := authCfg.Validate(); err != nil {
		return err
	}
	authSvc := auth.NewService(auth.ServiceDependencies{
		Logger:   log,
		Users:    store.NewUserStore(pg),
		Sessions: store.NewSessionStore(rdb),
	}, authCfg)

	uploadCfg := &upload.Config{
		MaxCSVBytes:          cfg.Uploads.MaxCSVBytes,
		MaxInstructionsBytes: cfg.Uploads.MaxInstructionsBytes,
	}
	if err := uploadCfg.Validate(); err != nil {
		return err
	}
	uploadSvc := upload.NewService(upload.ServiceDependencies{
		Logger:  log,
		Uploads: store.NewUploadStore(pg),
	}, uploadCfg)

	predictSvc := prediction.NewService(prediction.ServiceDependencies{
		Logger:        log,
		Uploads:       uploadSvc,
		LLM:           llmClient,
		Extractor:     llmoutput.RegexpExtractor{},
		Predictions:   store.NewPredictionStore(rdb, cfg.Session.LatestPredictionTTL()),
		Observability: obs,
		Model:         llmClient.Model(),
	}, prediction.DefaultConfig())

	server, err := web.NewServer(web.Dependencies{
		Logger:      log,
		Auth:        authSvc,
		Uploads:     uploadSvc,
		Predictions: predictSvc,
		Ready: map[string]database.Pinger{
			"postgres": pg,
			"redis":    rdb,
		},
	}, web.ConfigFrom(cfg))
	if err != nil {
		return err
	}

	if err := server.Run(ctx); err != nil {
		log.Error("Server stopped with error", map[string]interface{}{"error": err.Error()})
		return err
	}
	log.Info("Server stopped", nil)
	return nil
}
