package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/mbpp-digital/intake/internal/classifier"
	"github.com/mbpp-digital/intake/internal/config"
	"github.com/mbpp-digital/intake/internal/intake"
	"github.com/mbpp-digital/intake/internal/knowledge"
	"github.com/mbpp-digital/intake/internal/router"
	"github.com/mbpp-digital/intake/internal/server"
	"github.com/mbpp-digital/intake/internal/session"
	"github.com/mbpp-digital/intake/internal/storage"
	"github.com/mbpp-digital/intake/internal/ticket"
	"github.com/mbpp-digital/intake/internal/worker"
	"github.com/mbpp-digital/intake/internal/workflow"
	"github.com/mbpp-digital/intake/pkg/database"
	"github.com/mbpp-digital/intake/pkg/logger"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	_ = gotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		OutputPath: cfg.Logger.OutputPath,
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = zapLogger.Sync() }()

	if err := run(cfg, zapLogger); err != nil {
		zapLogger.Fatal("Service failed", zap.Error(err))
	}
}

func run(cfg *config.Config, zapLogger *zap.Logger) error {
	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, zapLogger)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if err := database.NewMigrator(db, zapLogger).Run(); err != nil {
		return err
	}

	blobs, err := storage.NewLocalBlobStore(cfg.Storage.AttachmentDir, cfg.Storage.PublicBaseURL, zapLogger)
	if err != nil {
		return err
	}

	cls, answerer := buildLanguageStack(cfg, zapLogger)

	sessions := session.NewStore(db, zapLogger)
	tickets := ticket.NewStore(db, zapLogger)
	ticketSvc := ticket.NewService(db, tickets, blobs, zapLogger)
	engine := workflow.NewEngine(cls, zapLogger, cfg.Session.MaxClarifications)
	rt := router.New(cls, zapLogger)

	processor := intake.NewProcessor(sessions, engine, rt, ticketSvc, answerer, zapLogger)

	manager := worker.NewManager(zapLogger)
	manager.Register(worker.NewReaper(sessions, cfg.Session.IdleTimeout, cfg.Session.SweepInterval, zapLogger))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := manager.Start(ctx); err != nil {
		return err
	}
	defer manager.Stop()

	handler := server.NewHandler(processor, tickets, zapLogger)
	srv := server.New(cfg.Server, handler, cfg.Storage.AttachmentDir, zapLogger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		zapLogger.Info("Shutdown signal received", zap.String("signal", sig.String()))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	zapLogger.Info("Service stopped")
	return nil
}

// buildLanguageStack picks the model-backed classifier and answerer when an
// API key is configured, and the keyword tables otherwise
func buildLanguageStack(cfg *config.Config, zapLogger *zap.Logger) (classifier.Classifier, knowledge.Answerer) {
	if cfg.OpenAI.APIKey == "" {
		zapLogger.Warn("No OpenAI API key configured, using keyword classifier only")
		return classifier.NewRules(), &knowledge.Static{}
	}

	cls := classifier.NewOpenAIClassifier(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.Temperature, zapLogger)
	answerer := knowledge.NewOpenAIAnswerer(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.Temperature, zapLogger)
	return cls, answerer
}
