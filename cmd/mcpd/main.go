package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/acaslabs/mcp-server/internal/acas"
	"github.com/acaslabs/mcp-server/internal/artifact"
	"github.com/acaslabs/mcp-server/internal/common"
	"github.com/acaslabs/mcp-server/internal/export"
	"github.com/acaslabs/mcp-server/internal/jobs"
	"github.com/acaslabs/mcp-server/internal/llm/openai"
	"github.com/acaslabs/mcp-server/internal/server"
)

func main() {
	// Load environment variables first; a missing .env is fine.
	_ = godotenv.Load()

	// Logger
	logger, _ := zap.NewProduction()
	defer func() {
		_ = logger.Sync()
	}()
	log := logger.Sugar()

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	// Context with signal
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slogger := slog.Default()

	store, err := artifact.NewStore(cfg.Uploads.Dir, slogger)
	if err != nil {
		log.Fatalf("init artifact store: %v", err)
	}

	generator := openai.NewClient(openai.Config{
		APIKey:         cfg.OpenAI.APIKey,
		BaseURL:        cfg.OpenAI.BaseURL,
		Model:          cfg.OpenAI.Model,
		Temperature:    cfg.OpenAI.Temperature,
		MaxTokens:      cfg.OpenAI.MaxTokens,
		Timeout:        cfg.OpenAI.Timeout,
		ExampleISADir:  cfg.OpenAI.ExampleISADir,
		ExampleACASDir: cfg.OpenAI.ExampleACASDir,
	}, store, slogger)

	submitter := acas.NewClient(acas.Config{
		BaseURL:  cfg.ACAS.BaseURL,
		Username: cfg.ACAS.Username,
		Password: cfg.ACAS.Password,
		Timeout:  cfg.ACAS.Timeout,
	}, generator, store, slogger)

	registry := jobs.NewRegistry()
	orchestrator := jobs.NewOrchestrator(ctx, registry, store, generator, submitter, jobs.Limits{
		MaxFiles:    cfg.Uploads.MaxFiles,
		MaxFileSize: cfg.Uploads.MaxFileSize,
	}, slogger)

	exporter := export.NewService(store, slogger)
	auth := server.NewAuthenticator(cfg.Auth, logger)
	process := server.NewProcessHandlers(orchestrator, exporter, logger)
	router := server.NewRouter(cfg, auth, process, logger)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof("MCP Server running on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warnf("server shutdown: %v", err)
	}

	// Let in-flight stage tasks settle before exit.
	orchestrator.Wait()
	log.Info("bye")
}
