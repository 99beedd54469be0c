package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sofintel/sof-extractor/internal/common"
	"github.com/sofintel/sof-extractor/internal/docparse"
	"github.com/sofintel/sof-extractor/internal/jobs"
	"github.com/sofintel/sof-extractor/internal/llm"
	"github.com/sofintel/sof-extractor/internal/ocr"
	"github.com/sofintel/sof-extractor/internal/pipeline"
	"github.com/sofintel/sof-extractor/internal/server"
	"github.com/sofintel/sof-extractor/internal/validate"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open job store", "driver", cfg.Store.Driver, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	engine := ocr.NewEngine(ocr.Config{
		Pdftoppm:      cfg.OCR.Pdftoppm,
		Tesseract:     cfg.OCR.Tesseract,
		TesseractLang: cfg.OCR.TesseractLang,
		DPI:           cfg.OCR.DPI,
		MaxPages:      cfg.OCR.MaxPages,
	}, logger)

	extractor := docparse.NewExtractor(docparse.Config{
		MinCharsPerPage: cfg.Pipeline.MinCharsPerPage,
		MinTextLength:   cfg.Pipeline.MinTextLength,
	}, engine, logger)

	validator := validate.New(validate.Config{
		MinTextLength: cfg.Pipeline.MinTextLength,
	}, logger)

	client := llm.NewClient(llm.ClientConfig{
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
	}, logger)
	events := llm.NewEventExtractor(client, llm.Config{
		MaxChunkLen:  cfg.LLM.MaxChunkLen,
		ChunkOverlap: cfg.LLM.ChunkOverlap,
	}, logger)

	proc := pipeline.NewProcessor(extractor, validator, events, logger)

	manager, err := jobs.NewManager(store, proc, jobs.ManagerConfig{
		MaxUploadBytes: cfg.Pipeline.MaxUploadBytes,
		SpoolDir:       cfg.Pipeline.SpoolDir,
		Workers:        cfg.Pipeline.Workers,
		QueueSize:      cfg.Pipeline.QueueSize,
		JobTimeout:     cfg.Pipeline.JobTimeout,
	}, logger)
	if err != nil {
		logger.Error("failed to start job manager", "error", err)
		os.Exit(1)
	}

	auth := server.NewStaticTokenAuthenticator(cfg.Server.AuthToken, "default")
	srv := server.New(manager, auth, server.Config{
		Addr:           cfg.Server.HTTPAddr,
		MaxUploadBytes: cfg.Pipeline.MaxUploadBytes,
	}, logger)

	go func() {
		if err := srv.Start(); err != nil {
			logger.Error("http serve error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Error("http shutdown error", "error", err)
	}
	manager.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg *common.Config, logger *slog.Logger) (jobs.JobStore, error) {
	switch cfg.Store.Driver {
	case "postgres":
		return jobs.OpenPostgres(ctx, cfg.Store.DSN, logger)
	case "memory":
		return jobs.NewMemoryStore(), nil
	default:
		return jobs.OpenSQLite(cfg.Store.DSN, logger)
	}
}
