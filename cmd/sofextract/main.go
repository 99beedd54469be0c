// sofextract runs the extraction pipeline on one local document and prints
// the events, bypassing the HTTP server and the job store.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/sofintel/sof-extractor/constants"
	"github.com/sofintel/sof-extractor/internal/common"
	"github.com/sofintel/sof-extractor/internal/docparse"
	"github.com/sofintel/sof-extractor/internal/entity"
	"github.com/sofintel/sof-extractor/internal/export"
	"github.com/sofintel/sof-extractor/internal/llm"
	"github.com/sofintel/sof-extractor/internal/ocr"
	"github.com/sofintel/sof-extractor/internal/pipeline"
	"github.com/sofintel/sof-extractor/internal/validate"
)

func main() {
	format := flag.String("format", "json", "output format: csv, json, or xlsx")
	out := flag.String("o", "", "output file (default stdout, required for xlsx)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
	slog.SetDefault(logger)

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: sofextract [-format csv|json|xlsx] [-o file] <document>")
		os.Exit(2)
	}
	path := flag.Arg(0)

	cfg := common.LoadConfig()
	if cfg.LLM.APIKey == "" {
		fmt.Fprintln(os.Stderr, "LLM_API_KEY env var is required")
		os.Exit(1)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read %s: %v\n", path, err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Pipeline.JobTimeout)
	defer cancel()

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
	validator := validate.New(validate.Config{MinTextLength: cfg.Pipeline.MinTextLength}, logger)
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

	start := time.Now()
	extracted, warning, err := proc.Process(ctx, data, filepath.Base(path))
	if err != nil {
		fmt.Fprintf(os.Stderr, "extraction failed: %v\n", err)
		os.Exit(1)
	}
	if warning != nil {
		fmt.Fprintf(os.Stderr, "document rejected: %s\nsuggestion: %s\n",
			warning.Description, warning.Suggestion)
		os.Exit(1)
	}

	now := time.Now().UTC()
	job := &entity.Job{
		ID:        uuid.New(),
		Filename:  filepath.Base(path),
		Status:    constants.JobStatusCompleted,
		CreatedAt: now,
		UpdatedAt: now,
		Events:    extracted,
	}
	encoded, _, _, err := export.Format(job, *format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "encode output: %v\n", err)
		os.Exit(1)
	}

	if *out == "" {
		if *format == export.FormatXLSX {
			fmt.Fprintln(os.Stderr, "-o is required for xlsx output")
			os.Exit(2)
		}
		os.Stdout.Write(encoded)
	} else if err := os.WriteFile(*out, encoded, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "write %s: %v\n", *out, err)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "%d events in %s\n", len(extracted), time.Since(start).Round(time.Millisecond))
}
