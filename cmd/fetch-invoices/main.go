package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/invoice-extractor/internal/app"
	"github.com/dvloznov/invoice-extractor/internal/auth"
	"github.com/dvloznov/invoice-extractor/internal/config"
	"github.com/dvloznov/invoice-extractor/internal/logger"
)

func main() {
	// Initialize structured logger
	log := logger.New()

	if err := config.LoadDotEnv(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load .env")
	}
	cfg := config.Load()

	// Parse CLI flags; flags win over the environment
	month := flag.String("month", "", "Month to search, YYYY-MM (default: current month)")
	timeout := flag.Duration("timeout", 10*time.Minute, "Upper bound for the whole run")
	debug := flag.Bool("debug", cfg.DebugFiles, "Write the extracted text of every PDF to DEBUG_DIR")
	outputDir := flag.String("output-dir", cfg.OutputDir, "Directory for the JSON report")
	flag.Parse()

	cfg.DebugFiles = *debug
	cfg.OutputDir = *outputDir
	log = logger.NewWithLevel(cfg.LogLevel)

	if err := run(log, cfg, *month, *timeout); err != nil {
		log.Fatal().Err(err).Msg("Fetch failed")
	}
}

// run returns instead of exiting so deferred cleanup always happens.
func run(log zerolog.Logger, cfg *config.Config, month string, timeout time.Duration) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	rc, err := app.RunConfigFor(cfg, month, time.Now())
	if err != nil {
		return err
	}

	// Create context with timeout so the run doesn't hang
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Add logger to context
	ctx = logger.WithContext(ctx, log)

	httpClient, err := auth.NewHTTPClient(ctx, cfg.TokenPath)
	if err != nil {
		return fmt.Errorf("authorizing: %w", err)
	}

	fetcher, cleanup, err := app.NewFetcher(ctx, cfg, httpClient)
	if err != nil {
		return err
	}
	defer cleanup()

	log.Info().Str("query", rc.Query).Msg("Starting fetch")

	sum, err := fetcher.Fetch(ctx, rc)
	if err != nil {
		return err
	}

	if sum.Report != nil {
		fmt.Printf("Extracted %d invoice(s) into %s\n", len(sum.Report.Records), sum.Report.Filename)
	}
	return nil
}
