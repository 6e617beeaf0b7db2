package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/invoice-extractor/internal/app"
	"github.com/dvloznov/invoice-extractor/internal/auth"
	"github.com/dvloznov/invoice-extractor/internal/config"
	"github.com/dvloznov/invoice-extractor/internal/extract"
	"github.com/dvloznov/invoice-extractor/internal/gcsuploader"
	infraBQ "github.com/dvloznov/invoice-extractor/internal/infra/bigquery"
	"github.com/dvloznov/invoice-extractor/internal/logger"
	"github.com/dvloznov/invoice-extractor/internal/output"
	"github.com/dvloznov/invoice-extractor/internal/pdftext"
)

func main() {
	log := logger.New()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	if err := config.LoadDotEnv(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load .env")
	}
	cfg := config.Load()
	log = logger.NewWithLevel(cfg.LogLevel)

	switch os.Args[1] {
	case "fetch":
		runFetch(log, cfg)
	case "extract":
		runExtract(log)
	case "upload":
		runUpload(log, cfg)
	case "history":
		runHistory(log, cfg)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Invoice Extractor CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  fetch     Extract this month's invoices from Gmail into a JSON report")
	fmt.Println("  extract   Extract invoice fields from a local PDF, a GCS PDF or a text dump")
	fmt.Println("  upload    Archive a local report file in GCS")
	fmt.Println("  history   List stored invoices for a reference period")
	fmt.Println("  help      Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

func runFetch(log zerolog.Logger, cfg *config.Config) {
	fs := flag.NewFlagSet("fetch", flag.ExitOnError)
	month := fs.String("month", "", "Month to search, YYYY-MM (default: current month)")
	timeout := fs.Duration("timeout", 10*time.Minute, "Upper bound for the whole run")
	debug := fs.Bool("debug", cfg.DebugFiles, "Write the extracted text of every PDF to DEBUG_DIR")
	outputDir := fs.String("output-dir", cfg.OutputDir, "Directory for the JSON report")
	fs.Parse(os.Args[2:])

	cfg.DebugFiles = *debug
	cfg.OutputDir = *outputDir

	if err := fetch(log, cfg, *month, *timeout); err != nil {
		log.Fatal().Err(err).Msg("Fetch failed")
	}
}

// fetch returns instead of exiting so deferred cleanup always happens.
func fetch(log zerolog.Logger, cfg *config.Config, month string, timeout time.Duration) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	rc, err := app.RunConfigFor(cfg, month, time.Now())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
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

	fmt.Printf("Messages: %d, attachments: %d, skipped: %d\n",
		sum.Result.MessagesFound, sum.Result.AttachmentsSeen, sum.Result.AttachmentsSkipped)
	if sum.Report != nil {
		fmt.Printf("Wrote %d invoice(s) to %s (run %s)\n",
			len(sum.Report.Records), sum.Report.Filename, sum.Report.RunID)
	}
	return nil
}

func runExtract(log zerolog.Logger) {
	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	filePath := fs.String("file", "", "Path to a local PDF")
	gcsURI := fs.String("gcs-uri", "", "GCS URI of a PDF (e.g. gs://bucket/fatura.pdf)")
	textPath := fs.String("text", "", "Path to a plain text dump (e.g. a debug_texto file)")
	fs.Parse(os.Args[2:])

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	var (
		text     string
		filename string
	)

	switch {
	case *textPath != "":
		data, err := os.ReadFile(*textPath)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to read text file")
		}
		text = string(data)
	case *filePath != "" || *gcsURI != "":
		var (
			data []byte
			err  error
		)
		if *filePath != "" {
			data, err = os.ReadFile(*filePath)
			filename = filepath.Base(*filePath)
		} else {
			data, err = gcsuploader.FetchFromGCS(ctx, *gcsURI)
			filename = gcsuploader.ExtractFilenameFromGCSURI(*gcsURI)
		}
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to read PDF")
		}
		text, err = pdftext.NewExtractor().Text(data)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to extract text")
		}
	default:
		log.Fatal().Msg("Usage: cli extract (-file PATH | -gcs-uri URI | -text PATH)")
	}

	if strings.TrimSpace(text) == "" {
		log.Fatal().Msg("Document has no text")
	}

	rec := extract.Extract(text)
	if filename != "" {
		rec = rec.WithFilename(filename)
	}

	data, err := output.Encode([]extract.Record{rec})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to encode record")
	}
	fmt.Println(string(data))
}

func runUpload(log zerolog.Logger, cfg *config.Config) {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	bucketName := fs.String("bucket", cfg.GCSBucket, "GCS bucket name")
	objectName := fs.String("object", "", "GCS object name (defaults to faturas/<filename>)")
	filePath := fs.String("file", "", "Path to a local report file")
	fs.Parse(os.Args[2:])

	if *bucketName == "" || *filePath == "" {
		log.Fatal().Msg("Usage: cli upload -bucket NAME -file PATH")
	}

	if *objectName == "" {
		*objectName = gcsuploader.DefaultPrefix + "/" + filepath.Base(*filePath)
	}

	ctx := logger.WithContext(context.Background(), log)

	log.Info().
		Str("bucket", *bucketName).
		Str("object", *objectName).
		Str("file", *filePath).
		Msg("Uploading file to GCS")

	if err := gcsuploader.UploadFile(ctx, *bucketName, *objectName, *filePath); err != nil {
		log.Fatal().Err(err).Msg("Upload failed")
	}

	fmt.Printf("Uploaded %s to gs://%s/%s\n", *filePath, *bucketName, *objectName)
}

func runHistory(log zerolog.Logger, cfg *config.Config) {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	ref := fs.String("ref", "", "Reference period, MM/YYYY")
	project := fs.String("project", cfg.BQProject, "BigQuery project ID")
	dataset := fs.String("dataset", cfg.BQDataset, "BigQuery dataset ID")
	fs.Parse(os.Args[2:])

	if *ref == "" || *project == "" {
		log.Fatal().Msg("Usage: cli history -ref MM/YYYY [-project ID] [-dataset NAME]")
	}

	if err := history(log, *ref, *project, *dataset); err != nil {
		log.Fatal().Err(err).Msg("History failed")
	}
}

func history(log zerolog.Logger, ref, project, dataset string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	repo, err := infraBQ.NewBigQueryInvoiceRepository(ctx, project, dataset)
	if err != nil {
		return err
	}
	defer repo.Close()

	rows, err := repo.QueryInvoicesByReferencia(ctx, ref)
	if err != nil {
		return err
	}

	fmt.Printf("\n=== Invoices for %s (%d) ===\n", ref, len(rows))
	for i, r := range rows {
		fmt.Printf("\n%d. %s\n", i+1, nullOr(r.Arquivo.StringVal, r.Arquivo.Valid))
		if r.ValorLiquido.Valid {
			fmt.Printf("   Valor:      %.2f\n", r.ValorLiquido.Float64)
		}
		if r.Vencimento.Valid {
			fmt.Printf("   Vencimento: %s\n", r.Vencimento.Date)
		}
		if r.Matricula.Valid {
			fmt.Printf("   Matrícula:  %s\n", r.Matricula.StringVal)
		}
		fmt.Printf("   Run:        %s (%s)\n", r.RunID, r.ExtractedTS.Format(time.RFC3339))
	}
	fmt.Println()
	return nil
}

func nullOr(s string, valid bool) string {
	if !valid {
		return "(unnamed)"
	}
	return s
}
