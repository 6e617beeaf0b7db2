// Package app wires configuration, the mailbox runner and the report sinks
// into the fetch command shared by cmd/cli and cmd/fetch-invoices.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/dvloznov/invoice-extractor/internal/config"
	"github.com/dvloznov/invoice-extractor/internal/drive"
	"github.com/dvloznov/invoice-extractor/internal/gcsuploader"
	"github.com/dvloznov/invoice-extractor/internal/gmail"
	infraBQ "github.com/dvloznov/invoice-extractor/internal/infra/bigquery"
	"github.com/dvloznov/invoice-extractor/internal/logger"
	"github.com/dvloznov/invoice-extractor/internal/output"
	"github.com/dvloznov/invoice-extractor/internal/pdftext"
	"github.com/dvloznov/invoice-extractor/internal/pipeline"
)

// Fetcher runs the mailbox pipeline and publishes the resulting report.
type Fetcher struct {
	Runner   *pipeline.Runner
	Primary  output.Sink
	Optional []output.Sink
	Now      func() time.Time
}

// Summary describes what a fetch did. Report is nil when nothing was written.
type Summary struct {
	Result      *pipeline.Result
	Report      *output.Report
	FailedSinks int
}

// Fetch processes the messages selected by rc. Empty runs write no file.
func (f *Fetcher) Fetch(ctx context.Context, rc pipeline.RunConfig) (*Summary, error) {
	log := logger.FromContext(ctx)

	res, err := f.Runner.Run(ctx, rc)
	if err != nil {
		return nil, fmt.Errorf("Fetch: %w", err)
	}
	sum := &Summary{Result: res}

	if res.MessagesFound == 0 {
		log.Info().Str("query", rc.Query).Msg("No messages found in period")
		return sum, nil
	}
	if len(res.Records) == 0 {
		log.Info().
			Int("messages", res.MessagesFound).
			Int("attachments", res.AttachmentsSeen).
			Msg("No data extracted")
		return sum, nil
	}

	now := time.Now
	if f.Now != nil {
		now = f.Now
	}
	report, err := output.NewReport(res.Records, now())
	if err != nil {
		return nil, fmt.Errorf("Fetch: building report: %w", err)
	}

	failed, err := output.Publish(ctx, report, f.Primary, f.Optional...)
	if err != nil {
		return nil, fmt.Errorf("Fetch: %w", err)
	}

	sum.Report = report
	sum.FailedSinks = failed
	return sum, nil
}

// NewFetcher builds a Fetcher from cfg. The returned cleanup func releases
// sink clients and must be called once the fetch is done.
func NewFetcher(ctx context.Context, cfg *config.Config, httpClient *http.Client) (*Fetcher, func(), error) {
	mail, err := gmail.NewService(ctx, httpClient, cfg.User)
	if err != nil {
		return nil, nil, fmt.Errorf("NewFetcher: %w", err)
	}

	var debug pipeline.DebugWriter
	if cfg.DebugFiles {
		debug = output.NewDebugDumper(cfg.DebugDir)
	}

	sinks, cleanup, err := OptionalSinks(ctx, cfg, httpClient)
	if err != nil {
		return nil, nil, err
	}

	return &Fetcher{
		Runner:   pipeline.NewRunner(mail, pdftext.NewExtractor(), debug),
		Primary:  output.NewFileSink(cfg.OutputDir),
		Optional: sinks,
	}, cleanup, nil
}

// OptionalSinks returns the Drive, GCS and BigQuery sinks enabled in cfg.
func OptionalSinks(ctx context.Context, cfg *config.Config, httpClient *http.Client) ([]output.Sink, func(), error) {
	var (
		sinks   []output.Sink
		closers []func() error
	)
	cleanup := func() {
		for _, c := range closers {
			_ = c()
		}
	}

	if cfg.UploadToDrive {
		u, err := drive.NewUploader(ctx, httpClient, cfg.DriveFolderID)
		if err != nil {
			return nil, nil, fmt.Errorf("OptionalSinks: %w", err)
		}
		sinks = append(sinks, u)
	}

	if cfg.GCSBucket != "" {
		sinks = append(sinks, gcsuploader.NewReportSink(cfg.GCSBucket))
	}

	if cfg.BQProject != "" {
		repo, err := infraBQ.NewBigQueryInvoiceRepository(ctx, cfg.BQProject, cfg.BQDataset)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("OptionalSinks: %w", err)
		}
		closers = append(closers, repo.Close)
		sinks = append(sinks, infraBQ.NewSink(repo))
	}

	return sinks, cleanup, nil
}

// RunConfigFor builds the mailbox selection for cfg. month ("YYYY-MM")
// overrides the current month when non-empty.
func RunConfigFor(cfg *config.Config, month string, now time.Time) (pipeline.RunConfig, error) {
	r := gmail.MonthRange(now)
	if month != "" {
		var err error
		if r, err = gmail.ParseMonth(month); err != nil {
			return pipeline.RunConfig{}, fmt.Errorf("RunConfigFor: %w", err)
		}
	}
	return pipeline.RunConfig{
		Query:    gmail.BuildQuery(cfg.Query, r),
		LabelIDs: cfg.LabelIDs,
	}, nil
}
