package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"

	"github.com/dvloznov/invoice-extractor/internal/logger"
	"github.com/dvloznov/invoice-extractor/internal/output"
)

// InvoiceRepository provides an interface for invoice table operations.
type InvoiceRepository interface {
	// InsertInvoices inserts a batch of InvoiceRow into the invoices table.
	InsertInvoices(ctx context.Context, rows []*InvoiceRow) error

	// QueryInvoicesByReferencia lists stored invoices for a MM/YYYY period.
	QueryInvoicesByReferencia(ctx context.Context, referencia string) ([]*InvoiceRow, error)
}

// BigQueryInvoiceRepository is the concrete implementation of InvoiceRepository.
// It holds a shared BigQuery client for the lifetime of a run.
type BigQueryInvoiceRepository struct {
	client    *bigquery.Client
	datasetID string
}

// NewBigQueryInvoiceRepository creates a repository bound to projectID and datasetID.
func NewBigQueryInvoiceRepository(ctx context.Context, projectID, datasetID string) (*BigQueryInvoiceRepository, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewBigQueryInvoiceRepository: creating client: %w", err)
	}
	if datasetID == "" {
		datasetID = DefaultDatasetID
	}
	return &BigQueryInvoiceRepository{
		client:    client,
		datasetID: datasetID,
	}, nil
}

// Close closes the BigQuery client connection.
func (r *BigQueryInvoiceRepository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// InsertInvoices delegates to InsertInvoicesWithClient with the shared client.
func (r *BigQueryInvoiceRepository) InsertInvoices(ctx context.Context, rows []*InvoiceRow) error {
	return InsertInvoicesWithClient(ctx, r.client, r.datasetID, rows)
}

// QueryInvoicesByReferencia delegates to QueryInvoicesByReferenciaWithClient with the shared client.
func (r *BigQueryInvoiceRepository) QueryInvoicesByReferencia(ctx context.Context, referencia string) ([]*InvoiceRow, error) {
	return QueryInvoicesByReferenciaWithClient(ctx, r.client, r.datasetID, referencia)
}

// Sink streams report records into the invoices table.
type Sink struct {
	Repo InvoiceRepository
}

// NewSink wraps repo as an output.Sink.
func NewSink(repo InvoiceRepository) *Sink {
	return &Sink{Repo: repo}
}

// Name implements output.Sink.
func (s *Sink) Name() string { return "bigquery" }

// Publish implements output.Sink.
func (s *Sink) Publish(ctx context.Context, report *output.Report) error {
	rows := ToRows(report)
	if err := s.Repo.InsertInvoices(ctx, rows); err != nil {
		return fmt.Errorf("Sink.Publish: %w", err)
	}

	log := logger.FromContext(ctx)
	log.Debug().
		Str("run_id", report.RunID).
		Int("rows", len(rows)).
		Msg("Invoices inserted")
	return nil
}

var _ output.Sink = (*Sink)(nil)
