package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
)

const (
	// DefaultDatasetID is used when BQ_DATASET is not set.
	DefaultDatasetID = "invoices"
	invoicesTable    = "invoices"
)

// InsertInvoices inserts a batch of InvoiceRow into <dataset>.invoices of the given project.
func InsertInvoices(ctx context.Context, projectID, datasetID string, rows []*InvoiceRow) error {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return fmt.Errorf("InsertInvoices: bigquery client: %w", err)
	}
	defer client.Close()

	return InsertInvoicesWithClient(ctx, client, datasetID, rows)
}

// InsertInvoicesWithClient inserts a batch of InvoiceRow using the provided BigQuery client.
func InsertInvoicesWithClient(ctx context.Context, client *bigquery.Client, datasetID string, rows []*InvoiceRow) error {
	if len(rows) == 0 {
		return nil
	}

	inserter := client.Dataset(datasetID).Table(invoicesTable).Inserter()
	if err := inserter.Put(ctx, rows); err != nil {
		return fmt.Errorf("InsertInvoices: inserting rows: %w", err)
	}

	return nil
}

// QueryInvoicesByReferenciaWithClient returns every stored invoice for a MM/YYYY
// reference period, oldest extraction first.
func QueryInvoicesByReferenciaWithClient(ctx context.Context, client *bigquery.Client, datasetID, referencia string) ([]*InvoiceRow, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT
			run_id,
			arquivo,
			valor_liquido,
			retencao_lei,
			codigo_debito,
			matricula,
			referencia,
			vencimento,
			emissao,
			apresentacao,
			extracted_ts
		FROM %s.%s
		WHERE referencia = @referencia
		ORDER BY extracted_ts, arquivo
	`, datasetID, invoicesTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "referencia", Value: referencia},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("QueryInvoicesByReferencia: query read: %w", err)
	}

	var rows []*InvoiceRow
	for {
		var r InvoiceRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("QueryInvoicesByReferencia: iter next: %w", err)
		}
		rows = append(rows, &r)
	}

	return rows, nil
}
