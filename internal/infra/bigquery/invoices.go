package bigquery

import (
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"

	"github.com/dvloznov/invoice-extractor/internal/extract"
	"github.com/dvloznov/invoice-extractor/internal/output"
)

// invoiceDateLayout is the DD/MM/YYYY form dates take on the invoices.
const invoiceDateLayout = "02/01/2006"

type InvoiceRow struct {
	RunID    string              `bigquery:"run_id"`  // REQUIRED
	Arquivo  bigquery.NullString `bigquery:"arquivo"` // NULLABLE

	ValorLiquido bigquery.NullFloat64 `bigquery:"valor_liquido"` // NULLABLE
	RetencaoLei  bigquery.NullFloat64 `bigquery:"retencao_lei"`  // NULLABLE

	CodigoDebito bigquery.NullString `bigquery:"codigo_debito"` // NULLABLE
	Matricula    bigquery.NullString `bigquery:"matricula"`     // NULLABLE
	Referencia   bigquery.NullString `bigquery:"referencia"`    // NULLABLE

	Vencimento   bigquery.NullDate `bigquery:"vencimento"`   // NULLABLE
	Emissao      bigquery.NullDate `bigquery:"emissao"`      // NULLABLE
	Apresentacao bigquery.NullDate `bigquery:"apresentacao"` // NULLABLE

	ExtractedTS time.Time `bigquery:"extracted_ts"` // REQUIRED
}

// ToRows converts the records of a report into invoice rows sharing the report's run id.
func ToRows(report *output.Report) []*InvoiceRow {
	rows := make([]*InvoiceRow, 0, len(report.Records))
	for _, r := range report.Records {
		rows = append(rows, NewInvoiceRow(report.RunID, report.GeneratedAt, r))
	}
	return rows
}

// NewInvoiceRow maps a single extracted record to its table row.
func NewInvoiceRow(runID string, extractedAt time.Time, r extract.Record) *InvoiceRow {
	return &InvoiceRow{
		RunID:        runID,
		Arquivo:      nullString(r.Arquivo),
		ValorLiquido: nullFloat(r.ValorLiquido),
		RetencaoLei:  nullFloat(r.RetencaoLei),
		CodigoDebito: nullString(r.CodigoDebito),
		Matricula:    nullString(r.Matricula),
		Referencia:   nullString(r.Referencia),
		Vencimento:   ParseInvoiceDate(r.Vencimento),
		Emissao:      ParseInvoiceDate(r.Emissao),
		Apresentacao: ParseInvoiceDate(r.Apresentacao),
		ExtractedTS:  extractedAt,
	}
}

// ParseInvoiceDate parses a DD/MM/YYYY date. Missing or invalid dates are NULL.
func ParseInvoiceDate(s *string) bigquery.NullDate {
	if s == nil {
		return bigquery.NullDate{}
	}
	t, err := time.Parse(invoiceDateLayout, *s)
	if err != nil {
		return bigquery.NullDate{}
	}
	return bigquery.NullDate{Date: civil.DateOf(t), Valid: true}
}

func nullString(s *string) bigquery.NullString {
	if s == nil {
		return bigquery.NullString{}
	}
	return bigquery.NullString{StringVal: *s, Valid: true}
}

func nullFloat(f *float64) bigquery.NullFloat64 {
	if f == nil {
		return bigquery.NullFloat64{}
	}
	return bigquery.NullFloat64{Float64: *f, Valid: true}
}
