// Package output encodes extracted invoice records and publishes the report
// to one or more sinks.
package output

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dvloznov/invoice-extractor/internal/extract"
	"github.com/google/uuid"
)

// Report is the result of one run, ready to publish.
type Report struct {
	RunID       string
	GeneratedAt time.Time
	Filename    string
	Records     []extract.Record
	JSON        []byte
}

// Sink publishes a report somewhere.
type Sink interface {
	Name() string
	Publish(ctx context.Context, report *Report) error
}

// Filename returns the dated report name, e.g. "faturas_20240510.json".
func Filename(now time.Time) string {
	return fmt.Sprintf("faturas_%s.json", now.Format("20060102"))
}

// NewReport encodes records and stamps the report with a fresh run id.
func NewReport(records []extract.Record, now time.Time) (*Report, error) {
	data, err := Encode(records)
	if err != nil {
		return nil, err
	}
	return &Report{
		RunID:       uuid.NewString(),
		GeneratedAt: now,
		Filename:    Filename(now),
		Records:     records,
		JSON:        data,
	}, nil
}

// Encode renders records as an indented JSON array. Non-ASCII text is
// written as-is and nil fields become null.
func Encode(records []extract.Record) ([]byte, error) {
	if records == nil {
		records = []extract.Record{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return nil, fmt.Errorf("Encode: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
