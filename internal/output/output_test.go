package output

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dvloznov/invoice-extractor/internal/extract"
)

func ptrFloat(f float64) *float64 { return &f }
func ptrString(s string) *string  { return &s }

// MockSink is a mock implementation of Sink for testing.
type MockSink struct {
	NameValue   string
	PublishFunc func(ctx context.Context, report *Report) error
	Calls       int
}

func (m *MockSink) Name() string { return m.NameValue }

func (m *MockSink) Publish(ctx context.Context, report *Report) error {
	m.Calls++
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, report)
	}
	return nil
}

func TestFilename(t *testing.T) {
	got := Filename(time.Date(2024, 5, 10, 23, 59, 0, 0, time.UTC))
	if got != "faturas_20240510.json" {
		t.Errorf("Filename() = %q, want faturas_20240510.json", got)
	}
}

func TestEncode_KeysAndNulls(t *testing.T) {
	records := []extract.Record{
		extract.Record{
			ValorLiquido: ptrFloat(1234.56),
			Vencimento:   ptrString("10/05/2024"),
		}.WithFilename("fatura_março.pdf"),
	}

	data, err := Encode(records)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	var decoded []map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(decoded) != 1 {
		t.Fatalf("expected 1 record, got %d", len(decoded))
	}

	wantKeys := []string{
		"valor_liquido", "retencao_lei", "codigo_debito", "matricula", "referencia",
		"vencimento", "emissao", "apresentacao", "arquivo",
	}
	if len(decoded[0]) != len(wantKeys) {
		t.Errorf("record has %d keys, want %d: %v", len(decoded[0]), len(wantKeys), decoded[0])
	}
	for _, k := range wantKeys {
		if _, ok := decoded[0][k]; !ok {
			t.Errorf("missing key %q", k)
		}
	}
	if decoded[0]["matricula"] != nil {
		t.Errorf("matricula = %v, want null", decoded[0]["matricula"])
	}
	if decoded[0]["valor_liquido"] != 1234.56 {
		t.Errorf("valor_liquido = %v, want 1234.56", decoded[0]["valor_liquido"])
	}

	if !strings.Contains(string(data), "fatura_março.pdf") {
		t.Errorf("expected non-ASCII filename to be written verbatim, got: %s", data)
	}
	if !strings.Contains(string(data), "\n  {") {
		t.Errorf("expected two-space indentation, got: %s", data)
	}
}

func TestEncode_Empty(t *testing.T) {
	data, err := Encode(nil)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if string(data) != "[]" {
		t.Errorf("Encode(nil) = %s, want []", data)
	}
}

func TestNewReport(t *testing.T) {
	now := time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC)
	report, err := NewReport([]extract.Record{{}}, now)
	if err != nil {
		t.Fatalf("NewReport() error = %v", err)
	}
	if report.RunID == "" {
		t.Error("expected a run id")
	}
	if report.Filename != "faturas_20240510.json" {
		t.Errorf("Filename = %q", report.Filename)
	}
	if len(report.JSON) == 0 {
		t.Error("expected encoded JSON")
	}
}

func TestFileSink_Publish(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	sink := NewFileSink(dir)
	report := &Report{Filename: "faturas_20240510.json", JSON: []byte(`[{"arquivo":"a.pdf"}]`)}

	if err := sink.Publish(context.Background(), report); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	got, err := os.ReadFile(filepath.Join(dir, "faturas_20240510.json"))
	if err != nil {
		t.Fatalf("reading report: %v", err)
	}
	if string(got) != string(report.JSON) {
		t.Errorf("file content = %s, want %s", got, report.JSON)
	}
}

func TestDebugDumper_Dump(t *testing.T) {
	dir := t.TempDir()
	d := NewDebugDumper(dir)
	d.Now = func() time.Time { return time.Date(2024, 5, 10, 14, 3, 9, 0, time.UTC) }

	path, err := d.Dump("VENCIMENTO 10/05/2024")
	if err != nil {
		t.Fatalf("Dump() error = %v", err)
	}
	if filepath.Base(path) != "debug_texto_20240510_140309.txt" {
		t.Errorf("path = %q", path)
	}
	got, _ := os.ReadFile(path)
	if string(got) != "VENCIMENTO 10/05/2024" {
		t.Errorf("dump content = %q", got)
	}
}

func TestPublish(t *testing.T) {
	report := &Report{RunID: "run-1"}

	t.Run("optional failures are counted, not returned", func(t *testing.T) {
		primary := &MockSink{NameValue: "file"}
		broken := &MockSink{NameValue: "drive", PublishFunc: func(ctx context.Context, r *Report) error {
			return errors.New("quota exceeded")
		}}
		healthy := &MockSink{NameValue: "gcs"}

		failed, err := Publish(context.Background(), report, primary, broken, healthy)
		if err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
		if failed != 1 {
			t.Errorf("failed = %d, want 1", failed)
		}
		if healthy.Calls != 1 {
			t.Error("expected sinks after a failing one to still run")
		}
	})

	t.Run("primary failure stops publishing", func(t *testing.T) {
		primary := &MockSink{NameValue: "file", PublishFunc: func(ctx context.Context, r *Report) error {
			return errors.New("disk full")
		}}
		optional := &MockSink{NameValue: "gcs"}

		if _, err := Publish(context.Background(), report, primary, optional); err == nil {
			t.Fatal("Publish() expected error, got nil")
		}
		if optional.Calls != 0 {
			t.Error("optional sink should not run after primary failure")
		}
	})
}
