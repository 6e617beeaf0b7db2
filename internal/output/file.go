package output

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dvloznov/invoice-extractor/internal/logger"
)

// FileSink writes the report into a local directory.
type FileSink struct {
	Dir string
}

// NewFileSink creates a FileSink; an empty dir means the working directory.
func NewFileSink(dir string) *FileSink {
	if dir == "" {
		dir = "."
	}
	return &FileSink{Dir: dir}
}

// Name implements Sink.
func (s *FileSink) Name() string { return "file" }

// Path returns where the report will be written.
func (s *FileSink) Path(report *Report) string {
	return filepath.Join(s.Dir, report.Filename)
}

// Publish implements Sink.
func (s *FileSink) Publish(ctx context.Context, report *Report) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("FileSink.Publish: creating %s: %w", s.Dir, err)
	}

	path := s.Path(report)
	if err := os.WriteFile(path, report.JSON, 0o600); err != nil {
		return fmt.Errorf("FileSink.Publish: writing %s: %w", path, err)
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("path", path).
		Int("records", len(report.Records)).
		Msg("Report written")
	return nil
}

// DebugDumper saves the raw text of each processed PDF for tuning patterns.
type DebugDumper struct {
	Dir string
	Now func() time.Time
}

// NewDebugDumper creates a DebugDumper writing into dir.
func NewDebugDumper(dir string) *DebugDumper {
	if dir == "" {
		dir = "."
	}
	return &DebugDumper{Dir: dir, Now: time.Now}
}

// Dump writes text to debug_texto_YYYYMMDD_HHMMSS.txt and returns the path.
// Dumps made within the same second overwrite each other.
func (d *DebugDumper) Dump(text string) (string, error) {
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return "", fmt.Errorf("DebugDumper.Dump: creating %s: %w", d.Dir, err)
	}
	name := fmt.Sprintf("debug_texto_%s.txt", d.Now().Format("20060102_150405"))
	path := filepath.Join(d.Dir, name)
	if err := os.WriteFile(path, []byte(text), 0o600); err != nil {
		return "", fmt.Errorf("DebugDumper.Dump: writing %s: %w", path, err)
	}
	return path, nil
}
