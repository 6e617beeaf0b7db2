package output

import (
	"context"
	"fmt"

	"github.com/dvloznov/invoice-extractor/internal/logger"
)

// Publish sends report to the primary sink and then to every optional sink.
// A primary failure is returned; optional sink failures are only logged and
// counted.
func Publish(ctx context.Context, report *Report, primary Sink, optional ...Sink) (failed int, err error) {
	log := logger.FromContext(ctx)

	if err := primary.Publish(ctx, report); err != nil {
		return 0, fmt.Errorf("Publish: %s sink: %w", primary.Name(), err)
	}

	for _, s := range optional {
		if err := s.Publish(ctx, report); err != nil {
			failed++
			log.Error().
				Err(err).
				Str("sink", s.Name()).
				Str("run_id", report.RunID).
				Msg("Optional sink failed")
			continue
		}
		log.Info().Str("sink", s.Name()).Str("run_id", report.RunID).Msg("Report published")
	}

	return failed, nil
}
