// Package pipeline drives a mailbox run: list matching messages, walk their
// PDF attachments and turn each one into an extracted record.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/invoice-extractor/internal/extract"
	"github.com/dvloznov/invoice-extractor/internal/gmail"
	"github.com/dvloznov/invoice-extractor/internal/logger"
)

// RunConfig selects the messages a run processes.
type RunConfig struct {
	Query    string
	LabelIDs []string
}

// Result summarizes a run.
type Result struct {
	MessagesFound      int
	AttachmentsSeen    int
	AttachmentsSkipped int
	Records            []extract.Record
}

// Runner processes messages and attachments strictly one at a time.
type Runner struct {
	Mail     MailService
	Pipeline *Pipeline
}

// NewRunner creates a Runner with the standard attachment pipeline.
func NewRunner(mail MailService, extractor TextExtractor, debug DebugWriter) *Runner {
	return &Runner{
		Mail:     mail,
		Pipeline: NewAttachmentPipeline(mail, extractor, debug),
	}
}

// Run lists the messages matching cfg and extracts one record per usable PDF
// attachment. Only a listing failure aborts the run.
func (r *Runner) Run(ctx context.Context, cfg RunConfig) (*Result, error) {
	log := logger.FromContext(ctx)

	ids, err := r.Mail.ListMessageIDs(ctx, cfg.Query, cfg.LabelIDs)
	if err != nil {
		return nil, fmt.Errorf("Run: listing messages: %w", err)
	}

	res := &Result{MessagesFound: len(ids)}
	log.Info().
		Str("query", cfg.Query).
		Int("messages", len(ids)).
		Msg("Messages listed")

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("Run: %w", err)
		}

		payload, err := r.Mail.GetPayload(ctx, id)
		if err != nil {
			log.Error().Err(err).Str("message_id", id).Msg("Failed to read message")
			continue
		}

		for _, att := range gmail.FindPDFAttachments(payload) {
			res.AttachmentsSeen++
			if rec, ok := r.processAttachment(ctx, id, att); ok {
				res.Records = append(res.Records, rec)
			} else {
				res.AttachmentsSkipped++
			}
		}
	}

	return res, nil
}

func (r *Runner) processAttachment(ctx context.Context, messageID string, att gmail.Attachment) (extract.Record, bool) {
	log := logger.WithFields(logger.FromContext(ctx), map[string]interface{}{
		"message_id": messageID,
		"filename":   att.Filename,
	})

	state := &AttachmentState{MessageID: messageID, Attachment: att}
	if err := r.Pipeline.Execute(ctx, state); err != nil {
		if errors.Is(err, ErrSkipAttachment) {
			log.Debug().Msg("Attachment has no text")
		} else {
			log.Error().Err(err).Msg("Failed to process attachment")
		}
		return extract.Record{}, false
	}
	if state.Record == nil {
		return extract.Record{}, false
	}

	log.Info().Msg("Attachment processed")
	return *state.Record, true
}
