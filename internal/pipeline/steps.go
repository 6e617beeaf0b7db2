package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dvloznov/invoice-extractor/internal/extract"
	"github.com/dvloznov/invoice-extractor/internal/gmail"
	"github.com/dvloznov/invoice-extractor/internal/logger"
)

// ErrSkipAttachment tells the runner to drop the attachment without a record.
var ErrSkipAttachment = errors.New("attachment skipped")

// PipelineStep represents a single step in the attachment pipeline.
type PipelineStep interface {
	Execute(ctx context.Context, state *AttachmentState) error
}

// AttachmentState holds the shared state across all pipeline steps.
type AttachmentState struct {
	MessageID  string
	Attachment gmail.Attachment
	PDFBytes   []byte
	Text       string
	Record     *extract.Record
}

// Step 1: FetchAttachmentStep downloads and decodes the attachment bytes.
type FetchAttachmentStep struct {
	Mail MailService
}

func (s *FetchAttachmentStep) Execute(ctx context.Context, state *AttachmentState) error {
	data, err := s.Mail.FetchAttachment(ctx, state.MessageID, state.Attachment.AttachmentID)
	if err != nil {
		return fmt.Errorf("FetchAttachmentStep: %w", err)
	}
	state.PDFBytes = data
	return nil
}

// Step 2: ExtractTextStep converts the PDF into text. Blank documents are skipped.
type ExtractTextStep struct {
	Extractor TextExtractor
}

func (s *ExtractTextStep) Execute(ctx context.Context, state *AttachmentState) error {
	text, err := s.Extractor.Text(state.PDFBytes)
	if err != nil {
		return fmt.Errorf("ExtractTextStep: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return ErrSkipAttachment
	}
	state.Text = text
	return nil
}

// Step 3: DumpDebugTextStep writes the extracted text to a debug file.
// Write failures are logged and do not stop the attachment.
type DumpDebugTextStep struct {
	Writer DebugWriter
}

func (s *DumpDebugTextStep) Execute(ctx context.Context, state *AttachmentState) error {
	log := logger.FromContext(ctx)

	path, err := s.Writer.Dump(state.Text)
	if err != nil {
		log.Warn().
			Err(err).
			Str("filename", state.Attachment.Filename).
			Msg("Failed to write debug text")
		return nil
	}

	log.Debug().
		Str("filename", state.Attachment.Filename).
		Str("path", path).
		Msg("Debug text written")
	return nil
}

// Step 4: ExtractFieldsStep runs the field rules and tags the record with its filename.
type ExtractFieldsStep struct{}

func (s *ExtractFieldsStep) Execute(ctx context.Context, state *AttachmentState) error {
	rec := extract.Extract(state.Text).WithFilename(state.Attachment.Filename)
	state.Record = &rec
	return nil
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []PipelineStep
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps in the pipeline sequentially.
func (p *Pipeline) Execute(ctx context.Context, state *AttachmentState) error {
	for i, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d failed: %w", i+1, err)
		}
	}
	return nil
}

// NewAttachmentPipeline creates the standard attachment pipeline.
// The debug step is included only when debug is non-nil.
func NewAttachmentPipeline(mail MailService, extractor TextExtractor, debug DebugWriter) *Pipeline {
	steps := []PipelineStep{
		&FetchAttachmentStep{Mail: mail},
		&ExtractTextStep{Extractor: extractor},
	}
	if debug != nil {
		steps = append(steps, &DumpDebugTextStep{Writer: debug})
	}
	steps = append(steps, &ExtractFieldsStep{})
	return NewPipeline(steps...)
}
