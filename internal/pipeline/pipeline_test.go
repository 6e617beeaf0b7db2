package pipeline_test

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"

	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/dvloznov/invoice-extractor/internal/pipeline"
)

// MockMailService is a mock implementation of MailService for testing.
type MockMailService struct {
	ListMessageIDsFunc  func(ctx context.Context, query string, labelIDs []string) ([]string, error)
	GetPayloadFunc      func(ctx context.Context, messageID string) (*gmailapi.MessagePart, error)
	FetchAttachmentFunc func(ctx context.Context, messageID, attachmentID string) ([]byte, error)
}

func (m *MockMailService) ListMessageIDs(ctx context.Context, query string, labelIDs []string) ([]string, error) {
	if m.ListMessageIDsFunc != nil {
		return m.ListMessageIDsFunc(ctx, query, labelIDs)
	}
	return nil, nil
}

func (m *MockMailService) GetPayload(ctx context.Context, messageID string) (*gmailapi.MessagePart, error) {
	if m.GetPayloadFunc != nil {
		return m.GetPayloadFunc(ctx, messageID)
	}
	return &gmailapi.MessagePart{}, nil
}

func (m *MockMailService) FetchAttachment(ctx context.Context, messageID, attachmentID string) ([]byte, error) {
	if m.FetchAttachmentFunc != nil {
		return m.FetchAttachmentFunc(ctx, messageID, attachmentID)
	}
	return []byte("mock pdf data"), nil
}

// MockTextExtractor is a mock implementation of TextExtractor for testing.
type MockTextExtractor struct {
	TextFunc func(data []byte) (string, error)
}

func (m *MockTextExtractor) Text(data []byte) (string, error) {
	if m.TextFunc != nil {
		return m.TextFunc(data)
	}
	return string(data), nil
}

// MockDebugWriter records every dumped text.
type MockDebugWriter struct {
	DumpFunc func(text string) (string, error)
	Texts    []string
}

func (m *MockDebugWriter) Dump(text string) (string, error) {
	m.Texts = append(m.Texts, text)
	if m.DumpFunc != nil {
		return m.DumpFunc(text)
	}
	return "debug.txt", nil
}

const invoiceText = `GRUPAMENTO DE APOIO DO DISTRITO FEDERAL
TOTAL A PAGAR ******** R$ 1.234,56
VENCIMENTO 10/05/2024
MATRÍCULA 123 456
`

func pdfPart(filename, attachmentID string) *gmailapi.MessagePart {
	return &gmailapi.MessagePart{
		Filename: filename,
		MimeType: "application/pdf",
		Body:     &gmailapi.MessagePartBody{AttachmentId: attachmentID},
	}
}

// mailbox builds a MockMailService from message id → parts and attachment id → bytes.
func mailbox(messages map[string][]*gmailapi.MessagePart, attachments map[string]string) *MockMailService {
	return &MockMailService{
		ListMessageIDsFunc: func(ctx context.Context, query string, labelIDs []string) ([]string, error) {
			ids := make([]string, 0, len(messages))
			for id := range messages {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			return ids, nil
		},
		GetPayloadFunc: func(ctx context.Context, messageID string) (*gmailapi.MessagePart, error) {
			return &gmailapi.MessagePart{MimeType: "multipart/mixed", Parts: messages[messageID]}, nil
		},
		FetchAttachmentFunc: func(ctx context.Context, messageID, attachmentID string) ([]byte, error) {
			data, ok := attachments[attachmentID]
			if !ok {
				return nil, errors.New("attachment not found")
			}
			return []byte(data), nil
		},
	}
}

func filenames(t *testing.T, res *pipeline.Result) []string {
	t.Helper()
	var out []string
	for _, r := range res.Records {
		if r.Arquivo == nil {
			t.Fatalf("record without arquivo: %+v", r)
		}
		out = append(out, *r.Arquivo)
	}
	sort.Strings(out)
	return out
}

func TestRunner_Run(t *testing.T) {
	mail := mailbox(
		map[string][]*gmailapi.MessagePart{
			"m1": {pdfPart("fatura_maio.pdf", "a1"), pdfPart("Tutorial.pdf", "a2")},
			"m2": {pdfPart("FATURA_JUNHO.PDF", "a3")},
		},
		map[string]string{
			"a1": invoiceText,
			"a2": invoiceText,
			"a3": invoiceText,
		},
	)

	runner := pipeline.NewRunner(mail, &MockTextExtractor{}, nil)
	res, err := runner.Run(context.Background(), pipeline.RunConfig{Query: "q", LabelIDs: []string{"INBOX"}})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if res.MessagesFound != 2 {
		t.Errorf("MessagesFound = %d, want 2", res.MessagesFound)
	}
	if res.AttachmentsSeen != 2 || res.AttachmentsSkipped != 0 {
		t.Errorf("AttachmentsSeen = %d, AttachmentsSkipped = %d", res.AttachmentsSeen, res.AttachmentsSkipped)
	}

	got := filenames(t, res)
	want := []string{"FATURA_JUNHO.PDF", "fatura_maio.pdf"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("filenames = %v, want %v", got, want)
	}

	rec := res.Records[0]
	if rec.ValorLiquido == nil || *rec.ValorLiquido != 1234.56 {
		t.Errorf("ValorLiquido = %v, want 1234.56", rec.ValorLiquido)
	}
	if rec.Vencimento == nil || *rec.Vencimento != "10/05/2024" {
		t.Errorf("Vencimento = %v", rec.Vencimento)
	}
}

func TestRunner_Run_SkipsFailures(t *testing.T) {
	mail := mailbox(
		map[string][]*gmailapi.MessagePart{
			"m1": {
				pdfPart("broken.pdf", "bad"),
				pdfPart("blank.pdf", "blank"),
				pdfPart("missing.pdf", "gone"),
				pdfPart("ok.pdf", "good"),
			},
		},
		map[string]string{
			"bad":   "not a pdf",
			"blank": "  \n\t ",
			"good":  invoiceText,
		},
	)

	extractor := &MockTextExtractor{
		TextFunc: func(data []byte) (string, error) {
			if string(data) == "not a pdf" {
				return "", errors.New("malformed pdf")
			}
			return string(data), nil
		},
	}

	res, err := pipeline.NewRunner(mail, extractor, nil).Run(context.Background(), pipeline.RunConfig{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if res.AttachmentsSeen != 4 || res.AttachmentsSkipped != 3 {
		t.Errorf("AttachmentsSeen = %d, AttachmentsSkipped = %d, want 4 and 3", res.AttachmentsSeen, res.AttachmentsSkipped)
	}
	if got := filenames(t, res); len(got) != 1 || got[0] != "ok.pdf" {
		t.Errorf("filenames = %v, want [ok.pdf]", got)
	}
}

func TestRunner_Run_ListError(t *testing.T) {
	listErr := errors.New("quota exceeded")
	mail := &MockMailService{
		ListMessageIDsFunc: func(ctx context.Context, query string, labelIDs []string) ([]string, error) {
			return nil, listErr
		},
	}

	_, err := pipeline.NewRunner(mail, &MockTextExtractor{}, nil).Run(context.Background(), pipeline.RunConfig{})
	if !errors.Is(err, listErr) {
		t.Errorf("Run() error = %v, want wrapping %v", err, listErr)
	}
}

func TestRunner_Run_PayloadErrorSkipsMessage(t *testing.T) {
	mail := mailbox(
		map[string][]*gmailapi.MessagePart{
			"m1": {pdfPart("a.pdf", "a1")},
			"m2": {pdfPart("b.pdf", "b1")},
		},
		map[string]string{"a1": invoiceText, "b1": invoiceText},
	)
	getPayload := mail.GetPayloadFunc
	mail.GetPayloadFunc = func(ctx context.Context, messageID string) (*gmailapi.MessagePart, error) {
		if messageID == "m1" {
			return nil, errors.New("not found")
		}
		return getPayload(ctx, messageID)
	}

	res, err := pipeline.NewRunner(mail, &MockTextExtractor{}, nil).Run(context.Background(), pipeline.RunConfig{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := filenames(t, res); len(got) != 1 || got[0] != "b.pdf" {
		t.Errorf("filenames = %v, want [b.pdf]", got)
	}
}

func TestRunner_Run_NoMessages(t *testing.T) {
	res, err := pipeline.NewRunner(&MockMailService{}, &MockTextExtractor{}, nil).Run(context.Background(), pipeline.RunConfig{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.MessagesFound != 0 || len(res.Records) != 0 {
		t.Errorf("Result = %+v, want empty", res)
	}
}

func TestRunner_Run_DebugDump(t *testing.T) {
	mail := mailbox(
		map[string][]*gmailapi.MessagePart{
			"m1": {pdfPart("a.pdf", "a1"), pdfPart("blank.pdf", "b1")},
		},
		map[string]string{"a1": invoiceText, "b1": ""},
	)
	debug := &MockDebugWriter{}

	res, err := pipeline.NewRunner(mail, &MockTextExtractor{}, debug).Run(context.Background(), pipeline.RunConfig{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(res.Records) != 1 {
		t.Fatalf("len(Records) = %d, want 1", len(res.Records))
	}
	if len(debug.Texts) != 1 || debug.Texts[0] != invoiceText {
		t.Errorf("debug dumps = %q, want only the non-blank text", debug.Texts)
	}
}

func TestRunner_Run_DebugDumpFailureKeepsRecord(t *testing.T) {
	mail := mailbox(
		map[string][]*gmailapi.MessagePart{"m1": {pdfPart("a.pdf", "a1")}},
		map[string]string{"a1": invoiceText},
	)
	debug := &MockDebugWriter{
		DumpFunc: func(text string) (string, error) { return "", errors.New("disk full") },
	}

	res, err := pipeline.NewRunner(mail, &MockTextExtractor{}, debug).Run(context.Background(), pipeline.RunConfig{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(res.Records) != 1 {
		t.Errorf("len(Records) = %d, want 1", len(res.Records))
	}
}

func TestRunner_Run_Canceled(t *testing.T) {
	mail := mailbox(
		map[string][]*gmailapi.MessagePart{"m1": {pdfPart("a.pdf", "a1")}},
		map[string]string{"a1": invoiceText},
	)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := pipeline.NewRunner(mail, &MockTextExtractor{}, nil).Run(ctx, pipeline.RunConfig{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}

func TestPipeline_ExecuteStopsOnError(t *testing.T) {
	stepErr := errors.New("boom")
	var ran []int

	p := pipeline.NewPipeline(
		stepFunc(func(ctx context.Context, s *pipeline.AttachmentState) error { ran = append(ran, 1); return nil }),
		stepFunc(func(ctx context.Context, s *pipeline.AttachmentState) error { ran = append(ran, 2); return stepErr }),
		stepFunc(func(ctx context.Context, s *pipeline.AttachmentState) error { ran = append(ran, 3); return nil }),
	)

	err := p.Execute(context.Background(), &pipeline.AttachmentState{})
	if !errors.Is(err, stepErr) {
		t.Fatalf("Execute() error = %v, want wrapping %v", err, stepErr)
	}
	if len(ran) != 2 {
		t.Errorf("steps run = %v, want [1 2]", ran)
	}
}

type stepFunc func(ctx context.Context, s *pipeline.AttachmentState) error

func (f stepFunc) Execute(ctx context.Context, s *pipeline.AttachmentState) error { return f(ctx, s) }
