package gmail

import (
	"strings"

	gmailapi "google.golang.org/api/gmail/v1"
)

// PDFMimeType is the MIME type Gmail reports for PDF attachments.
const PDFMimeType = "application/pdf"

// Attachment references a PDF attachment inside a message. The bytes are
// fetched separately with Service.FetchAttachment.
type Attachment struct {
	Filename     string
	AttachmentID string
	MimeType     string
}

// IsInvoicePDF reports whether an attachment should be processed: a PDF by
// extension or MIME type whose name does not mention "tutorial".
func IsInvoicePDF(filename, mimeType string) bool {
	if filename == "" {
		return false
	}
	lower := strings.ToLower(filename)
	if strings.Contains(lower, "tutorial") {
		return false
	}
	return strings.HasSuffix(lower, ".pdf") || mimeType == PDFMimeType
}

// FindPDFAttachments walks the parts below payload and returns the invoice
// PDFs in walk order. Nested parts are listed before their parent.
func FindPDFAttachments(payload *gmailapi.MessagePart) []Attachment {
	if payload == nil {
		return nil
	}
	var out []Attachment
	for _, part := range payload.Parts {
		out = collect(part, out)
	}
	return out
}

func collect(part *gmailapi.MessagePart, out []Attachment) []Attachment {
	if part == nil {
		return out
	}
	for _, child := range part.Parts {
		out = collect(child, out)
	}

	if part.Body == nil || part.Body.AttachmentId == "" {
		return out
	}
	if !IsInvoicePDF(part.Filename, part.MimeType) {
		return out
	}
	return append(out, Attachment{
		Filename:     part.Filename,
		AttachmentID: part.Body.AttachmentId,
		MimeType:     part.MimeType,
	})
}
