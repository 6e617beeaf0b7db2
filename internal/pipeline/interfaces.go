package pipeline

import (
	"context"

	gmailapi "google.golang.org/api/gmail/v1"
)

// MailService provides the mailbox operations a run needs.
// *gmail.Service satisfies it; tests substitute mocks.
type MailService interface {
	// ListMessageIDs returns the ids of every message matching query within labelIDs.
	ListMessageIDs(ctx context.Context, query string, labelIDs []string) ([]string, error)

	// GetPayload returns the root part of a message's MIME tree.
	GetPayload(ctx context.Context, messageID string) (*gmailapi.MessagePart, error)

	// FetchAttachment returns the decoded bytes of one attachment.
	FetchAttachment(ctx context.Context, messageID, attachmentID string) ([]byte, error)
}

// TextExtractor converts PDF bytes into plain text.
type TextExtractor interface {
	Text(data []byte) (string, error)
}

// DebugWriter persists extracted text for troubleshooting and returns where it went.
type DebugWriter interface {
	Dump(text string) (string, error)
}
