// Package gmail lists invoice messages and downloads their PDF attachments
// through the Gmail API.
package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/dvloznov/invoice-extractor/internal/logger"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// DefaultUser is the Gmail shorthand for the authenticated account.
const DefaultUser = "me"

// Service wraps the Gmail API client for a single mailbox.
type Service struct {
	api  *gmailapi.Service
	user string
}

// NewService creates a Service using an already authorized HTTP client.
func NewService(ctx context.Context, httpClient *http.Client, user string) (*Service, error) {
	api, err := gmailapi.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("NewService: creating gmail client: %w", err)
	}
	return NewServiceWithClient(api, user), nil
}

// NewServiceWithClient wraps an existing Gmail API client.
func NewServiceWithClient(api *gmailapi.Service, user string) *Service {
	if user == "" {
		user = DefaultUser
	}
	return &Service{api: api, user: user}
}

// ListMessageIDs returns the ids of every message matching query, following
// result pages until exhausted.
func (s *Service) ListMessageIDs(ctx context.Context, query string, labelIDs []string) ([]string, error) {
	log := logger.FromContext(ctx)

	call := s.api.Users.Messages.List(s.user).Q(query)
	if len(labelIDs) > 0 {
		call = call.LabelIds(labelIDs...)
	}

	var ids []string
	err := call.Pages(ctx, func(resp *gmailapi.ListMessagesResponse) error {
		for _, m := range resp.Messages {
			ids = append(ids, m.Id)
		}
		log.Debug().
			Int("page_size", len(resp.Messages)).
			Bool("has_next", resp.NextPageToken != "").
			Msg("Listed message page")
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ListMessageIDs: listing messages: %w", err)
	}

	return ids, nil
}

// GetPayload fetches the full part tree of a message.
func (s *Service) GetPayload(ctx context.Context, messageID string) (*gmailapi.MessagePart, error) {
	msg, err := s.api.Users.Messages.Get(s.user, messageID).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("GetPayload: getting message %s: %w", messageID, err)
	}
	return msg.Payload, nil
}

// FetchAttachment downloads and decodes one attachment.
func (s *Service) FetchAttachment(ctx context.Context, messageID, attachmentID string) ([]byte, error) {
	body, err := s.api.Users.Messages.Attachments.Get(s.user, messageID, attachmentID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("FetchAttachment: getting attachment of message %s: %w", messageID, err)
	}

	data, err := DecodeData(body.Data)
	if err != nil {
		return nil, fmt.Errorf("FetchAttachment: message %s: %w", messageID, err)
	}
	return data, nil
}

// DecodeData decodes the URL-safe base64 payload Gmail returns. Both padded
// and unpadded forms are accepted.
func DecodeData(data string) ([]byte, error) {
	if strings.HasSuffix(data, "=") || len(data)%4 == 0 {
		if b, err := base64.URLEncoding.DecodeString(data); err == nil {
			return b, nil
		}
	}
	b, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(data, "="))
	if err != nil {
		return nil, fmt.Errorf("decoding attachment data: %w", err)
	}
	return b, nil
}
