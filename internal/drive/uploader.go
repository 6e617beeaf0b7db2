// Package drive publishes reports into a Google Drive folder.
package drive

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/dvloznov/invoice-extractor/internal/logger"
	"github.com/dvloznov/invoice-extractor/internal/output"
	driveapi "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

const jsonMimeType = "application/json"

// Uploader is an output.Sink that creates the report file inside FolderID.
type Uploader struct {
	api      *driveapi.Service
	FolderID string
}

// NewUploader creates an Uploader using an authorized HTTP client.
func NewUploader(ctx context.Context, httpClient *http.Client, folderID string) (*Uploader, error) {
	api, err := driveapi.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("NewUploader: creating drive client: %w", err)
	}
	return NewUploaderWithClient(api, folderID), nil
}

// NewUploaderWithClient wraps an existing Drive client.
func NewUploaderWithClient(api *driveapi.Service, folderID string) *Uploader {
	return &Uploader{api: api, FolderID: folderID}
}

// Name implements output.Sink.
func (u *Uploader) Name() string { return "drive" }

// Publish implements output.Sink.
func (u *Uploader) Publish(ctx context.Context, report *output.Report) error {
	f, err := u.api.Files.Create(FileMetadata(report, u.FolderID)).
		Media(bytes.NewReader(report.JSON)).
		Fields("id", "name").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("Uploader.Publish: uploading %s to folder %s: %w", report.Filename, u.FolderID, err)
	}
	log := logger.FromContext(ctx)
	log.Debug().
		Str("file_id", f.Id).
		Str("folder_id", u.FolderID).
		Msg("Uploaded report to Drive")
	return nil
}

// FileMetadata describes the Drive file created for report.
func FileMetadata(report *output.Report, folderID string) *driveapi.File {
	return &driveapi.File{
		Name:        report.Filename,
		MimeType:    jsonMimeType,
		Parents:     []string{folderID},
		Description: fmt.Sprintf("Invoice extraction run %s (%d records)", report.RunID, len(report.Records)),
		AppProperties: map[string]string{
			"run_id": report.RunID,
		},
	}
}

var _ output.Sink = (*Uploader)(nil)
