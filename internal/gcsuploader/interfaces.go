package gcsuploader

import (
	"context"
	"path"

	"github.com/dvloznov/invoice-extractor/internal/output"
)

// DefaultPrefix is the object prefix reports are archived under.
const DefaultPrefix = "faturas"

// StorageService provides an interface for cloud storage operations.
// This interface enables mocking and testing of storage functionality.
type StorageService interface {
	// UploadBytes uploads data to a bucket under the given object name.
	UploadBytes(ctx context.Context, bucketName, objectName, contentType string, data []byte) error

	// FetchFromGCS downloads file bytes from the given storage URI.
	FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error)
}

// GCSStorageService is the concrete implementation of StorageService
// that interacts with Google Cloud Storage.
type GCSStorageService struct{}

// NewGCSStorageService creates a new instance of GCSStorageService.
func NewGCSStorageService() *GCSStorageService {
	return &GCSStorageService{}
}

// UploadBytes delegates to the package-level UploadBytes function.
func (s *GCSStorageService) UploadBytes(ctx context.Context, bucketName, objectName, contentType string, data []byte) error {
	return UploadBytes(ctx, bucketName, objectName, contentType, data)
}

// FetchFromGCS delegates to the package-level FetchFromGCS function.
func (s *GCSStorageService) FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error) {
	return FetchFromGCS(ctx, gcsURI)
}

// ReportSink archives reports as gs://Bucket/Prefix/<filename>.
type ReportSink struct {
	Storage StorageService
	Bucket  string
	Prefix  string
}

// NewReportSink creates a ReportSink backed by Cloud Storage.
func NewReportSink(bucket string) *ReportSink {
	return &ReportSink{
		Storage: NewGCSStorageService(),
		Bucket:  bucket,
		Prefix:  DefaultPrefix,
	}
}

// Name implements output.Sink.
func (s *ReportSink) Name() string { return "gcs" }

// ObjectName returns the object path a report is stored under.
func (s *ReportSink) ObjectName(report *output.Report) string {
	return path.Join(s.Prefix, report.Filename)
}

// Publish implements output.Sink.
func (s *ReportSink) Publish(ctx context.Context, report *output.Report) error {
	return s.Storage.UploadBytes(ctx, s.Bucket, s.ObjectName(report), "application/json", report.JSON)
}

var _ output.Sink = (*ReportSink)(nil)
