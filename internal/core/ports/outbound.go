package ports

import (
	"context"

	"github.com/kirillkom/document-sorter/internal/core/domain"
)

// TextExtractor produces best-effort text for a PDF or image. A returned error
// is an extraction failure for that file only.
type TextExtractor interface {
	Extract(ctx context.Context, data []byte, kind domain.FileKind, ext string) (domain.Extraction, error)
}

// OCRBackend is the external full-document text detection service.
type OCRBackend interface {
	DetectDocumentText(ctx context.Context, data []byte, mimeType string) (string, error)
}

// NLPBackend is the external entity and sentiment analysis service.
type NLPBackend interface {
	Analyze(ctx context.Context, text string) (domain.Analysis, error)
}

// Classifier maps extracted text to a bucket. It never fails.
type Classifier interface {
	Classify(text string) domain.Bucket
}

// Annotator renders the analysis report for a file with non-empty text.
// Backend failures are rendered into the report, never returned.
type Annotator interface {
	Annotate(ctx context.Context, filename string, bucket domain.Bucket, text string) domain.Report
}

// ArchiveAssembler packs a manifest into compressed archive bytes.
type ArchiveAssembler interface {
	Assemble(manifest *domain.Manifest) ([]byte, error)
}

// SummaryWriter renders a per-batch summary document.
type SummaryWriter interface {
	WriteSummary(results []domain.FileResult) ([]byte, error)
}

// BatchRecorder persists the categorization outcome of a batch (no file contents).
type BatchRecorder interface {
	RecordBatch(ctx context.Context, batch *domain.Batch) error
}

// EventPublisher announces a finished batch.
type EventPublisher interface {
	PublishBatchCategorized(ctx context.Context, batch *domain.Batch) error
}

// FileSource lists and reads input files for the CLI.
type FileSource interface {
	ReadAll(ctx context.Context) ([]domain.UploadedFile, error)
}
