package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/document-sorter/internal/core/domain"
	"github.com/kirillkom/document-sorter/internal/core/ports"
)

type CategorizeUseCase struct {
	extractor  ports.TextExtractor
	classifier ports.Classifier
	annotator  ports.Annotator
	assembler  ports.ArchiveAssembler
	summary    ports.SummaryWriter
	recorder   ports.BatchRecorder
	publisher  ports.EventPublisher
	policy     domain.SortPolicy
	logger     *slog.Logger
}

// NewCategorizeUseCase wires the batch pipeline. annotator, summary, recorder
// and publisher are optional and may be nil.
func NewCategorizeUseCase(
	extractor ports.TextExtractor,
	classifier ports.Classifier,
	annotator ports.Annotator,
	assembler ports.ArchiveAssembler,
	summary ports.SummaryWriter,
	recorder ports.BatchRecorder,
	publisher ports.EventPublisher,
	policy domain.SortPolicy,
	logger *slog.Logger,
) *CategorizeUseCase {
	if policy.Workers <= 0 {
		policy.Workers = 4
	}
	if policy.FileTimeout < 0 {
		policy.FileTimeout = 0
	}
	if classifier == nil {
		classifier = NewKeywordClassifier()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &CategorizeUseCase{
		extractor:  extractor,
		classifier: classifier,
		annotator:  annotator,
		assembler:  assembler,
		summary:    summary,
		recorder:   recorder,
		publisher:  publisher,
		policy:     policy,
		logger:     logger,
	}
}

func (uc *CategorizeUseCase) Categorize(ctx context.Context, files []domain.UploadedFile) (*domain.Batch, error) {
	if len(files) == 0 {
		return nil, domain.WrapError(domain.ErrNoFiles, "categorize", errors.New("empty upload"))
	}
	if uc.policy.MaxFiles > 0 && len(files) > uc.policy.MaxFiles {
		return nil, domain.WrapError(
			domain.ErrInvalidInput,
			"categorize",
			fmt.Errorf("too many files: %d > %d", len(files), uc.policy.MaxFiles),
		)
	}
	if uc.extractor == nil || uc.assembler == nil {
		return nil, domain.WrapError(domain.ErrBackendUnavailable, "categorize", errors.New("pipeline is not configured"))
	}

	batch := &domain.Batch{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}

	results, err := uc.processAll(ctx, batch.ID, files)
	if err != nil {
		return nil, err
	}
	batch.Results = results

	archive, err := uc.assemble(files, results)
	if err != nil {
		return nil, err
	}
	batch.Archive = archive
	batch.Duration = time.Since(batch.StartedAt)

	uc.recordBatch(ctx, batch)
	uc.publishBatch(ctx, batch)

	uc.logger.Info("batch_categorized",
		"batch_id", batch.ID,
		"files", len(batch.Results),
		"reports", batch.ReportCount(),
		"buckets", len(batch.Buckets()),
		"archive_bytes", len(batch.Archive),
		"duration_ms", batch.Duration.Milliseconds(),
	)
	return batch, nil
}

// processAll runs the per-file pipeline on a bounded worker pool. Results are
// stored by upload index so later stages see upload order.
func (uc *CategorizeUseCase) processAll(ctx context.Context, batchID string, files []domain.UploadedFile) ([]domain.FileResult, error) {
	results := make([]domain.FileResult, len(files))

	var g errgroup.Group
	g.SetLimit(uc.policy.Workers)
	for i, file := range files {
		g.Go(func() error {
			results[i] = uc.processFile(ctx, batchID, i, file)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("categorize batch %s: %w", batchID, err)
	}
	return results, nil
}

func (uc *CategorizeUseCase) processFile(ctx context.Context, batchID string, index int, file domain.UploadedFile) domain.FileResult {
	ext := file.Extension()
	result := domain.FileResult{
		Index:      index,
		Filename:   file.Name,
		Extension:  ext,
		Size:       len(file.Data),
		Extraction: domain.Extraction{Status: domain.ExtractionNotAttempted},
	}

	fileCtx, cancel := uc.fileContext(ctx)
	defer cancel()

	switch {
	case ext == "pdf":
		uc.extractAndClassify(fileCtx, &result, file.Data, domain.KindPDF)
	case domain.IsImageExt(ext):
		uc.extractAndClassify(fileCtx, &result, file.Data, domain.KindImage)
	case domain.IsExecutableExt(ext):
		result.Bucket = domain.BucketExecutable
	case ext == "zip":
		result.Bucket = domain.BucketArchive
	default:
		result.Bucket = domain.ExtensionBucket(ext)
	}

	if result.Extraction.HasText() && uc.annotator != nil {
		report := uc.annotator.Annotate(fileCtx, file.Name, result.Bucket, result.Extraction.Text)
		result.Report = &report
	}

	uc.logFile(batchID, result)
	return result
}

func (uc *CategorizeUseCase) extractAndClassify(ctx context.Context, result *domain.FileResult, data []byte, kind domain.FileKind) {
	extraction := uc.extract(ctx, data, kind, result.Extension)
	result.Extraction = extraction
	if !extraction.OK() {
		result.Bucket = uc.failureBucket(kind)
		return
	}
	result.Bucket = uc.classify(extraction.Text, kind)
}

func (uc *CategorizeUseCase) extract(ctx context.Context, data []byte, kind domain.FileKind, ext string) domain.Extraction {
	started := time.Now()
	extraction, err := uc.extractor.Extract(ctx, data, kind, ext)
	if err == nil {
		// A deadline hit after the extractor returned still counts as a timeout.
		err = ctx.Err()
	}
	if err != nil {
		extraction = domain.Extraction{
			Status:   domain.ExtractionFailed,
			Kind:     kind,
			Method:   extraction.Method,
			Pages:    extraction.Pages,
			Warnings: extraction.Warnings,
			Error:    err.Error(),
		}
	}
	extraction.Kind = kind
	if extraction.Status == "" {
		extraction.Status = domain.ExtractionOK
	}
	if extraction.Duration == 0 {
		extraction.Duration = time.Since(started)
	}
	return extraction
}

func (uc *CategorizeUseCase) classify(text string, kind domain.FileKind) domain.Bucket {
	bucket := uc.classifier.Classify(text)
	if kind == domain.KindPDF && uc.policy.SplitUnclassified && bucket == domain.BucketOther {
		return domain.BucketPDFOther
	}
	return bucket
}

func (uc *CategorizeUseCase) failureBucket(kind domain.FileKind) domain.Bucket {
	if uc.policy.UnifyExtractionErrors {
		return domain.BucketExtractionError
	}
	if kind == domain.KindPDF {
		return domain.BucketPDFError
	}
	return domain.BucketOther
}

func (uc *CategorizeUseCase) fileContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if uc.policy.FileTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, uc.policy.FileTimeout)
}

func (uc *CategorizeUseCase) assemble(files []domain.UploadedFile, results []domain.FileResult) ([]byte, error) {
	manifest := domain.NewManifest()
	for i, result := range results {
		manifest.Put(domain.FilePath(result.Bucket, result.Filename), files[i].Data)
	}
	for _, result := range results {
		if result.Report != nil {
			manifest.Put(domain.ReportPath(result.Filename), []byte(result.Report.Body))
		}
	}

	if uc.policy.SummaryXLSX && uc.summary != nil {
		summary, err := uc.summary.WriteSummary(results)
		if err != nil {
			uc.logger.Warn("summary_failed", "error", err.Error())
		} else {
			manifest.Put(domain.SummaryEntry, summary)
		}
	}

	archive, err := uc.assembler.Assemble(manifest)
	if err != nil {
		return nil, fmt.Errorf("assemble archive: %w", err)
	}
	return archive, nil
}

func (uc *CategorizeUseCase) recordBatch(ctx context.Context, batch *domain.Batch) {
	if uc.recorder == nil {
		return
	}
	if err := uc.recorder.RecordBatch(ctx, batch); err != nil {
		uc.logger.Warn("batch_record_failed", "batch_id", batch.ID, "error", err.Error())
	}
}

func (uc *CategorizeUseCase) publishBatch(ctx context.Context, batch *domain.Batch) {
	if uc.publisher == nil {
		return
	}
	if err := uc.publisher.PublishBatchCategorized(ctx, batch); err != nil {
		uc.logger.Warn("batch_publish_failed", "batch_id", batch.ID, "error", err.Error())
	}
}

func (uc *CategorizeUseCase) logFile(batchID string, result domain.FileResult) {
	attrs := []any{
		"batch_id", batchID,
		"index", result.Index,
		"filename", result.Filename,
		"bucket", string(result.Bucket),
		"extraction", string(result.Extraction.Status),
		"report", result.Report != nil,
	}
	if result.Extraction.Method != "" {
		attrs = append(attrs, "method", result.Extraction.Method)
	}
	if result.Extraction.Error != "" {
		attrs = append(attrs, "extraction_error", result.Extraction.Error)
	}
	if result.Report != nil && result.Report.Failed {
		attrs = append(attrs, "report_error", result.Report.Error)
	}
	uc.logger.Info("file_categorized", attrs...)
}
