package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/kirillkom/document-sorter/internal/core/domain"
	"github.com/kirillkom/document-sorter/internal/core/ports"
)

type ReportAnnotator struct {
	nlp ports.NLPBackend
}

func NewReportAnnotator(nlp ports.NLPBackend) *ReportAnnotator {
	return &ReportAnnotator{nlp: nlp}
}

func (a *ReportAnnotator) Annotate(ctx context.Context, filename string, bucket domain.Bucket, text string) domain.Report {
	if a.nlp == nil {
		return renderFailedReport(filename, bucket, domain.ErrBackendUnavailable)
	}

	analysis, err := a.nlp.Analyze(ctx, text)
	if err != nil {
		return renderFailedReport(filename, bucket, err)
	}
	return renderReport(filename, bucket, analysis)
}

func renderReport(filename string, bucket domain.Bucket, analysis domain.Analysis) domain.Report {
	var b strings.Builder
	writeReportHeader(&b, filename, bucket)
	fmt.Fprintf(&b, "Sentiment score: %.2f\n", analysis.Sentiment.Score)
	fmt.Fprintf(&b, "Sentiment magnitude: %.2f\n", analysis.Sentiment.Magnitude)
	b.WriteString("\nEntities:\n")
	if len(analysis.Entities) == 0 {
		b.WriteString("(none)\n")
	}
	for _, entity := range analysis.Entities {
		fmt.Fprintf(&b, "- %s (%s)\n", entity.Name, entityType(entity.Type))
	}

	return domain.Report{
		Filename: filename,
		Body:     b.String(),
	}
}

func renderFailedReport(filename string, bucket domain.Bucket, cause error) domain.Report {
	var b strings.Builder
	writeReportHeader(&b, filename, bucket)
	fmt.Fprintf(&b, "\nText analysis failed: %v\n", cause)

	return domain.Report{
		Filename: filename,
		Body:     b.String(),
		Failed:   true,
		Error:    cause.Error(),
	}
}

func writeReportHeader(b *strings.Builder, filename string, bucket domain.Bucket) {
	fmt.Fprintf(b, "File: %s\n", filename)
	fmt.Fprintf(b, "Category: %s\n", bucket)
}

func entityType(t string) string {
	t = strings.TrimSpace(t)
	if t == "" {
		return "UNKNOWN"
	}
	return strings.ToUpper(t)
}
