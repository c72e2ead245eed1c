package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kirillkom/document-sorter/internal/core/domain"
)

type nlpFake struct {
	analysis domain.Analysis
	err      error
	texts    []string
}

func (f *nlpFake) Analyze(_ context.Context, text string) (domain.Analysis, error) {
	f.texts = append(f.texts, text)
	if f.err != nil {
		return domain.Analysis{}, f.err
	}
	return f.analysis, nil
}

func TestReportAnnotatorRendersAnalysis(t *testing.T) {
	nlp := &nlpFake{analysis: domain.Analysis{
		Entities: []domain.Entity{
			{Name: "ACME Corp", Type: "ORGANIZATION"},
			{Name: "Berlin", Type: "location"},
			{Name: "42", Type: ""},
		},
		Sentiment: domain.Sentiment{Score: 0.25, Magnitude: 1.5},
	}}
	annotator := NewReportAnnotator(nlp)

	report := annotator.Annotate(context.Background(), "bill.pdf", domain.BucketInvoice, "Invoice from ACME")
	if report.Failed {
		t.Fatalf("expected successful report, got %+v", report)
	}
	if report.Filename != "bill.pdf" {
		t.Fatalf("unexpected filename: %q", report.Filename)
	}
	if len(nlp.texts) != 1 || nlp.texts[0] != "Invoice from ACME" {
		t.Fatalf("unexpected analyzed texts: %+v", nlp.texts)
	}

	for _, want := range []string{
		"File: bill.pdf\n",
		"Category: invoice\n",
		"Sentiment score: 0.25\n",
		"Sentiment magnitude: 1.50\n",
		"- ACME Corp (ORGANIZATION)\n",
		"- Berlin (LOCATION)\n",
		"- 42 (UNKNOWN)\n",
	} {
		if !strings.Contains(report.Body, want) {
			t.Fatalf("report body missing %q:\n%s", want, report.Body)
		}
	}
}

func TestReportAnnotatorRendersNoEntities(t *testing.T) {
	annotator := NewReportAnnotator(&nlpFake{})

	report := annotator.Annotate(context.Background(), "a.png", domain.BucketOther, "text")
	if !strings.Contains(report.Body, "Entities:\n(none)\n") {
		t.Fatalf("expected empty entity marker, got:\n%s", report.Body)
	}
}

func TestReportAnnotatorRendersBackendFailure(t *testing.T) {
	annotator := NewReportAnnotator(&nlpFake{err: errors.New("quota exceeded")})

	report := annotator.Annotate(context.Background(), "id.jpg", domain.BucketIDCard, "passport")
	if !report.Failed {
		t.Fatalf("expected failed report")
	}
	if report.Error != "quota exceeded" {
		t.Fatalf("unexpected error: %q", report.Error)
	}
	if !strings.Contains(report.Body, "File: id.jpg\nCategory: id_card\n") {
		t.Fatalf("failed report must keep the header, got:\n%s", report.Body)
	}
	if !strings.Contains(report.Body, "Text analysis failed: quota exceeded") {
		t.Fatalf("failed report must carry the error, got:\n%s", report.Body)
	}
	if strings.Contains(report.Body, "Sentiment") {
		t.Fatalf("failed report must not render analysis, got:\n%s", report.Body)
	}
}

func TestReportAnnotatorWithoutBackendFails(t *testing.T) {
	report := NewReportAnnotator(nil).Annotate(context.Background(), "x.pdf", domain.BucketOther, "text")
	if !report.Failed {
		t.Fatalf("expected failed report without backend")
	}
}
