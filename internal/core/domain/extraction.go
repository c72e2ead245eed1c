package domain

import "time"

type ExtractionStatus string

const (
	ExtractionNotAttempted ExtractionStatus = "not_attempted"
	ExtractionOK           ExtractionStatus = "ok"
	ExtractionFailed       ExtractionStatus = "failed"
)

// Extraction is the outcome of text extraction for one file. An OK extraction
// with empty Text means "no analyzable text", which is not a failure.
type Extraction struct {
	Status   ExtractionStatus `json:"status"`
	Kind     FileKind         `json:"kind,omitempty"`
	Text     string           `json:"-"`
	Method   string           `json:"method,omitempty"`
	Pages    int              `json:"pages,omitempty"`
	Warnings []string         `json:"warnings,omitempty"`
	Error    string           `json:"error,omitempty"`
	Duration time.Duration    `json:"duration_ns,omitempty"`
}

func (e Extraction) OK() bool { return e.Status == ExtractionOK }

func (e Extraction) HasText() bool { return e.OK() && e.Text != "" }

type Entity struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type Sentiment struct {
	Score     float64 `json:"score"`
	Magnitude float64 `json:"magnitude"`
}

// Analysis is what an NLP backend returns for a text.
type Analysis struct {
	Entities  []Entity  `json:"entities"`
	Sentiment Sentiment `json:"sentiment"`
}

// Report is the rendered text-analysis report for one file.
type Report struct {
	Filename string `json:"filename"`
	Body     string `json:"-"`
	Failed   bool   `json:"failed"`
	Error    string `json:"error,omitempty"`
}
