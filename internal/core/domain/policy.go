package domain

import "time"

// SortPolicy tunes how a batch is processed and where edge cases land.
type SortPolicy struct {
	Workers     int
	FileTimeout time.Duration
	MaxFiles    int
	// SplitUnclassified sends unmatched PDFs to pdf_other instead of other.
	SplitUnclassified bool
	// UnifyExtractionErrors sends every extraction failure to extraction_error.
	UnifyExtractionErrors bool
	SummaryXLSX           bool
}
