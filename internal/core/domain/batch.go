package domain

import (
	"sort"
	"time"
)

// FileResult is the per-file outcome of one categorization request.
type FileResult struct {
	Index      int        `json:"index"`
	Filename   string     `json:"filename"`
	Extension  string     `json:"extension"`
	Size       int        `json:"size"`
	Bucket     Bucket     `json:"bucket"`
	Extraction Extraction `json:"extraction"`
	Report     *Report    `json:"report,omitempty"`
}

// Batch is everything produced for one request.
type Batch struct {
	ID        string        `json:"id"`
	Results   []FileResult  `json:"results"`
	Archive   []byte        `json:"-"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ns"`
}

// BucketCounts returns the number of files per bucket.
func (b *Batch) BucketCounts() map[Bucket]int {
	out := make(map[Bucket]int)
	for _, r := range b.Results {
		out[r.Bucket]++
	}
	return out
}

// Buckets returns the distinct buckets of the batch in sorted order.
func (b *Batch) Buckets() []Bucket {
	counts := b.BucketCounts()
	out := make([]Bucket, 0, len(counts))
	for bucket := range counts {
		out = append(out, bucket)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (b *Batch) ReportCount() int {
	n := 0
	for _, r := range b.Results {
		if r.Report != nil {
			n++
		}
	}
	return n
}
