package httpadapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/kirillkom/document-sorter/internal/core/domain"
	"github.com/kirillkom/document-sorter/internal/core/ports"
	"github.com/kirillkom/document-sorter/internal/observability/metrics"
)

const (
	multipartMemory = 32 << 20

	batchIDHeader      = "X-Batch-Id"
	batchSummaryHeader = "X-Batch-Summary"
)

var uploadFields = []string{"files", "file"}

type Options struct {
	Service          string
	MaxUploadBytes   int64
	RateLimitRPS     float64
	RateLimitBurst   int
	MaxInFlight      int
	BackpressureWait time.Duration

	Logger  *slog.Logger
	Metrics *metrics.HTTPServerMetrics
	// Health returns per-operation circuit breaker states for /healthz.
	Health func() map[string]string
}

type Router struct {
	categorizer ports.Categorizer
	opts        Options
	logger      *slog.Logger
}

func NewRouter(categorizer ports.Categorizer, opts Options) *Router {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Service == "" {
		opts.Service = "document-sorter-api"
	}
	return &Router{
		categorizer: categorizer,
		opts:        opts,
		logger:      logger,
	}
}

func (rt *Router) Handler() http.Handler {
	categorize := backpressureMiddleware(
		rateLimitMiddleware(http.HandlerFunc(rt.categorize), rt.opts.RateLimitRPS, rt.opts.RateLimitBurst),
		rt.opts.MaxInFlight,
		rt.opts.BackpressureWait,
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/", rt.uploadForm)
	mux.HandleFunc("/healthz", rt.healthz)
	mux.Handle("/v1/categorize", categorize)
	if rt.opts.Metrics != nil {
		mux.Handle("/metrics", rt.opts.Metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.opts.Metrics != nil {
		handler = rt.opts.Metrics.Middleware(rt.opts.Service, handler)
	}
	return requestIDMiddleware(accessLogMiddleware(rt.logger, handler))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]any{"status": "ok"}
	if rt.opts.Health != nil {
		if states := rt.opts.Health(); len(states) > 0 {
			resp["breakers"] = states
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (rt *Router) uploadForm(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, uploadFormHTML)
}

func (rt *Router) categorize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	if rt.opts.MaxUploadBytes > 0 {
		if r.ContentLength > rt.opts.MaxUploadBytes {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{
				"error": fmt.Sprintf("upload exceeds %d bytes", rt.opts.MaxUploadBytes),
			})
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, rt.opts.MaxUploadBytes)
	}

	files, err := readUploadedFiles(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{
				"error": fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit),
			})
		case errors.Is(err, http.ErrNotMultipart), errors.Is(err, domain.ErrNoFiles):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": domain.ErrNoFiles.Error()})
		default:
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid multipart form: " + err.Error()})
		}
		return
	}

	batch, err := rt.categorizer.Categorize(r.Context(), files)
	if err != nil {
		status := mapErrorToHTTPStatus(err)
		if status >= http.StatusInternalServerError {
			rt.logger.Error("categorize_failed",
				"request_id", requestIDFromContext(r.Context()),
				"files", len(files),
				"error", err,
			)
		}
		writeJSON(w, status, map[string]string{"error": errorMessage(err)})
		return
	}

	summary, err := json.Marshal(batch.BucketCounts())
	if err != nil {
		summary = []byte("{}")
	}
	w.Header().Set(batchIDHeader, batch.ID)
	w.Header().Set(batchSummaryHeader, string(summary))

	if r.URL.Query().Get("format") == "json" {
		writeJSON(w, http.StatusOK, newBatchResponse(batch))
		return
	}

	w.Header().Set("Content-Type", domain.ArchiveMime)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", domain.ArchiveName))
	w.Header().Set("Content-Length", strconv.Itoa(len(batch.Archive)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(batch.Archive)
}

// readUploadedFiles collects the "files" parts, then the "file" parts, in form order.
func readUploadedFiles(r *http.Request) ([]domain.UploadedFile, error) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return nil, err
	}
	defer r.MultipartForm.RemoveAll()

	var out []domain.UploadedFile
	for _, field := range uploadFields {
		for _, header := range r.MultipartForm.File[field] {
			data, err := readPart(header)
			if err != nil {
				return nil, err
			}
			out = append(out, domain.UploadedFile{Name: header.Filename, Data: data})
		}
	}
	if len(out) == 0 {
		return nil, domain.ErrNoFiles
	}
	return out, nil
}

func readPart(header *multipart.FileHeader) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("open part %s: %w", header.Filename, err)
	}
	defer f.Close()
	return io.ReadAll(f)
}

type batchResponse struct {
	BatchID    string                `json:"batch_id"`
	StartedAt  time.Time             `json:"started_at"`
	DurationMS int64                 `json:"duration_ms"`
	Buckets    map[domain.Bucket]int `json:"buckets"`
	Reports    int                   `json:"reports"`
	Files      []domain.FileResult   `json:"files"`
}

func newBatchResponse(batch *domain.Batch) batchResponse {
	return batchResponse{
		BatchID:    batch.ID,
		StartedAt:  batch.StartedAt,
		DurationMS: batch.Duration.Milliseconds(),
		Buckets:    batch.BucketCounts(),
		Reports:    batch.ReportCount(),
		Files:      batch.Results,
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
