package httpadapter

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kirillkom/document-sorter/internal/core/domain"
	"github.com/kirillkom/document-sorter/internal/observability/metrics"
)

// categorizerFake sorts every file by extension and zips the manifest.
type categorizerFake struct {
	err   error
	calls int
	got   []domain.UploadedFile
}

func (f *categorizerFake) Categorize(_ context.Context, files []domain.UploadedFile) (*domain.Batch, error) {
	f.calls++
	f.got = files
	if f.err != nil {
		return nil, f.err
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	batch := &domain.Batch{ID: "batch-1"}
	for i, file := range files {
		bucket := domain.ExtensionBucket(file.Extension())
		w, err := zw.Create(domain.FilePath(bucket, file.Name))
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(file.Data); err != nil {
			return nil, err
		}
		batch.Results = append(batch.Results, domain.FileResult{
			Index:      i,
			Filename:   file.Name,
			Extension:  file.Extension(),
			Size:       len(file.Data),
			Bucket:     bucket,
			Extraction: domain.Extraction{Status: domain.ExtractionNotAttempted},
		})
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	batch.Archive = buf.Bytes()
	return batch, nil
}

type uploadPart struct {
	name string
	data string
}

func multipartBody(t *testing.T, field string, parts ...uploadPart) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for _, p := range parts {
		part, err := writer.CreateFormFile(field, p.name)
		if err != nil {
			t.Fatalf("CreateFormFile() error = %v", err)
		}
		if _, err := part.Write([]byte(p.data)); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	return &body, writer.FormDataContentType()
}

func postCategorize(t *testing.T, handler http.Handler, target string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	return res
}

func decodeError(t *testing.T, res *httptest.ResponseRecorder) string {
	t.Helper()
	var payload map[string]string
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return payload["error"]
}

func TestHealthzEndpoint(t *testing.T) {
	handler := NewRouter(&categorizerFake{}, Options{
		Health: func() map[string]string { return map[string]string{"vision.images_annotate": "closed"} },
	}).Handler()

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	var payload struct {
		Status   string            `json:"status"`
		Breakers map[string]string `json:"breakers"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		t.Fatalf("decode healthz: %v", err)
	}
	if payload.Status != "ok" || payload.Breakers["vision.images_annotate"] != "closed" {
		t.Fatalf("unexpected healthz payload: %+v", payload)
	}
}

func TestUploadFormServed(t *testing.T) {
	handler := NewRouter(&categorizerFake{}, Options{}).Handler()

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if !strings.HasPrefix(res.Header().Get("Content-Type"), "text/html") {
		t.Fatalf("unexpected content type %q", res.Header().Get("Content-Type"))
	}
	body := res.Body.String()
	if !strings.Contains(body, `name="files"`) || !strings.Contains(body, `action="/v1/categorize"`) {
		t.Fatalf("form is missing the files input or action: %s", body)
	}

	res = httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown path, got %d", res.Code)
	}
}

func TestCategorizeReturnsZip(t *testing.T) {
	fake := &categorizerFake{}
	handler := NewRouter(fake, Options{MaxUploadBytes: 1 << 20}).Handler()

	body, contentType := multipartBody(t, "files",
		uploadPart{name: "a.txt", data: "first"},
		uploadPart{name: "setup.msi", data: "msi"},
	)
	res := postCategorize(t, handler, "/v1/categorize", body, contentType)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if got := res.Header().Get("Content-Type"); got != "application/zip" {
		t.Fatalf("unexpected content type %q", got)
	}
	if got := res.Header().Get("Content-Disposition"); got != `attachment; filename="categorized_files.zip"` {
		t.Fatalf("unexpected content disposition %q", got)
	}
	if res.Header().Get(batchIDHeader) != "batch-1" {
		t.Fatalf("unexpected batch id %q", res.Header().Get(batchIDHeader))
	}
	var summary map[string]int
	if err := json.Unmarshal([]byte(res.Header().Get(batchSummaryHeader)), &summary); err != nil {
		t.Fatalf("decode summary header: %v", err)
	}
	if summary["txt"] != 1 || summary["msi"] != 1 {
		t.Fatalf("unexpected summary %v", summary)
	}

	zr, err := zip.NewReader(bytes.NewReader(res.Body.Bytes()), int64(res.Body.Len()))
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}
	if len(zr.File) != 2 || zr.File[0].Name != "txt/a.txt" || zr.File[1].Name != "msi/setup.msi" {
		t.Fatalf("unexpected zip entries: %d", len(zr.File))
	}
	if len(fake.got) != 2 || fake.got[0].Name != "a.txt" || string(fake.got[0].Data) != "first" {
		t.Fatalf("categorizer received unexpected files: %+v", fake.got)
	}
}

func TestCategorizeAcceptsSingleFileField(t *testing.T) {
	fake := &categorizerFake{}
	handler := NewRouter(fake, Options{}).Handler()

	body, contentType := multipartBody(t, "file", uploadPart{name: "scan.pdf", data: "%PDF"})
	res := postCategorize(t, handler, "/v1/categorize", body, contentType)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if len(fake.got) != 1 || fake.got[0].Name != "scan.pdf" {
		t.Fatalf("unexpected files: %+v", fake.got)
	}
}

func TestCategorizeJSONFormat(t *testing.T) {
	handler := NewRouter(&categorizerFake{}, Options{}).Handler()

	body, contentType := multipartBody(t, "files", uploadPart{name: "a.txt", data: "x"})
	res := postCategorize(t, handler, "/v1/categorize?format=json", body, contentType)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	var payload struct {
		BatchID string         `json:"batch_id"`
		Buckets map[string]int `json:"buckets"`
		Files   []struct {
			Filename string `json:"filename"`
			Bucket   string `json:"bucket"`
		} `json:"files"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		t.Fatalf("decode json response: %v", err)
	}
	if payload.BatchID != "batch-1" || payload.Buckets["txt"] != 1 {
		t.Fatalf("unexpected payload: %+v", payload)
	}
	if len(payload.Files) != 1 || payload.Files[0].Bucket != "txt" {
		t.Fatalf("unexpected files: %+v", payload.Files)
	}
}

func TestCategorizeWithoutFilesReturns400(t *testing.T) {
	fake := &categorizerFake{}
	handler := NewRouter(fake, Options{}).Handler()

	body, contentType := multipartBody(t, "other")
	res := postCategorize(t, handler, "/v1/categorize", body, contentType)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
	if msg := decodeError(t, res); msg != "no files uploaded" {
		t.Fatalf("unexpected error %q", msg)
	}
	if fake.calls != 0 {
		t.Fatalf("categorizer must not run without files")
	}

	res = postCategorize(t, handler, "/v1/categorize", strings.NewReader("plain-text"), "text/plain")
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-multipart body, got %d", res.Code)
	}
}

func TestCategorizeRejectsOtherMethods(t *testing.T) {
	handler := NewRouter(&categorizerFake{}, Options{}).Handler()

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/categorize", nil))
	if res.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", res.Code)
	}
	if res.Header().Get("Allow") != http.MethodPost {
		t.Fatalf("expected Allow header, got %q", res.Header().Get("Allow"))
	}
}

func TestCategorizeRejectsOversizedBody(t *testing.T) {
	fake := &categorizerFake{}
	handler := NewRouter(fake, Options{MaxUploadBytes: 64}).Handler()

	body, contentType := multipartBody(t, "files", uploadPart{name: "big.bin", data: strings.Repeat("x", 512)})
	res := postCategorize(t, handler, "/v1/categorize", body, contentType)
	if res.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", res.Code)
	}
	if fake.calls != 0 {
		t.Fatalf("categorizer must not run for oversized uploads")
	}
}

func TestCategorizeMapsDomainErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"invalid input", domain.WrapError(domain.ErrInvalidInput, "categorize", errors.New("too many files")), http.StatusBadRequest},
		{"no files", domain.WrapError(domain.ErrNoFiles, "categorize", errors.New("empty upload")), http.StatusBadRequest},
		{"unauthorized", domain.WrapError(domain.ErrUnauthorized, "vision", errors.New("403")), http.StatusUnauthorized},
		{"backend unavailable", domain.WrapError(domain.ErrBackendUnavailable, "categorize", errors.New("no extractor")), http.StatusServiceUnavailable},
		{"temporary", domain.WrapError(domain.ErrTemporary, "categorize", errors.New("retry")), http.StatusServiceUnavailable},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := NewRouter(&categorizerFake{err: tc.err}, Options{}).Handler()
			body, contentType := multipartBody(t, "files", uploadPart{name: "a.txt", data: "x"})
			res := postCategorize(t, handler, "/v1/categorize", body, contentType)
			if res.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, res.Code)
			}
			if decodeError(t, res) == "" {
				t.Fatalf("expected error message")
			}
		})
	}
}

func TestMetricsEndpointCountsRequests(t *testing.T) {
	m := metrics.NewHTTPServerMetrics("test")
	handler := NewRouter(&categorizerFake{}, Options{Service: "test", Metrics: m}).Handler()

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), `sorter_http_requests_total{method="GET",path="/healthz",service="test",status="200"} 1`) {
		t.Fatalf("expected healthz counter, got:\n%s", res.Body.String())
	}
}
