package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kirillkom/document-sorter/internal/core/domain"
)

func TestDetectDocumentTextSendsImageAsDataURI(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":" Passport No. X1 "}}]}`))
	}))
	defer server.Close()

	client := New("test-key", server.URL+"/v1", "", nil)
	text, err := client.DetectDocumentText(context.Background(), []byte("jpeg"), "image/jpeg")
	if err != nil {
		t.Fatalf("DetectDocumentText() error = %v", err)
	}
	if text != "Passport No. X1" {
		t.Fatalf("unexpected text %q", text)
	}
	if captured["model"] != DefaultModel {
		t.Fatalf("unexpected model: %v", captured["model"])
	}
	raw, _ := json.Marshal(captured["messages"])
	if !strings.Contains(string(raw), "data:image/jpeg;base64,") {
		t.Fatalf("expected data uri in request, got %s", raw)
	}
}

func TestDetectDocumentTextRejectsPDF(t *testing.T) {
	_, err := New("k", "http://unused", "", nil).DetectDocumentText(context.Background(), []byte("%PDF"), "application/pdf")
	if !domain.IsKind(err, domain.ErrUnsupportedInput) {
		t.Fatalf("expected ErrUnsupportedInput, got %v", err)
	}
}

func TestDetectDocumentTextMapsAuthFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	_, err := New("bad", server.URL+"/v1", "", nil).DetectDocumentText(context.Background(), []byte("png"), "image/png")
	if !domain.IsKind(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}
