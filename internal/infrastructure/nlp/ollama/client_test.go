package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestAnalyzeParsesModelJSON(t *testing.T) {
	var capturedPrompt, capturedFormat string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		capturedPrompt, _ = payload["prompt"].(string)
		capturedFormat, _ = payload["format"].(string)
		resp, _ := json.Marshal(map[string]string{
			"response": "Sure! {\"entities\":[{\"name\":\" ACME \",\"type\":\"organization\"},{\"name\":\"\",\"type\":\"X\"}],\"sentiment\":{\"score\":3,\"magnitude\":0.7}}",
		})
		_, _ = w.Write(resp)
	}))
	defer server.Close()

	analysis, err := New(server.URL, "llama3", nil).Analyze(context.Background(), "Invoice from ACME")
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if !strings.Contains(capturedPrompt, "Invoice from ACME") || capturedFormat != "json" {
		t.Fatalf("unexpected request prompt=%q format=%q", capturedPrompt, capturedFormat)
	}
	if len(analysis.Entities) != 1 || analysis.Entities[0].Name != "ACME" || analysis.Entities[0].Type != "ORGANIZATION" {
		t.Fatalf("unexpected entities: %+v", analysis.Entities)
	}
	if analysis.Sentiment.Score != 1 || analysis.Sentiment.Magnitude != 0.7 {
		t.Fatalf("unexpected sentiment: %+v", analysis.Sentiment)
	}
}

func TestAnalyzeIncludesHTTPBodyInError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	_, err := New(server.URL, "missing", nil).Analyze(context.Background(), "hello")
	if err == nil || !strings.Contains(err.Error(), "model not found") {
		t.Fatalf("expected response body in error, got %v", err)
	}
}

func TestAnalyzeRejectsNonJSONResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"response":"I cannot help with that"}`))
	}))
	defer server.Close()

	_, err := New(server.URL, "gen", nil).Analyze(context.Background(), "hello")
	if err == nil || !strings.Contains(err.Error(), "parse analysis json") {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestBuildAnalysisPromptKeepsRunesWhole(t *testing.T) {
	// One ASCII byte shifts every two-byte rune so the limit lands mid-rune.
	text := "a" + strings.Repeat("ж", maxPromptSnippet)

	prompt := buildAnalysisPrompt(text)
	if !utf8.ValidString(prompt) {
		t.Fatalf("prompt is not valid utf-8")
	}
	snippet := prompt[strings.LastIndex(prompt, "Text:\n")+len("Text:\n"):]
	if len(snippet) != maxPromptSnippet-1 || !strings.HasSuffix(snippet, "ж") {
		t.Fatalf("unexpected snippet length %d", len(snippet))
	}
}
