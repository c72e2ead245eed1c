package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kirillkom/document-sorter/internal/core/domain"
	"github.com/kirillkom/document-sorter/internal/infrastructure/httpjson"
	"github.com/kirillkom/document-sorter/internal/infrastructure/resilience"
)

// Client runs entity and sentiment analysis through a local Ollama model.
type Client struct {
	api      *httpjson.Client
	genModel string
}

func New(baseURL, genModel string, executor *resilience.Executor) *Client {
	return &Client{
		api:      httpjson.New("ollama", baseURL, executor),
		genModel: genModel,
	}
}

type analysisPayload struct {
	Entities []struct {
		Name string `json:"name"`
		Type string `json:"type"`
	} `json:"entities"`
	Sentiment struct {
		Score     float64 `json:"score"`
		Magnitude float64 `json:"magnitude"`
	} `json:"sentiment"`
}

func (c *Client) Analyze(ctx context.Context, text string) (domain.Analysis, error) {
	respText, err := c.generateJSON(ctx, buildAnalysisPrompt(text))
	if err != nil {
		return domain.Analysis{}, err
	}

	var payload analysisPayload
	if err := json.Unmarshal([]byte(extractJSONObject(respText)), &payload); err != nil {
		return domain.Analysis{}, fmt.Errorf("parse analysis json: %w", err)
	}

	analysis := domain.Analysis{
		Entities: make([]domain.Entity, 0, len(payload.Entities)),
		Sentiment: domain.Sentiment{
			Score:     clamp(payload.Sentiment.Score, -1, 1),
			Magnitude: max(payload.Sentiment.Magnitude, 0),
		},
	}
	for _, entity := range payload.Entities {
		name := strings.TrimSpace(entity.Name)
		if name == "" {
			continue
		}
		analysis.Entities = append(analysis.Entities, domain.Entity{
			Name: name,
			Type: strings.ToUpper(strings.TrimSpace(entity.Type)),
		})
	}
	return analysis, nil
}

func (c *Client) generateJSON(ctx context.Context, prompt string) (string, error) {
	reqBody := map[string]any{
		"model":  c.genModel,
		"prompt": prompt,
		"stream": false,
		"format": "json",
	}

	var response struct {
		Response string `json:"response"`
	}
	if err := c.api.PostJSON(ctx, "/api/generate", reqBody, &response, "generate"); err != nil {
		return "", err
	}
	return strings.TrimSpace(response.Response), nil
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}

func clamp(v, lo, hi float64) float64 {
	return min(max(v, lo), hi)
}
