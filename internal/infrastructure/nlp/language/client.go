package language

import (
	"context"
	"strings"

	"github.com/kirillkom/document-sorter/internal/core/domain"
	"github.com/kirillkom/document-sorter/internal/infrastructure/httpjson"
	"github.com/kirillkom/document-sorter/internal/infrastructure/resilience"
)

const DefaultEndpoint = "https://language.googleapis.com"

// maxContentBytes keeps requests under the API's synchronous document limit.
const maxContentBytes = 900 * 1024

// Client calls the Cloud Natural Language REST API for entities and sentiment.
type Client struct {
	api *httpjson.Client
}

func New(endpoint, apiKey string, executor *resilience.Executor) *Client {
	if strings.TrimSpace(endpoint) == "" {
		endpoint = DefaultEndpoint
	}
	return &Client{
		api: httpjson.New("language", endpoint, executor).WithHeader("X-Goog-Api-Key", apiKey),
	}
}

func (c *Client) Analyze(ctx context.Context, text string) (domain.Analysis, error) {
	request := map[string]any{
		"document": map[string]string{
			"type":    "PLAIN_TEXT",
			"content": truncateUTF8(text, maxContentBytes),
		},
		"features": map[string]bool{
			"extractEntities":          true,
			"extractDocumentSentiment": true,
		},
		"encodingType": "UTF8",
	}

	var response struct {
		Entities []struct {
			Name string `json:"name"`
			Type string `json:"type"`
		} `json:"entities"`
		DocumentSentiment struct {
			Score     float64 `json:"score"`
			Magnitude float64 `json:"magnitude"`
		} `json:"documentSentiment"`
	}
	if err := c.api.PostJSON(ctx, "/v1/documents:annotateText", request, &response, "annotate_text"); err != nil {
		return domain.Analysis{}, err
	}

	analysis := domain.Analysis{
		Entities: make([]domain.Entity, 0, len(response.Entities)),
		Sentiment: domain.Sentiment{
			Score:     response.DocumentSentiment.Score,
			Magnitude: response.DocumentSentiment.Magnitude,
		},
	}
	for _, entity := range response.Entities {
		analysis.Entities = append(analysis.Entities, domain.Entity{Name: entity.Name, Type: entity.Type})
	}
	return analysis, nil
}

func truncateUTF8(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	cut := limit
	for cut > 0 && !isRuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }
