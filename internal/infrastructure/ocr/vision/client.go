package vision

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/kirillkom/document-sorter/internal/core/domain"
	"github.com/kirillkom/document-sorter/internal/infrastructure/httpjson"
	"github.com/kirillkom/document-sorter/internal/infrastructure/resilience"
)

const (
	DefaultEndpoint = "https://vision.googleapis.com"

	featureDocumentText = "DOCUMENT_TEXT_DETECTION"
	mimePDF             = "application/pdf"
)

// Client calls the Cloud Vision REST API for full-document text detection.
type Client struct {
	api *httpjson.Client
}

func New(endpoint, apiKey string, executor *resilience.Executor) *Client {
	if strings.TrimSpace(endpoint) == "" {
		endpoint = DefaultEndpoint
	}
	return &Client{
		api: httpjson.New("vision", endpoint, executor).WithHeader("X-Goog-Api-Key", apiKey),
	}
}

func (c *Client) DetectDocumentText(ctx context.Context, data []byte, mimeType string) (string, error) {
	if len(data) == 0 {
		return "", domain.WrapError(domain.ErrInvalidInput, "vision detect text", errors.New("empty content"))
	}
	if mimeType == mimePDF {
		return c.detectPDF(ctx, data)
	}
	return c.detectImage(ctx, data)
}

type feature struct {
	Type string `json:"type"`
}

type status struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type annotateImageResponse struct {
	FullTextAnnotation *struct {
		Text string `json:"text"`
	} `json:"fullTextAnnotation"`
	Error *status `json:"error"`
}

func (c *Client) detectImage(ctx context.Context, data []byte) (string, error) {
	request := map[string]any{
		"requests": []map[string]any{{
			"image":    map[string]string{"content": base64.StdEncoding.EncodeToString(data)},
			"features": []feature{{Type: featureDocumentText}},
		}},
	}

	var response struct {
		Responses []annotateImageResponse `json:"responses"`
	}
	if err := c.api.PostJSON(ctx, "/v1/images:annotate", request, &response, "images_annotate"); err != nil {
		return "", err
	}
	if len(response.Responses) == 0 {
		return "", nil
	}
	return responseText(response.Responses[0])
}

// detectPDF leaves "pages" unset; files:annotate then reads up to the first
// five pages of a document of any length.
func (c *Client) detectPDF(ctx context.Context, data []byte) (string, error) {
	request := map[string]any{
		"requests": []map[string]any{{
			"inputConfig": map[string]string{
				"content":  base64.StdEncoding.EncodeToString(data),
				"mimeType": mimePDF,
			},
			"features": []feature{{Type: featureDocumentText}},
		}},
	}

	var response struct {
		Responses []struct {
			Responses []annotateImageResponse `json:"responses"`
			Error     *status                 `json:"error"`
		} `json:"responses"`
	}
	if err := c.api.PostJSON(ctx, "/v1/files:annotate", request, &response, "files_annotate"); err != nil {
		return "", err
	}

	var parts []string
	for _, file := range response.Responses {
		if file.Error != nil && file.Error.Code != 0 {
			return "", recognitionError(file.Error)
		}
		for _, page := range file.Responses {
			text, err := responseText(page)
			if err != nil {
				return "", err
			}
			if text != "" {
				parts = append(parts, text)
			}
		}
	}
	return strings.Join(parts, "\n"), nil
}

func responseText(resp annotateImageResponse) (string, error) {
	if resp.Error != nil && resp.Error.Code != 0 {
		return "", recognitionError(resp.Error)
	}
	if resp.FullTextAnnotation == nil {
		return "", nil
	}
	return strings.TrimSpace(resp.FullTextAnnotation.Text), nil
}

func recognitionError(s *status) error {
	return domain.WrapError(
		domain.ErrRecognition,
		"vision detect text",
		fmt.Errorf("code %d: %s", s.Code, s.Message),
	)
}
