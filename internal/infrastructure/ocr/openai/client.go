package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	openaisdk "github.com/sashabaranov/go-openai"

	"github.com/kirillkom/document-sorter/internal/core/domain"
	"github.com/kirillkom/document-sorter/internal/infrastructure/httpjson"
	"github.com/kirillkom/document-sorter/internal/infrastructure/resilience"
)

const (
	DefaultModel = "gpt-4o-mini"

	transcribePrompt = "Transcribe all text visible in this document image exactly as written. " +
		"Return plain text only. If there is no readable text, return an empty response."
)

// Client performs OCR through a vision-capable chat completion model.
type Client struct {
	api      *openaisdk.Client
	model    string
	executor *resilience.Executor
}

func New(apiKey, baseURL, model string, executor *resilience.Executor) *Client {
	cfg := openaisdk.DefaultConfig(apiKey)
	if strings.TrimSpace(baseURL) != "" {
		cfg.BaseURL = baseURL
	}
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	return &Client{
		api:      openaisdk.NewClientWithConfig(cfg),
		model:    model,
		executor: executor,
	}
}

func (c *Client) DetectDocumentText(ctx context.Context, data []byte, mimeType string) (string, error) {
	if len(data) == 0 {
		return "", domain.WrapError(domain.ErrInvalidInput, "openai detect text", errors.New("empty content"))
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return "", domain.WrapError(domain.ErrUnsupportedInput, "openai detect text", fmt.Errorf("mime type %q", mimeType))
	}

	req := openaisdk.ChatCompletionRequest{
		Model:       c.model,
		Temperature: 0,
		Messages: []openaisdk.ChatCompletionMessage{{
			Role: openaisdk.ChatMessageRoleUser,
			MultiContent: []openaisdk.ChatMessagePart{
				{Type: openaisdk.ChatMessagePartTypeText, Text: transcribePrompt},
				{
					Type: openaisdk.ChatMessagePartTypeImageURL,
					ImageURL: &openaisdk.ChatMessageImageURL{
						URL:    dataURI(mimeType, data),
						Detail: openaisdk.ImageURLDetailHigh,
					},
				},
			},
		}},
	}

	var text string
	call := func(ctx context.Context) error {
		resp, err := c.api.CreateChatCompletion(ctx, req)
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return domain.WrapError(domain.ErrRecognition, "openai detect text", errors.New("no choices in response"))
		}
		text = strings.TrimSpace(resp.Choices[0].Message.Content)
		return nil
	}

	var err error
	if c.executor == nil {
		err = call(ctx)
	} else {
		err = c.executor.Execute(ctx, "openai.chat_completion", call, classifyError)
	}
	if err != nil {
		return "", wrapError(err)
	}
	return text, nil
}

func dataURI(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// statusError lifts SDK errors into the shared status error so retry and
// auth classification match the REST backends.
func statusError(err error) error {
	var apiErr *openaisdk.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return &httpjson.HTTPStatusError{
			Service:    "openai",
			Operation:  "chat_completion",
			StatusCode: apiErr.HTTPStatusCode,
			Status:     fmt.Sprintf("%d", apiErr.HTTPStatusCode),
			Body:       apiErr.Message,
		}
	}
	var reqErr *openaisdk.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return &httpjson.HTTPStatusError{
			Service:    "openai",
			Operation:  "chat_completion",
			StatusCode: reqErr.HTTPStatusCode,
			Status:     fmt.Sprintf("%d", reqErr.HTTPStatusCode),
			Body:       reqErr.Error(),
		}
	}
	return err
}

func classifyError(err error) resilience.ErrorClassification {
	return httpjson.ClassifyError(statusError(err))
}

func wrapError(err error) error {
	if domain.IsKind(err, domain.ErrRecognition) {
		return err
	}
	return httpjson.WrapError("openai detect text", statusError(err))
}
