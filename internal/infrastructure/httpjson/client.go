package httpjson

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/document-sorter/internal/infrastructure/resilience"
)

const maxErrorBody = 2048

// Client posts JSON to one REST backend. Every call runs through the shared
// resilience executor under the operation name "<service>.<operation>".
type Client struct {
	service    string
	baseURL    string
	headers    http.Header
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(service, baseURL string, executor *resilience.Executor) *Client {
	return &Client{
		service:    service,
		baseURL:    strings.TrimRight(baseURL, "/"),
		headers:    make(http.Header),
		httpClient: &http.Client{Timeout: 120 * time.Second},
		executor:   executor,
	}
}

// WithHeader adds a header sent on every request, e.g. an API key.
func (c *Client) WithHeader(key, value string) *Client {
	if strings.TrimSpace(value) != "" {
		c.headers.Set(key, value)
	}
	return c
}

func (c *Client) WithHTTPClient(httpClient *http.Client) *Client {
	if httpClient != nil {
		c.httpClient = httpClient
	}
	return c
}

func (c *Client) Service() string { return c.service }

func (c *Client) PostJSON(ctx context.Context, path string, payload any, out any, operation string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s %s request: %w", c.service, operation, err)
	}

	call := func(ctx context.Context) error {
		return c.post(ctx, path, body, out, operation)
	}
	if c.executor == nil {
		err = call(ctx)
	} else {
		err = c.executor.Execute(ctx, c.service+"."+operation, call, ClassifyError)
	}
	return WrapError(c.service+" "+operation, err)
}

func (c *Client) post(ctx context.Context, path string, body []byte, out any, operation string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s %s request: %w", c.service, operation, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for key, values := range c.headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s request: %w", c.service, operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &HTTPStatusError{
			Service:    c.service,
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(raw),
		}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", c.service, operation, err)
	}
	return nil
}
