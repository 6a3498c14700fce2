// Package mistral is a minimal client for the Mistral chat completions API
// with vision input, used as the alternate document-analysis provider.
package mistral

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

const (
	defaultEndpoint = "https://api.mistral.ai/v1/chat/completions"
	defaultModel    = "pixtral-large-latest"
)

// Client defines the Mistral operations used by the pipeline.
type Client interface {
	// CompleteJSON sends a vision chat request in JSON mode and returns the
	// raw text of the first choice, which the API constrains to valid JSON.
	CompleteJSON(ctx context.Context, req Request) (string, error)
}

// Request is a single chat completion request.
type Request struct {
	System string
	Parts  []ContentPart
}

// ContentPart is one element of the user message content array.
type ContentPart struct {
	Type        string // "text", "image_url", "document_url"
	Text        string
	DataURL     string // data: URL for image_url / document_url parts
}

// TextPart builds a text content part.
func TextPart(text string) ContentPart {
	return ContentPart{Type: "text", Text: text}
}

// ImagePart builds an inline base64 image part.
func ImagePart(mediaType, base64Data string) ContentPart {
	return ContentPart{Type: "image_url", DataURL: "data:" + mediaType + ";base64," + base64Data}
}

// DocumentPart builds an inline base64 PDF part.
func DocumentPart(base64Data string) ContentPart {
	return ContentPart{Type: "document_url", DataURL: "data:application/pdf;base64," + base64Data}
}

// HTTPClient implements Client over the REST API.
type HTTPClient struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

// NewClient creates a Mistral client. Empty model selects the default
// vision model.
func NewClient(apiKey, model string) *HTTPClient {
	if model == "" {
		model = defaultModel
	}
	return &HTTPClient{
		apiKey:   apiKey,
		model:    model,
		endpoint: defaultEndpoint,
		client:   &http.Client{Timeout: 120 * time.Second},
	}
}

// WithEndpoint overrides the API endpoint, for tests.
func (c *HTTPClient) WithEndpoint(endpoint string) *HTTPClient {
	c.endpoint = endpoint
	return c
}

type wireMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type wireContentPart struct {
	Type        string `json:"type"`
	Text        string `json:"text,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
	DocumentURL string `json:"document_url,omitempty"`
}

type wireRequest struct {
	Model          string        `json:"model"`
	Messages       []wireMessage `json:"messages"`
	ResponseFormat struct {
		Type string `json:"type"`
	} `json:"response_format"`
}

type wireResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type wireError struct {
	Message string `json:"message"`
}

// APIError is a non-200 response from the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("mistral: API returned %d: %s", e.StatusCode, e.Message)
}

// StatusCode extracts the API status code from an error chain, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// IsRetryable reports whether the error is a transient API failure.
func IsRetryable(err error) bool {
	switch StatusCode(err) {
	case 408, 429, 500, 502, 503, 504:
		return true
	}
	return false
}

func (c *HTTPClient) CompleteJSON(ctx context.Context, req Request) (string, error) {
	parts := make([]wireContentPart, 0, len(req.Parts))
	for _, p := range req.Parts {
		wp := wireContentPart{Type: p.Type, Text: p.Text}
		switch p.Type {
		case "image_url":
			wp.ImageURL = p.DataURL
		case "document_url":
			wp.DocumentURL = p.DataURL
		}
		parts = append(parts, wp)
	}

	var messages []wireMessage
	if req.System != "" {
		messages = append(messages, wireMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, wireMessage{Role: "user", Content: parts})

	body := wireRequest{Model: c.model, Messages: messages}
	body.ResponseFormat.Type = "json_object"

	payload, err := json.Marshal(body)
	if err != nil {
		return "", eris.Wrap(err, "mistral: marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", eris.Wrap(err, "mistral: create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", eris.Wrap(err, "mistral: API call")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", eris.Wrap(err, "mistral: read response")
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
		var we wireError
		if json.Unmarshal(respBody, &we) == nil && we.Message != "" {
			apiErr.Message = we.Message
		}
		return "", eris.Wrap(apiErr, "mistral: API call failed")
	}

	var out wireResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", eris.Wrap(err, "mistral: unmarshal response")
	}
	if len(out.Choices) == 0 {
		return "", eris.New("mistral: response contained no choices")
	}

	return out.Choices[0].Message.Content, nil
}
