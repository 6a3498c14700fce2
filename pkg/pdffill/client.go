// Package pdffill is a client for the internal USCIS PDF fill service, which
// writes values into XFA form templates and returns the filled PDF bytes.
package pdffill

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// maxRequestBytes mirrors the fill service's request body cap.
const maxRequestBytes = 5 << 20

// Client defines the fill-service operations used by the pipeline.
type Client interface {
	Fill(ctx context.Context, req FillRequest) (*FillResult, error)
	Health(ctx context.Context) (*HealthStatus, error)
}

// FillRequest asks the service to fill one form template.
type FillRequest struct {
	FormType  string            `json:"form_type"`
	FieldData map[string]string `json:"field_data"`
	// Flatten locks the filled fields, for final filing copies.
	Flatten bool `json:"flatten"`
}

// FillStats reports how many fields the service managed to fill.
type FillStats struct {
	Filled int      `json:"filled"`
	Total  int      `json:"total"`
	Errors []string `json:"errors"`
}

// FillResult is the filled PDF plus fill statistics.
type FillResult struct {
	PDF   []byte
	Stats FillStats
}

// HealthStatus reports service availability and loaded templates.
type HealthStatus struct {
	Status    string   `json:"status"`
	Templates []string `json:"templates"`
}

// HTTPClient implements Client over the fill service's REST API.
type HTTPClient struct {
	baseURL       string
	serviceSecret string
	client        *http.Client
}

// NewClient creates a fill-service client authenticated with the shared
// service secret.
func NewClient(baseURL, serviceSecret string) *HTTPClient {
	return &HTTPClient{
		baseURL:       strings.TrimRight(baseURL, "/"),
		serviceSecret: serviceSecret,
		client:        &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *HTTPClient) Fill(ctx context.Context, req FillRequest) (*FillResult, error) {
	if req.FormType == "" {
		return nil, eris.New("pdffill: form_type is required")
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "pdffill: marshal request")
	}
	if len(body) > maxRequestBytes {
		return nil, eris.Errorf("pdffill: request body %d bytes exceeds %d byte cap", len(body), maxRequestBytes)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/fill-pdf", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "pdffill: create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.serviceSecret)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "pdffill: fill call")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "pdffill: read response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("pdffill: service returned %d: %s", resp.StatusCode, string(respBody))
	}

	result := &FillResult{PDF: respBody}
	if raw := resp.Header.Get("X-Fill-Stats"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &result.Stats); err != nil {
			return nil, eris.Wrap(err, "pdffill: parse fill stats header")
		}
	}
	return result, nil
}

func (c *HTTPClient) Health(ctx context.Context) (*HealthStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return nil, eris.Wrap(err, "pdffill: create health request")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "pdffill: health call")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("pdffill: health returned %d", resp.StatusCode)
	}

	var status HealthStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, eris.Wrap(err, "pdffill: decode health response")
	}
	return &status, nil
}
