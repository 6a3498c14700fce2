// Package blobstore mints short-lived signed read URLs for stored objects.
// The pipeline only ever requests tightly-scoped expiries (minutes) so a
// leaked URL has a small exposure window.
package blobstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// ProcessingTTL is the signed-URL lifetime used for AI processing fetches.
const ProcessingTTL = 5 * time.Minute

// Signer mints signed read URLs for stored objects.
type Signer interface {
	SignedURL(ctx context.Context, bucket, path string, ttl time.Duration) (string, error)
}

// Client implements Signer against the storage API.
type Client struct {
	baseURL    string
	serviceKey string
	client     *http.Client
}

// NewClient creates a storage signer. baseURL is the storage API root.
func NewClient(baseURL, serviceKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		serviceKey: serviceKey,
		client:     &http.Client{Timeout: 15 * time.Second},
	}
}

type signRequest struct {
	ExpiresIn int `json:"expiresIn"`
}

type signResponse struct {
	SignedURL string `json:"signedURL"`
}

// SignedURL mints a time-limited read URL for bucket/path.
func (c *Client) SignedURL(ctx context.Context, bucket, path string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = ProcessingTTL
	}

	body, err := json.Marshal(signRequest{ExpiresIn: int(ttl.Seconds())})
	if err != nil {
		return "", eris.Wrap(err, "blobstore: marshal sign request")
	}

	endpoint := fmt.Sprintf("%s/object/sign/%s/%s", c.baseURL, bucket, strings.TrimLeft(path, "/"))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", eris.Wrap(err, "blobstore: create sign request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "blobstore: sign call")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", eris.Wrap(err, "blobstore: read sign response")
	}
	if resp.StatusCode != http.StatusOK {
		return "", eris.Errorf("blobstore: sign returned %d: %s", resp.StatusCode, string(respBody))
	}

	var out signResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", eris.Wrap(err, "blobstore: unmarshal sign response")
	}
	if out.SignedURL == "" {
		return "", eris.New("blobstore: sign response missing signedURL")
	}

	// The API returns a path relative to the storage root.
	if strings.HasPrefix(out.SignedURL, "/") {
		return c.baseURL + out.SignedURL, nil
	}
	return out.SignedURL, nil
}
