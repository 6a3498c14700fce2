// Package fetch retrieves document bytes from short-lived signed URLs with
// strict security limits: redirects are refused, size ceilings are enforced
// before and during the body read, and the payload is never buffered past
// the ceiling.
package fetch

import (
	"bytes"
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Size ceilings per media kind.
const (
	MaxDocumentBytes = 32 << 20 // 32 MB
	MaxImageBytes    = 20 << 20 // 20 MB
)

// ErrRedirect is returned when the signed URL responds with a redirect. A
// compromised storage backend could otherwise bounce the fetch to an internal
// address, so redirects are never followed.
var ErrRedirect = eris.New("fetch: redirect responses are not allowed")

// ErrTooLarge is returned when the payload exceeds the media-kind ceiling.
var ErrTooLarge = eris.New("fetch: payload exceeds size ceiling")

// ErrEmptyBody is returned when the response carried no bytes.
var ErrEmptyBody = eris.New("fetch: response body is empty")

// Payload is a fetched document as base64 text plus its resolved media type.
type Payload struct {
	Base64    string
	MediaType string // e.g. "image/png", "application/pdf"
	Size      int
}

// IsDocument reports whether the payload is a PDF rather than an image.
func (p Payload) IsDocument() bool {
	return p.MediaType == "application/pdf"
}

// Options configures the fetcher.
type Options struct {
	Timeout time.Duration
}

// Fetcher downloads signed-URL payloads. Failures are not retried here;
// retry policy, if any, belongs to the caller.
type Fetcher struct {
	client *http.Client
}

// New creates a Fetcher whose HTTP client treats any redirect as an error.
func New(opts Options) *Fetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 60 * time.Second
	}
	return &Fetcher{
		client: &http.Client{
			Timeout: opts.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return ErrRedirect
			},
		},
	}
}

// Fetch downloads the signed URL and returns the payload base64-encoded.
// The size ceiling is checked twice: against Content-Length when the header
// is present (rejecting without reading the body), then against the actual
// cumulative byte count while streaming.
func (f *Fetcher) Fetch(ctx context.Context, signedURL string) (*Payload, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, signedURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "fetch: create request")
	}

	resp, err := f.client.Do(req)
	if err != nil {
		if strings.Contains(err.Error(), ErrRedirect.Error()) {
			return nil, ErrRedirect
		}
		return nil, eris.Wrap(err, "fetch: request failed")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, eris.Errorf("fetch: unexpected status %d", resp.StatusCode)
	}

	// Sniff the first bytes so the media kind (and therefore the ceiling) is
	// known before committing to the full read.
	head := make([]byte, 12)
	n, err := io.ReadFull(resp.Body, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, eris.Wrap(err, "fetch: read body")
	}
	if n == 0 {
		return nil, ErrEmptyBody
	}
	head = head[:n]

	mediaType := resolveMediaType(resp.Header.Get("Content-Type"), head)
	ceiling := ceilingFor(mediaType)

	// Fast reject on the declared length before buffering anything further.
	if resp.ContentLength > 0 && resp.ContentLength > int64(ceiling) {
		zap.L().Warn("fetch: content-length exceeds ceiling",
			zap.Int64("content_length", resp.ContentLength),
			zap.Int("ceiling", ceiling),
			zap.String("media_type", mediaType),
		)
		return nil, ErrTooLarge
	}

	var buf bytes.Buffer
	buf.Write(head)

	// Read at most ceiling+1 total bytes; a single extra byte proves the
	// payload is oversized without buffering the remainder.
	limited := io.LimitReader(resp.Body, int64(ceiling-len(head))+1)
	if _, err := buf.ReadFrom(limited); err != nil {
		return nil, eris.Wrap(err, "fetch: read body")
	}
	if buf.Len() > ceiling {
		return nil, ErrTooLarge
	}

	return &Payload{
		Base64:    base64.StdEncoding.EncodeToString(buf.Bytes()),
		MediaType: mediaType,
		Size:      buf.Len(),
	}, nil
}

// ceilingFor returns the byte ceiling for a media type.
func ceilingFor(mediaType string) int {
	if mediaType == "application/pdf" {
		return MaxDocumentBytes
	}
	return MaxImageBytes
}

// resolveMediaType determines the media type from the Content-Type header,
// falling back to magic-byte sniffing of the first raw bytes.
func resolveMediaType(contentType string, head []byte) string {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	switch ct {
	case "image/png", "image/gif", "image/webp", "image/jpeg", "application/pdf":
		return ct
	}
	return sniffMediaType(head)
}

// sniffMediaType matches known magic-byte signatures; anything unrecognized
// is treated as JPEG, the most common scan format.
func sniffMediaType(head []byte) string {
	switch {
	case bytes.HasPrefix(head, []byte{0x89, 0x50, 0x4E, 0x47}):
		return "image/png"
	case bytes.HasPrefix(head, []byte{0x47, 0x49, 0x46, 0x38}):
		return "image/gif"
	case len(head) >= 12 && bytes.Equal(head[0:4], []byte("RIFF")) && bytes.Equal(head[8:12], []byte("WEBP")):
		return "image/webp"
	case bytes.HasPrefix(head, []byte{0x25, 0x50, 0x44, 0x46}):
		return "application/pdf"
	default:
		return "image/jpeg"
	}
}
