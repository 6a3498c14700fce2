package mistral

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompleteJSON_SendsVisionPayload(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"document_type\":\"passport\"}"}}]}`))
	}))
	defer srv.Close()

	c := NewClient("test-key", "").WithEndpoint(srv.URL)
	out, err := c.CompleteJSON(context.Background(), Request{
		System: "You are a document analyst.",
		Parts: []ContentPart{
			TextPart("Classify this document."),
			ImagePart("image/png", "aGVsbG8="),
		},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"document_type":"passport"}`, out)

	assert.Equal(t, "pixtral-large-latest", captured["model"])
	rf := captured["response_format"].(map[string]any)
	assert.Equal(t, "json_object", rf["type"])

	messages := captured["messages"].([]any)
	require.Len(t, messages, 2)
	system := messages[0].(map[string]any)
	assert.Equal(t, "system", system["role"])

	user := messages[1].(map[string]any)
	parts := user["content"].([]any)
	require.Len(t, parts, 2)
	img := parts[1].(map[string]any)
	assert.Equal(t, "image_url", img["type"])
	assert.Equal(t, "data:image/png;base64,aGVsbG8=", img["image_url"])
}

func TestCompleteJSON_DocumentPart(t *testing.T) {
	p := DocumentPart("cGRm")
	assert.Equal(t, "document_url", p.Type)
	assert.Equal(t, "data:application/pdf;base64,cGRm", p.DataURL)
}

func TestCompleteJSON_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"message":"rate limit exceeded"}`))
	}))
	defer srv.Close()

	c := NewClient("k", "").WithEndpoint(srv.URL)
	_, err := c.CompleteJSON(context.Background(), Request{Parts: []ContentPart{TextPart("x")}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
	assert.Contains(t, err.Error(), "rate limit exceeded")
	assert.Equal(t, 429, StatusCode(err))
	assert.True(t, IsRetryable(err))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(&APIError{StatusCode: 503}))
	assert.False(t, IsRetryable(&APIError{StatusCode: 401}))
	assert.False(t, IsRetryable(nil))
}

func TestCompleteJSON_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c := NewClient("k", "").WithEndpoint(srv.URL)
	_, err := c.CompleteJSON(context.Background(), Request{Parts: []ContentPart{TextPart("x")}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}
