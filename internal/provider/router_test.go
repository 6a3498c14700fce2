package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casebridge/docintel/internal/resilience"
)

type stubProvider struct {
	name  string
	err   error
	calls int
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Validate(context.Context, Document) (*ValidationResult, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &ValidationResult{Valid: true, Reason: s.name}, nil
}

func (s *stubProvider) DetectType(context.Context, Document) (*DetectionResult, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &DetectionResult{DocumentType: "passport", Confidence: 0.9}, nil
}

func (s *stubProvider) AnalyzeDocument(context.Context, Document, string) (*ExtractionResult, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &ExtractionResult{DocumentType: "passport", OverallConfidence: 0.9}, nil
}

func (s *stubProvider) ExtractText(context.Context, Document) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.name + " text", nil
}

func TestRouter_AutoPrimarySucceeds(t *testing.T) {
	primary := &stubProvider{name: "anthropic"}
	secondary := &stubProvider{name: "mistral"}
	r := NewRouter(primary, secondary, RouterOptions{Mode: ModeAuto})

	res, err := r.Validate(context.Background(), Document{})
	require.NoError(t, err)
	assert.Equal(t, "anthropic", res.Reason)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 0, secondary.calls)
}

func TestRouter_AutoFailsOverToSecondary(t *testing.T) {
	primary := &stubProvider{name: "anthropic", err: errors.New("anthropic down")}
	secondary := &stubProvider{name: "mistral"}
	r := NewRouter(primary, secondary, RouterOptions{Mode: ModeAuto})

	res, err := r.Validate(context.Background(), Document{})
	require.NoError(t, err)
	assert.Equal(t, "mistral", res.Reason)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, secondary.calls)
}

func TestRouter_AutoBothFailPropagatesLastError(t *testing.T) {
	primary := &stubProvider{name: "anthropic", err: errors.New("anthropic down")}
	secondary := &stubProvider{name: "mistral", err: errors.New("mistral down")}
	r := NewRouter(primary, secondary, RouterOptions{Mode: ModeAuto})

	_, err := r.DetectType(context.Background(), Document{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mistral down")
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, secondary.calls)
}

func TestRouter_ForcedModeNoFailover(t *testing.T) {
	primary := &stubProvider{name: "anthropic"}
	secondary := &stubProvider{name: "mistral", err: errors.New("mistral down")}
	r := NewRouter(primary, secondary, RouterOptions{Mode: ModeMistral})

	_, err := r.AnalyzeDocument(context.Background(), Document{}, "passport")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mistral down")
	assert.Equal(t, 0, primary.calls, "pinned mode must not touch the other provider")
	assert.Equal(t, 1, secondary.calls)
}

func TestRouter_OpenBreakerSkipsToSecondary(t *testing.T) {
	primary := &stubProvider{name: "anthropic", err: errors.New("anthropic down")}
	secondary := &stubProvider{name: "mistral"}
	r := NewRouter(primary, secondary, RouterOptions{
		Mode:    ModeAuto,
		Breaker: resilience.CircuitBreakerConfig{FailureThreshold: 1},
	})

	// First call trips the primary breaker and fails over.
	_, err := r.ExtractText(context.Background(), Document{})
	require.NoError(t, err)
	assert.Equal(t, 1, primary.calls)

	// Second call is rejected by the open breaker without invoking the
	// primary, and still succeeds on the secondary.
	text, err := r.ExtractText(context.Background(), Document{})
	require.NoError(t, err)
	assert.Equal(t, "mistral text", text)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 2, secondary.calls)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeAuto, m)

	m, err = ParseMode("anthropic")
	require.NoError(t, err)
	assert.Equal(t, ModeAnthropic, m)

	_, err = ParseMode("gpt")
	require.Error(t, err)
}
