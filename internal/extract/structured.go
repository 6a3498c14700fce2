// Package extract runs schema-forced model calls: the model must answer by
// invoking a declared tool, and the tool input is validated against the
// declared JSON Schema a second time client-side before it is returned.
package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"

	"github.com/rotisserie/eris"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"go.uber.org/zap"

	"github.com/casebridge/docintel/internal/resilience"
	"github.com/casebridge/docintel/pkg/anthropic"
)

// ErrNoToolInvocation is returned when the model ignored the forced-tool
// instruction and answered with free text. Retrying cannot fix this, so the
// error is raised immediately.
var ErrNoToolInvocation = eris.New("extract: response contained no tool invocation block")

// Request describes one structured extraction call.
type Request struct {
	ToolName        string
	ToolDescription string
	// Schema is a JSON Schema object constraining the tool input.
	Schema map[string]any
	// System is the system instruction text; CacheSystem marks it cacheable.
	System      string
	CacheSystem bool
	// Content is the user message, mixing text and binary blocks.
	Content []anthropic.ContentBlock

	Model     string
	MaxTokens int64
}

// Runner issues structured extraction calls with bounded retry.
type Runner struct {
	client anthropic.Client
	retry  resilience.RetryConfig
}

// NewRunner creates a Runner. A zero RetryConfig picks up the defaults.
func NewRunner(client anthropic.Client, retry resilience.RetryConfig) *Runner {
	if retry.MaxAttempts == 0 {
		retry = resilience.DefaultRetryConfig()
	}
	if retry.ShouldRetry == nil {
		retry.ShouldRetry = func(err error) bool {
			return anthropic.IsRetryable(err) || resilience.IsTransient(err)
		}
	}
	if retry.OnRetry == nil {
		retry.OnRetry = resilience.RetryLogger("anthropic", "structured extraction")
	}
	return &Runner{client: client, retry: retry}
}

// Run performs the forced-tool call and returns the validated tool input.
// Transient provider failures are retried with backoff up to the attempt
// ceiling; authentication and rate-limit failures are unwrapped from the
// exhausted-retry error and re-raised with their stable messages.
func (r *Runner) Run(ctx context.Context, req Request) (map[string]any, *anthropic.MessageResponse, error) {
	validator, err := compileSchema(req.Schema)
	if err != nil {
		return nil, nil, eris.Wrap(err, "extract: compile tool schema")
	}

	var system []anthropic.SystemBlock
	if req.System != "" {
		if req.CacheSystem {
			system = anthropic.BuildCachedSystemBlocks(req.System)
		} else {
			system = []anthropic.SystemBlock{{Text: req.System}}
		}
	}

	msgReq := anthropic.MessageRequest{
		Model:     req.Model,
		MaxTokens: req.MaxTokens,
		System:    system,
		Messages: []anthropic.Message{
			{Role: "user", Content: req.Content},
		},
		Tools: []anthropic.ToolDefinition{
			{Name: req.ToolName, Description: req.ToolDescription, InputSchema: req.Schema},
		},
		ForceTool: req.ToolName,
	}

	resp, err := resilience.DoVal(ctx, r.retry, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return r.client.CreateMessage(ctx, msgReq)
	})
	if err != nil {
		// The retry wrapper may bury the provider error; classification
		// walks the chain to find auth/rate-limit failures.
		return nil, nil, anthropic.Classify(err)
	}

	raw, ok := resp.ToolUse()
	if !ok {
		zap.L().Warn("extract: forced tool ignored by model",
			zap.String("tool", req.ToolName),
			zap.String("stop_reason", resp.StopReason),
			zap.String("received", truncate(resp.Text(), 200)),
		)
		return nil, resp, eris.Wrapf(ErrNoToolInvocation, "received text response %q", truncate(resp.Text(), 120))
	}

	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, resp, eris.Wrap(err, "extract: tool input is not valid JSON")
	}

	// The provider is expected to conform to the schema already; this second
	// validation is defense in depth against partial or drifted output.
	if err := validator.Validate(decoded); err != nil {
		return nil, resp, eris.Wrapf(err, "extract: tool %s input violates schema", req.ToolName)
	}

	obj, ok := decoded.(map[string]any)
	if !ok {
		return nil, resp, eris.Errorf("extract: tool input is %T, expected object", decoded)
	}
	return obj, resp, nil
}

func compileSchema(schema map[string]any) (*jsonschema.Schema, error) {
	// Round-trip through JSON so schema literals with typed slices compile.
	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("tool-schema.json", doc); err != nil {
		return nil, err
	}
	return compiler.Compile("tool-schema.json")
}

// IsAuthError reports whether the error chain contains an authentication
// failure from the provider.
func IsAuthError(err error) bool {
	return errors.Is(err, anthropic.ErrAuth)
}

// IsRateLimitError reports whether the error chain contains a rate-limit
// failure from the provider.
func IsRateLimitError(err error) bool {
	return errors.Is(err, anthropic.ErrRateLimited)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
