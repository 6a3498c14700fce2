package provider

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"

	"github.com/casebridge/docintel/internal/extract"
	"github.com/casebridge/docintel/pkg/anthropic"
)

// AnthropicOptions configures the Anthropic-backed provider.
type AnthropicOptions struct {
	Model     string
	MaxTokens int64
}

// AnthropicProvider implements DocumentProvider over forced-tool calls, so
// every structured answer is schema-checked before it reaches the pipeline.
type AnthropicProvider struct {
	client anthropic.Client
	runner *extract.Runner
	opts   AnthropicOptions
}

// NewAnthropicProvider wires the provider onto a structured extraction runner.
func NewAnthropicProvider(client anthropic.Client, runner *extract.Runner, opts AnthropicOptions) *AnthropicProvider {
	if opts.Model == "" {
		opts.Model = "claude-sonnet-4-5-20250929"
	}
	if opts.MaxTokens == 0 {
		opts.MaxTokens = 4096
	}
	return &AnthropicProvider{client: client, runner: runner, opts: opts}
}

func (p *AnthropicProvider) Name() string { return "anthropic" }

func (p *AnthropicProvider) Validate(ctx context.Context, doc Document) (*ValidationResult, error) {
	out, _, err := p.runner.Run(ctx, extract.Request{
		ToolName:        "assess_document",
		ToolDescription: "Record whether the upload is a usable document",
		Schema:          validationSchema,
		System:          validationSystem,
		CacheSystem:     true,
		Content: append(p.docBlocks(doc),
			anthropic.TextContent("Assess whether this upload is a usable document.")),
		Model:     p.opts.Model,
		MaxTokens: 512,
	})
	if err != nil {
		return nil, eris.Wrap(err, "anthropic: validate document")
	}
	return decodeTool[ValidationResult](out)
}

func (p *AnthropicProvider) DetectType(ctx context.Context, doc Document) (*DetectionResult, error) {
	out, _, err := p.runner.Run(ctx, extract.Request{
		ToolName:        "record_document_type",
		ToolDescription: "Record the detected document type and confidence",
		Schema:          detectionSchema,
		System:          detectionSystem,
		CacheSystem:     true,
		Content:         append(p.docBlocks(doc), anthropic.TextContent(detectionPrompt())),
		Model:           p.opts.Model,
		MaxTokens:       512,
	})
	if err != nil {
		return nil, eris.Wrap(err, "anthropic: detect document type")
	}
	res, err := decodeTool[DetectionResult](out)
	if err != nil {
		return nil, err
	}
	res.Confidence = clamp01(res.Confidence)
	return res, nil
}

func (p *AnthropicProvider) AnalyzeDocument(ctx context.Context, doc Document, documentType string) (*ExtractionResult, error) {
	out, _, err := p.runner.Run(ctx, extract.Request{
		ToolName:        "record_extracted_data",
		ToolDescription: "Record every structured field extracted from the document",
		Schema:          extractionSchema,
		System:          extractionSystem,
		CacheSystem:     true,
		Content:         append(p.docBlocks(doc), anthropic.TextContent(extractionPrompt(documentType))),
		Model:           p.opts.Model,
		MaxTokens:       p.opts.MaxTokens,
	})
	if err != nil {
		return nil, eris.Wrap(err, "anthropic: analyze document")
	}

	raw, err := json.Marshal(out)
	if err != nil {
		return nil, eris.Wrap(err, "anthropic: re-encode tool input")
	}
	return parseExtraction(string(raw), documentType)
}

// ExtractText transcribes the document with a plain text response. Citations
// are enabled on PDF blocks so downstream mapping can anchor text to pages.
func (p *AnthropicProvider) ExtractText(ctx context.Context, doc Document) (string, error) {
	resp, err := p.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     p.opts.Model,
		MaxTokens: p.opts.MaxTokens,
		System:    []anthropic.SystemBlock{{Text: transcriptionSystem}},
		Messages: []anthropic.Message{{
			Role: "user",
			Content: append(p.docBlocks(doc),
				anthropic.TextContent("Transcribe this document.")),
		}},
	})
	if err != nil {
		return "", eris.Wrap(anthropic.Classify(err), "anthropic: extract text")
	}
	return resp.Text(), nil
}

func (p *AnthropicProvider) docBlocks(doc Document) []anthropic.ContentBlock {
	if doc.IsPDF() {
		return []anthropic.ContentBlock{anthropic.DocumentContent(doc.Base64)}
	}
	return []anthropic.ContentBlock{anthropic.ImageContent(doc.MediaType, doc.Base64)}
}

// decodeTool maps a validated tool input back onto a typed result.
func decodeTool[T any](m map[string]any) (*T, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, eris.Wrap(err, "provider: re-encode tool input")
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, eris.Wrap(err, "provider: decode tool input")
	}
	return &out, nil
}
