package provider

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"

	"github.com/casebridge/docintel/internal/resilience"
	"github.com/casebridge/docintel/pkg/mistral"
)

// MistralProvider implements DocumentProvider over JSON-mode chat completions.
// Unlike the forced-tool path, the API only guarantees syntactically valid
// JSON, so responses go through the shared lenient parsers.
type MistralProvider struct {
	client mistral.Client
	retry  resilience.RetryConfig
}

// NewMistralProvider wires the provider with bounded retry on transient
// API failures.
func NewMistralProvider(client mistral.Client, retry resilience.RetryConfig) *MistralProvider {
	if retry.MaxAttempts == 0 {
		retry = resilience.DefaultRetryConfig()
	}
	if retry.ShouldRetry == nil {
		retry.ShouldRetry = func(err error) bool {
			return mistral.IsRetryable(err) || resilience.IsTransient(err)
		}
	}
	if retry.OnRetry == nil {
		retry.OnRetry = resilience.RetryLogger("mistral", "document analysis")
	}
	return &MistralProvider{client: client, retry: retry}
}

func (p *MistralProvider) Name() string { return "mistral" }

func (p *MistralProvider) Validate(ctx context.Context, doc Document) (*ValidationResult, error) {
	text, err := p.complete(ctx, mistral.Request{
		System: validationSystem,
		Parts: append(p.docParts(doc), mistral.TextPart(
			`Assess whether this upload is a usable document. Respond with JSON: {"valid": boolean, "reason": string}.`)),
	})
	if err != nil {
		return nil, eris.Wrap(err, "mistral: validate document")
	}
	return parseValidation(text)
}

func (p *MistralProvider) DetectType(ctx context.Context, doc Document) (*DetectionResult, error) {
	text, err := p.complete(ctx, mistral.Request{
		System: detectionSystem,
		Parts: append(p.docParts(doc), mistral.TextPart(
			detectionPrompt()+` Respond with JSON: {"document_type": string, "confidence": number}.`)),
	})
	if err != nil {
		return nil, eris.Wrap(err, "mistral: detect document type")
	}
	return parseDetection(text)
}

func (p *MistralProvider) AnalyzeDocument(ctx context.Context, doc Document, documentType string) (*ExtractionResult, error) {
	text, err := p.complete(ctx, mistral.Request{
		System: extractionSystem,
		Parts: append(p.docParts(doc), mistral.TextPart(
			extractionPrompt(documentType)+` Respond with JSON: {"document_type": string, `+
				`"fields": [{"field_name": string, "value": string|null, "confidence": number, `+
				`"source_location": string, "requires_verification": boolean}], `+
				`"overall_confidence": number, "warnings": [string]}.`)),
	})
	if err != nil {
		return nil, eris.Wrap(err, "mistral: analyze document")
	}
	return parseExtraction(text, documentType)
}

func (p *MistralProvider) ExtractText(ctx context.Context, doc Document) (string, error) {
	text, err := p.complete(ctx, mistral.Request{
		System: transcriptionSystem,
		Parts: append(p.docParts(doc), mistral.TextPart(
			`Transcribe this document. Respond with JSON: {"text": string}.`)),
	})
	if err != nil {
		return "", eris.Wrap(err, "mistral: extract text")
	}

	var out struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal([]byte(cleanJSON(text)), &out); err != nil {
		return "", eris.Wrapf(err, "mistral: transcription response is not JSON: %q", snippet(text))
	}
	return out.Text, nil
}

func (p *MistralProvider) complete(ctx context.Context, req mistral.Request) (string, error) {
	return resilience.DoVal(ctx, p.retry, func(ctx context.Context) (string, error) {
		return p.client.CompleteJSON(ctx, req)
	})
}

func (p *MistralProvider) docParts(doc Document) []mistral.ContentPart {
	if doc.IsPDF() {
		return []mistral.ContentPart{mistral.DocumentPart(doc.Base64)}
	}
	return []mistral.ContentPart{mistral.ImagePart(doc.MediaType, doc.Base64)}
}
