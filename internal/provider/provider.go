// Package provider abstracts the vision-capable model providers behind one
// capability interface so routing and failover never branch on provider
// identity at call sites.
package provider

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/casebridge/docintel/internal/model"
)

// Document is the binary payload handed to a provider.
type Document struct {
	Base64    string
	MediaType string
}

// IsPDF reports whether the payload should be sent as a document block.
func (d Document) IsPDF() bool {
	return d.MediaType == "application/pdf"
}

// ValidationResult reports whether an upload is a legitimate, legible document.
type ValidationResult struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

// DetectionResult is the outcome of document type detection.
type DetectionResult struct {
	DocumentType string  `json:"document_type"`
	Confidence   float64 `json:"confidence"`
}

// ExtractionResult is the provider-level outcome of field extraction.
type ExtractionResult struct {
	DocumentType      string
	Fields            []model.ExtractedField
	OverallConfidence float64
	RawText           string
	Warnings          []string
}

// DocumentProvider is the capability contract each vision provider implements.
type DocumentProvider interface {
	Name() string
	Validate(ctx context.Context, doc Document) (*ValidationResult, error)
	DetectType(ctx context.Context, doc Document) (*DetectionResult, error)
	AnalyzeDocument(ctx context.Context, doc Document, documentType string) (*ExtractionResult, error)
	ExtractText(ctx context.Context, doc Document) (string, error)
}

// knownDocumentTypes is offered to the model during type detection.
var knownDocumentTypes = []string{
	model.DocTypePassport,
	model.DocTypeBirthCertificate,
	model.DocTypeMarriageCertificate,
	model.DocTypeDriversLicense,
	model.DocTypeUtilityBill,
	model.DocTypeLeaseAgreement,
	model.DocTypeTaxReturn,
	model.DocTypeW2,
	model.DocTypePayStub,
	model.DocTypeEmploymentLetter,
	model.DocTypeDiploma,
	model.DocTypeTranscript,
	model.DocTypeI94,
	model.DocTypeVisa,
	model.DocTypeGreenCard,
	model.DocTypeBankStatement,
}

// --- wire shapes shared by both providers ---

type wireField struct {
	FieldName            string  `json:"field_name"`
	Value                *string `json:"value"`
	Confidence           float64 `json:"confidence"`
	SourceLocation       string  `json:"source_location,omitempty"`
	RequiresVerification bool    `json:"requires_verification"`
}

type wireExtraction struct {
	DocumentType      string      `json:"document_type"`
	Fields            []wireField `json:"fields"`
	OverallConfidence float64     `json:"overall_confidence"`
	RawText           string      `json:"raw_text,omitempty"`
	Warnings          []string    `json:"warnings,omitempty"`
}

func parseValidation(text string) (*ValidationResult, error) {
	var out ValidationResult
	if err := json.Unmarshal([]byte(cleanJSON(text)), &out); err != nil {
		return nil, eris.Wrapf(err, "provider: validation response is not JSON: %q", snippet(text))
	}
	return &out, nil
}

func parseDetection(text string) (*DetectionResult, error) {
	var out DetectionResult
	if err := json.Unmarshal([]byte(cleanJSON(text)), &out); err != nil {
		return nil, eris.Wrapf(err, "provider: detection response is not JSON: %q", snippet(text))
	}
	if out.DocumentType == "" {
		out.DocumentType = model.DocTypeUnknown
	}
	out.DocumentType = strings.ToLower(strings.TrimSpace(out.DocumentType))
	out.Confidence = clamp01(out.Confidence)
	return &out, nil
}

func parseExtraction(text, fallbackType string) (*ExtractionResult, error) {
	var wire wireExtraction
	if err := json.Unmarshal([]byte(cleanJSON(text)), &wire); err != nil {
		return nil, eris.Wrapf(err, "provider: extraction response is not JSON: %q", snippet(text))
	}

	result := &ExtractionResult{
		DocumentType:      strings.ToLower(strings.TrimSpace(wire.DocumentType)),
		OverallConfidence: clamp01(wire.OverallConfidence),
		RawText:           wire.RawText,
		Warnings:          wire.Warnings,
	}
	if result.DocumentType == "" {
		result.DocumentType = fallbackType
	}
	for _, f := range wire.Fields {
		if f.FieldName == "" {
			continue
		}
		result.Fields = append(result.Fields, model.ExtractedField{
			FieldName:            f.FieldName,
			Value:                f.Value,
			Confidence:           clamp01(f.Confidence),
			SourceLocation:       f.SourceLocation,
			RequiresVerification: f.RequiresVerification,
		})
	}
	return result, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func snippet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 120 {
		return s[:120] + "..."
	}
	return s
}

// cleanJSON strips markdown fences and any prose around the outermost JSON
// object in a model response.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}
