package provider

import (
	"fmt"
	"strings"
)

const validationSystem = `You review documents uploaded to an immigration case file.
Decide whether the upload is a legitimate, legible document that a legal team
could work from. Reject blank pages, screenshots of unrelated content, memes,
and images too blurry or cropped to read.`

const detectionSystem = `You classify documents uploaded to an immigration case file.
Pick the single best matching document type. If nothing fits, answer "unknown".`

const extractionSystem = `You extract structured data from immigration case documents.
Report every field you can read, with a confidence between 0 and 1 for each.
Transcribe values exactly as printed. Never guess: if a value is illegible or
absent, omit the field. Mark a field requires_verification when the print is
degraded, handwritten, or partially obscured.`

const transcriptionSystem = `Transcribe every piece of text visible in the document,
preserving reading order. Output the text only, with no commentary.`

func detectionPrompt() string {
	return fmt.Sprintf(
		"Classify this document. Known types: %s. Respond with the type and your confidence.",
		strings.Join(knownDocumentTypes, ", "),
	)
}

func extractionPrompt(documentType string) string {
	if documentType == "" || documentType == "unknown" {
		return "Extract all structured fields from this document, along with its document type."
	}
	return fmt.Sprintf(
		"This document is a %s. Extract all structured fields it contains.",
		strings.ReplaceAll(documentType, "_", " "),
	)
}

// --- JSON Schemas for forced tool calls ---

var validationSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"valid":  map[string]any{"type": "boolean"},
		"reason": map[string]any{"type": "string"},
	},
	"required": []any{"valid"},
}

var detectionSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"document_type": map[string]any{"type": "string"},
		"confidence":    map[string]any{"type": "number", "minimum": 0, "maximum": 1},
	},
	"required": []any{"document_type", "confidence"},
}

var extractionSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"document_type": map[string]any{"type": "string"},
		"fields": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"field_name":            map[string]any{"type": "string"},
					"value":                 map[string]any{"type": []any{"string", "null"}},
					"confidence":            map[string]any{"type": "number", "minimum": 0, "maximum": 1},
					"source_location":       map[string]any{"type": "string"},
					"requires_verification": map[string]any{"type": "boolean"},
				},
				"required": []any{"field_name", "confidence"},
			},
		},
		"overall_confidence": map[string]any{"type": "number", "minimum": 0, "maximum": 1},
		"raw_text":           map[string]any{"type": "string"},
		"warnings":           map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
	},
	"required": []any{"document_type", "fields", "overall_confidence"},
}
