// Package redact scrubs sensitive field values from payloads immediately
// before they cross the boundary to an external model provider. It never runs
// on data coming back from a provider, and never mutates its inputs.
package redact

import (
	"strings"

	"github.com/casebridge/docintel/internal/model"
)

// sensitivePatterns are substring patterns matched (case-insensitively)
// against field names. A field whose name contains any of these is redacted.
var sensitivePatterns = []string{
	"passport_number",
	"passport_no",
	"ssn",
	"social_security",
	"tax_id",
	"taxpayer_id",
	"itin",
	"date_of_birth",
	"birth_date",
	"dob",
	"alien_number",
	"alien_registration",
	"a_number",
	"uscis_number",
	"receipt_number",
	"bank_account",
	"account_number",
	"routing_number",
	"credit_card",
	"card_number",
	"mothers_maiden",
	"maiden_name",
	"travel_document_number",
}

// IsSensitive reports whether a field name matches a sensitive pattern.
func IsSensitive(fieldName string) bool {
	name := strings.ToLower(fieldName)
	for _, p := range sensitivePatterns {
		if strings.Contains(name, p) {
			return true
		}
	}
	return false
}

// Placeholder returns the redaction placeholder for a field name.
func Placeholder(fieldName string) string {
	return "[REDACTED:" + fieldName + "]"
}

// Fields returns a copy of fields with sensitive non-nil values replaced by
// placeholders. Confidence, verification flag and source location carry over
// unchanged; nil values have nothing to redact and pass through as-is.
func Fields(fields []model.ExtractedField) []model.ExtractedField {
	if fields == nil {
		return nil
	}
	out := make([]model.ExtractedField, len(fields))
	for i, f := range fields {
		out[i] = f
		if f.Value != nil && IsSensitive(f.FieldName) {
			redacted := Placeholder(f.FieldName)
			out[i].Value = &redacted
		}
	}
	return out
}

// Record returns a deep copy of an arbitrary nested record with string values
// under sensitive keys replaced by placeholders. Arrays, numbers, booleans
// and nils are left untouched; nested maps are recursed into.
func Record(record map[string]any) map[string]any {
	if record == nil {
		return nil
	}
	out := make(map[string]any, len(record))
	for k, v := range record {
		switch val := v.(type) {
		case string:
			if IsSensitive(k) {
				out[k] = Placeholder(k)
			} else {
				out[k] = val
			}
		case map[string]any:
			out[k] = Record(val)
		default:
			out[k] = v
		}
	}
	return out
}
