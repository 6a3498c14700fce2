// Package model defines the plain data types exchanged between the document
// intelligence pipeline's components. Everything here is serializable and
// behavior-free; results are never mutated after creation.
package model

// ExtractedField is a single key/value pair pulled out of a source document.
// Value is nil when the model could not find the field; downstream consumers
// treat nil as "not extracted".
type ExtractedField struct {
	FieldName            string  `json:"field_name"`
	Value                *string `json:"value"`
	Confidence           float64 `json:"confidence"`
	SourceLocation       string  `json:"source_location,omitempty"`
	RequiresVerification bool    `json:"requires_verification"`

	// SourceDocumentType is stamped by the autofill engine when merging
	// fields across documents, for traceability. Empty on raw extraction.
	SourceDocumentType string `json:"source_document_type,omitempty"`
}

// StringValue returns the field value, or "" when the field was not extracted.
func (f ExtractedField) StringValue() string {
	if f.Value == nil {
		return ""
	}
	return *f.Value
}

// StringPtr is a convenience for building field values in literals and tests.
func StringPtr(s string) *string {
	return &s
}
