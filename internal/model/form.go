package model

// Citation is a weak reference from a form field back to the source passage
// that justified its suggested value. It never owns the source document.
type Citation struct {
	Type         string `json:"type"` // always "document"
	CitedText    string `json:"citedText"`
	StartIndex   int    `json:"startIndex,omitempty"`
	EndIndex     int    `json:"endIndex,omitempty"`
	PageNumber   int    `json:"pageNumber,omitempty"`
	DocumentID   string `json:"documentId,omitempty"`
	DocumentType string `json:"documentType,omitempty"`
}

// FormField is one target-form field with its suggested value. FieldID is the
// canonical identifier in the form's schema (a fully qualified XFA dataset
// path for USCIS forms); FieldName is the semantic extracted-data key.
type FormField struct {
	FieldID        string     `json:"field_id"`
	FieldName      string     `json:"field_name"`
	FieldType      string     `json:"field_type"`
	CurrentValue   string     `json:"current_value,omitempty"`
	SuggestedValue string     `json:"suggested_value,omitempty"`
	Confidence     float64    `json:"confidence,omitempty"`
	SourceDocument string     `json:"source_document,omitempty"`
	RequiresReview bool       `json:"requires_review,omitempty"`
	Citations      []Citation `json:"citations,omitempty"`
}

// Filled reports whether the field carries either a suggested or current value.
func (f FormField) Filled() bool {
	return f.SuggestedValue != "" || f.CurrentValue != ""
}

// FormAutofillResult is the output of autofilling one target form from a set
// of analyzed documents.
type FormAutofillResult struct {
	FormType          string      `json:"form_type"`
	Fields            []FormField `json:"fields"`
	OverallConfidence float64     `json:"overall_confidence"`
	ProcessingTimeMs  int64       `json:"processing_time_ms"`
	MissingDocuments  []string    `json:"missing_documents,omitempty"`
	Warnings          []string    `json:"warnings,omitempty"`
}

// FieldDiscrepancy records a same-named field whose values disagree across
// source documents.
type FieldDiscrepancy struct {
	FieldName      string            `json:"field_name"`
	Values         map[string]string `json:"values"` // document type → value
	Recommendation string            `json:"recommendation"`
}

// DocumentGap describes a document type that, if uploaded, would fill
// currently-empty form fields.
type DocumentGap struct {
	DocumentType string   `json:"document_type"`
	Description  string   `json:"description"`
	Fields       []string `json:"fields"`
	Priority     string   `json:"priority"` // high, medium, low
}

// CompletionStats summarizes how filled-in a form is.
type CompletionStats struct {
	Percentage     int `json:"percentage"`
	FilledCount    int `json:"filled_count"`
	TotalRequired  int `json:"total_required"`
	HighConfidence int `json:"high_confidence"`
}
