package model

import "time"

// Display statuses for uploaded documents, derived from lifecycle status and
// extraction confidence.
const (
	DocStatusVerified    = "verified"
	DocStatusNeedsReview = "needs_review"
	DocStatusProcessing  = "processing"
	DocStatusRejected    = "rejected"
)

// Filing readiness levels for a case's document set.
const (
	ReadinessReady       = "ready"
	ReadinessNeedsReview = "needs_review"
	ReadinessIncomplete  = "incomplete"
)

// ChecklistItem is one entry in a visa category's document checklist.
type ChecklistItem struct {
	DocumentType string `json:"document_type"`
	Description  string `json:"description"`
	Required     bool   `json:"required"`
}

// UploadedDocument is the completeness analyzer's read-only view of a stored
// case document.
type UploadedDocument struct {
	ID           string     `json:"id"`
	DocumentType string     `json:"document_type"`
	Status       string     `json:"status"` // lifecycle: pending, processed, verified, rejected
	Confidence   float64    `json:"confidence"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	UploadedAt   time.Time  `json:"uploaded_at"`
}

// DocumentStatus pairs an uploaded document with its derived display status.
type DocumentStatus struct {
	Document UploadedDocument `json:"document"`
	Status   string           `json:"status"`
}

// CompletenessResult aggregates per-visa-type document requirements against
// what has been uploaded. Derived on demand; never persisted here.
type CompletenessResult struct {
	CaseID              string           `json:"case_id"`
	VisaType            string           `json:"visa_type"`
	OverallCompleteness int              `json:"overall_completeness"`
	FilingReadiness     string           `json:"filing_readiness"`
	MissingRequired     []ChecklistItem  `json:"missing_required"`
	MissingOptional     []ChecklistItem  `json:"missing_optional"`
	Documents           []DocumentStatus `json:"documents"`
	Recommendations     []string         `json:"recommendations"`
}
