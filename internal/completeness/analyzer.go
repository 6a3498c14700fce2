// Package completeness compares a case's uploaded documents against its visa
// category's checklist and derives a filing-readiness assessment with
// actionable recommendations.
package completeness

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/casebridge/docintel/internal/model"
)

// VerifiedConfidence promotes a processed-but-unverified document to
// verified when its extraction confidence reaches this level.
const VerifiedConfidence = 0.7

// expiryWarningWindow is how far ahead expiring documents are flagged.
const expiryWarningWindow = 30 * 24 * time.Hour

// Store is the read-only slice of case data the analyzer consumes. It never
// writes; persistence belongs to the owning system.
type Store interface {
	CaseVisaType(ctx context.Context, caseID string) (string, error)
	Checklist(ctx context.Context, visaType string) ([]model.ChecklistItem, error)
	UploadedDocuments(ctx context.Context, caseID string) ([]model.UploadedDocument, error)
}

// Analyzer computes completeness results on demand.
type Analyzer struct {
	store Store
	now   func() time.Time
}

// NewAnalyzer wires an analyzer over a case store.
func NewAnalyzer(store Store) *Analyzer {
	return &Analyzer{store: store, now: time.Now}
}

// Analyze derives the completeness picture for one case.
func (a *Analyzer) Analyze(ctx context.Context, caseID string) (*model.CompletenessResult, error) {
	visaType, err := a.store.CaseVisaType(ctx, caseID)
	if err != nil {
		return nil, eris.Wrapf(err, "completeness: load case %s", caseID)
	}
	checklist, err := a.store.Checklist(ctx, visaType)
	if err != nil {
		return nil, eris.Wrapf(err, "completeness: load checklist for %s", visaType)
	}
	docs, err := a.store.UploadedDocuments(ctx, caseID)
	if err != nil {
		return nil, eris.Wrapf(err, "completeness: load documents for case %s", caseID)
	}

	result := &model.CompletenessResult{CaseID: caseID, VisaType: visaType}
	now := a.now()

	uploadedTypes := map[string]bool{}
	hasReview, hasExpired := false, false

	for _, doc := range docs {
		status := classify(doc)
		result.Documents = append(result.Documents, model.DocumentStatus{Document: doc, Status: status})

		if status == model.DocStatusRejected {
			continue
		}
		uploadedTypes[doc.DocumentType] = true
		if status == model.DocStatusNeedsReview || status == model.DocStatusProcessing {
			hasReview = true
		}
		// Any expired document on file blocks filing, optional ones included;
		// USCIS rejects packets containing stale evidence.
		if isExpired(doc, now) {
			hasExpired = true
		}
	}

	totalRequired, haveRequired := 0, 0
	for _, item := range checklist {
		have := uploadedTypes[item.DocumentType]
		if item.Required {
			totalRequired++
			if have {
				haveRequired++
			} else {
				result.MissingRequired = append(result.MissingRequired, item)
			}
		} else if !have {
			result.MissingOptional = append(result.MissingOptional, item)
		}
	}

	if totalRequired == 0 {
		result.OverallCompleteness = 100
	} else {
		result.OverallCompleteness = int(float64(100*haveRequired)/float64(totalRequired) + 0.5)
	}

	switch {
	case hasExpired:
		result.FilingReadiness = model.ReadinessIncomplete
	case result.OverallCompleteness == 100 && !hasReview:
		result.FilingReadiness = model.ReadinessReady
	case result.OverallCompleteness == 100:
		result.FilingReadiness = model.ReadinessNeedsReview
	default:
		result.FilingReadiness = model.ReadinessIncomplete
	}

	result.Recommendations = a.recommend(result, docs, now)

	zap.L().Info("completeness analyzed",
		zap.String("case_id", caseID),
		zap.String("visa_type", visaType),
		zap.Int("completeness", result.OverallCompleteness),
		zap.String("readiness", result.FilingReadiness),
	)
	return result, nil
}

// classify derives the display status for one document. A processed document
// below the verification confidence bar needs human review; at or above it,
// the document counts as verified without further action.
func classify(doc model.UploadedDocument) string {
	switch doc.Status {
	case "verified":
		return model.DocStatusVerified
	case "rejected":
		return model.DocStatusRejected
	case "processed":
		if doc.Confidence >= VerifiedConfidence {
			return model.DocStatusVerified
		}
		return model.DocStatusNeedsReview
	default:
		return model.DocStatusProcessing
	}
}

func isExpired(doc model.UploadedDocument, now time.Time) bool {
	return doc.ExpiresAt != nil && doc.ExpiresAt.Before(now)
}

func isExpiring(doc model.UploadedDocument, now time.Time) bool {
	return doc.ExpiresAt != nil && !doc.ExpiresAt.Before(now) &&
		doc.ExpiresAt.Before(now.Add(expiryWarningWindow))
}

// recommend emits next actions in a fixed priority order: missing required
// documents first (top three), then review items, expiring documents,
// expired documents, and finally at most two optional suggestions when
// nothing required is missing.
func (a *Analyzer) recommend(result *model.CompletenessResult, docs []model.UploadedDocument, now time.Time) []string {
	var recs []string

	for i, item := range result.MissingRequired {
		if i == 3 {
			break
		}
		recs = append(recs, fmt.Sprintf("upload the missing required document: %s (%s)", item.DocumentType, item.Description))
	}

	for _, ds := range result.Documents {
		if ds.Status == model.DocStatusNeedsReview {
			recs = append(recs, fmt.Sprintf("review the low-confidence %s before filing", ds.Document.DocumentType))
		}
	}

	for _, doc := range docs {
		if isExpiring(doc, now) {
			recs = append(recs, fmt.Sprintf("%s expires on %s; obtain a renewal before filing",
				doc.DocumentType, doc.ExpiresAt.Format("2006-01-02")))
		}
	}
	for _, doc := range docs {
		if isExpired(doc, now) {
			recs = append(recs, fmt.Sprintf("%s has expired and must be replaced", doc.DocumentType))
		}
	}

	if len(result.MissingRequired) == 0 {
		for i, item := range result.MissingOptional {
			if i == 2 {
				break
			}
			recs = append(recs, fmt.Sprintf("consider adding %s to strengthen the case (%s)", item.DocumentType, item.Description))
		}
	}
	return recs
}
