package completeness

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casebridge/docintel/internal/model"
)

var testNow = time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

type fakeStore struct {
	visaType  string
	checklist []model.ChecklistItem
	docs      []model.UploadedDocument
}

func (s *fakeStore) CaseVisaType(context.Context, string) (string, error) {
	return s.visaType, nil
}

func (s *fakeStore) Checklist(context.Context, string) ([]model.ChecklistItem, error) {
	return s.checklist, nil
}

func (s *fakeStore) UploadedDocuments(context.Context, string) ([]model.UploadedDocument, error) {
	return s.docs, nil
}

func adjustmentChecklist() []model.ChecklistItem {
	return []model.ChecklistItem{
		{DocumentType: "passport", Description: "Passport biographic page", Required: true},
		{DocumentType: "birth_certificate", Description: "Birth certificate", Required: true},
		{DocumentType: "i94", Description: "I-94 record", Required: true},
		{DocumentType: "tax_return", Description: "Recent tax return", Required: false},
	}
}

func verifiedDoc(docType string) model.UploadedDocument {
	return model.UploadedDocument{
		ID: docType + "-1", DocumentType: docType,
		Status: "verified", Confidence: 0.95, UploadedAt: testNow.Add(-24 * time.Hour),
	}
}

func newAnalyzer(store *fakeStore) *Analyzer {
	a := NewAnalyzer(store)
	a.now = func() time.Time { return testNow }
	return a
}

func TestAnalyze_AllRequiredPresent(t *testing.T) {
	store := &fakeStore{
		visaType:  "adjustment_of_status",
		checklist: adjustmentChecklist(),
		docs: []model.UploadedDocument{
			verifiedDoc("passport"), verifiedDoc("birth_certificate"), verifiedDoc("i94"),
		},
	}

	result, err := newAnalyzer(store).Analyze(context.Background(), "case-1")
	require.NoError(t, err)

	assert.Equal(t, 100, result.OverallCompleteness)
	assert.Equal(t, model.ReadinessReady, result.FilingReadiness)
	assert.Empty(t, result.MissingRequired)
	require.Len(t, result.MissingOptional, 1)
	assert.Equal(t, "tax_return", result.MissingOptional[0].DocumentType)

	// Nothing required missing, so the optional suggestion surfaces.
	require.NotEmpty(t, result.Recommendations)
	assert.Contains(t, result.Recommendations[0], "tax_return")
}

func TestAnalyze_MissingRequired(t *testing.T) {
	store := &fakeStore{
		visaType:  "adjustment_of_status",
		checklist: adjustmentChecklist(),
		docs:      []model.UploadedDocument{verifiedDoc("passport")},
	}

	result, err := newAnalyzer(store).Analyze(context.Background(), "case-1")
	require.NoError(t, err)

	assert.Equal(t, 33, result.OverallCompleteness) // round(100*1/3)
	assert.Equal(t, model.ReadinessIncomplete, result.FilingReadiness)
	require.Len(t, result.MissingRequired, 2)

	// Missing-required recommendations come first, optionals are suppressed.
	require.NotEmpty(t, result.Recommendations)
	assert.Contains(t, result.Recommendations[0], "birth_certificate")
	for _, rec := range result.Recommendations {
		assert.NotContains(t, rec, "strengthen the case")
	}
}

func TestAnalyze_ConfidencePromotesToVerified(t *testing.T) {
	store := &fakeStore{
		visaType: "adjustment_of_status",
		checklist: []model.ChecklistItem{
			{DocumentType: "passport", Required: true},
		},
		docs: []model.UploadedDocument{
			{ID: "d1", DocumentType: "passport", Status: "processed", Confidence: 0.7},
		},
	}

	result, err := newAnalyzer(store).Analyze(context.Background(), "case-1")
	require.NoError(t, err)

	require.Len(t, result.Documents, 1)
	assert.Equal(t, model.DocStatusVerified, result.Documents[0].Status)
	assert.Equal(t, model.ReadinessReady, result.FilingReadiness)
}

func TestAnalyze_LowConfidenceNeedsReview(t *testing.T) {
	store := &fakeStore{
		visaType: "adjustment_of_status",
		checklist: []model.ChecklistItem{
			{DocumentType: "passport", Required: true},
		},
		docs: []model.UploadedDocument{
			{ID: "d1", DocumentType: "passport", Status: "processed", Confidence: 0.69},
		},
	}

	result, err := newAnalyzer(store).Analyze(context.Background(), "case-1")
	require.NoError(t, err)

	assert.Equal(t, model.DocStatusNeedsReview, result.Documents[0].Status)
	assert.Equal(t, 100, result.OverallCompleteness)
	assert.Equal(t, model.ReadinessNeedsReview, result.FilingReadiness)

	var reviewRec bool
	for _, rec := range result.Recommendations {
		if strings.Contains(rec, "review the low-confidence passport") {
			reviewRec = true
		}
	}
	assert.True(t, reviewRec)
}

func TestAnalyze_RejectedDocumentDoesNotCount(t *testing.T) {
	store := &fakeStore{
		visaType: "adjustment_of_status",
		checklist: []model.ChecklistItem{
			{DocumentType: "passport", Required: true},
		},
		docs: []model.UploadedDocument{
			{ID: "d1", DocumentType: "passport", Status: "rejected", Confidence: 0.9},
		},
	}

	result, err := newAnalyzer(store).Analyze(context.Background(), "case-1")
	require.NoError(t, err)

	assert.Equal(t, 0, result.OverallCompleteness)
	require.Len(t, result.MissingRequired, 1)
	assert.Equal(t, model.ReadinessIncomplete, result.FilingReadiness)
}

func TestAnalyze_ExpiredRequiredDocumentBlocksFiling(t *testing.T) {
	expired := testNow.Add(-48 * time.Hour)
	passport := verifiedDoc("passport")
	passport.ExpiresAt = &expired

	store := &fakeStore{
		visaType: "adjustment_of_status",
		checklist: []model.ChecklistItem{
			{DocumentType: "passport", Required: true},
		},
		docs: []model.UploadedDocument{passport},
	}

	result, err := newAnalyzer(store).Analyze(context.Background(), "case-1")
	require.NoError(t, err)

	assert.Equal(t, 100, result.OverallCompleteness)
	assert.Equal(t, model.ReadinessIncomplete, result.FilingReadiness)

	var expiredRec bool
	for _, rec := range result.Recommendations {
		if strings.Contains(rec, "has expired") {
			expiredRec = true
		}
	}
	assert.True(t, expiredRec)
}

func TestAnalyze_ExpiredOptionalDocumentBlocksFiling(t *testing.T) {
	expired := testNow.Add(-48 * time.Hour)
	license := verifiedDoc("drivers_license")
	license.ExpiresAt = &expired

	store := &fakeStore{
		visaType: "adjustment_of_status",
		checklist: []model.ChecklistItem{
			{DocumentType: "passport", Required: true},
			{DocumentType: "drivers_license", Required: false},
		},
		docs: []model.UploadedDocument{verifiedDoc("passport"), license},
	}

	result, err := newAnalyzer(store).Analyze(context.Background(), "case-1")
	require.NoError(t, err)

	// Every required document is present, but an expired optional document
	// still blocks filing.
	assert.Equal(t, 100, result.OverallCompleteness)
	assert.Equal(t, model.ReadinessIncomplete, result.FilingReadiness)

	var expiredRec bool
	for _, rec := range result.Recommendations {
		if strings.Contains(rec, "drivers_license has expired") {
			expiredRec = true
		}
	}
	assert.True(t, expiredRec)
}

func TestAnalyze_ExpiringSoonWarns(t *testing.T) {
	expiring := testNow.Add(10 * 24 * time.Hour)
	passport := verifiedDoc("passport")
	passport.ExpiresAt = &expiring

	store := &fakeStore{
		visaType: "adjustment_of_status",
		checklist: []model.ChecklistItem{
			{DocumentType: "passport", Required: true},
		},
		docs: []model.UploadedDocument{passport},
	}

	result, err := newAnalyzer(store).Analyze(context.Background(), "case-1")
	require.NoError(t, err)

	assert.Equal(t, model.ReadinessReady, result.FilingReadiness)
	var expiringRec bool
	for _, rec := range result.Recommendations {
		if strings.Contains(rec, "obtain a renewal") {
			expiringRec = true
		}
	}
	assert.True(t, expiringRec)
}

func TestAnalyze_MissingRequiredRecommendationsCapAtThree(t *testing.T) {
	store := &fakeStore{
		visaType: "employment_based",
		checklist: []model.ChecklistItem{
			{DocumentType: "passport", Required: true},
			{DocumentType: "employment_letter", Required: true},
			{DocumentType: "diploma", Required: true},
			{DocumentType: "transcript", Required: true},
			{DocumentType: "w2", Required: true},
		},
	}

	result, err := newAnalyzer(store).Analyze(context.Background(), "case-1")
	require.NoError(t, err)

	missingRecs := 0
	for _, rec := range result.Recommendations {
		if strings.Contains(rec, "missing required document") {
			missingRecs++
		}
	}
	assert.Equal(t, 3, missingRecs)
	assert.Len(t, result.MissingRequired, 5)
}

func TestAnalyze_EmptyChecklistIsComplete(t *testing.T) {
	store := &fakeStore{visaType: "unknown_category"}

	result, err := newAnalyzer(store).Analyze(context.Background(), "case-1")
	require.NoError(t, err)
	assert.Equal(t, 100, result.OverallCompleteness)
	assert.Equal(t, model.ReadinessReady, result.FilingReadiness)
}
