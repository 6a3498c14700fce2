package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casebridge/docintel/internal/model"
)

func passportResult(fields map[string]string) *model.DocumentAnalysisResult {
	r := &model.DocumentAnalysisResult{DocumentType: model.DocTypePassport}
	for name, value := range fields {
		r.ExtractedFields = append(r.ExtractedFields, model.ExtractedField{
			FieldName: name,
			Value:     model.StringPtr(value),
		})
	}
	return r
}

func TestCompareDocuments_Identical(t *testing.T) {
	a := passportResult(map[string]string{"surname": "DOE", "given_name": "JANE"})
	b := passportResult(map[string]string{"surname": "DOE", "given_name": "JANE"})

	result, err := CompareDocuments(a, b)
	require.NoError(t, err)
	assert.True(t, result.Identical)
	assert.Equal(t, 1.0, result.Similarity)
	assert.Empty(t, result.Differences)
}

func TestCompareDocuments_ValueMismatch(t *testing.T) {
	a := passportResult(map[string]string{"surname": "DOE", "given_name": "JANE"})
	b := passportResult(map[string]string{"surname": "DOE", "given_name": "JEAN"})

	result, err := CompareDocuments(a, b)
	require.NoError(t, err)
	assert.False(t, result.Identical)
	assert.Equal(t, 0.5, result.Similarity)
	require.Len(t, result.Differences, 1)
	assert.Contains(t, result.Differences[0], "given_name")
}

func TestCompareDocuments_MissingFieldCountsAsDifference(t *testing.T) {
	a := passportResult(map[string]string{"surname": "DOE", "passport_number": "X1"})
	b := passportResult(map[string]string{"surname": "DOE"})

	result, err := CompareDocuments(a, b)
	require.NoError(t, err)
	assert.False(t, result.Identical)
	assert.Equal(t, 0.5, result.Similarity)
	require.Len(t, result.Differences, 1)
	assert.Contains(t, result.Differences[0], "only in first document")
}

func TestCompareDocuments_HighSimilarityStillNotIdenticalWithDifferences(t *testing.T) {
	fields := map[string]string{}
	for _, name := range []string{
		"a", "b", "c", "d", "e", "f", "g", "h", "i", "j",
		"k", "l", "m", "n", "o", "p", "q", "r", "s", "t",
	} {
		fields[name] = "same"
	}
	a := passportResult(fields)

	changed := map[string]string{}
	for name, value := range fields {
		changed[name] = value
	}
	changed["t"] = "different"
	b := passportResult(changed)

	// 19/20 match: similarity 0.95 is not strictly above the threshold, and
	// a recorded difference rules out identical regardless.
	result, err := CompareDocuments(a, b)
	require.NoError(t, err)
	assert.False(t, result.Identical)
	assert.InDelta(t, 0.95, result.Similarity, 1e-9)
}

func TestCompareDocuments_TypeMismatch(t *testing.T) {
	a := passportResult(nil)
	b := &model.DocumentAnalysisResult{DocumentType: model.DocTypeVisa}

	_, err := CompareDocuments(a, b)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot compare")
}

func TestCompareDocuments_BothEmpty(t *testing.T) {
	result, err := CompareDocuments(passportResult(nil), passportResult(nil))
	require.NoError(t, err)
	assert.True(t, result.Identical)
	assert.Equal(t, 1.0, result.Similarity)
}
