package autofill

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casebridge/docintel/internal/model"
)

func TestCheckConsistency_AgreementIsSilent(t *testing.T) {
	docs := []model.DocumentAnalysisResult{
		docResult(model.DocTypePassport, map[string]string{"date_of_birth": "1990-01-01"}),
		docResult(model.DocTypeBirthCertificate, map[string]string{"date_of_birth": "1990-01-01"}),
	}
	assert.Empty(t, CheckConsistency(docs))
}

func TestCheckConsistency_FormattingNoiseIgnored(t *testing.T) {
	docs := []model.DocumentAnalysisResult{
		docResult(model.DocTypePassport, map[string]string{"family_name": "DOE"}),
		docResult(model.DocTypeBirthCertificate, map[string]string{"family_name": "  doe "}),
	}
	assert.Empty(t, CheckConsistency(docs))
}

func TestCheckConsistency_ConflictReported(t *testing.T) {
	docs := []model.DocumentAnalysisResult{
		docResult(model.DocTypePassport, map[string]string{"date_of_birth": "1990-01-01"}),
		docResult(model.DocTypeBirthCertificate, map[string]string{"date_of_birth": "1990-01-21"}),
	}

	discrepancies := CheckConsistency(docs)
	require.Len(t, discrepancies, 1)

	d := discrepancies[0]
	assert.Equal(t, "date_of_birth", d.FieldName)
	assert.Equal(t, "1990-01-01", d.Values[model.DocTypePassport])
	assert.Equal(t, "1990-01-21", d.Values[model.DocTypeBirthCertificate])
	assert.NotEmpty(t, d.Recommendation)
}

func TestCheckConsistency_SingleDocumentNeverConflicts(t *testing.T) {
	docs := []model.DocumentAnalysisResult{
		docResult(model.DocTypePassport, map[string]string{"family_name": "DOE", "given_name": "JANE"}),
	}
	assert.Empty(t, CheckConsistency(docs))
}

func TestCheckConsistency_NilValuesIgnored(t *testing.T) {
	passport := model.DocumentAnalysisResult{
		DocumentType: model.DocTypePassport,
		ExtractedFields: []model.ExtractedField{
			{FieldName: "middle_name", Value: nil},
		},
	}
	birth := docResult(model.DocTypeBirthCertificate, map[string]string{"middle_name": "Marie"})

	assert.Empty(t, CheckConsistency([]model.DocumentAnalysisResult{passport, birth}))
}
