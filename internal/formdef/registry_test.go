package formdef

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_EmbeddedAssets(t *testing.T) {
	reg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{
		"G-1145", "I-129", "I-130", "I-131", "I-140", "I-485", "I-539", "I-765", "N-400",
	}, reg.FormTypes())

	i485, ok := reg.Form("I-485")
	require.True(t, ok)
	assert.Equal(t, 25, i485.TotalRequired)

	mapping, ok := i485.Mapping("family_name")
	require.True(t, ok)
	assert.Equal(t, "form1.Pt1Line1a_FamilyName", mapping.FieldID)
	assert.Equal(t, "text", mapping.FieldType)

	_, ok = i485.Mapping("no_such_field")
	assert.False(t, ok)

	_, ok = reg.Form("X-1")
	assert.False(t, ok)
}

func TestLoad_Checklists(t *testing.T) {
	reg, err := Load()
	require.NoError(t, err)

	items, ok := reg.Checklist("adjustment_of_status")
	require.True(t, ok)
	require.NotEmpty(t, items)

	var requiredTypes []string
	for _, item := range items {
		if item.Required {
			requiredTypes = append(requiredTypes, item.DocumentType)
		}
	}
	assert.Contains(t, requiredTypes, "passport")
	assert.Contains(t, requiredTypes, "birth_certificate")

	_, ok = reg.Checklist("diplomatic_immunity")
	assert.False(t, ok)

	assert.Contains(t, reg.VisaTypes(), "naturalization")
}

func TestFieldNames_DefinitionOrder(t *testing.T) {
	reg, err := Load()
	require.NoError(t, err)

	g1145, ok := reg.Form("G-1145")
	require.True(t, ok)
	assert.Equal(t, []string{"family_name", "given_name", "email"}, g1145.FieldNames())
}

func TestValidateFieldID(t *testing.T) {
	assert.NoError(t, ValidateFieldID("form1.Pt1Line1_FamilyName"))
	assert.NoError(t, ValidateFieldID("form1"))

	assert.Error(t, ValidateFieldID(""))
	assert.Error(t, ValidateFieldID("form1..Pt1"))
	assert.Error(t, ValidateFieldID("form1.1Line"))
	assert.Error(t, ValidateFieldID("form1.Pt1-Line1"))
	assert.Error(t, ValidateFieldID("form1.Pt1Line1[0]"))
}

func TestLoad_GapRulesValidated(t *testing.T) {
	reg, err := Load()
	require.NoError(t, err)

	i485, _ := reg.Form("I-485")
	require.NotEmpty(t, i485.Gaps)
	for _, g := range i485.Gaps {
		assert.Contains(t, []string{"high", "medium", "low"}, g.Priority)
		assert.NotEmpty(t, g.DocumentType)
	}
}
