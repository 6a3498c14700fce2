package autofill

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/casebridge/docintel/internal/extract"
	"github.com/casebridge/docintel/internal/formdef"
	"github.com/casebridge/docintel/internal/model"
	"github.com/casebridge/docintel/internal/redact"
	"github.com/casebridge/docintel/pkg/anthropic"
)

// FieldMapper proposes form-field placements for extracted field names that
// have no static mapping. The run input supplies case context (visa type,
// relationship) to steer the placements.
type FieldMapper interface {
	MapFields(ctx context.Context, formType string, in Input, fields []model.ExtractedField) ([]model.FormField, error)
}

const mapperSystem = `You map extracted immigration-document fields onto USCIS form fields.
Given a form type, case context and a list of extracted field names, propose the XFA dataset
path each field belongs to on that form. Only propose placements you are sure
about; omit fields that have no place on the form. Field values may be redacted;
map by field name and type, never by value.`

var mapperSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"mappings": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"field_name": map[string]any{"type": "string"},
					"field_id":   map[string]any{"type": "string"},
					"field_type": map[string]any{"type": "string", "enum": []any{"text", "date", "select", "checkbox"}},
				},
				"required": []any{"field_name", "field_id", "field_type"},
			},
		},
	},
	"required": []any{"mappings"},
}

// ModelMapper implements FieldMapper with a forced-tool model call. Field
// values are PII-redacted before they leave the process.
type ModelMapper struct {
	runner    *extract.Runner
	model     string
	maxTokens int64
}

// NewModelMapper wires the fallback mapper onto a structured extraction
// runner.
func NewModelMapper(runner *extract.Runner, modelName string) *ModelMapper {
	if modelName == "" {
		modelName = "claude-sonnet-4-5-20250929"
	}
	return &ModelMapper{runner: runner, model: modelName, maxTokens: 2048}
}

func (m *ModelMapper) MapFields(ctx context.Context, formType string, in Input, fields []model.ExtractedField) ([]model.FormField, error) {
	if len(fields) == 0 {
		return nil, nil
	}

	redacted := redact.Fields(fields)
	sort.Slice(redacted, func(i, j int) bool { return redacted[i].FieldName < redacted[j].FieldName })

	var sb strings.Builder
	fmt.Fprintf(&sb, "Form type: %s\n", formType)
	if in.VisaType != "" {
		fmt.Fprintf(&sb, "Visa type: %s\n", in.VisaType)
	}
	if in.Relationship != "" {
		fmt.Fprintf(&sb, "Beneficiary relationship: %s\n", in.Relationship)
	}
	sb.WriteString("\nExtracted fields:\n")
	for _, f := range redacted {
		fmt.Fprintf(&sb, "- %s = %s (from %s)\n", f.FieldName, f.StringValue(), f.SourceDocumentType)
	}

	out, _, err := m.runner.Run(ctx, extract.Request{
		ToolName:        "record_field_mappings",
		ToolDescription: "Record the form-field placement for each extracted field",
		Schema:          mapperSchema,
		System:          mapperSystem,
		CacheSystem:     true,
		Content:         []anthropic.ContentBlock{anthropic.TextContent(sb.String())},
		Model:           m.model,
		MaxTokens:       m.maxTokens,
	})
	if err != nil {
		return nil, eris.Wrap(err, "autofill: model field mapping")
	}

	rawMappings, _ := out["mappings"].([]any)
	var mapped []model.FormField
	for _, raw := range rawMappings {
		obj, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		fieldName, _ := obj["field_name"].(string)
		fieldID, _ := obj["field_id"].(string)
		fieldType, _ := obj["field_type"].(string)

		if err := formdef.ValidateFieldID(fieldID); err != nil {
			zap.L().Warn("model proposed unsafe field id",
				zap.String("form_type", formType),
				zap.String("field_name", fieldName),
				zap.String("field_id", fieldID),
			)
			continue
		}
		mapped = append(mapped, model.FormField{
			FieldID:   fieldID,
			FieldName: fieldName,
			FieldType: fieldType,
			// Model-proposed placements always get human review.
			RequiresReview: true,
		})
	}
	return mapped, nil
}
