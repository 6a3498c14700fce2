package autofill

import (
	"sort"

	"github.com/casebridge/docintel/internal/formdef"
	"github.com/casebridge/docintel/internal/model"
)

var priorityRank = map[string]int{"high": 0, "medium": 1, "low": 2}

// UploadedTypes collects the document types present in an analyzed set.
// Documents that failed analysis or were rejected as non-documents do not
// count as uploaded.
func UploadedTypes(docs []model.DocumentAnalysisResult) map[string]bool {
	types := make(map[string]bool, len(docs))
	for _, doc := range docs {
		switch doc.DocumentType {
		case "", model.DocTypeError, model.DocTypeInvalid, model.DocTypeUnknown:
		default:
			types[doc.DocumentType] = true
		}
	}
	return types
}

// AnalyzeGaps reports which document types would fill still-empty fields of
// the form, from the static gap rules alone. No model call is involved.
// Rules whose document type is already among uploadedTypes are skipped:
// asking for a document the case already has is noise, even when its
// extraction came back thin. Gaps come back ordered by priority, then by how
// many empty fields they cover.
func AnalyzeGaps(def *formdef.FormDefinition, fields []model.FormField, uploadedTypes map[string]bool) []model.DocumentGap {
	if def == nil {
		return nil
	}

	filled := map[string]bool{}
	for _, f := range fields {
		if f.Filled() {
			filled[f.FieldName] = true
		}
	}

	var gaps []model.DocumentGap
	for _, rule := range def.Gaps {
		if uploadedTypes[rule.DocumentType] {
			continue
		}
		var empty []string
		for _, name := range rule.Fields {
			if !filled[name] {
				empty = append(empty, name)
			}
		}
		if len(empty) == 0 {
			continue
		}
		gaps = append(gaps, model.DocumentGap{
			DocumentType: rule.DocumentType,
			Description:  rule.Description,
			Fields:       empty,
			Priority:     rule.Priority,
		})
	}

	sort.SliceStable(gaps, func(i, j int) bool {
		if priorityRank[gaps[i].Priority] != priorityRank[gaps[j].Priority] {
			return priorityRank[gaps[i].Priority] < priorityRank[gaps[j].Priority]
		}
		return len(gaps[i].Fields) > len(gaps[j].Fields)
	})
	return gaps
}
