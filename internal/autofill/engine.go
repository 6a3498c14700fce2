// Package autofill merges fields extracted from a case's documents into a
// target USCIS form: static mappings first, a model-proposed fallback for
// leftover fields, cross-document consistency checks, static gap analysis
// and completion scoring.
package autofill

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/casebridge/docintel/internal/citation"
	"github.com/casebridge/docintel/internal/formdef"
	"github.com/casebridge/docintel/internal/model"
)

// Options tunes the engine.
type Options struct {
	// Mapper, when set, proposes placements for extracted fields with no
	// static mapping. Without it those fields are simply skipped.
	Mapper FieldMapper
	// Matcher attaches citations to filled fields. Defaults to the tuned
	// thresholds.
	Matcher *citation.Matcher
}

// Input carries the caller-supplied context for one autofill run.
type Input struct {
	// ExistingValues maps semantic field names to values already present on
	// the form. They surface as each field's current value next to the
	// suggestion and count toward completion; the engine never discards them.
	ExistingValues map[string]string
	// VisaType and Relationship describe the case, e.g. adjustment_of_status
	// filed by a spouse. Both are forwarded to the model-assisted mapper.
	VisaType     string
	Relationship string
}

// Engine autofills forms from analyzed documents.
type Engine struct {
	registry *formdef.Registry
	mapper   FieldMapper
	matcher  *citation.Matcher
}

// NewEngine wires an engine over the static form definitions.
func NewEngine(registry *formdef.Registry, opts Options) *Engine {
	matcher := opts.Matcher
	if matcher == nil {
		matcher = citation.NewMatcher(citation.DefaultMatcherConfig())
	}
	return &Engine{registry: registry, mapper: opts.Mapper, matcher: matcher}
}

// mergedField is the best value seen for one semantic field name.
type mergedField struct {
	value          string
	confidence     float64
	sourceDocType  string
	needsAttention bool
}

// Autofill fills the named form from the documents' extracted fields.
// Citations, when supplied, are attached to the fields they justify. Fields
// whose values disagree across documents are filled with the
// highest-confidence value and marked for review.
func (e *Engine) Autofill(ctx context.Context, formType string, docs []model.DocumentAnalysisResult, citations []model.Citation, in Input) (*model.FormAutofillResult, error) {
	start := time.Now()

	def, known := e.registry.Form(formType)
	if !known && e.mapper == nil {
		return nil, eris.Errorf("autofill: unsupported form type %s", formType)
	}

	result := &model.FormAutofillResult{FormType: formType}

	merged, total := mergeFields(docs)
	if total == 0 {
		result.Warnings = append(result.Warnings, "no document data available to autofill from")
		result.ProcessingTimeMs = time.Since(start).Milliseconds()
		return result, nil
	}

	discrepancies := CheckConsistency(docs)
	disputedNames := make([]string, 0, len(discrepancies))
	for _, d := range discrepancies {
		disputedNames = append(disputedNames, strings.ToLower(d.FieldName))
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"field %s has conflicting values across documents: %s", d.FieldName, d.Recommendation))
	}

	mappedNames := map[string]bool{}
	if known {
		for _, name := range def.FieldNames() {
			mapping, _ := def.Mapping(name)
			field := model.FormField{
				FieldID:      mapping.FieldID,
				FieldName:    name,
				FieldType:    mapping.FieldType,
				CurrentValue: in.ExistingValues[name],
			}
			if mf, ok := merged[name]; ok {
				e.fill(&field, mf, disputed(name, disputedNames), citations)
			}
			result.Fields = append(result.Fields, field)
			mappedNames[name] = true
		}
	}

	if e.mapper != nil {
		if err := e.applyFallback(ctx, formType, in, docs, merged, mappedNames, disputedNames, citations, result); err != nil {
			// The static fill stands on its own; a fallback failure is a
			// warning, not a hard error.
			zap.L().Warn("model field-mapping fallback failed",
				zap.String("form_type", formType),
				zap.Error(err),
			)
			result.Warnings = append(result.Warnings, "model-assisted field mapping unavailable; unmapped fields were skipped")
		}
	}

	result.OverallConfidence = overallConfidence(result.Fields)
	if known {
		for _, gap := range AnalyzeGaps(def, result.Fields, UploadedTypes(docs)) {
			result.MissingDocuments = append(result.MissingDocuments, gap.DocumentType)
		}
	}
	result.ProcessingTimeMs = time.Since(start).Milliseconds()

	zap.L().Info("form autofilled",
		zap.String("form_type", formType),
		zap.Int("fields", len(result.Fields)),
		zap.Float64("confidence", result.OverallConfidence),
	)
	return result, nil
}

// Stats scores the result against the form's required field count, falling
// back to the default when the form is unregistered.
func (e *Engine) Stats(result *model.FormAutofillResult) model.CompletionStats {
	totalRequired := 0
	if def, ok := e.registry.Form(result.FormType); ok {
		totalRequired = def.TotalRequired
	}
	return ComputeStats(result.Fields, totalRequired)
}

// Gaps runs the static gap analysis for the result's form against the
// documents the result was built from.
func (e *Engine) Gaps(result *model.FormAutofillResult, docs []model.DocumentAnalysisResult) []model.DocumentGap {
	def, ok := e.registry.Form(result.FormType)
	if !ok {
		return nil
	}
	return AnalyzeGaps(def, result.Fields, UploadedTypes(docs))
}

// disputed reports whether a form field is touched by a discrepancy. A
// conflict on applicant_date_of_birth covers date_of_birth and vice versa,
// so names match on case-insensitive containment in either direction.
func disputed(fieldName string, disputedNames []string) bool {
	name := strings.ToLower(fieldName)
	for _, d := range disputedNames {
		if strings.Contains(name, d) || strings.Contains(d, name) {
			return true
		}
	}
	return false
}

func (e *Engine) fill(field *model.FormField, mf mergedField, isDisputed bool, citations []model.Citation) {
	field.SuggestedValue = mf.value
	field.Confidence = mf.confidence
	field.SourceDocument = mf.sourceDocType
	field.RequiresReview = isDisputed || mf.needsAttention
	field.Citations = e.matcher.ForField(mf.value, citations)
}

func (e *Engine) applyFallback(ctx context.Context, formType string, in Input, docs []model.DocumentAnalysisResult, merged map[string]mergedField, mappedNames map[string]bool, disputedNames []string, citations []model.Citation, result *model.FormAutofillResult) error {
	var leftovers []model.ExtractedField
	for _, doc := range docs {
		for _, f := range doc.ExtractedFields {
			if f.Value == nil || mappedNames[f.FieldName] {
				continue
			}
			leftovers = append(leftovers, f)
		}
	}
	if len(leftovers) == 0 {
		return nil
	}

	proposed, err := e.mapper.MapFields(ctx, formType, in, leftovers)
	if err != nil {
		return err
	}

	seen := map[string]bool{}
	for _, field := range proposed {
		if mappedNames[field.FieldName] || seen[field.FieldName] {
			continue
		}
		seen[field.FieldName] = true
		field.CurrentValue = in.ExistingValues[field.FieldName]
		if mf, ok := merged[field.FieldName]; ok {
			e.fill(&field, mf, disputed(field.FieldName, disputedNames), citations)
			// Model-proposed placement always needs review, whatever the
			// merged confidence says.
			field.RequiresReview = true
		}
		result.Fields = append(result.Fields, field)
	}
	return nil
}

// mergeFields flattens all documents' extracted fields into the best value
// per field name (highest confidence wins) and reports the total number of
// usable values seen.
func mergeFields(docs []model.DocumentAnalysisResult) (map[string]mergedField, int) {
	merged := map[string]mergedField{}
	total := 0
	for _, doc := range docs {
		for _, f := range doc.ExtractedFields {
			if f.Value == nil {
				continue
			}
			total++
			current, exists := merged[f.FieldName]
			if exists && current.confidence >= f.Confidence {
				continue
			}
			sourceType := f.SourceDocumentType
			if sourceType == "" {
				sourceType = doc.DocumentType
			}
			merged[f.FieldName] = mergedField{
				value:          *f.Value,
				confidence:     f.Confidence,
				sourceDocType:  sourceType,
				needsAttention: f.RequiresVerification,
			}
		}
	}
	return merged, total
}

func overallConfidence(fields []model.FormField) float64 {
	sum, n := 0.0, 0
	for _, f := range fields {
		if f.SuggestedValue == "" {
			continue
		}
		sum += f.Confidence
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
