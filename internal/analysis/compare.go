package analysis

import (
	"fmt"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/casebridge/docintel/internal/model"
)

// identicalThreshold is the similarity a pair must exceed, with no recorded
// differences, to be called identical.
const identicalThreshold = 0.95

// CompareDocuments reports how similar two analyzed documents of the same
// type are, field by field. Similarity is the fraction of the combined field
// set whose values match exactly. The pair is identical only when similarity
// exceeds the threshold and there are no differences at all.
func CompareDocuments(a, b *model.DocumentAnalysisResult) (*model.ComparisonResult, error) {
	if a == nil || b == nil {
		return nil, eris.New("analysis: both documents are required for comparison")
	}
	if a.DocumentType != b.DocumentType {
		return nil, eris.Errorf("analysis: cannot compare %s against %s", a.DocumentType, b.DocumentType)
	}

	fieldsA := a.FieldMap()
	fieldsB := b.FieldMap()

	names := make(map[string]struct{}, len(fieldsA)+len(fieldsB))
	for name := range fieldsA {
		names[name] = struct{}{}
	}
	for name := range fieldsB {
		names[name] = struct{}{}
	}

	ordered := make([]string, 0, len(names))
	for name := range names {
		ordered = append(ordered, name)
	}
	sort.Strings(ordered)

	matches := 0
	var differences []string
	for _, name := range ordered {
		va, okA := fieldsA[name]
		vb, okB := fieldsB[name]
		switch {
		case okA && okB && va == vb:
			matches++
		case okA && okB:
			differences = append(differences, fmt.Sprintf("%s: %q vs %q", name, va, vb))
		case okA:
			differences = append(differences, fmt.Sprintf("%s: only in first document", name))
		default:
			differences = append(differences, fmt.Sprintf("%s: only in second document", name))
		}
	}

	similarity := 1.0
	if len(ordered) > 0 {
		similarity = float64(matches) / float64(len(ordered))
	}

	return &model.ComparisonResult{
		Identical:   similarity > identicalThreshold && len(differences) == 0,
		Similarity:  similarity,
		Differences: differences,
	}, nil
}
