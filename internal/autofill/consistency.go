package autofill

import (
	"fmt"
	"sort"
	"strings"

	"github.com/casebridge/docintel/internal/model"
)

// CheckConsistency compares same-named fields across documents of different
// types. A field whose values disagree yields a discrepancy; agreeing values
// yield nothing. Comparison normalizes case and surrounding whitespace so
// formatting noise does not flag real matches.
func CheckConsistency(docs []model.DocumentAnalysisResult) []model.FieldDiscrepancy {
	// field name → document type → value (last non-nil per document type).
	values := map[string]map[string]string{}
	for _, doc := range docs {
		docType := doc.DocumentType
		for _, f := range doc.ExtractedFields {
			if f.Value == nil {
				continue
			}
			byDoc, ok := values[f.FieldName]
			if !ok {
				byDoc = map[string]string{}
				values[f.FieldName] = byDoc
			}
			byDoc[docType] = *f.Value
		}
	}

	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	var discrepancies []model.FieldDiscrepancy
	for _, name := range names {
		byDoc := values[name]
		if len(byDoc) < 2 {
			continue
		}

		distinct := map[string]struct{}{}
		for _, v := range byDoc {
			distinct[normalize(v)] = struct{}{}
		}
		if len(distinct) < 2 {
			continue
		}

		discrepancies = append(discrepancies, model.FieldDiscrepancy{
			FieldName:      name,
			Values:         byDoc,
			Recommendation: fmt.Sprintf("verify %s against the original documents before filing", name),
		})
	}
	return discrepancies
}

func normalize(v string) string {
	return strings.ToLower(strings.Join(strings.Fields(v), " "))
}
