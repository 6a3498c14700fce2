package autofill

import "github.com/casebridge/docintel/internal/model"

// DefaultTotalRequired is the assumed field count when a form type has no
// registered definition, so completion percentages stay meaningful.
const DefaultTotalRequired = 20

// HighConfidenceThreshold marks a filled field as high confidence.
const HighConfidenceThreshold = 0.8

// ComputeStats scores how complete a form is. The percentage is
// round(100 * filled / totalRequired), capped at 100 since a form can carry
// more filled fields than its required minimum.
func ComputeStats(fields []model.FormField, totalRequired int) model.CompletionStats {
	if totalRequired <= 0 {
		totalRequired = DefaultTotalRequired
	}

	stats := model.CompletionStats{TotalRequired: totalRequired}
	for _, f := range fields {
		if !f.Filled() {
			continue
		}
		stats.FilledCount++
		if f.Confidence >= HighConfidenceThreshold {
			stats.HighConfidence++
		}
	}

	pct := int(float64(100*stats.FilledCount)/float64(totalRequired) + 0.5)
	stats.Percentage = min(pct, 100)
	return stats
}
