// Package citation turns provider citation annotations into weak references
// from form fields back to the source passages that justified them.
package citation

import (
	"strings"
	"unicode/utf8"

	"github.com/casebridge/docintel/internal/model"
	"github.com/casebridge/docintel/pkg/anthropic"
)

// SourceDocument identifies a document by its position in the request's
// content blocks, which is how the provider indexes citations.
type SourceDocument struct {
	ID           string
	DocumentType string
}

// FromResponse collects every citation attached to the response's text
// blocks. Citation indexes are resolved through sources; an index outside
// the list falls back to the provider-reported document title as the type.
func FromResponse(resp *anthropic.MessageResponse, sources []SourceDocument) []model.Citation {
	if resp == nil {
		return nil
	}

	var out []model.Citation
	for _, block := range resp.Content {
		if block.Type != "text" {
			continue
		}
		for _, c := range block.Citations {
			mapped := model.Citation{
				Type:       "document",
				CitedText:  c.CitedText,
				StartIndex: c.StartCharIndex,
				EndIndex:   c.EndCharIndex,
				PageNumber: c.StartPageNumber,
			}
			if c.DocumentIndex >= 0 && c.DocumentIndex < len(sources) {
				mapped.DocumentID = sources[c.DocumentIndex].ID
				mapped.DocumentType = sources[c.DocumentIndex].DocumentType
			} else {
				mapped.DocumentType = c.DocumentTitle
			}
			out = append(out, mapped)
		}
	}
	return out
}

// MatcherConfig holds the heuristic thresholds for attaching a citation to a
// field value. The defaults are tuned empirically; both knobs stay
// configurable rather than baked in.
type MatcherConfig struct {
	// MinMatchLen is the minimum length of both the field value and the
	// cited text for a match to be considered at all.
	MinMatchLen int
	// MinLengthRatio is the minimum shorter/longer length ratio. It rejects
	// pairs where a short value merely happens to appear inside a long
	// passage.
	MinLengthRatio float64
}

// DefaultMatcherConfig returns the tuned thresholds.
func DefaultMatcherConfig() MatcherConfig {
	return MatcherConfig{MinMatchLen: 3, MinLengthRatio: 0.4}
}

// Matcher attaches citations to field values by substring matching.
type Matcher struct {
	cfg MatcherConfig
}

// NewMatcher creates a matcher; zero config fields pick up the defaults.
func NewMatcher(cfg MatcherConfig) *Matcher {
	def := DefaultMatcherConfig()
	if cfg.MinMatchLen <= 0 {
		cfg.MinMatchLen = def.MinMatchLen
	}
	if cfg.MinLengthRatio <= 0 {
		cfg.MinLengthRatio = def.MinLengthRatio
	}
	return &Matcher{cfg: cfg}
}

// Matches reports whether citedText plausibly justifies fieldValue: both
// sides at least MinMatchLen long, lengths within MinLengthRatio of each
// other, and one containing the other case-insensitively.
func (m *Matcher) Matches(fieldValue, citedText string) bool {
	value := strings.ToLower(strings.TrimSpace(fieldValue))
	cited := strings.ToLower(strings.TrimSpace(citedText))

	// Lengths count characters, not bytes, so accented names are not
	// over-counted.
	valueLen := utf8.RuneCountInString(value)
	citedLen := utf8.RuneCountInString(cited)
	if valueLen < m.cfg.MinMatchLen || citedLen < m.cfg.MinMatchLen {
		return false
	}

	shorter, longer := valueLen, citedLen
	if shorter > longer {
		shorter, longer = longer, shorter
	}
	if float64(shorter)/float64(longer) < m.cfg.MinLengthRatio {
		return false
	}

	return strings.Contains(cited, value) || strings.Contains(value, cited)
}

// ForField returns every citation whose text matches the field value. A
// field can be justified by multiple passages.
func (m *Matcher) ForField(fieldValue string, citations []model.Citation) []model.Citation {
	var matched []model.Citation
	for _, c := range citations {
		if m.Matches(fieldValue, c.CitedText) {
			matched = append(matched, c)
		}
	}
	return matched
}
