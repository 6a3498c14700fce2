// Package formdef holds the static definitions of supported USCIS forms:
// which semantic field names map to which XFA dataset paths, how many fields
// each form requires, which document types would fill its gaps, and the
// per-visa-type document checklists. The data lives in embedded YAML so new
// forms are added by editing a data asset, not control flow.
package formdef

import (
	_ "embed"
	"regexp"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/casebridge/docintel/internal/model"
)

//go:embed assets/forms.yaml
var formsYAML []byte

//go:embed assets/checklists.yaml
var checklistsYAML []byte

// safeFieldPart is the allowed shape of one dot-separated segment of an XFA
// dataset path. The fill service rejects anything else, so bad paths are
// caught here at load time instead of at fill time.
var safeFieldPart = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)

// FieldMapping binds a semantic field name to a form's XFA dataset path.
type FieldMapping struct {
	FieldName string `yaml:"field_name"`
	FieldID   string `yaml:"field_id"`
	FieldType string `yaml:"field_type"`
}

// GapRule says which still-empty fields a document type would fill.
type GapRule struct {
	DocumentType string   `yaml:"document_type"`
	Description  string   `yaml:"description"`
	Fields       []string `yaml:"fields"`
	Priority     string   `yaml:"priority"`
}

// FormDefinition is everything known statically about one form type.
type FormDefinition struct {
	FormType      string         `yaml:"form_type"`
	Title         string         `yaml:"title"`
	TotalRequired int            `yaml:"total_required"`
	Mappings      []FieldMapping `yaml:"mappings"`
	Gaps          []GapRule      `yaml:"gaps"`

	byName map[string]FieldMapping
}

// Mapping returns the form's mapping for a semantic field name. Duplicate
// names in the data resolve to the first mapping; many-to-one is disallowed.
func (d *FormDefinition) Mapping(fieldName string) (FieldMapping, bool) {
	m, ok := d.byName[fieldName]
	return m, ok
}

// FieldNames returns the mapped semantic field names in definition order.
func (d *FormDefinition) FieldNames() []string {
	names := make([]string, 0, len(d.Mappings))
	seen := make(map[string]struct{}, len(d.Mappings))
	for _, m := range d.Mappings {
		if _, dup := seen[m.FieldName]; dup {
			continue
		}
		seen[m.FieldName] = struct{}{}
		names = append(names, m.FieldName)
	}
	return names
}

type checklistFile struct {
	Checklists map[string][]struct {
		DocumentType string `yaml:"document_type"`
		Description  string `yaml:"description"`
		Required     bool   `yaml:"required"`
	} `yaml:"checklists"`
}

type formsFile struct {
	Forms []*FormDefinition `yaml:"forms"`
}

// Registry offers indexed lookups over the embedded definitions.
type Registry struct {
	forms      map[string]*FormDefinition
	checklists map[string][]model.ChecklistItem
}

// Load parses and validates the embedded definitions.
func Load() (*Registry, error) {
	var ff formsFile
	if err := yaml.Unmarshal(formsYAML, &ff); err != nil {
		return nil, eris.Wrap(err, "formdef: parse forms.yaml")
	}

	reg := &Registry{
		forms:      make(map[string]*FormDefinition, len(ff.Forms)),
		checklists: make(map[string][]model.ChecklistItem),
	}

	for _, def := range ff.Forms {
		if def.FormType == "" {
			return nil, eris.New("formdef: form with empty form_type")
		}
		if _, dup := reg.forms[def.FormType]; dup {
			return nil, eris.Errorf("formdef: duplicate form type %s", def.FormType)
		}
		if def.TotalRequired <= 0 {
			return nil, eris.Errorf("formdef: form %s has no total_required", def.FormType)
		}

		def.byName = make(map[string]FieldMapping, len(def.Mappings))
		for _, m := range def.Mappings {
			if err := ValidateFieldID(m.FieldID); err != nil {
				return nil, eris.Wrapf(err, "formdef: form %s field %s", def.FormType, m.FieldName)
			}
			if _, dup := def.byName[m.FieldName]; dup {
				// First mapping wins.
				continue
			}
			def.byName[m.FieldName] = m
		}

		for _, g := range def.Gaps {
			switch g.Priority {
			case "high", "medium", "low":
			default:
				return nil, eris.Errorf("formdef: form %s gap %s has priority %q", def.FormType, g.DocumentType, g.Priority)
			}
		}
		reg.forms[def.FormType] = def
	}

	var cf checklistFile
	if err := yaml.Unmarshal(checklistsYAML, &cf); err != nil {
		return nil, eris.Wrap(err, "formdef: parse checklists.yaml")
	}
	for visaType, items := range cf.Checklists {
		list := make([]model.ChecklistItem, 0, len(items))
		for _, item := range items {
			if item.DocumentType == "" {
				return nil, eris.Errorf("formdef: checklist %s has an item with no document_type", visaType)
			}
			list = append(list, model.ChecklistItem{
				DocumentType: item.DocumentType,
				Description:  item.Description,
				Required:     item.Required,
			})
		}
		reg.checklists[visaType] = list
	}

	return reg, nil
}

// Form looks up a form definition by type, e.g. "I-485".
func (r *Registry) Form(formType string) (*FormDefinition, bool) {
	def, ok := r.forms[formType]
	return def, ok
}

// FormTypes returns the supported form types, sorted.
func (r *Registry) FormTypes() []string {
	types := make([]string, 0, len(r.forms))
	for t := range r.forms {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Checklist returns the document checklist for a visa type.
func (r *Registry) Checklist(visaType string) ([]model.ChecklistItem, bool) {
	items, ok := r.checklists[visaType]
	return items, ok
}

// VisaTypes returns the visa types with checklists, sorted.
func (r *Registry) VisaTypes() []string {
	types := make([]string, 0, len(r.checklists))
	for t := range r.checklists {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// ValidateFieldID checks that every dot-separated segment of an XFA dataset
// path is a safe element name.
func ValidateFieldID(fieldID string) error {
	if fieldID == "" {
		return eris.New("formdef: empty field id")
	}
	for _, part := range strings.Split(fieldID, ".") {
		if !safeFieldPart.MatchString(part) {
			return eris.Errorf("formdef: unsafe field path segment %q in %q", part, fieldID)
		}
	}
	return nil
}
