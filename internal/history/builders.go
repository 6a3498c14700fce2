// Package history derives residence, employment and education timelines from
// the fields extracted across a case's documents. Each document contributes
// at most one entry per timeline. Same-identity address and employment
// entries collapse into one, keeping the earliest start date seen; education
// entries are never merged.
package history

import (
	"sort"
	"strings"

	"github.com/casebridge/docintel/internal/model"
)

// BuildAddressHistory builds the residence timeline. Entries sharing
// street+city+state (case-insensitive) are one residence; the earliest
// from_date among them wins. The result is sorted by from_date, newest first.
//
// from_date ordering is plain string comparison over YYYY-MM values. An empty
// from_date therefore sorts as earliest and will win a dedup against any
// dated duplicate; see the package tests for the documented behavior.
func BuildAddressHistory(docs []model.DocumentAnalysisResult) []model.AddressHistoryEntry {
	byKey := map[string]model.AddressHistoryEntry{}
	var order []string

	for _, doc := range docs {
		fields := doc.FieldMap()
		entry := model.AddressHistoryEntry{
			Street:   firstOf(fields, "street", "current_street", "address_street"),
			City:     firstOf(fields, "city", "current_city", "address_city"),
			State:    firstOf(fields, "state", "current_state", "address_state"),
			ZipCode:  firstOf(fields, "zip_code", "current_zip", "zip"),
			Country:  firstOf(fields, "country", "current_country"),
			FromDate: firstOf(fields, "from_date", "residence_from", "statement_date", "document_date"),
			ToDate:   firstOf(fields, "to_date", "residence_to"),
			Source:   doc.DocumentType,
		}
		if entry.Street == "" || entry.City == "" {
			continue
		}

		key := dedupKey(entry.Street, entry.City, entry.State)
		existing, seen := byKey[key]
		if !seen {
			byKey[key] = entry
			order = append(order, key)
			continue
		}
		if entry.FromDate < existing.FromDate {
			existing.FromDate = entry.FromDate
		}
		if entry.ToDate > existing.ToDate {
			existing.ToDate = entry.ToDate
		}
		byKey[key] = existing
	}

	out := make([]model.AddressHistoryEntry, 0, len(order))
	for _, key := range order {
		out = append(out, byKey[key])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].FromDate > out[j].FromDate })
	return out
}

// BuildEmploymentHistory builds the employment timeline, deduplicating on
// employer+title and keeping the earliest from_date. Sorted newest first.
func BuildEmploymentHistory(docs []model.DocumentAnalysisResult) []model.EmploymentHistoryEntry {
	byKey := map[string]model.EmploymentHistoryEntry{}
	var order []string

	for _, doc := range docs {
		fields := doc.FieldMap()
		entry := model.EmploymentHistoryEntry{
			Employer: firstOf(fields, "employer_name", "employer", "company_name"),
			Title:    firstOf(fields, "job_title", "title", "position"),
			Address:  firstOf(fields, "employer_address", "work_address"),
			FromDate: firstOf(fields, "employment_start_date", "from_date", "hire_date"),
			ToDate:   firstOf(fields, "employment_end_date", "to_date"),
			Income:   firstOf(fields, "annual_income", "salary", "wages"),
			Source:   doc.DocumentType,
		}
		if entry.Employer == "" {
			continue
		}

		key := dedupKey(entry.Employer, entry.Title)
		existing, seen := byKey[key]
		if !seen {
			byKey[key] = entry
			order = append(order, key)
			continue
		}
		if entry.FromDate < existing.FromDate {
			existing.FromDate = entry.FromDate
		}
		if entry.ToDate > existing.ToDate {
			existing.ToDate = entry.ToDate
		}
		if existing.Income == "" {
			existing.Income = entry.Income
		}
		byKey[key] = existing
	}

	out := make([]model.EmploymentHistoryEntry, 0, len(order))
	for _, key := range order {
		out = append(out, byKey[key])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].FromDate > out[j].FromDate })
	return out
}

// BuildEducationHistory builds the education list. Unlike addresses and
// employment, education entries are never merged: a second degree from the
// same institution is its own entry. Sorted by graduation date, newest first.
func BuildEducationHistory(docs []model.DocumentAnalysisResult) []model.EducationHistoryEntry {
	var out []model.EducationHistoryEntry

	for _, doc := range docs {
		fields := doc.FieldMap()
		entry := model.EducationHistoryEntry{
			Institution:    firstOf(fields, "institution", "school_name", "university"),
			Degree:         firstOf(fields, "degree", "degree_type"),
			FieldOfStudy:   firstOf(fields, "field_of_study", "major"),
			GraduationDate: firstOf(fields, "graduation_date", "date_conferred"),
			Source:         doc.DocumentType,
		}
		if entry.Institution == "" {
			continue
		}
		out = append(out, entry)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].GraduationDate > out[j].GraduationDate })
	return out
}

func firstOf(fields map[string]string, names ...string) string {
	for _, name := range names {
		if v := strings.TrimSpace(fields[name]); v != "" {
			return v
		}
	}
	return ""
}

func dedupKey(parts ...string) string {
	lowered := make([]string, len(parts))
	for i, p := range parts {
		lowered[i] = strings.ToLower(strings.TrimSpace(p))
	}
	return strings.Join(lowered, "|")
}
