package model

// AddressHistoryEntry is a date-ranged residence record derived from
// address-bearing documents (utility bills, leases, tax returns).
type AddressHistoryEntry struct {
	Street   string `json:"street"`
	City     string `json:"city"`
	State    string `json:"state"`
	ZipCode  string `json:"zip_code,omitempty"`
	Country  string `json:"country,omitempty"`
	FromDate string `json:"from_date"` // YYYY-MM, sortable as a plain string
	ToDate   string `json:"to_date,omitempty"`
	Source   string `json:"source,omitempty"`
}

// EmploymentHistoryEntry is a date-ranged employment record.
type EmploymentHistoryEntry struct {
	Employer string `json:"employer"`
	Title    string `json:"title"`
	Address  string `json:"address,omitempty"`
	FromDate string `json:"from_date"`
	ToDate   string `json:"to_date,omitempty"`
	Income   string `json:"income,omitempty"`
	Source   string `json:"source,omitempty"`
}

// EducationHistoryEntry is a point-in-time education record keyed by the
// graduation date rather than a range.
type EducationHistoryEntry struct {
	Institution    string `json:"institution"`
	Degree         string `json:"degree"`
	FieldOfStudy   string `json:"field_of_study,omitempty"`
	GraduationDate string `json:"graduation_date,omitempty"`
	Source         string `json:"source,omitempty"`
}
