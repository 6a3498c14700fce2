package model

// Well-known document type identifiers. Extraction can return types outside
// this list; these are the ones the checklist and gap tables key on.
const (
	DocTypePassport            = "passport"
	DocTypeBirthCertificate    = "birth_certificate"
	DocTypeMarriageCertificate = "marriage_certificate"
	DocTypeDriversLicense      = "drivers_license"
	DocTypeUtilityBill         = "utility_bill"
	DocTypeLeaseAgreement      = "lease_agreement"
	DocTypeTaxReturn           = "tax_return"
	DocTypeW2                  = "w2"
	DocTypePayStub             = "pay_stub"
	DocTypeEmploymentLetter    = "employment_letter"
	DocTypeDiploma             = "diploma"
	DocTypeTranscript          = "transcript"
	DocTypeI94                 = "i94"
	DocTypeVisa                = "visa"
	DocTypeGreenCard           = "green_card"
	DocTypeBankStatement       = "bank_statement"

	// DocTypeInvalid marks a document that failed validation.
	DocTypeInvalid = "invalid"
	// DocTypeError marks a document whose analysis failed outright.
	DocTypeError = "error"
	// DocTypeUnknown is returned when type detection cannot classify.
	DocTypeUnknown = "unknown"
)

// DocumentAnalysisResult is the output of analyzing one document. It is
// created once by the analysis service and never mutated afterwards.
type DocumentAnalysisResult struct {
	DocumentType      string           `json:"document_type"`
	ExtractedFields   []ExtractedField `json:"extracted_fields"`
	OverallConfidence float64          `json:"overall_confidence"`
	ProcessingTimeMs  int64            `json:"processing_time_ms"`
	RawText           string           `json:"raw_text,omitempty"`
	Warnings          []string         `json:"warnings,omitempty"`
	Errors            []string         `json:"errors,omitempty"`
}

// FieldMap flattens the extracted fields into a name→value lookup. The last
// non-nil value for a name wins, matching how repeated fields are resolved
// everywhere downstream.
func (r DocumentAnalysisResult) FieldMap() map[string]string {
	m := make(map[string]string, len(r.ExtractedFields))
	for _, f := range r.ExtractedFields {
		if f.Value != nil {
			m[f.FieldName] = *f.Value
		}
	}
	return m
}

// ComparisonResult reports how similar two documents of the same type are.
type ComparisonResult struct {
	Identical   bool     `json:"identical"`
	Similarity  float64  `json:"similarity"`
	Differences []string `json:"differences,omitempty"`
}
