package model

// Degree enumerates the normalized degree vocabulary.
type Degree string

const (
	DegreeMasters Degree = "Masters"
	DegreePhD     Degree = "PhD"
	DegreeOther   Degree = "Other"
)

// Status enumerates the normalized decision vocabulary.
type Status string

const (
	StatusAccepted   Status = "Accepted"
	StatusRejected   Status = "Rejected"
	StatusWaitListed Status = "Wait listed"
	StatusOther      Status = "Other"
)

// Nationality enumerates the applicant origin vocabulary.
type Nationality string

const (
	NationalityUS            Nationality = "US"
	NationalityInternational Nationality = "International"
)

// RawRecord is one listing row exactly as scraped. Every field is text;
// nothing has been validated yet.
type RawRecord struct {
	School        string  `json:"school"`
	Major         string  `json:"major"`
	Program       string  `json:"program"`
	Degree        *string `json:"degree"`
	Semester      *string `json:"semester"`
	Status        *string `json:"status"`
	StatusDate    *string `json:"status_date"`
	DateAdded     *string `json:"date_added"`
	URL           *string `json:"url"`
	ApplicantType *string `json:"applicant_type"`
	GPA           *string `json:"gpa"`
	GRETotal      *string `json:"gre_total"`
	GREVerbal     *string `json:"gre_verbal"`
	GREQuant      *string `json:"gre_quant"`
	GREAW         *string `json:"gre_aw"`
	Comments      *string `json:"comments"`
}

// AdmissionResult is the cleaned, canonical record stored in the results
// table. Missing values are nil, never zero.
type AdmissionResult struct {
	Program     string       `json:"program"`
	Degree      *Degree      `json:"degree"`
	Term        *string      `json:"term"`
	Status      *Status      `json:"status"`
	StatusDate  *string      `json:"status_date"`
	DateAdded   *Date        `json:"date_added"`
	URL         *string      `json:"url"`
	Nationality *Nationality `json:"us_or_international"`
	GPA         *float64     `json:"gpa"`
	GRE         *float64     `json:"gre"`
	GREVerbal   *float64     `json:"gre_v"`
	GREQuant    *float64     `json:"gre_q"`
	GREAW       *float64     `json:"gre_aw"`
	Comments    *string      `json:"comments"`

	LLMGeneratedProgram    *string `json:"llm_generated_program"`
	LLMGeneratedUniversity *string `json:"llm_generated_university"`
}

// StrPtr returns a pointer to s, or nil when s is empty.
func StrPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns the pointed-to string or "".
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
