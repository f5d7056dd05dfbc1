package cleaner

import (
	"strings"

	"github.com/stemsi/gradcafe-backend/internal/model"
)

// Stats counts how many cleaned records carry each field.
type Stats struct {
	Total          int `json:"total_entries"`
	WithDegree     int `json:"entries_with_degree"`
	WithTerm       int `json:"entries_with_term"`
	WithStatus     int `json:"entries_with_status"`
	WithDate       int `json:"entries_with_date"`
	WithURL        int `json:"entries_with_url"`
	WithGPA        int `json:"entries_with_gpa"`
	WithGRE        int `json:"entries_with_gre"`
	WithGREVerbal  int `json:"entries_with_gre_verbal"`
	WithGREAW      int `json:"entries_with_gre_aw"`
	WithComments   int `json:"entries_with_comments"`
	UniquePrograms int `json:"unique_programs"`
}

// Summarize computes Stats over records.
func Summarize(records []model.AdmissionResult) Stats {
	s := Stats{Total: len(records)}
	programs := make(map[string]struct{})
	for _, r := range records {
		programs[strings.ToLower(r.Program)] = struct{}{}
		count(&s.WithDegree, r.Degree != nil)
		count(&s.WithTerm, r.Term != nil)
		count(&s.WithStatus, r.Status != nil)
		count(&s.WithDate, r.DateAdded != nil)
		count(&s.WithURL, r.URL != nil)
		count(&s.WithGPA, r.GPA != nil)
		count(&s.WithGRE, r.GRE != nil)
		count(&s.WithGREVerbal, r.GREVerbal != nil)
		count(&s.WithGREAW, r.GREAW != nil)
		count(&s.WithComments, r.Comments != nil)
	}
	s.UniquePrograms = len(programs)
	return s
}

func count(n *int, ok bool) {
	if ok {
		*n++
	}
}
