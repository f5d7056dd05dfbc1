// Package standardize fills the canonical program and university columns.
package standardize

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"github.com/stemsi/gradcafe-backend/internal/model"
)

// Standardizer derives llm_generated_program and llm_generated_university
// for each record. Implementations must not drop or reorder records.
type Standardizer interface {
	Standardize(ctx context.Context, records []model.AdmissionResult) ([]model.AdmissionResult, error)
}

// universityAliases maps lower-cased names and abbreviations to the canonical
// university name.
var universityAliases = map[string]string{
	"jhu":                                   "Johns Hopkins University",
	"johns hopkins":                         "Johns Hopkins University",
	"john hopkins":                          "Johns Hopkins University",
	"johns hopkins university":              "Johns Hopkins University",
	"psu":                                   "Pennsylvania State University",
	"penn state":                            "Pennsylvania State University",
	"penn state university":                 "Pennsylvania State University",
	"pennsylvania state":                    "Pennsylvania State University",
	"pennsylvania state university":         "Pennsylvania State University",
	"georgetown":                            "Georgetown University",
	"georgetown university":                 "Georgetown University",
	"mit":                                   "Massachusetts Institute of Technology",
	"massachusetts institute of technology": "Massachusetts Institute of Technology",
	"cmu":                                   "Carnegie Mellon University",
	"carnegie mellon":                       "Carnegie Mellon University",
	"ucla":                                  "University of California, Los Angeles",
	"uc berkeley":                           "University of California, Berkeley",
	"berkeley":                              "University of California, Berkeley",
	"ucb":                                   "University of California, Berkeley",
	"ucsd":                                  "University of California, San Diego",
	"uiuc":                                  "University of Illinois Urbana-Champaign",
	"upenn":                                 "University of Pennsylvania",
	"penn":                                  "University of Pennsylvania",
	"stanford":                              "Stanford University",
	"gatech":                                "Georgia Institute of Technology",
	"georgia tech":                          "Georgia Institute of Technology",
	"nyu":                                   "New York University",
	"usc":                                   "University of Southern California",
	"umich":                                 "University of Michigan",
}

// programAliases maps lower-cased program spellings to a canonical name.
var programAliases = map[string]string{
	"cs":                     "Computer Science",
	"comp sci":               "Computer Science",
	"compsci":                "Computer Science",
	"computer science":       "Computer Science",
	"computer sciences":      "Computer Science",
	"ece":                    "Electrical and Computer Engineering",
	"ee":                     "Electrical Engineering",
	"me":                     "Mechanical Engineering",
	"mechanical engineering": "Mechanical Engineering",
	"ml":                     "Machine Learning",
	"ai":                     "Artificial Intelligence",
	"econ":                   "Economics",
	"stats":                  "Statistics",
	"bme":                    "Biomedical Engineering",
	"biomedical engineering": "Biomedical Engineering",
	"mse":                    "Materials Science and Engineering",
	"information systems":    "Information Systems",
	"data science":           "Data Science",
}

// Rules is a deterministic Standardizer based on the "Major, School"
// program layout and fixed alias tables.
type Rules struct {
	log zerolog.Logger
}

// NewRules creates a Rules standardizer.
func NewRules(log zerolog.Logger) *Rules {
	return &Rules{log: log.With().Str("component", "standardizer").Logger()}
}

// Standardize implements Standardizer. It returns a new slice.
func (r *Rules) Standardize(ctx context.Context, records []model.AdmissionResult) ([]model.AdmissionResult, error) {
	out := make([]model.AdmissionResult, len(records))
	unknown := 0
	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		program, university := Split(rec.Program)
		rec.LLMGeneratedProgram = model.StrPtr(Program(program))
		rec.LLMGeneratedUniversity = model.StrPtr(University(university))
		if rec.LLMGeneratedUniversity == nil {
			unknown++
		}
		out[i] = rec
	}
	r.log.Info().Int("records", len(out)).Int("without_university", unknown).Msg("standardization finished")
	return out, nil
}

// Split separates "Major, School" at the first comma, so a school name
// with its own comma ("University of California, Berkeley") stays whole.
func Split(program string) (major, school string) {
	program = strings.TrimSpace(program)
	idx := strings.Index(program, ", ")
	if idx < 0 {
		return program, ""
	}
	return strings.TrimSpace(program[:idx]), strings.TrimSpace(program[idx+2:])
}

// University returns the canonical name for s, or s trimmed when no alias
// matches.
func University(s string) string {
	s = strings.TrimSpace(s)
	if canon, ok := universityAliases[strings.ToLower(s)]; ok {
		return canon
	}
	lower := strings.ToLower(s)
	for _, key := range []string{"johns hopkins", "pennsylvania state", "penn state", "georgetown"} {
		if strings.Contains(lower, key) {
			return universityAliases[key]
		}
	}
	return s
}

// Program returns the canonical name for s, or s unchanged.
func Program(s string) string {
	s = strings.TrimSpace(s)
	if canon, ok := programAliases[strings.ToLower(s)]; ok {
		return canon
	}
	return s
}
