// Package cleaner turns scraped rows into canonical admission records.
// Every function here is pure: a value that cannot be parsed confidently
// becomes nil rather than an error.
package cleaner

import (
	"html"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/stemsi/gradcafe-backend/internal/model"
)

var (
	tagRe           = regexp.MustCompile(`<[^>]*>`)
	spaceRe         = regexp.MustCompile(`\s+`)
	programPrefixRe = regexp.MustCompile(`(?i)^(program in|degree in|major in)\s+`)
	numberRe        = regexp.MustCompile(`-?\d+(?:\.\d+)?`)
	seasonRe        = regexp.MustCompile(`(?i)\b(fall|spring|summer|winter)\b`)
	yearRe          = regexp.MustCompile(`\b(20\d{2})\b`)
	tokenRe         = regexp.MustCompile(`[a-z]+`)
)

// Range bounds a numeric field; values outside it are discarded.
type Range struct {
	Min, Max     float64
	ExclusiveMin bool
}

var (
	GPARange        = Range{Min: 0, Max: 5.0, ExclusiveMin: true}
	GRETotalRange   = Range{Min: 260, Max: 340}
	GRESectionRange = Range{Min: 130, Max: 170}
	GREAWRange      = Range{Min: 0, Max: 6}
)

// Contains reports whether v is inside the range.
func (r Range) Contains(v float64) bool {
	if r.ExclusiveMin && v <= r.Min {
		return false
	}
	return v >= r.Min && v <= r.Max
}

// Clean normalizes one raw record.
func Clean(raw model.RawRecord) model.AdmissionResult {
	res := model.AdmissionResult{
		Program:     cleanProgram(raw),
		Degree:      Degree(model.Deref(raw.Degree)),
		Term:        Term(model.Deref(raw.Semester)),
		Status:      Status(model.Deref(raw.Status)),
		StatusDate:  model.StrPtr(Text(model.Deref(raw.StatusDate))),
		URL:         model.StrPtr(strings.TrimSpace(model.Deref(raw.URL))),
		Nationality: Nationality(model.Deref(raw.ApplicantType)),
		GPA:         Score(model.Deref(raw.GPA), GPARange),
		GREVerbal:   Score(model.Deref(raw.GREVerbal), GRESectionRange),
		GREQuant:    Score(model.Deref(raw.GREQuant), GRESectionRange),
		GREAW:       Score(model.Deref(raw.GREAW), GREAWRange),
		Comments:    model.StrPtr(Text(model.Deref(raw.Comments))),
	}

	if d, err := model.ParseDate(Text(model.Deref(raw.DateAdded))); err == nil {
		res.DateAdded = &d
	}

	// The stored gre column holds the total, falling back to quant.
	res.GRE = Score(model.Deref(raw.GRETotal), GRETotalRange)
	if res.GRE == nil && res.GREQuant != nil {
		q := *res.GREQuant
		res.GRE = &q
	}
	return res
}

// Text strips markup and entities and collapses whitespace.
func Text(s string) string {
	if s == "" {
		return ""
	}
	s = tagRe.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

func cleanProgram(raw model.RawRecord) string {
	program := stripPrefix(Text(raw.Program))
	if program != "" {
		return program
	}
	major := stripPrefix(Text(raw.Major))
	school := Text(raw.School)
	switch {
	case major != "" && school != "":
		return major + ", " + school
	case major != "":
		return major
	default:
		return school
	}
}

func stripPrefix(s string) string {
	return strings.TrimSpace(programPrefixRe.ReplaceAllString(s, ""))
}

func tokens(s string) map[string]bool {
	s = strings.ToLower(strings.ReplaceAll(Text(s), ".", ""))
	set := make(map[string]bool)
	for _, t := range tokenRe.FindAllString(s, -1) {
		set[t] = true
	}
	return set
}

// Degree maps the free-form degree to Masters, PhD or Other.
func Degree(s string) *model.Degree {
	if Text(s) == "" {
		return nil
	}
	t := tokens(s)
	var d model.Degree
	switch {
	case t["phd"] || t["doctor"] || t["doctorate"] || t["doctoral"] || t["dphil"] || t["edd"]:
		d = model.DegreePhD
	case t["masters"] || t["master"] || t["ms"] || t["ma"] || t["msc"] || t["meng"] ||
		t["mfa"] || t["mba"] || t["mph"] || t["mpp"] || t["mpa"]:
		d = model.DegreeMasters
	default:
		d = model.DegreeOther
	}
	return &d
}

// Status maps the decision text to the fixed status vocabulary.
func Status(s string) *model.Status {
	lower := strings.ToLower(Text(s))
	if lower == "" {
		return nil
	}
	var st model.Status
	switch {
	case strings.Contains(lower, "accept"):
		st = model.StatusAccepted
	case strings.Contains(lower, "reject") || strings.Contains(lower, "denied"):
		st = model.StatusRejected
	case strings.Contains(lower, "wait"):
		st = model.StatusWaitListed
	default:
		st = model.StatusOther
	}
	return &st
}

// Term renders "Season YYYY", or nil when either part is missing.
func Term(s string) *string {
	s = Text(s)
	season := seasonRe.FindString(s)
	year := yearRe.FindString(s)
	if season == "" || year == "" {
		return nil
	}
	season = strings.ToUpper(season[:1]) + strings.ToLower(season[1:])
	return model.StrPtr(season + " " + year)
}

// Nationality maps the applicant type to US or International.
func Nationality(s string) *model.Nationality {
	lower := strings.ToLower(Text(s))
	if lower == "" {
		return nil
	}
	t := tokens(lower)
	var n model.Nationality
	switch {
	case strings.Contains(lower, "international") || t["intl"]:
		n = model.NationalityInternational
	case strings.Contains(lower, "american") || strings.Contains(lower, "domestic") || t["us"] || t["usa"]:
		n = model.NationalityUS
	default:
		return nil
	}
	return &n
}

// Score extracts the first number in s, sign included, and keeps it only
// when in range.
func Score(s string, r Range) *float64 {
	m := numberRe.FindString(Text(s))
	if m == "" {
		return nil
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil || !r.Contains(v) {
		return nil
	}
	return &v
}

// Cleaner runs the batch step with logging.
type Cleaner struct {
	log zerolog.Logger
}

// New creates a Cleaner.
func New(log zerolog.Logger) *Cleaner {
	return &Cleaner{log: log.With().Str("component", "cleaner").Logger()}
}

// CleanAll cleans every record, drops rows without a program and removes
// duplicates.
func (c *Cleaner) CleanAll(raw []model.RawRecord) []model.AdmissionResult {
	cleaned := make([]model.AdmissionResult, 0, len(raw))
	for _, r := range raw {
		res := Clean(r)
		if res.Program == "" {
			c.log.Warn().Str("url", model.Deref(r.URL)).Msg("dropping record without program")
			continue
		}
		cleaned = append(cleaned, res)
	}

	unique := Dedupe(cleaned)
	c.log.Info().
		Int("input", len(raw)).
		Int("kept", len(unique)).
		Int("duplicates", len(cleaned)-len(unique)).
		Msg("cleaning finished")
	return unique
}

type dedupeKey struct {
	program, status, date, url string
}

// Dedupe keeps the first record per (program, status, date_added, url).
func Dedupe(records []model.AdmissionResult) []model.AdmissionResult {
	seen := make(map[dedupeKey]struct{}, len(records))
	out := make([]model.AdmissionResult, 0, len(records))
	for _, r := range records {
		k := dedupeKey{
			program: strings.ToLower(r.Program),
			url:     model.Deref(r.URL),
		}
		if r.Status != nil {
			k.status = strings.ToLower(string(*r.Status))
		}
		if r.DateAdded != nil {
			k.date = r.DateAdded.String()
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	return out
}
