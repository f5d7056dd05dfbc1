package scraper

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/stemsi/gradcafe-backend/internal/model"
)

var (
	statusRe   = regexp.MustCompile(`(?i)^(Accepted|Rejected|Interview|Wait\s*listed|Waitlisted)\s+on\s+(.+)$`)
	semesterRe = regexp.MustCompile(`(?i)^(Fall|Spring|Summer|Winter)\s+\d{4}$`)
	gpaRe      = regexp.MustCompile(`^GPA\s*(\d+(?:\.\d+)?)`)
	greVRe     = regexp.MustCompile(`^GRE V\s*(\d+)`)
	greQRe     = regexp.MustCompile(`^GRE Q\s*(\d+)`)
	greAWRe    = regexp.MustCompile(`^GRE AW\s*(\d+(?:\.\d+)?)`)
	greRe      = regexp.MustCompile(`^GRE\s*(\d+)`)
)

const (
	continuationClass = "tw-border-none"
	badgeSelector     = "div.tw-inline-flex.tw-items-center.tw-rounded-md"
	commentSelector   = "p.tw-text-gray-500"
)

// ParsePage extracts every listing entry from one results page. An entry
// spans a main row plus any following continuation rows holding badges
// and the comment. Rows that cannot be parsed are skipped and returned as
// errors; they never fail the page.
func ParsePage(html, baseURL string) ([]model.RawRecord, []error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, []error{fmt.Errorf("parse html: %w", err)}
	}

	table := doc.Find("table.tw-min-w-full").First()
	if table.Length() == 0 {
		table = doc.Find("table").First()
	}
	if table.Length() == 0 {
		return nil, nil
	}

	rows := table.Find("tr")
	var (
		records []model.RawRecord
		errs    []error
	)

	for i := 0; i < rows.Length(); i++ {
		row := rows.Eq(i)
		cells := row.Find("td")
		if cells.Length() < 4 || row.HasClass(continuationClass) {
			continue
		}

		var extras []*goquery.Selection
		for i+1 < rows.Length() && rows.Eq(i+1).HasClass(continuationClass) {
			i++
			extras = append(extras, rows.Eq(i))
		}

		rec, err := parseEntry(row, cells, extras, baseURL)
		if err != nil {
			errs = append(errs, fmt.Errorf("row %d: %w", i, err))
			continue
		}
		records = append(records, rec)
	}
	return records, errs
}

func parseEntry(row, cells *goquery.Selection, extras []*goquery.Selection, baseURL string) (model.RawRecord, error) {
	var rec model.RawRecord

	rec.School = cellText(cells.Eq(0))
	if rec.School == "" {
		return rec, fmt.Errorf("missing school")
	}

	spans := cells.Eq(1).Find("div.tw-text-gray-900 span")
	if spans.Length() > 0 {
		rec.Major = cellText(spans.First())
		if spans.Length() > 1 {
			rec.Degree = model.StrPtr(cellText(spans.Last()))
		}
	}
	rec.Program = combineProgram(rec.Major, rec.School)

	rec.DateAdded = model.StrPtr(cellText(cells.Eq(2)))

	statusText := cellText(cells.Eq(3).Find("div.tw-inline-flex.tw-items-center").First())
	if statusText == "" {
		statusText = cellText(cells.Eq(3))
	}
	if m := statusRe.FindStringSubmatch(statusText); m != nil {
		rec.Status = model.StrPtr(normalizeRawStatus(m[1]))
		rec.StatusDate = model.StrPtr(strings.TrimSpace(m[2]))
	} else {
		rec.Status = model.StrPtr(statusText)
	}

	if href, ok := row.Find(`a[href*="/result/"]`).First().Attr("href"); ok {
		if strings.HasPrefix(href, "/") {
			href = strings.TrimRight(baseURL, "/") + href
		}
		rec.URL = model.StrPtr(href)
	}

	for _, extra := range extras {
		extra.Find(badgeSelector).Each(func(_ int, badge *goquery.Selection) {
			applyBadge(&rec, cellText(badge))
		})
		if p := extra.Find(commentSelector).First(); p.Length() > 0 {
			rec.Comments = model.StrPtr(cellText(p))
		}
	}

	return rec, nil
}

// applyBadge maps one detail badge onto the record.
func applyBadge(rec *model.RawRecord, text string) {
	switch {
	case semesterRe.MatchString(text):
		rec.Semester = model.StrPtr(text)
	case isApplicantType(text):
		rec.ApplicantType = model.StrPtr(text)
	case strings.HasPrefix(text, "GPA"):
		if m := gpaRe.FindStringSubmatch(text); m != nil {
			rec.GPA = model.StrPtr(m[1])
		}
	case strings.HasPrefix(text, "GRE V"):
		if m := greVRe.FindStringSubmatch(text); m != nil {
			rec.GREVerbal = model.StrPtr(m[1])
		}
	case strings.HasPrefix(text, "GRE Q"):
		if m := greQRe.FindStringSubmatch(text); m != nil {
			rec.GREQuant = model.StrPtr(m[1])
		}
	case strings.HasPrefix(text, "GRE AW"):
		if m := greAWRe.FindStringSubmatch(text); m != nil {
			rec.GREAW = model.StrPtr(m[1])
		}
	case strings.HasPrefix(text, "GRE"):
		if m := greRe.FindStringSubmatch(text); m != nil {
			rec.GRETotal = model.StrPtr(m[1])
		}
	}
}

func isApplicantType(text string) bool {
	switch strings.ToLower(text) {
	case "international", "american", "domestic", "us":
		return true
	}
	return false
}

func normalizeRawStatus(s string) string {
	if strings.Contains(strings.ToLower(s), "wait") {
		return "Wait listed"
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

func combineProgram(major, school string) string {
	switch {
	case major != "" && school != "":
		return major + ", " + school
	case major != "":
		return major
	default:
		return school
	}
}

func cellText(s *goquery.Selection) string {
	return strings.Join(strings.Fields(s.Text()), " ")
}
