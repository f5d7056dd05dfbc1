package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the single canonical format dates are stored in after cleaning.
const DateLayout = "2006-01-02"

// dateLayouts are the formats seen on the upstream listing.
var dateLayouts = []string{
	"January 2, 2006",
	"January 02, 2006",
	"Jan 2, 2006",
	"Jan 02, 2006",
	"1/2/2006",
	"01/02/2006",
	DateLayout,
}

// Date is a calendar day without time of day.
type Date struct {
	time.Time
}

// NewDate truncates t to midnight UTC.
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// ParseDate accepts any of the upstream date formats.
func ParseDate(raw string) (Date, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Date{}, fmt.Errorf("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return NewDate(t), nil
		}
	}
	return Date{}, fmt.Errorf("unrecognized date %q", raw)
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

// After reports whether d is strictly later than the watermark day.
func (d Date) After(watermark time.Time) bool {
	return d.Time.After(NewDate(watermark).Time)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
