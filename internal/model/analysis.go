package model

import "time"

// QueryKind decides how a query's scalar result is rendered.
type QueryKind string

const (
	QueryKindCount    QueryKind = "count"
	QueryKindPercent  QueryKind = "percent"
	QueryKindAverage  QueryKind = "average"
	QueryKindAverages QueryKind = "averages"
)

// AnalysisResult is one rendered report row.
type AnalysisResult struct {
	Key   string    `json:"key"`
	Label string    `json:"label"`
	Kind  QueryKind `json:"kind"`
	Query string    `json:"query"`
	// Value is the display string: "42", "38.25%", "3.71", or for
	// multi-column averages "GPA 3.71, GRE 162.10, ...".
	Value string `json:"value"`
	// Error is set instead of Value when the query failed.
	Error string `json:"error,omitempty"`
}

// Analysis is a full report run.
type Analysis struct {
	Results     []AnalysisResult `json:"results"`
	GeneratedAt time.Time        `json:"generated_at"`
}

// TableSummary backs the dashboard's stat cards.
type TableSummary struct {
	TotalRecords int        `json:"total_records"`
	LatestDate   *time.Time `json:"latest_date"`
}

// Distribution is a value → count breakdown for one column.
type Distribution struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}
