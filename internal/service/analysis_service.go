package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/gradcafe-backend/internal/model"
)

// Query is one fixed report. SQL refers to the table as {table}; every
// literal is passed through Args.
type Query struct {
	Key     string
	Label   string
	Kind    model.QueryKind
	SQL     string
	Args    []any
	Columns []string
}

var since2025 = time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

// Queries are the ten dashboard reports, in display order.
var Queries = []Query{
	{
		Key:   "q1",
		Label: "How many entries applied for Fall 2025?",
		Kind:  model.QueryKindCount,
		SQL:   `SELECT COUNT(*) FROM {table} WHERE term ILIKE $1`,
		Args:  []any{"%Fall 2025%"},
	},
	{
		Key:   "q2",
		Label: "What percentage of entries are from international students?",
		Kind:  model.QueryKindPercent,
		SQL: `SELECT COALESCE(
			(COUNT(*) FILTER (WHERE us_or_international ILIKE $1)) * 100.0 / NULLIF(COUNT(*), 0), 0
		)::float8
		FROM {table}
		WHERE us_or_international IS NOT NULL AND us_or_international <> ''`,
		Args: []any{"%International%"},
	},
	{
		Key:   "q3",
		Label: "Average GPA, GRE, GRE V and GRE AW of applicants who report them",
		Kind:  model.QueryKindAverages,
		SQL: `SELECT AVG(gpa)::float8, AVG(gre)::float8, AVG(gre_v)::float8, AVG(gre_aw)::float8
		FROM {table}
		WHERE (gpa IS NOT NULL OR gre IS NOT NULL OR gre_v IS NOT NULL OR gre_aw IS NOT NULL)
		AND (gre IS NULL OR gre <= $1)
		AND (gre_v IS NULL OR gre_v <= $2)
		AND (gre_aw IS NULL OR gre_aw <= $3)`,
		Args:    []any{170.0, 170.0, 6.0},
		Columns: []string{"GPA", "GRE", "GRE V", "GRE AW"},
	},
	{
		Key:   "q4",
		Label: "Average GPA of American students in Fall 2025",
		Kind:  model.QueryKindAverage,
		SQL: `SELECT AVG(gpa)::float8 FROM {table}
		WHERE term ILIKE $1
		AND (us_or_international = $2 OR us_or_international ILIKE $3)
		AND gpa IS NOT NULL`,
		Args: []any{"%Fall 2025%", string(model.NationalityUS), "%American%"},
	},
	{
		Key:   "q5",
		Label: "What percentage of Fall 2025 entries are acceptances?",
		Kind:  model.QueryKindPercent,
		SQL: `SELECT COALESCE(
			(COUNT(*) FILTER (WHERE status ILIKE $2)) * 100.0 / NULLIF(COUNT(*), 0), 0
		)::float8
		FROM {table}
		WHERE term ILIKE $1`,
		Args: []any{"%Fall 2025%", "%Accept%"},
	},
	{
		Key:   "q6",
		Label: "Average GPA of accepted applicants in Fall 2025",
		Kind:  model.QueryKindAverage,
		SQL: `SELECT AVG(gpa)::float8 FROM {table}
		WHERE term ILIKE $1 AND status ILIKE $2 AND gpa IS NOT NULL`,
		Args: []any{"%Fall 2025%", "%Accept%"},
	},
	{
		Key:   "q7",
		Label: "How many entries applied to JHU for a Masters in Computer Science?",
		Kind:  model.QueryKindCount,
		SQL: `SELECT COUNT(*) FROM {table}
		WHERE (program ILIKE $1 OR program ILIKE $2 OR llm_generated_university ILIKE $1)
		AND (program ILIKE $3 OR program ILIKE $4 OR llm_generated_program ILIKE $3)
		AND degree ILIKE $5`,
		Args: []any{"%Johns Hopkins%", "%JHU%", "%Computer Science%", "%CS%", "%Masters%"},
	},
	{
		Key:   "q8",
		Label: "How many 2025 acceptances to Georgetown for a PhD in Computer Science?",
		Kind:  model.QueryKindCount,
		SQL: `SELECT COUNT(*) FROM {table}
		WHERE (program ILIKE $1 OR llm_generated_university ILIKE $1)
		AND (program ILIKE $2 OR program ILIKE $3 OR llm_generated_program ILIKE $2)
		AND degree ILIKE $4
		AND status ILIKE $5
		AND date_added >= $6`,
		Args: []any{"%Georgetown%", "%Computer Science%", "%CS%", "%PhD%", "%Accept%", since2025},
	},
	{
		Key:   "q9",
		Label: "What percentage of Fall 2025 Penn State entries are international?",
		Kind:  model.QueryKindPercent,
		SQL: `SELECT COALESCE(
			(COUNT(*) FILTER (WHERE us_or_international ILIKE $2)) * 100.0 / NULLIF(COUNT(*), 0), 0
		)::float8
		FROM {table}
		WHERE term ILIKE $1
		AND (program ILIKE $3 OR program ILIKE $4 OR program ILIKE $5
			OR llm_generated_university ILIKE $3 OR llm_generated_university ILIKE $4)
		AND us_or_international IS NOT NULL AND us_or_international <> ''`,
		Args: []any{"%Fall 2025%", "%International%", "%Pennsylvania State%", "%Penn State%", "%PSU%"},
	},
	{
		Key:   "q10",
		Label: "How many 2025 acceptances to Penn State?",
		Kind:  model.QueryKindCount,
		SQL: `SELECT COUNT(*) FROM {table}
		WHERE (program ILIKE $1 OR program ILIKE $2 OR program ILIKE $3
			OR llm_generated_university ILIKE $1 OR llm_generated_university ILIKE $2)
		AND status ILIKE $4
		AND date_added >= $5`,
		Args: []any{"%Pennsylvania State%", "%Penn State%", "%PSU%", "%Accept%", since2025},
	},
}

// AnalysisService runs the fixed reports and keeps the latest run.
type AnalysisService struct {
	store ApplicantStore
	log   zerolog.Logger
	now   func() time.Time

	mu     sync.RWMutex
	latest *model.Analysis
}

// NewAnalysisService creates a new AnalysisService.
func NewAnalysisService(store ApplicantStore, log zerolog.Logger) *AnalysisService {
	return &AnalysisService{
		store: store,
		log:   log.With().Str("component", "analysis").Logger(),
		now:   time.Now,
	}
}

// Run executes every query. A failing query is reported in its own row and
// does not stop the others.
func (s *AnalysisService) Run(ctx context.Context) model.Analysis {
	out := model.Analysis{
		Results:     make([]model.AnalysisResult, 0, len(Queries)),
		GeneratedAt: s.now(),
	}
	if err := s.store.EnsureSchema(ctx); err != nil {
		s.log.Warn().Err(err).Msg("could not ensure schema before analysis")
	}
	for _, q := range Queries {
		res := model.AnalysisResult{Key: q.Key, Label: q.Label, Kind: q.Kind, Query: compact(q.SQL)}
		values, err := s.store.QueryValues(ctx, q.SQL, q.Args...)
		if err != nil {
			s.log.Error().Err(err).Str("query", q.Key).Msg("query failed")
			res.Error = "Error: " + err.Error()
		} else {
			res.Value = Format(q, values)
		}
		out.Results = append(out.Results, res)
	}
	return out
}

// Refresh re-runs the reports and caches them for the dashboard. It fails
// only when no query succeeded.
func (s *AnalysisService) Refresh(ctx context.Context) error {
	analysis := s.Run(ctx)

	s.mu.Lock()
	s.latest = &analysis
	s.mu.Unlock()

	var errs []string
	for _, r := range analysis.Results {
		if r.Error != "" {
			errs = append(errs, r.Key)
		}
	}
	if len(errs) == len(analysis.Results) && len(errs) > 0 {
		return errors.New("all analysis queries failed, check the database connection")
	}
	s.log.Info().Int("failed", len(errs)).Msg("analysis refreshed")
	return nil
}

// Latest returns the cached analysis, running it once if nothing is cached.
func (s *AnalysisService) Latest(ctx context.Context) model.Analysis {
	s.mu.RLock()
	cached := s.latest
	s.mu.RUnlock()
	if cached != nil {
		return *cached
	}

	analysis := s.Run(ctx)
	s.mu.Lock()
	if s.latest == nil {
		s.latest = &analysis
	}
	s.mu.Unlock()
	return analysis
}

// Summary returns the record count and newest date for the dashboard.
func (s *AnalysisService) Summary(ctx context.Context) (model.TableSummary, error) {
	var sum model.TableSummary
	if err := s.store.EnsureSchema(ctx); err != nil {
		return sum, fmt.Errorf("ensure schema: %w", err)
	}
	n, err := s.store.Count(ctx)
	if err != nil {
		return sum, fmt.Errorf("count records: %w", err)
	}
	latest, err := s.store.LatestDateAdded(ctx)
	if err != nil {
		return sum, fmt.Errorf("latest date: %w", err)
	}
	sum.TotalRecords = n
	sum.LatestDate = latest
	return sum, nil
}

// Distributions returns the status and degree breakdowns.
func (s *AnalysisService) Distributions(ctx context.Context) (map[string][]model.Distribution, error) {
	out := make(map[string][]model.Distribution, 2)
	for _, col := range []string{"status", "degree"} {
		dist, err := s.store.Distribution(ctx, col)
		if err != nil {
			return nil, fmt.Errorf("%s distribution: %w", col, err)
		}
		out[col] = dist
	}
	return out, nil
}

// Format renders query values for display. Missing columns count as null.
func Format(q Query, values []*float64) string {
	at := func(i int) *float64 {
		if i < len(values) {
			return values[i]
		}
		return nil
	}

	switch q.Kind {
	case model.QueryKindCount:
		if v := at(0); v != nil {
			return strconv.FormatInt(int64(*v), 10)
		}
		return "0"
	case model.QueryKindPercent:
		return FormatPercent(at(0))
	case model.QueryKindAverages:
		parts := make([]string, len(q.Columns))
		for i, col := range q.Columns {
			parts[i] = col + " " + FormatAverage(at(i))
		}
		return strings.Join(parts, ", ")
	default:
		return FormatAverage(at(0))
	}
}

// FormatPercent renders a percentage with exactly two decimals; null is
// 0.00%. A full 100 renders as 100.00%.
func FormatPercent(v *float64) string {
	if v == nil {
		return "0.00%"
	}
	return fmt.Sprintf("%.2f%%", *v)
}

// FormatAverage renders an average to two decimals, or N/A when null.
func FormatAverage(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.2f", *v)
}

func compact(sql string) string {
	return strings.Join(strings.Fields(sql), " ")
}
