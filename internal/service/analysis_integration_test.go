//go:build integration

package service

import (
	"context"
	"regexp"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stemsi/gradcafe-backend/internal/database/dbtest"
	"github.com/stemsi/gradcafe-backend/internal/model"
	"github.com/stemsi/gradcafe-backend/internal/repository"
	"github.com/stretchr/testify/require"
)

var reportPercentRe = regexp.MustCompile(`^\d{1,3}\.\d{2}%$`)

type seedRow struct {
	url, program, term, date string
	degree                   model.Degree
	status                   model.Status
	nationality              model.Nationality
	gpa                      float64
}

func (s seedRow) result() model.AdmissionResult {
	d, err := model.ParseDate(s.date)
	if err != nil {
		panic(err)
	}
	return model.AdmissionResult{
		Program:     s.program,
		URL:         &s.url,
		Term:        &s.term,
		DateAdded:   &d,
		Degree:      &s.degree,
		Status:      &s.status,
		Nationality: &s.nationality,
		GPA:         &s.gpa,
	}
}

func TestAnalysis_ReportsRunAgainstPostgres(t *testing.T) {
	pool := dbtest.StartPostgres(t)
	ctx := context.Background()

	repo := repository.NewApplicantRepository(pool, "applicant_data")
	require.NoError(t, repo.EnsureSchema(ctx))

	rows := []seedRow{
		{"https://example.test/result/1", "Computer Science, Johns Hopkins University", "Fall 2025", "2025-03-01",
			model.DegreeMasters, model.StatusAccepted, model.NationalityInternational, 3.9},
		{"https://example.test/result/2", "Computer Science, Georgetown University", "Fall 2025", "2025-03-02",
			model.DegreePhD, model.StatusRejected, model.NationalityUS, 3.5},
		{"https://example.test/result/3", "Computer Science, Georgetown University", "Fall 2025", "2025-03-03",
			model.DegreePhD, model.StatusAccepted, model.NationalityUS, 3.7},
		{"https://example.test/result/4", "Computer Science, Georgetown University", "Spring 2025", "2024-12-10",
			model.DegreePhD, model.StatusAccepted, model.NationalityUS, 3.6},
	}
	for _, r := range rows {
		inserted, err := repo.InsertIfNew(ctx, r.result())
		require.NoError(t, err)
		require.True(t, inserted)
	}

	analysis := NewAnalysisService(repo, zerolog.Nop()).Run(ctx)
	require.Len(t, analysis.Results, len(Queries))

	byKey := make(map[string]model.AnalysisResult, len(analysis.Results))
	for _, r := range analysis.Results {
		require.Empty(t, r.Error, r.Key)
		if r.Kind == model.QueryKindPercent {
			require.Regexp(t, reportPercentRe, r.Value, r.Key)
		}
		byKey[r.Key] = r
	}

	require.Equal(t, "3", byKey["q1"].Value)
	require.Equal(t, "25.00%", byKey["q2"].Value)
	require.Equal(t, "66.67%", byKey["q5"].Value)
	require.Equal(t, "3.80", byKey["q6"].Value)
	require.Equal(t, "1", byKey["q7"].Value)
	// the December 2024 acceptance is before the date cutoff
	require.Equal(t, "1", byKey["q8"].Value)
	require.Equal(t, "0", byKey["q10"].Value)

	sum, err := NewAnalysisService(repo, zerolog.Nop()).Summary(ctx)
	require.NoError(t, err)
	require.Equal(t, 4, sum.TotalRecords)
	require.Equal(t, "2025-03-03", sum.LatestDate.Format(model.DateLayout))
}

func TestAnalysis_EmptyTableReportsZeroes(t *testing.T) {
	pool := dbtest.StartPostgres(t)
	ctx := context.Background()

	repo := repository.NewApplicantRepository(pool, "applicant_data")
	analysis := NewAnalysisService(repo, zerolog.Nop()).Run(ctx)

	for _, r := range analysis.Results {
		require.Empty(t, r.Error, r.Key)
		switch r.Kind {
		case model.QueryKindPercent:
			require.Equal(t, "0.00%", r.Value, r.Key)
		case model.QueryKindCount:
			require.Equal(t, "0", r.Value, r.Key)
		}
	}
}
