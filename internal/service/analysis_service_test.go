package service

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stemsi/gradcafe-backend/internal/model"
	"github.com/stemsi/gradcafe-backend/internal/repository"
	"github.com/stemsi/gradcafe-backend/internal/service/servicetest"
	"github.com/stretchr/testify/require"
)

var percentRe = regexp.MustCompile(`^\d{1,2}\.\d{2}%$`)

func f(v float64) *float64 { return &v }

func TestQueries_AreParameterized(t *testing.T) {
	require.Len(t, Queries, 10)
	for _, q := range Queries {
		require.Contains(t, q.SQL, repository.TablePlaceholder, q.Key)
		require.NotContains(t, q.SQL, "'%", q.Key)
		require.NotEmpty(t, q.Label, q.Key)
	}
}

func TestAnalysis_PercentagesHaveTwoDecimals(t *testing.T) {
	inputs := []*float64{nil, f(0), f(3.14159), f(38.5), f(99.994), f(12)}

	for _, in := range inputs {
		store := servicetest.NewMemoryStore()
		store.Values = func(string, []any) ([]*float64, error) {
			return []*float64{in, in, in, in}, nil
		}
		analysis := NewAnalysisService(store, zerolog.Nop()).Run(context.Background())

		for _, r := range analysis.Results {
			if r.Kind != model.QueryKindPercent {
				continue
			}
			require.Regexp(t, percentRe, r.Value, r.Key)
		}
	}
}

func TestFormat(t *testing.T) {
	count := Query{Kind: model.QueryKindCount}
	require.Equal(t, "42", Format(count, []*float64{f(42)}))
	require.Equal(t, "0", Format(count, nil))

	require.Equal(t, "3.71", Format(Query{Kind: model.QueryKindAverage}, []*float64{f(3.7149)}))
	require.Equal(t, "N/A", Format(Query{Kind: model.QueryKindAverage}, []*float64{nil}))

	avgs := Query{Kind: model.QueryKindAverages, Columns: []string{"GPA", "GRE"}}
	require.Equal(t, "GPA 3.50, GRE N/A", Format(avgs, []*float64{f(3.5)}))

	require.Equal(t, "0.00%", FormatPercent(nil))
	require.Equal(t, "7.25%", FormatPercent(f(7.25)))
	require.Equal(t, "100.00%", FormatPercent(f(100)))
}

func TestAnalysis_FailingQueryIsIsolated(t *testing.T) {
	store := servicetest.NewMemoryStore()
	store.Values = func(_ string, args []any) ([]*float64, error) {
		for _, a := range args {
			if a == "%Georgetown%" {
				return nil, errors.New("syntax error")
			}
		}
		return []*float64{f(1)}, nil
	}

	svc := NewAnalysisService(store, zerolog.Nop())
	require.NoError(t, svc.Refresh(context.Background()))

	latest := svc.Latest(context.Background())
	require.Len(t, latest.Results, 10)
	for _, r := range latest.Results {
		if r.Key == "q8" {
			require.Equal(t, "Error: syntax error", r.Error)
			require.Empty(t, r.Value)
		} else {
			require.Empty(t, r.Error, r.Key)
		}
	}
}

func TestAnalysis_RefreshFailsWhenEveryQueryFails(t *testing.T) {
	store := servicetest.NewMemoryStore()
	store.Values = func(string, []any) ([]*float64, error) { return nil, errors.New("connection refused") }

	err := NewAnalysisService(store, zerolog.Nop()).Refresh(context.Background())
	require.Error(t, err)
}

func TestAnalysis_Summary(t *testing.T) {
	store := servicetest.NewMemoryStore()
	loader := NewLoaderService(store, zerolog.Nop())
	_, err := loader.Load(context.Background(), cleanedRecords(3))
	require.NoError(t, err)

	sum, err := NewAnalysisService(store, zerolog.Nop()).Summary(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, sum.TotalRecords)
	require.Equal(t, "2025-03-03", sum.LatestDate.Format(model.DateLayout))
}
