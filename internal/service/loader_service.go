package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/stemsi/gradcafe-backend/internal/model"
)

// LoadReport summarizes one load run.
type LoadReport struct {
	Attempted  int `json:"attempted"`
	Inserted   int `json:"inserted"`
	Duplicates int `json:"duplicates"`
	Rejected   int `json:"rejected"`
	Failed     int `json:"failed"`
}

// LoaderService inserts cleaned records, skipping urls already stored.
type LoaderService struct {
	store ApplicantStore
	log   zerolog.Logger
}

// NewLoaderService creates a new LoaderService.
func NewLoaderService(store ApplicantStore, log zerolog.Logger) *LoaderService {
	return &LoaderService{
		store: store,
		log:   log.With().Str("component", "loader").Logger(),
	}
}

// Load creates the table if needed and inserts every record not yet present
// by url. Each insert commits on its own; a failed insert is logged and the
// rest continue. Records without a url are rejected since they cannot be
// de-duplicated. Load returns an error only when the schema cannot be
// ensured or every attempted insert failed.
func (s *LoaderService) Load(ctx context.Context, records []model.AdmissionResult) (LoadReport, error) {
	var report LoadReport

	if err := s.store.EnsureSchema(ctx); err != nil {
		return report, fmt.Errorf("ensure schema: %w", err)
	}

	var lastErr error
	for _, rec := range records {
		if rec.URL == nil {
			report.Rejected++
			s.log.Warn().Str("program", rec.Program).Msg("rejecting record without url")
			continue
		}

		report.Attempted++
		inserted, err := s.store.InsertIfNew(ctx, rec)
		if err != nil {
			report.Failed++
			lastErr = err
			s.log.Error().Err(err).Str("url", *rec.URL).Msg("insert failed, continuing")
			continue
		}
		if inserted {
			report.Inserted++
		} else {
			report.Duplicates++
		}
	}

	s.log.Info().
		Int("attempted", report.Attempted).
		Int("inserted", report.Inserted).
		Int("duplicates", report.Duplicates).
		Int("rejected", report.Rejected).
		Int("failed", report.Failed).
		Msg("load finished")

	if report.Attempted > 0 && report.Failed == report.Attempted {
		return report, fmt.Errorf("all %d inserts failed: %w", report.Failed, lastErr)
	}
	return report, nil
}
