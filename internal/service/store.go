package service

import (
	"context"
	"time"

	"github.com/stemsi/gradcafe-backend/internal/model"
	"github.com/stemsi/gradcafe-backend/internal/scraper"
)

// ApplicantStore is the persistence the services need. The production
// implementation is repository.ApplicantRepository.
type ApplicantStore interface {
	EnsureSchema(ctx context.Context) error
	LatestDateAdded(ctx context.Context) (*time.Time, error)
	InsertIfNew(ctx context.Context, rec model.AdmissionResult) (bool, error)
	Count(ctx context.Context) (int, error)
	Distribution(ctx context.Context, column string) ([]model.Distribution, error)
	QueryValues(ctx context.Context, query string, args ...any) ([]*float64, error)
}

// IncrementalScraper returns listing rows newer than the watermark.
type IncrementalScraper interface {
	FetchNew(ctx context.Context, watermark *time.Time) (scraper.Result, error)
}

// RecordCleaner normalizes and de-duplicates scraped rows.
type RecordCleaner interface {
	CleanAll(raw []model.RawRecord) []model.AdmissionResult
}

// RecordLoader persists cleaned records.
type RecordLoader interface {
	Load(ctx context.Context, records []model.AdmissionResult) (LoadReport, error)
}
