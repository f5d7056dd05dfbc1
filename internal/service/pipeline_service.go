package service

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/stemsi/gradcafe-backend/internal/model"
	"github.com/stemsi/gradcafe-backend/internal/scraper"
	"github.com/stemsi/gradcafe-backend/internal/standardize"
)

// Hand-off files written under the data directory, one per stage.
const (
	NewRawFile          = "new_applicant_data.json"
	NewCleanedFile      = "new_cleaned_applicant_data.json"
	NewStandardizedFile = "new_llm_extend_applicant_data.json"
)

// Progress messages shown on the dashboard.
const (
	ProgressScraping     = "Step 1/4: Scraping new data..."
	ProgressCleaning     = "Step 2/4: Cleaning new data..."
	ProgressStandardize  = "Step 3/4: LLM standardization..."
	ProgressLoading      = "Step 4/4: Loading new data into database..."
	ProgressNoNewData    = "No new data available"
	progressCompleteForm = "Complete! Added %d new records"
)

// PipelineReport describes one pipeline run.
type PipelineReport struct {
	Scraped    int        `json:"scraped"`
	Cleaned    int        `json:"cleaned"`
	Truncated  bool       `json:"truncated"`
	StopReason string     `json:"stop_reason"`
	Load       LoadReport `json:"load"`
}

// PipelineService runs scrape, clean, standardize and load for new rows.
type PipelineService struct {
	store        ApplicantStore
	scraper      IncrementalScraper
	cleaner      RecordCleaner
	standardizer standardize.Standardizer
	loader       RecordLoader
	dataDir      string
	log          zerolog.Logger
}

// NewPipelineService creates a new PipelineService.
func NewPipelineService(
	store ApplicantStore,
	fetcher IncrementalScraper,
	cleaner RecordCleaner,
	standardizer standardize.Standardizer,
	loader RecordLoader,
	dataDir string,
	log zerolog.Logger,
) *PipelineService {
	return &PipelineService{
		store:        store,
		scraper:      fetcher,
		cleaner:      cleaner,
		standardizer: standardizer,
		loader:       loader,
		dataDir:      dataDir,
		log:          log.With().Str("component", "pipeline").Logger(),
	}
}

// Run executes one incremental pipeline pass. progress receives the
// dashboard status text after each step; it may be nil.
func (p *PipelineService) Run(ctx context.Context, progress func(string)) (PipelineReport, error) {
	var report PipelineReport
	if progress == nil {
		progress = func(string) {}
	}

	// ─── Step 1: incremental scrape ──────────────────────────────────
	progress(ProgressScraping)

	if err := p.store.EnsureSchema(ctx); err != nil {
		return report, fmt.Errorf("ensure schema: %w", err)
	}
	watermark, err := p.store.LatestDateAdded(ctx)
	if err != nil {
		return report, fmt.Errorf("read watermark: %w", err)
	}

	res, err := p.scraper.FetchNew(ctx, watermark)
	if err != nil {
		return report, fmt.Errorf("scrape: %w", err)
	}
	report.Scraped = len(res.Records)
	report.Truncated = res.Truncated
	report.StopReason = res.StopReason

	if res.Records == nil {
		res.Records = []model.RawRecord{}
	}
	if err := scraper.WriteJSON(p.path(NewRawFile), res.Records); err != nil {
		return report, err
	}

	if len(res.Records) == 0 {
		p.log.Info().Str("stop_reason", res.StopReason).Msg("no new rows")
		progress(ProgressNoNewData)
		return report, nil
	}

	// ─── Step 2: clean ───────────────────────────────────────────────
	progress(ProgressCleaning)

	cleaned := p.cleaner.CleanAll(res.Records)
	report.Cleaned = len(cleaned)
	if err := scraper.WriteJSON(p.path(NewCleanedFile), cleaned); err != nil {
		return report, err
	}

	// ─── Step 3: standardize ─────────────────────────────────────────
	progress(ProgressStandardize)

	standardized, err := p.standardizer.Standardize(ctx, cleaned)
	if err != nil {
		return report, fmt.Errorf("standardize: %w", err)
	}
	if err := scraper.WriteJSON(p.path(NewStandardizedFile), standardized); err != nil {
		return report, err
	}

	// ─── Step 4: load ────────────────────────────────────────────────
	progress(ProgressLoading)

	load, err := p.loader.Load(ctx, standardized)
	report.Load = load
	if err != nil {
		return report, fmt.Errorf("load: %w", err)
	}

	p.log.Info().
		Int("scraped", report.Scraped).
		Int("cleaned", report.Cleaned).
		Int("inserted", load.Inserted).
		Bool("truncated", report.Truncated).
		Msg("pipeline complete")
	progress(fmt.Sprintf(progressCompleteForm, load.Inserted))
	return report, nil
}

func (p *PipelineService) path(name string) string {
	return filepath.Join(p.dataDir, name)
}
