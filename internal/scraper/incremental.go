package scraper

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/gradcafe-backend/internal/model"
)

// Reasons a scan stopped.
const (
	StopWatermark = "watermark reached"
	StopPageLimit = "page limit reached"
	StopEmptyPage = "empty page"
	StopFetchFail = "fetch failed"
)

// Result is the outcome of one incremental scan.
type Result struct {
	// Records holds only rows strictly newer than the watermark.
	Records []model.RawRecord
	Pages   int
	// Truncated is set when a fetch error cut the scan short.
	Truncated  bool
	StopReason string
}

// Incremental scans the newest listing pages until it meets an entry that
// is already stored.
type Incremental struct {
	fetcher  PageFetcher
	baseURL  string
	maxPages int
	log      zerolog.Logger
}

// NewIncremental creates an Incremental scanner bounded by maxPages.
func NewIncremental(fetcher PageFetcher, baseURL string, maxPages int, log zerolog.Logger) *Incremental {
	return &Incremental{
		fetcher:  fetcher,
		baseURL:  baseURL,
		maxPages: maxPages,
		log:      log.With().Str("component", "incremental_scraper").Logger(),
	}
}

// FetchNew returns the rows added after watermark. A nil watermark means
// the table is empty and every row is new, up to the page limit.
//
// The listing is reverse-chronological, so the first row whose date is not
// strictly after the watermark ends the scan. Rows with unreadable dates are
// skipped. A fetch error ends the scan early with Truncated set and a nil
// error; only ErrDisallowed and context cancellation are returned as errors.
func (s *Incremental) FetchNew(ctx context.Context, watermark *time.Time) (Result, error) {
	var res Result

	if watermark == nil {
		s.log.Info().Int("max_pages", s.maxPages).Msg("no watermark, collecting all rows")
	} else {
		s.log.Info().Str("watermark", watermark.Format(model.DateLayout)).Msg("scanning for new rows")
	}

	for page := 1; page <= s.maxPages; page++ {
		html, err := s.fetcher.FetchPage(ctx, page)
		if err != nil {
			if errors.Is(err, ErrDisallowed) {
				return res, err
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return res, ctxErr
			}
			s.log.Warn().Err(err).Int("page", page).Int("collected", len(res.Records)).Msg("fetch failed, returning partial result")
			res.Truncated = true
			res.StopReason = StopFetchFail
			return res, nil
		}
		res.Pages = page

		records, rowErrs := ParsePage(html, s.baseURL)
		for _, rowErr := range rowErrs {
			s.log.Warn().Err(rowErr).Int("page", page).Msg("skipping unparsable row")
		}
		if len(records) == 0 {
			res.StopReason = StopEmptyPage
			return res, nil
		}

		for _, rec := range records {
			added, err := model.ParseDate(model.Deref(rec.DateAdded))
			if err != nil {
				s.log.Warn().Err(err).Str("url", model.Deref(rec.URL)).Msg("skipping row with unreadable date")
				continue
			}
			if watermark != nil && !added.After(*watermark) {
				s.log.Info().
					Str("date_added", added.String()).
					Int("new", len(res.Records)).
					Msg("reached stored data")
				res.StopReason = StopWatermark
				return res, nil
			}
			res.Records = append(res.Records, rec)
		}
	}

	res.StopReason = StopPageLimit
	return res, nil
}
