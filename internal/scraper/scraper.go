package scraper

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"github.com/stemsi/gradcafe-backend/internal/model"
)

// maxEmptyPages ends a full scrape once this many pages in a row yield nothing.
const maxEmptyPages = 5

// Scraper walks the listing from page 1 with no watermark.
type Scraper struct {
	fetcher PageFetcher
	baseURL string
	log     zerolog.Logger
}

// New creates a Scraper. baseURL is prepended to relative result links.
func New(fetcher PageFetcher, baseURL string, log zerolog.Logger) *Scraper {
	return &Scraper{
		fetcher: fetcher,
		baseURL: baseURL,
		log:     log.With().Str("component", "scraper").Logger(),
	}
}

// ScrapeAll collects up to maxPages pages. Failed pages count as empty;
// only context cancellation and ErrDisallowed stop the scrape with an error.
func (s *Scraper) ScrapeAll(ctx context.Context, maxPages int) ([]model.RawRecord, error) {
	var (
		all   []model.RawRecord
		empty int
	)

	for page := 1; page <= maxPages; page++ {
		if err := ctx.Err(); err != nil {
			return all, err
		}

		html, err := s.fetcher.FetchPage(ctx, page)
		if err != nil {
			if errors.Is(err, ErrDisallowed) || ctx.Err() != nil {
				return all, err
			}
			s.log.Warn().Err(err).Int("page", page).Msg("page fetch failed")
			empty++
			if empty >= maxEmptyPages {
				break
			}
			continue
		}

		records, rowErrs := ParsePage(html, s.baseURL)
		for _, rowErr := range rowErrs {
			s.log.Warn().Err(rowErr).Int("page", page).Msg("skipping unparsable row")
		}

		if len(records) == 0 {
			empty++
			s.log.Debug().Int("page", page).Int("empty_streak", empty).Msg("empty page")
			if empty >= maxEmptyPages {
				s.log.Info().Int("page", page).Msg("too many empty pages, stopping")
				break
			}
			continue
		}

		empty = 0
		all = append(all, records...)
		if page%10 == 0 {
			s.log.Info().Int("page", page).Int("records", len(all)).Msg("scrape progress")
		}
	}

	s.log.Info().Int("records", len(all)).Msg("full scrape finished")
	return all, nil
}
