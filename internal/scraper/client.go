package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"github.com/stemsi/gradcafe-backend/internal/config"
	"github.com/temoto/robotstxt"
	"golang.org/x/time/rate"
)

// ErrDisallowed is returned when robots.txt forbids the results page.
var ErrDisallowed = errors.New("robots.txt disallows the results page")

// PageFetcher returns the raw HTML of one listing page (1-based).
type PageFetcher interface {
	FetchPage(ctx context.Context, page int) (string, error)
}

// Client fetches listing pages politely: one robots.txt check per client,
// a fixed interval between requests and no retries.
type Client struct {
	http    *resty.Client
	limiter *rate.Limiter
	cfg     config.ScraperConfig
	log     zerolog.Logger

	robotsOnce sync.Once
	robotsErr  error
}

// NewClient creates a Client for the configured upstream.
func NewClient(cfg config.ScraperConfig, log zerolog.Logger) *Client {
	hc := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", cfg.UserAgent()).
		SetRetryCount(0)

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(cfg.RequestInterval), 1)
	}

	return &Client{
		http:    hc,
		limiter: limiter,
		cfg:     cfg,
		log:     log.With().Str("component", "scraper_client").Logger(),
	}
}

// BaseURL is used to absolutize result links.
func (c *Client) BaseURL() string {
	return strings.TrimRight(c.cfg.BaseURL, "/")
}

// FetchPage implements PageFetcher.
func (c *Client) FetchPage(ctx context.Context, page int) (string, error) {
	if err := c.checkRobots(ctx); err != nil {
		return "", err
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	req := c.http.R().SetContext(ctx)
	if page > 1 {
		req.SetQueryParam("page", strconv.Itoa(page))
	}

	res, err := req.Get(c.cfg.ResultsURL())
	if err != nil {
		return "", fmt.Errorf("fetch page %d: %w", page, err)
	}
	if res.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("fetch page %d: status %d", page, res.StatusCode())
	}
	return res.String(), nil
}

// checkRobots reads robots.txt once. An unreachable or unparsable
// robots.txt does not block scraping.
func (c *Client) checkRobots(ctx context.Context) error {
	if !c.cfg.RespectRobots {
		return nil
	}
	c.robotsOnce.Do(func() {
		res, err := c.http.R().SetContext(ctx).Get(c.BaseURL() + "/robots.txt")
		if err != nil {
			c.log.Warn().Err(err).Msg("could not fetch robots.txt, proceeding")
			return
		}
		robots, err := robotstxt.FromStatusAndBytes(res.StatusCode(), res.Body())
		if err != nil {
			c.log.Warn().Err(err).Msg("could not parse robots.txt, proceeding")
			return
		}
		if !robots.TestAgent(c.cfg.ResultsPath, c.cfg.UserAgent()) {
			c.robotsErr = ErrDisallowed
			c.log.Warn().Str("path", c.cfg.ResultsPath).Msg("robots.txt disallows scraping")
			return
		}
		c.log.Debug().Str("path", c.cfg.ResultsPath).Msg("robots.txt allows scraping")
	})
	return c.robotsErr
}
