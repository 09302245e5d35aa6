// Package crawler walks encyclopedia pages and turns them into graph records.
// Actor pages link to movie pages through the filmography section, movie
// pages link back to actors through the starring row, so a single start page
// expands into the bipartite neighborhood around it.
package crawler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/net/html"
	"golang.org/x/time/rate"

	"github.com/hmaier/filmgraph/pkg/model"
)

// Task is one page to fetch. Page kind cannot be inferred from the URL, so
// it travels with the task.
type Task struct {
	URL     string
	IsMovie bool
}

// Config controls crawl pacing and extent.
type Config struct {
	// SiteRoot is prepended to relative page links.
	SiteRoot string
	// Delay is the minimum spacing between requests.
	Delay time.Duration
	// MaxItems stops the crawl after this many records. Zero means no limit.
	MaxItems int
	// RequestTimeout bounds a single fetch.
	RequestTimeout time.Duration
	// UserAgent identifies the crawler to the site.
	UserAgent string
}

// Spider fetches pages breadth-first, parses them, and emits records. It is
// single-threaded; the rate limiter, not concurrency, sets the pace.
type Spider struct {
	cfg     Config
	client  *http.Client
	limiter *rate.Limiter
	logger  zerolog.Logger
	visited map[string]bool
}

// New creates a spider. Zero-value config fields get workable defaults.
func New(cfg Config, logger zerolog.Logger) *Spider {
	if cfg.SiteRoot == "" {
		cfg.SiteRoot = model.DefaultSiteRoot
	}
	if cfg.Delay <= 0 {
		cfg.Delay = time.Second
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "filmgraph-crawler/0.3"
	}

	return &Spider{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.RequestTimeout},
		limiter: rate.NewLimiter(rate.Every(cfg.Delay), 1),
		logger:  logger,
		visited: make(map[string]bool),
	}
}

// Run crawls from the start task until the queue drains, MaxItems records
// have been emitted, or the context is cancelled. Records go to out; the
// caller owns the channel and closes it after Run returns. Pages that fail
// to fetch or parse are logged and skipped, never fatal.
func (s *Spider) Run(ctx context.Context, start Task, out chan<- model.Record) error {
	queue := []Task{start}
	emitted := 0

	for len(queue) > 0 {
		if s.cfg.MaxItems > 0 && emitted >= s.cfg.MaxItems {
			break
		}

		task := queue[0]
		queue = queue[1:]

		page := model.NormalizeWikiPage(task.URL, s.cfg.SiteRoot)
		if s.visited[page] {
			continue
		}
		s.visited[page] = true

		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}

		root, err := s.fetch(ctx, s.cfg.SiteRoot+page)
		if err != nil {
			s.logger.Warn().Err(err).Str("page", page).Msg("Fetch failed")
			continue
		}

		var rec model.Record
		var links []Task
		if task.IsMovie {
			rec, links = parseMoviePage(root, page, s.cfg.SiteRoot)
		} else {
			rec, links = parseActorPage(root, page, s.cfg.SiteRoot)
		}
		if rec.Kind == 0 {
			s.logger.Warn().Str("page", page).Bool("movie", task.IsMovie).Msg("Page not parseable")
			continue
		}

		select {
		case out <- rec:
			emitted++
		case <-ctx.Done():
			return ctx.Err()
		}

		for _, link := range links {
			if !s.visited[model.NormalizeWikiPage(link.URL, s.cfg.SiteRoot)] {
				queue = append(queue, link)
			}
		}
	}

	s.logger.Info().Int("records", emitted).Int("pages_seen", len(s.visited)).Msg("Crawl finished")
	return nil
}

func (s *Spider) fetch(ctx context.Context, url string) (*html.Node, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", s.cfg.UserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	root, err := html.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", url, err)
	}
	return root, nil
}
