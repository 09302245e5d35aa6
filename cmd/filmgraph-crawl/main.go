package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/hmaier/filmgraph/pkg/config"
	"github.com/hmaier/filmgraph/pkg/crawler"
	"github.com/hmaier/filmgraph/pkg/graph"
	"github.com/hmaier/filmgraph/pkg/model"
	"github.com/hmaier/filmgraph/pkg/storage"
)

func main() {
	logger := zerolog.New(os.Stdout).With().
		Timestamp().
		Logger().
		Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})

	cfg := config.Default()
	config.LoadFromEnv(cfg)

	// Positional overrides: filmgraph-crawl [start-page] [movie]
	if len(os.Args) > 1 {
		cfg.CrawlStartPage = os.Args[1]
	}
	if len(os.Args) > 2 {
		cfg.CrawlStartIsMovie = os.Args[2] == "movie"
	}

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("Crawl failed")
	}
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	store, err := storage.NewStore(cfg.StorageType, map[string]interface{}{
		"db_path": cfg.DBPath,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()

	g := graph.New(store, logger, cfg.SiteRoot)

	spider := crawler.New(crawler.Config{
		SiteRoot: cfg.SiteRoot,
		Delay:    time.Duration(cfg.CrawlDelayMS) * time.Millisecond,
		MaxItems: cfg.CrawlMaxItems,
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if cfg.CrawlTimeoutSec > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(cfg.CrawlTimeoutSec)*time.Second)
		defer cancel()
	}

	start := crawler.Task{URL: cfg.CrawlStartPage, IsMovie: cfg.CrawlStartIsMovie}
	logger.Info().
		Str("start", start.URL).
		Bool("movie", start.IsMovie).
		Int("max_items", cfg.CrawlMaxItems).
		Msg("Starting crawl")

	records := make(chan model.Record, 16)
	errc := make(chan error, 1)
	go func() {
		defer close(records)
		errc <- spider.Run(ctx, start, records)
	}()

	ingested := 0
	for rec := range records {
		if err := g.Add(ctx, rec, false); err != nil {
			logger.Warn().Err(err).Msg("Failed to ingest record")
			continue
		}
		ingested++
	}

	if err := <-errc; err != nil && ctx.Err() == nil {
		return err
	}
	logger.Info().Int("ingested", ingested).Msg("Ingestion finished")

	if cfg.CrawlOutputFile != "" {
		f, err := os.Create(cfg.CrawlOutputFile)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()

		// export against a fresh context, the crawl one may be expired
		if err := g.Export(context.Background(), f); err != nil {
			return fmt.Errorf("failed to export graph: %w", err)
		}
		logger.Info().Str("file", cfg.CrawlOutputFile).Msg("Graph exported")
	}

	return nil
}
