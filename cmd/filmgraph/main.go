package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/hmaier/filmgraph/pkg/cache"
	"github.com/hmaier/filmgraph/pkg/config"
	"github.com/hmaier/filmgraph/pkg/graph"
	"github.com/hmaier/filmgraph/pkg/server"
	"github.com/hmaier/filmgraph/pkg/storage"
)

func main() {
	// Setup logger
	logger := zerolog.New(os.Stdout).With().
		Timestamp().
		Logger().
		Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})

	// Load configuration
	cfg := config.Default()
	config.LoadFromEnv(cfg)

	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	printBanner(cfg)

	// Initialize storage
	store, err := storage.NewStore(cfg.StorageType, map[string]interface{}{
		"db_path": cfg.DBPath,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize storage")
	}
	defer store.Close()

	if infoProvider, ok := store.(storage.InfoProvider); ok {
		info := infoProvider.Info()
		logger.Info().
			Str("type", info.Type).
			Str("version", info.Version).
			Msg("Storage initialized")
	}

	// Initialize cache
	var cacheInstance cache.Cache
	if cfg.CacheType == "redis" {
		redisCache, err := cache.NewRedisCache(
			cfg.RedisHost,
			cfg.RedisPort,
			time.Duration(cfg.CacheTTL)*time.Second,
		)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to connect to Redis, falling back to memory cache")
			cacheInstance = cache.NewMemoryCache(cfg.CacheSize, time.Duration(cfg.CacheTTL)*time.Second)
		} else {
			cacheInstance = redisCache
			logger.Info().Msg("Using Redis cache")
		}
	} else {
		cacheInstance = cache.NewMemoryCache(cfg.CacheSize, time.Duration(cfg.CacheTTL)*time.Second)
		logger.Info().Msg("Using in-memory cache")
	}
	defer cacheInstance.Close()

	// Initialize the graph engine on top of the store
	g := graph.New(store, logger, cfg.SiteRoot)

	// Create server
	srv := server.New(cfg, g, cacheInstance, logger)

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info().Msg("Shutting down gracefully...")
		cacheInstance.Close()
		store.Close()
		os.Exit(0)
	}()

	// Start server
	logger.Info().Msg("Server ready to accept requests")
	if err := srv.Start(); err != nil {
		logger.Fatal().Err(err).Msg("Server failed")
	}
}

func printBanner(cfg *config.Config) {
	fmt.Println("////////////////////// filmgraph " + config.Version + " //////////////////////")
	fmt.Println("----------------------------------------------------------------")
	fmt.Println("Server Configuration:")
	fmt.Printf("  Host: %s\n", cfg.Host)
	fmt.Printf("  Port: %d\n", cfg.Port)
	fmt.Println()
	fmt.Println("Storage Configuration:")
	fmt.Printf("  Type: %s\n", cfg.StorageType)
	if cfg.StorageType == "sqlite" {
		fmt.Printf("  Path: %s\n", cfg.DBPath)
	}
	fmt.Println()
	fmt.Println("Cache Configuration:")
	fmt.Printf("  Type: %s\n", cfg.CacheType)
	fmt.Printf("  TTL: %d seconds\n", cfg.CacheTTL)
	if cfg.CacheType == "redis" {
		fmt.Printf("  Redis: %s:%d\n", cfg.RedisHost, cfg.RedisPort)
	}
	fmt.Println("----------------------------------------------------------------")
	fmt.Println()
}
