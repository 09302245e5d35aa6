package config

import (
	"os"
	"strconv"
	"strings"
)

const Version = "0.3.0"

// Config holds application configuration
type Config struct {
	// Server configuration
	Host string
	Port int

	// Storage configuration
	StorageType string // "sqlite" or "memory"
	DBPath      string

	// Cache configuration
	CacheType string // "memory" or "redis"
	CacheTTL  int    // seconds
	CacheSize int
	RedisHost string
	RedisPort int

	// Site the stable keys are normalized against
	SiteRoot string

	// Crawler configuration
	CrawlStartPage    string
	CrawlStartIsMovie bool
	CrawlDelayMS      int // minimum delay between requests
	CrawlMaxItems     int // stop after this many parsed pages, 0 = unlimited
	CrawlTimeoutSec   int // stop after this many seconds, 0 = no timeout
	CrawlOutputFile   string

	// Debug
	Debug bool
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Host:              "0.0.0.0",
		Port:              9191,
		StorageType:       "sqlite",
		DBPath:            "filmgraph.db",
		CacheType:         "memory",
		CacheTTL:          300,
		CacheSize:         1024,
		RedisHost:         "localhost",
		RedisPort:         6379,
		SiteRoot:          "https://en.wikipedia.org",
		CrawlStartPage:    "/wiki/Morgan_Freeman",
		CrawlStartIsMovie: false,
		CrawlDelayMS:      250,
		CrawlMaxItems:     200,
		CrawlTimeoutSec:   0,
		CrawlOutputFile:   "",
		Debug:             false,
	}
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv(cfg *Config) {
	if val := os.Getenv("HOST"); val != "" {
		cfg.Host = val
	}
	if val := os.Getenv("PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			cfg.Port = port
		}
	}
	if val := os.Getenv("STORAGE_TYPE"); val != "" {
		cfg.StorageType = val
	}
	if val := os.Getenv("DB_PATH"); val != "" {
		cfg.DBPath = val
	}
	if val := os.Getenv("CACHE_TYPE"); val != "" {
		cfg.CacheType = val
	}
	if val := os.Getenv("CACHE_TTL"); val != "" {
		if ttl, err := strconv.Atoi(val); err == nil {
			cfg.CacheTTL = ttl
		}
	}
	if val := os.Getenv("CACHE_SIZE"); val != "" {
		if size, err := strconv.Atoi(val); err == nil {
			cfg.CacheSize = size
		}
	}
	if val := os.Getenv("REDIS_HOST"); val != "" {
		cfg.RedisHost = val
	}
	if val := os.Getenv("REDIS_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			cfg.RedisPort = port
		}
	}
	if val := os.Getenv("SITE_ROOT"); val != "" {
		cfg.SiteRoot = val
	}
	if val := os.Getenv("CRAWL_START_PAGE"); val != "" {
		cfg.CrawlStartPage = val
	}
	if val := os.Getenv("CRAWL_START_IS_MOVIE"); val != "" {
		cfg.CrawlStartIsMovie = parseBool(val)
	}
	if val := os.Getenv("CRAWL_DELAY_MS"); val != "" {
		if ms, err := strconv.Atoi(val); err == nil {
			cfg.CrawlDelayMS = ms
		}
	}
	if val := os.Getenv("CRAWL_MAX_ITEMS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			cfg.CrawlMaxItems = n
		}
	}
	if val := os.Getenv("CRAWL_TIMEOUT_SEC"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			cfg.CrawlTimeoutSec = n
		}
	}
	if val := os.Getenv("CRAWL_OUTPUT_FILE"); val != "" {
		cfg.CrawlOutputFile = val
	}
	if val := os.Getenv("DEBUG"); val != "" {
		cfg.Debug = parseBool(val)
	}
}

func parseBool(val string) bool {
	val = strings.ToLower(val)
	return val == "true" || val == "1" || val == "yes"
}
