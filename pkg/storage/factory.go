package storage

import (
	"context"
	"fmt"
	"sync"
)

// StoreFactory is a function that creates a new Store instance
type StoreFactory func(config map[string]interface{}) (Store, error)

var (
	storeMu       sync.RWMutex
	storeRegistry = make(map[string]StoreFactory)
)

// RegisterStore registers a new store implementation
func RegisterStore(name string, factory StoreFactory) {
	storeMu.Lock()
	defer storeMu.Unlock()
	storeRegistry[name] = factory
}

// NewStore creates a new store instance by name
func NewStore(name string, config map[string]interface{}) (Store, error) {
	storeMu.RLock()
	factory, exists := storeRegistry[name]
	storeMu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("unknown store type: %s", name)
	}

	return factory(config)
}

// ListStores returns all registered store types
func ListStores() []string {
	storeMu.RLock()
	defer storeMu.RUnlock()

	stores := make([]string, 0, len(storeRegistry))
	for name := range storeRegistry {
		stores = append(stores, name)
	}
	return stores
}

// init registers built-in stores
func init() {
	RegisterStore("memory", func(config map[string]interface{}) (Store, error) {
		return NewMemoryStore(), nil
	})

	RegisterStore("sqlite", func(config map[string]interface{}) (Store, error) {
		dbPath, ok := config["db_path"].(string)
		if !ok {
			dbPath = "filmgraph.db"
		}

		sqliteConfig := SQLiteConfig{
			DBPath:      dbPath,
			EnableWAL:   true,
			CacheSize:   2000, // 2MB
			BusyTimeout: 5000, // 5 seconds
		}

		if cache, ok := config["cache_size"].(int); ok {
			sqliteConfig.CacheSize = cache
		}
		if timeout, ok := config["busy_timeout"].(int); ok {
			sqliteConfig.BusyTimeout = timeout
		}

		return NewSQLiteStore(dbPath, sqliteConfig)
	})
}

// WithTx runs fn inside a transaction, committing on success and rolling
// back on error or panic. Every multi-step engine write goes through here so
// that a failure never leaves a partially applied ingestion behind.
func WithTx(ctx context.Context, store Store, fn func(Tx) error) error {
	tx, err := store.Begin(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}
