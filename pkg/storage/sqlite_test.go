package storage_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hmaier/filmgraph/pkg/model"
	"github.com/hmaier/filmgraph/pkg/storage"
)

func setupSQLiteTest(t *testing.T) (storage.Store, string) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "filmgraph-test.db")

	store, err := storage.NewStore("sqlite", map[string]interface{}{
		"db_path": dbPath,
	})
	require.NoError(t, err)
	require.NotNil(t, store)
	t.Cleanup(func() { store.Close() })

	return store, dbPath
}

func TestSQLiteStore_Info(t *testing.T) {
	store, _ := setupSQLiteTest(t)

	infoProvider, ok := store.(storage.InfoProvider)
	require.True(t, ok)

	info := infoProvider.Info()
	assert.Equal(t, "sqlite", info.Type)
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	store, dbPath := setupSQLiteTest(t)
	ctx := context.Background()

	released := time.Date(2017, 3, 17, 0, 0, 0, 0, time.UTC)
	err := storage.WithTx(ctx, store, func(tx storage.Tx) error {
		if err := tx.PutActor(ctx, &model.Actor{
			WikiPage:   "/wiki/Hugh_Jackman",
			Name:       "Hugh Jackman",
			Age:        model.IntPtr(56),
			TotalGross: model.FloatPtr(619e6),
		}); err != nil {
			return err
		}
		if err := tx.PutMovie(ctx, &model.Movie{
			WikiPage:    "/wiki/Logan",
			Name:        "Logan",
			BoxOffice:   model.FloatPtr(619e6),
			ReleaseDate: &released,
		}); err != nil {
			return err
		}
		return tx.PutEdge(ctx, &model.Edge{
			MoviePage: "/wiki/Logan",
			ActorPage: "/wiki/Hugh_Jackman",
			Income:    619e6,
		})
	})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := storage.NewStore("sqlite", map[string]interface{}{
		"db_path": dbPath,
	})
	require.NoError(t, err)
	defer reopened.Close()

	actor, err := reopened.GetActor(ctx, "/wiki/Hugh_Jackman")
	require.NoError(t, err)
	assert.Equal(t, "Hugh Jackman", actor.Name)
	require.NotNil(t, actor.Age)
	assert.Equal(t, 56, *actor.Age)

	movie, err := reopened.GetMovie(ctx, "/wiki/Logan")
	require.NoError(t, err)
	require.NotNil(t, movie.ReleaseDate)
	assert.True(t, movie.ReleaseDate.Equal(released))

	edge, err := reopened.GetEdge(ctx, "/wiki/Logan", "/wiki/Hugh_Jackman")
	require.NoError(t, err)
	assert.Equal(t, 619e6, edge.Income)
}

func TestSQLiteStore_ConcurrentWriters(t *testing.T) {
	store, _ := setupSQLiteTest(t)
	ctx := context.Background()

	err := storage.WithTx(ctx, store, func(tx storage.Tx) error {
		return tx.PutActor(ctx, &model.Actor{
			WikiPage:   "/wiki/Counter",
			Name:       "Counter",
			TotalGross: model.FloatPtr(0),
		})
	})
	require.NoError(t, err)

	// Each writer does a read-modify-write of the same total; with the
	// write lock held for the whole transaction none may be lost.
	const writers = 10
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := storage.WithTx(ctx, store, func(tx storage.Tx) error {
				actor, err := tx.GetActor(ctx, "/wiki/Counter")
				if err != nil {
					return err
				}
				total := *actor.TotalGross + 1
				actor.TotalGross = &total
				return tx.PutActor(ctx, actor)
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	actor, err := store.GetActor(ctx, "/wiki/Counter")
	require.NoError(t, err)
	assert.Equal(t, float64(writers), *actor.TotalGross)
}

func TestSQLiteStore_EdgeUniquePerPair(t *testing.T) {
	store, _ := setupSQLiteTest(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		income := float64(i * 100)
		err := storage.WithTx(ctx, store, func(tx storage.Tx) error {
			return tx.PutEdge(ctx, &model.Edge{
				MoviePage: "/wiki/M",
				ActorPage: "/wiki/A",
				Income:    income,
			})
		})
		require.NoError(t, err)
	}

	edges, err := store.EdgesByMovie(ctx, "/wiki/M")
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, float64(200), edges[0].Income)
}

func TestSQLiteStore_NameLookupPrefersOldestRow(t *testing.T) {
	store, _ := setupSQLiteTest(t)
	ctx := context.Background()

	err := storage.WithTx(ctx, store, func(tx storage.Tx) error {
		if err := tx.PutMovie(ctx, &model.Movie{WikiPage: "/wiki/Heat_(1995)", Name: "Heat"}); err != nil {
			return err
		}
		return tx.PutMovie(ctx, &model.Movie{WikiPage: "/wiki/Heat_(1972)", Name: "Heat"})
	})
	require.NoError(t, err)

	movie, err := store.GetMovieByName(ctx, "Heat")
	require.NoError(t, err)
	assert.Equal(t, "/wiki/Heat_(1995)", movie.WikiPage)
}
