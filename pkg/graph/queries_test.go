package graph_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hmaier/filmgraph/pkg/graph"
	"github.com/hmaier/filmgraph/pkg/model"
)

// seedGraph builds a small fixture graph: three movies across two years with
// overlapping casts and distinct totals.
func seedGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g := newTestGraph(t)

	date := func(s string) *time.Time {
		parsed, err := time.Parse("2006-01-02", s)
		require.NoError(t, err)
		return &parsed
	}

	ingestMovie(t, g, &model.MovieRecord{
		WikiPage:    "/wiki/Alpha",
		Name:        "Alpha",
		BoxOffice:   model.FloatPtr(90000),
		ReleaseDate: date("2016-02-01"),
		Actors:      []string{"/wiki/Ann", "/wiki/Ben"},
	})
	ingestMovie(t, g, &model.MovieRecord{
		WikiPage:    "/wiki/Beta",
		Name:        "Beta",
		BoxOffice:   model.FloatPtr(30000),
		ReleaseDate: date("2016-11-20"),
		Actors:      []string{"/wiki/Cal"},
	})
	ingestMovie(t, g, &model.MovieRecord{
		WikiPage:    "/wiki/Gamma",
		Name:        "Gamma",
		BoxOffice:   model.FloatPtr(6000),
		ReleaseDate: date("2017-07-04"),
		Actors:      []string{"/wiki/Ben", "/wiki/Cal"},
	})

	ingestActor(t, g, &model.ActorRecord{WikiPage: "/wiki/Ann", Name: "Ann", Age: model.IntPtr(41)})
	ingestActor(t, g, &model.ActorRecord{WikiPage: "/wiki/Ben", Name: "Ben", Age: model.IntPtr(55)})
	ingestActor(t, g, &model.ActorRecord{WikiPage: "/wiki/Cal", Name: "Cal"})

	return g
}

// Fixture totals: Ann 60000, Ben 34000 (30000 + 4000), Cal 32000 (30000 + 2000).

func TestHubActorsRanksByTotal(t *testing.T) {
	g := seedGraph(t)

	actors, err := g.HubActors(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, actors, 2)

	assert.Equal(t, "Ann", actors[0].Name)
	assert.Equal(t, "Ben", actors[1].Name)
}

func TestHubActorsZeroMeansEveryone(t *testing.T) {
	g := seedGraph(t)

	actors, err := g.HubActors(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, actors, 3)

	actors, err = g.HubActors(context.Background(), 50)
	require.NoError(t, err)
	assert.Len(t, actors, 3)
}

func TestActorsByAgeSkipsUnknown(t *testing.T) {
	g := seedGraph(t)

	actors, err := g.ActorsByAge(context.Background())
	require.NoError(t, err)
	require.Len(t, actors, 2)

	assert.Equal(t, "Ben", actors[0].Name)
	assert.Equal(t, "Ann", actors[1].Name)
}

func TestMoviesInYear(t *testing.T) {
	g := seedGraph(t)

	movies, err := g.MoviesInYear(context.Background(), 2016)
	require.NoError(t, err)
	require.Len(t, movies, 2)
	assert.Equal(t, "Alpha", movies[0].Name)
	assert.Equal(t, "Beta", movies[1].Name)

	movies, err = g.MoviesInYear(context.Background(), 1999)
	require.NoError(t, err)
	assert.Empty(t, movies)
}

func TestActorsInYearDeduplicates(t *testing.T) {
	g := seedGraph(t)

	actors, err := g.ActorsInYear(context.Background(), 2016)
	require.NoError(t, err)
	require.Len(t, actors, 3)

	actors, err = g.ActorsInYear(context.Background(), 2017)
	require.NoError(t, err)
	require.Len(t, actors, 2)
}

func TestGetActorFallsBackToName(t *testing.T) {
	g := seedGraph(t)
	ctx := context.Background()

	byKey, err := g.GetActor(ctx, "/wiki/Ann")
	require.NoError(t, err)

	byName, err := g.GetActor(ctx, "Ann")
	require.NoError(t, err)

	assert.Equal(t, byKey.WikiPage, byName.WikiPage)
}

func TestCounts(t *testing.T) {
	g := seedGraph(t)
	ctx := context.Background()

	actors, err := g.CountActors(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, actors)

	movies, err := g.CountMovies(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, movies)
}
