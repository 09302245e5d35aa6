package graph_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hmaier/filmgraph/pkg/graph"
	"github.com/hmaier/filmgraph/pkg/model"
)

func TestFilterActorsEmptyQueryMatchesAll(t *testing.T) {
	g := seedGraph(t)

	actors, err := g.FilterActors(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, actors, 3)
}

func TestFilterActorsByNameAndAge(t *testing.T) {
	g := seedGraph(t)

	actors, err := g.FilterActors(context.Background(), graph.ActorQuery{
		{NameContains: "Ben", Age: model.IntPtr(55)},
	})
	require.NoError(t, err)
	require.Len(t, actors, 1)
	assert.Equal(t, "Ben", actors[0].Name)

	// same name, wrong age: the AND-group fails
	actors, err = g.FilterActors(context.Background(), graph.ActorQuery{
		{NameContains: "Ben", Age: model.IntPtr(30)},
	})
	require.NoError(t, err)
	assert.Empty(t, actors)
}

func TestFilterActorsGroupsAreAlternatives(t *testing.T) {
	g := seedGraph(t)

	actors, err := g.FilterActors(context.Background(), graph.ActorQuery{
		{NameContains: "Ann"},
		{NameContains: "Cal"},
	})
	require.NoError(t, err)
	assert.Len(t, actors, 2)
}

func TestFilterActorsGrossTolerance(t *testing.T) {
	g := seedGraph(t)

	// Ben's total is 34000; anything within the half-width matches
	actors, err := g.FilterActors(context.Background(), graph.ActorQuery{
		{GrossNear: model.FloatPtr(34000 + graph.GrossRange)},
	})
	require.NoError(t, err)
	require.Len(t, actors, 1)
	assert.Equal(t, "Ben", actors[0].Name)

	actors, err = g.FilterActors(context.Background(), graph.ActorQuery{
		{GrossNear: model.FloatPtr(34000 + graph.GrossRange + 1)},
	})
	require.NoError(t, err)
	assert.Empty(t, actors)
}

func TestFilterActorsByMovieName(t *testing.T) {
	g := seedGraph(t)

	actors, err := g.FilterActors(context.Background(), graph.ActorQuery{
		{MovieNames: []string{"Gamma"}},
	})
	require.NoError(t, err)
	require.Len(t, actors, 2)
	assert.Equal(t, "Ben", actors[0].Name)
	assert.Equal(t, "Cal", actors[1].Name)

	// both movies must match within one group
	actors, err = g.FilterActors(context.Background(), graph.ActorQuery{
		{MovieNames: []string{"Alpha", "Gamma"}},
	})
	require.NoError(t, err)
	require.Len(t, actors, 1)
	assert.Equal(t, "Ben", actors[0].Name)
}

func TestFilterMoviesByYearAndBoxOffice(t *testing.T) {
	g := seedGraph(t)

	movies, err := g.FilterMovies(context.Background(), graph.MovieQuery{
		{Year: model.IntPtr(2016), BoxOfficeNear: model.FloatPtr(30000)},
	})
	require.NoError(t, err)
	require.Len(t, movies, 1)
	assert.Equal(t, "Beta", movies[0].Name)
}

func TestFilterMoviesByActorName(t *testing.T) {
	g := seedGraph(t)

	movies, err := g.FilterMovies(context.Background(), graph.MovieQuery{
		{ActorNames: []string{"Cal"}},
	})
	require.NoError(t, err)
	require.Len(t, movies, 2)
	assert.Equal(t, "Beta", movies[0].Name)
	assert.Equal(t, "Gamma", movies[1].Name)
}
