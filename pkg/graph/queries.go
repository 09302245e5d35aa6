package graph

import (
	"context"
	"errors"
	"sort"

	"github.com/hmaier/filmgraph/pkg/model"
	"github.com/hmaier/filmgraph/pkg/storage"
)

// GetActor looks an actor up by stable key first, then by display name.
// Name matches are first-wins; absence is reported as storage.ErrNotFound.
func (g *Graph) GetActor(ctx context.Context, keyOrName string) (*model.Actor, error) {
	page := model.NormalizeWikiPage(keyOrName, g.siteRoot)
	actor, err := g.store.GetActor(ctx, page)
	if err == nil {
		return actor, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}
	return g.store.GetActorByName(ctx, keyOrName)
}

// GetMovie looks a movie up by stable key first, then by display name.
func (g *Graph) GetMovie(ctx context.Context, keyOrName string) (*model.Movie, error) {
	page := model.NormalizeWikiPage(keyOrName, g.siteRoot)
	movie, err := g.store.GetMovie(ctx, page)
	if err == nil {
		return movie, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}
	return g.store.GetMovieByName(ctx, keyOrName)
}

// MoviesOfActor returns the actor's current edges in creation order,
// pairing each movie page with the income the actor derives from it.
func (g *Graph) MoviesOfActor(ctx context.Context, actorPage string) ([]*model.Edge, error) {
	return g.store.EdgesByActor(ctx, model.NormalizeWikiPage(actorPage, g.siteRoot))
}

// ActorsOfMovie returns the movie's participant edges in creation order.
func (g *Graph) ActorsOfMovie(ctx context.Context, moviePage string) ([]*model.Edge, error) {
	return g.store.EdgesByMovie(ctx, model.NormalizeWikiPage(moviePage, g.siteRoot))
}

// HubActors ranks actors by running gross total, descending. Ties keep
// insertion order. n <= 0 or n beyond the population returns everyone.
func (g *Graph) HubActors(ctx context.Context, n int) ([]*model.Actor, error) {
	actors, err := g.store.ListActors(ctx)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(actors, func(i, j int) bool {
		return grossOf(actors[i]) > grossOf(actors[j])
	})

	if n <= 0 || n >= len(actors) {
		return actors, nil
	}
	return actors[:n], nil
}

// ActorsByAge ranks actors by age, descending, skipping actors whose age is
// unknown.
func (g *Graph) ActorsByAge(ctx context.Context) ([]*model.Actor, error) {
	actors, err := g.store.ListActors(ctx)
	if err != nil {
		return nil, err
	}

	aged := actors[:0]
	for _, a := range actors {
		if a.Age != nil {
			aged = append(aged, a)
		}
	}
	sort.SliceStable(aged, func(i, j int) bool {
		return *aged[i].Age > *aged[j].Age
	})
	return aged, nil
}

// MoviesInYear returns movies released in the given year. Movies without a
// release date are excluded, never an error.
func (g *Graph) MoviesInYear(ctx context.Context, year int) ([]*model.Movie, error) {
	movies, err := g.store.ListMovies(ctx)
	if err != nil {
		return nil, err
	}

	var out []*model.Movie
	for _, m := range movies {
		if m.ReleaseDate != nil && m.ReleaseDate.Year() == year {
			out = append(out, m)
		}
	}
	return out, nil
}

// ActorsInYear returns actors who participate in at least one movie released
// in the given year, deduplicated by stable key, in insertion order.
func (g *Graph) ActorsInYear(ctx context.Context, year int) ([]*model.Actor, error) {
	movies, err := g.MoviesInYear(ctx, year)
	if err != nil {
		return nil, err
	}

	inYear := make(map[string]bool)
	for _, m := range movies {
		edges, err := g.store.EdgesByMovie(ctx, m.WikiPage)
		if err != nil {
			return nil, err
		}
		for _, e := range edges {
			inYear[e.ActorPage] = true
		}
	}

	actors, err := g.store.ListActors(ctx)
	if err != nil {
		return nil, err
	}
	var out []*model.Actor
	for _, a := range actors {
		if inYear[a.WikiPage] {
			out = append(out, a)
		}
	}
	return out, nil
}

// CountActors returns the number of actor vertices.
func (g *Graph) CountActors(ctx context.Context) (int, error) {
	return g.store.CountActors(ctx)
}

// CountMovies returns the number of movie vertices.
func (g *Graph) CountMovies(ctx context.Context) (int, error) {
	return g.store.CountMovies(ctx)
}

func grossOf(a *model.Actor) float64 {
	if a.TotalGross == nil {
		return 0
	}
	return *a.TotalGross
}
