package graph

import (
	"context"
	"strings"

	"github.com/hmaier/filmgraph/pkg/model"
)

// Tolerance half-widths for numeric range matching, mirroring the fuzzy
// matching the query API has always offered for money fields.
const (
	GrossRange     = 500
	BoxOfficeRange = 5000
)

// ActorCriteria is one AND-group of actor filters. Zero values mean "no
// constraint". MovieNames requires the actor to appear in a movie whose
// display name contains each listed fragment.
type ActorCriteria struct {
	NameContains string
	Age          *int
	PageContains string
	GrossNear    *float64
	MovieNames   []string
}

/// ActorQuery is an OR-composition of AND-groups: an actor matches the query
// if it matches at least one criteria group.
type ActorQuery []ActorCriteria

// MovieCriteria is one AND-group of movie filters.
type MovieCriteria struct {
	NameContains  string
	Year          *int
	PageContains  string
	BoxOfficeNear *float64
	ActorNames    []string
}

// MovieQuery is an OR-composition of AND-groups.
type MovieQuery []MovieCriteria

// FilterActors returns actors matching the query, in insertion order. An
// empty query matches everything.
func (g *Graph) FilterActors(ctx context.Context, query ActorQuery) ([]*model.Actor, error) {
	actors, err := g.store.ListActors(ctx)
	if err != nil {
		return nil, err
	}
	if len(query) == 0 {
		return actors, nil
	}

	var out []*model.Actor
	for _, a := range actors {
		for _, c := range query {
			ok, err := g.actorMatches(ctx, a, c)
			if err != nil {
				return nil, err
			}
			if ok {
				out = append(out, a)
				break
			}
		}
	}
	return out, nil
}

// FilterMovies returns movies matching the query, in insertion order.
func (g *Graph) FilterMovies(ctx context.Context, query MovieQuery) ([]*model.Movie, error) {
	movies, err := g.store.ListMovies(ctx)
	if err != nil {
		return nil, err
	}
	if len(query) == 0 {
		return movies, nil
	}

	var out []*model.Movie
	for _, m := range movies {
		for _, c := range query {
			ok, err := g.movieMatches(ctx, m, c)
			if err != nil {
				return nil, err
			}
			if ok {
				out = append(out, m)
				break
			}
		}
	}
	return out, nil
}

func (g *Graph) actorMatches(ctx context.Context, a *model.Actor, c ActorCriteria) (bool, error) {
	if c.NameContains != "" && !strings.Contains(a.Name, c.NameContains) {
		return false, nil
	}
	if c.PageContains != "" && !strings.Contains(a.WikiPage, c.PageContains) {
		return false, nil
	}
	if c.Age != nil && (a.Age == nil || *a.Age != *c.Age) {
		return false, nil
	}
	if c.GrossNear != nil {
		gross := grossOf(a)
		if gross < *c.GrossNear-GrossRange || gross > *c.GrossNear+GrossRange {
			return false, nil
		}
	}

	for _, fragment := range c.MovieNames {
		ok, err := g.actorInMovieNamed(ctx, a.WikiPage, strings.TrimSpace(fragment))
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func (g *Graph) movieMatches(ctx context.Context, m *model.Movie, c MovieCriteria) (bool, error) {
	if c.NameContains != "" && !strings.Contains(m.Name, c.NameContains) {
		return false, nil
	}
	if c.PageContains != "" && !strings.Contains(m.WikiPage, c.PageContains) {
		return false, nil
	}
	if c.Year != nil && (m.ReleaseDate == nil || m.ReleaseDate.Year() != *c.Year) {
		return false, nil
	}
	if c.BoxOfficeNear != nil {
		if m.BoxOffice == nil {
			return false, nil
		}
		if *m.BoxOffice < *c.BoxOfficeNear-BoxOfficeRange || *m.BoxOffice > *c.BoxOfficeNear+BoxOfficeRange {
			return false, nil
		}
	}

	for _, fragment := range c.ActorNames {
		ok, err := g.movieHasActorNamed(ctx, m.WikiPage, strings.TrimSpace(fragment))
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func (g *Graph) actorInMovieNamed(ctx context.Context, actorPage, fragment string) (bool, error) {
	edges, err := g.store.EdgesByActor(ctx, actorPage)
	if err != nil {
		return false, err
	}
	for _, e := range edges {
		movie, err := g.store.GetMovie(ctx, e.MoviePage)
		if err != nil {
			continue
		}
		if strings.Contains(movie.Name, fragment) {
			return true, nil
		}
	}
	return false, nil
}

func (g *Graph) movieHasActorNamed(ctx context.Context, moviePage, fragment string) (bool, error) {
	edges, err := g.store.EdgesByMovie(ctx, moviePage)
	if err != nil {
		return false, err
	}
	for _, e := range edges {
		actor, err := g.store.GetActor(ctx, e.ActorPage)
		if err != nil {
			continue
		}
		if strings.Contains(actor.Name, fragment) {
			return true, nil
		}
	}
	return false, nil
}
