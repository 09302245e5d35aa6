// Package graph implements the ingestion engine for the actor/movie
// relationship graph: entity resolution against the store, idempotent
// merging of parsed records, box-office share allocation across cast lists,
// and incremental maintenance of each actor's running gross total.
package graph

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/hmaier/filmgraph/pkg/model"
	"github.com/hmaier/filmgraph/pkg/storage"
)

// Graph is the ingestion and query engine. It owns no state beyond the
// store handle and logger; all graph data lives in the store and every
// mutation runs inside a single store transaction.
type Graph struct {
	store    storage.Store
	logger   zerolog.Logger
	siteRoot string
}

// New creates an engine over the given store. siteRoot is stripped from
// absolute page URLs during key normalization; pass "" for the default.
func New(store storage.Store, logger zerolog.Logger, siteRoot string) *Graph {
	if siteRoot == "" {
		siteRoot = model.DefaultSiteRoot
	}
	return &Graph{
		store:    store,
		logger:   logger,
		siteRoot: siteRoot,
	}
}

// Store exposes the underlying store for read-side callers.
func (g *Graph) Store() storage.Store {
	return g.store
}

// Add ingests one record. Externally sourced records (API edits) resolve by
// display name instead of stable key and never zero out derived shares when
// they carry no box-office value. The whole call is one transaction: on any
// failure nothing is applied.
func (g *Graph) Add(ctx context.Context, rec model.Record, external bool) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	return storage.WithTx(ctx, g.store, func(tx storage.Tx) error {
		switch rec.Kind {
		case model.KindActor:
			return g.addActor(ctx, tx, rec.Actor, external)
		case model.KindMovie:
			return g.addMovie(ctx, tx, rec.Movie, external)
		default:
			return fmt.Errorf("unknown record kind %d", rec.Kind)
		}
	})
}

// resolveKey picks the stable key for a record, deriving a slug from the
// display name when the source supplied no page.
func (g *Graph) resolveKey(page, name string) string {
	if page != "" {
		return model.NormalizeWikiPage(page, g.siteRoot)
	}
	return model.SlugFromName(name)
}

func (g *Graph) addActor(ctx context.Context, tx storage.Tx, rec *model.ActorRecord, external bool) error {
	page := g.resolveKey(rec.WikiPage, rec.Name)

	actor, err := g.resolveActor(ctx, tx, page, rec.Name, external)
	if err != nil {
		return err
	}
	if actor == nil {
		actor = &model.Actor{WikiPage: page}
	}

	// Merge: only fields present in the record overwrite stored values.
	if rec.Name != "" {
		actor.Name = rec.Name
	}
	if rec.Age != nil {
		actor.Age = rec.Age
	}
	if rec.TotalGross != nil {
		actor.TotalGross = rec.TotalGross
	}
	if actor.TotalGross == nil {
		// Seed the running total on first write so incremental
		// adjustments never touch an unset value.
		actor.TotalGross = model.FloatPtr(0)
	}

	if err := tx.PutActor(ctx, actor); err != nil {
		return err
	}

	// Known filmography entries create relationships without recomputing
	// shares: a bare list of pages carries no value information.
	for _, moviePage := range rec.Movies {
		mp := model.NormalizeWikiPage(moviePage, g.siteRoot)
		if mp == "" {
			continue
		}
		if err := g.ensureMovie(ctx, tx, mp); err != nil {
			return err
		}
		if err := g.upsertEdge(ctx, tx, mp, actor.WikiPage, nil); err != nil {
			return err
		}
	}

	g.logger.Debug().Str("actor", actor.WikiPage).Bool("external", external).Msg("ingested actor record")
	return nil
}

func (g *Graph) addMovie(ctx context.Context, tx storage.Tx, rec *model.MovieRecord, external bool) error {
	page := g.resolveKey(rec.WikiPage, rec.Name)

	movie, err := g.resolveMovie(ctx, tx, page, rec.Name, external)
	if err != nil {
		return err
	}
	if movie == nil {
		movie = &model.Movie{WikiPage: page}
	}

	if rec.Name != "" {
		movie.Name = rec.Name
	}
	if rec.BoxOffice != nil {
		movie.BoxOffice = rec.BoxOffice
	}
	if rec.ReleaseDate != nil {
		movie.ReleaseDate = rec.ReleaseDate
	}
	if movie.BoxOffice == nil {
		movie.BoxOffice = model.FloatPtr(0)
	}

	if err := tx.PutMovie(ctx, movie); err != nil {
		return err
	}

	// External edits without a box-office value must not silently zero
	// out the derived shares, so edge recomputation is skipped entirely.
	if external && rec.BoxOffice == nil {
		g.logger.Debug().Str("movie", movie.WikiPage).Msg("external edit without total, shares untouched")
		return nil
	}

	participants := make([]string, 0, len(rec.Actors))
	for _, actorPage := range rec.Actors {
		if ap := model.NormalizeWikiPage(actorPage, g.siteRoot); ap != "" {
			participants = append(participants, ap)
		}
	}

	if len(participants) == 0 {
		if !external {
			return nil
		}
		// A box-office edit with no cast list reallocates over the
		// movie's existing participants, in edge order.
		edges, err := tx.EdgesByMovie(ctx, movie.WikiPage)
		if err != nil {
			return err
		}
		for _, e := range edges {
			participants = append(participants, e.ActorPage)
		}
		if len(participants) == 0 {
			return nil
		}
	}

	return g.reallocate(ctx, tx, movie, participants)
}

// reallocate recomputes every participant's share of the movie's total and
// reconciles the movie's edge set: dropped participants lose their edge and
// their running totals shrink accordingly.
func (g *Graph) reallocate(ctx context.Context, tx storage.Tx, movie *model.Movie, participants []string) error {
	shares := Shares(*movie.BoxOffice, len(participants))

	keep := make(map[string]bool, len(participants))
	for _, ap := range participants {
		keep[ap] = true
	}

	existing, err := tx.EdgesByMovie(ctx, movie.WikiPage)
	if err != nil {
		return err
	}
	for _, e := range existing {
		if keep[e.ActorPage] {
			continue
		}
		if err := g.adjustActorTotal(ctx, tx, e.ActorPage, -e.Income); err != nil {
			return err
		}
		if err := tx.DeleteEdge(ctx, e.MoviePage, e.ActorPage); err != nil {
			return err
		}
	}

	for i, ap := range participants {
		if err := g.ensureActor(ctx, tx, ap); err != nil {
			return err
		}
		if err := g.upsertEdge(ctx, tx, movie.WikiPage, ap, &shares[i]); err != nil {
			return err
		}
	}

	g.logger.Debug().
		Str("movie", movie.WikiPage).
		Int("participants", len(participants)).
		Float64("total", *movie.BoxOffice).
		Msg("reallocated shares")
	return nil
}

// upsertEdge creates or replaces the (movie, actor) edge and keeps the
// actor's running total in step. A nil income preserves the current edge
// value, which is distinct from replacing it with zero.
func (g *Graph) upsertEdge(ctx context.Context, tx storage.Tx, moviePage, actorPage string, income *float64) error {
	edge, err := tx.GetEdge(ctx, moviePage, actorPage)
	if errors.Is(err, storage.ErrNotFound) {
		value := 0.0
		if income != nil {
			value = *income
		}
		if err := tx.PutEdge(ctx, &model.Edge{MoviePage: moviePage, ActorPage: actorPage, Income: value}); err != nil {
			return err
		}
		return g.adjustActorTotal(ctx, tx, actorPage, value)
	}
	if err != nil {
		return err
	}

	if income == nil {
		return nil
	}

	// Subtract the old contribution before adding the new one so repeated
	// ingestion of the same movie never double counts.
	delta := *income - edge.Income
	edge.Income = *income
	if err := tx.PutEdge(ctx, edge); err != nil {
		return err
	}
	if delta != 0 {
		return g.adjustActorTotal(ctx, tx, actorPage, delta)
	}
	return nil
}

func (g *Graph) adjustActorTotal(ctx context.Context, tx storage.Tx, actorPage string, delta float64) error {
	actor, err := tx.GetActor(ctx, actorPage)
	if err != nil {
		return fmt.Errorf("adjust total for %s: %w", actorPage, err)
	}
	total := delta
	if actor.TotalGross != nil {
		total += *actor.TotalGross
	}
	actor.TotalGross = &total
	return tx.PutActor(ctx, actor)
}

// ensureActor stub-creates an actor referenced by an edge before its own
// record has arrived. The stub holds only the stable key and a zeroed total;
// later ingestion of the actor's record merges into it.
func (g *Graph) ensureActor(ctx context.Context, tx storage.Tx, page string) error {
	_, err := tx.GetActor(ctx, page)
	if errors.Is(err, storage.ErrNotFound) {
		return tx.PutActor(ctx, &model.Actor{WikiPage: page, TotalGross: model.FloatPtr(0)})
	}
	return err
}

// ensureMovie stub-creates a movie referenced from an actor's filmography.
func (g *Graph) ensureMovie(ctx context.Context, tx storage.Tx, page string) error {
	_, err := tx.GetMovie(ctx, page)
	if errors.Is(err, storage.ErrNotFound) {
		return tx.PutMovie(ctx, &model.Movie{WikiPage: page, BoxOffice: model.FloatPtr(0)})
	}
	return err
}

// resolveActor finds the existing actor a record refers to, or nil if the
// record introduces a new one. External records resolve by display name
// first; crawled records resolve by stable key.
func (g *Graph) resolveActor(ctx context.Context, tx storage.Tx, page, name string, external bool) (*model.Actor, error) {
	if external && name != "" {
		actor, err := tx.GetActorByName(ctx, name)
		if err == nil {
			return actor, nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
	}

	actor, err := tx.GetActor(ctx, page)
	if err == nil {
		return actor, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}
	return nil, nil
}

func (g *Graph) resolveMovie(ctx context.Context, tx storage.Tx, page, name string, external bool) (*model.Movie, error) {
	if external && name != "" {
		movie, err := tx.GetMovieByName(ctx, name)
		if err == nil {
			return movie, nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
	}

	movie, err := tx.GetMovie(ctx, page)
	if err == nil {
		return movie, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}
	return nil, nil
}

// DeleteActor removes an actor and its edges. Movie aggregates are not
// adjusted: movies carry no total derived from edges.
func (g *Graph) DeleteActor(ctx context.Context, page string) error {
	page = model.NormalizeWikiPage(page, g.siteRoot)

	return storage.WithTx(ctx, g.store, func(tx storage.Tx) error {
		edges, err := tx.EdgesByActor(ctx, page)
		if err != nil {
			return err
		}
		for _, e := range edges {
			if err := tx.DeleteEdge(ctx, e.MoviePage, e.ActorPage); err != nil {
				return err
			}
		}
		return tx.DeleteActor(ctx, page)
	})
}

// DeleteMovie removes a movie and its edges, subtracting each removed
// edge's income from its actor's running total so the totals keep matching
// the surviving edges.
func (g *Graph) DeleteMovie(ctx context.Context, page string) error {
	page = model.NormalizeWikiPage(page, g.siteRoot)

	return storage.WithTx(ctx, g.store, func(tx storage.Tx) error {
		edges, err := tx.EdgesByMovie(ctx, page)
		if err != nil {
			return err
		}
		for _, e := range edges {
			if err := g.adjustActorTotal(ctx, tx, e.ActorPage, -e.Income); err != nil {
				return err
			}
			if err := tx.DeleteEdge(ctx, e.MoviePage, e.ActorPage); err != nil {
				return err
			}
		}
		return tx.DeleteMovie(ctx, page)
	})
}
