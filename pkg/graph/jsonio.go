package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/hmaier/filmgraph/pkg/model"
	"github.com/hmaier/filmgraph/pkg/storage"
)

// Snapshot is the JSON document shape used by Export and Import.
type Snapshot struct {
	Actors []*model.Actor `json:"actors"`
	Movies []*model.Movie `json:"movies"`
	Edges  []*model.Edge  `json:"edges"`
}

// Export writes the whole graph as one JSON document, in insertion order.
func (g *Graph) Export(ctx context.Context, w io.Writer) error {
	actors, err := g.store.ListActors(ctx)
	if err != nil {
		return fmt.Errorf("export actors: %w", err)
	}
	movies, err := g.store.ListMovies(ctx)
	if err != nil {
		return fmt.Errorf("export movies: %w", err)
	}

	var edges []*model.Edge
	for _, m := range movies {
		es, err := g.store.EdgesByMovie(ctx, m.WikiPage)
		if err != nil {
			return fmt.Errorf("export edges: %w", err)
		}
		edges = append(edges, es...)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(Snapshot{Actors: actors, Movies: movies, Edges: edges})
}

// Import loads a snapshot produced by Export into the store, in one
// transaction. Rows are restored verbatim, so a snapshot taken from a
// consistent graph restores with running totals already matching edges.
func (g *Graph) Import(ctx context.Context, r io.Reader) error {
	var snap Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}

	return storage.WithTx(ctx, g.store, func(tx storage.Tx) error {
		for _, a := range snap.Actors {
			if a.WikiPage == "" {
				return model.ErrMissingIdentity
			}
			if a.TotalGross == nil {
				a.TotalGross = model.FloatPtr(0)
			}
			if err := tx.PutActor(ctx, a); err != nil {
				return err
			}
		}
		for _, m := range snap.Movies {
			if m.WikiPage == "" {
				return model.ErrMissingIdentity
			}
			if m.BoxOffice == nil {
				m.BoxOffice = model.FloatPtr(0)
			}
			if err := tx.PutMovie(ctx, m); err != nil {
				return err
			}
		}
		for _, e := range snap.Edges {
			if e.MoviePage == "" || e.ActorPage == "" {
				return fmt.Errorf("snapshot edge missing endpoint")
			}
			if err := tx.PutEdge(ctx, e); err != nil {
				return err
			}
		}
		return nil
	})
}
