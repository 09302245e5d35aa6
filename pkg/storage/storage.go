package storage

import (
	"context"
	"errors"

	"github.com/hmaier/filmgraph/pkg/model"
)

var (
	// ErrNotFound is returned when an entity or edge is not found
	ErrNotFound = errors.New("entity not found")
	// ErrConflict is returned when a unique-key constraint is violated
	ErrConflict = errors.New("stable key already exists")
)

// Store defines the core interface for graph storage backends. Read
// operations run outside any transaction; all writes go through Begin so
// that one ingestion's lookup, merge, edge upserts and total adjustments
// commit or roll back as a unit.
type Store interface {
	Reader

	// Begin opens a write transaction. Backends serialize writers, so two
	// concurrent ingestions touching the same actor cannot interleave
	// their read-modify-write sequences.
	Begin(ctx context.Context) (Tx, error)

	// Lifecycle
	Close() error
}

// Reader defines the read-side operations shared by the store and its
// transactions. List order is insertion order; name lookups return the
// earliest match, ambiguity is not an error.
type Reader interface {
	GetActor(ctx context.Context, page string) (*model.Actor, error)
	GetActorByName(ctx context.Context, name string) (*model.Actor, error)
	ListActors(ctx context.Context) ([]*model.Actor, error)
	CountActors(ctx context.Context) (int, error)

	GetMovie(ctx context.Context, page string) (*model.Movie, error)
	GetMovieByName(ctx context.Context, name string) (*model.Movie, error)
	ListMovies(ctx context.Context) ([]*model.Movie, error)
	CountMovies(ctx context.Context) (int, error)

	GetEdge(ctx context.Context, moviePage, actorPage string) (*model.Edge, error)
	EdgesByActor(ctx context.Context, actorPage string) ([]*model.Edge, error)
	EdgesByMovie(ctx context.Context, moviePage string) ([]*model.Edge, error)
}

// Tx is a storage transaction. Reads inside the transaction observe its own
// uncommitted writes.
type Tx interface {
	Reader

	// PutActor inserts or replaces the actor row identified by its wiki page.
	PutActor(ctx context.Context, actor *model.Actor) error
	// PutMovie inserts or replaces the movie row identified by its wiki page.
	PutMovie(ctx context.Context, movie *model.Movie) error
	// PutEdge inserts or replaces the edge row identified by
	// (movie page, actor page).
	PutEdge(ctx context.Context, edge *model.Edge) error

	DeleteActor(ctx context.Context, page string) error
	DeleteMovie(ctx context.Context, page string) error
	DeleteEdge(ctx context.Context, moviePage, actorPage string) error

	Commit() error
	Rollback() error
}

// StoreInfo provides metadata about the store implementation
type StoreInfo struct {
	Type    string // "sqlite" or "memory"
	Version string
}

// InfoProvider allows stores to provide metadata about their capabilities
type InfoProvider interface {
	Info() StoreInfo
}
