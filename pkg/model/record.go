package model

import (
	"errors"
	"time"
)

// ErrMissingIdentity is returned when a record carries neither a stable key
// nor a display name and therefore cannot be resolved against the graph.
var ErrMissingIdentity = errors.New("record has no wiki page and no name")

// RecordKind tags the variant held by a Record.
type RecordKind int

const (
	KindActor RecordKind = iota + 1
	KindMovie
)

// ActorRecord is a parsed actor page. Nil fields were absent from the source
// and must not overwrite stored values on merge. Movies lists the pages of
// works the actor is known to appear in, in no particular order; it creates
// relationships but never changes edge values.
type ActorRecord struct {
	WikiPage   string
	Name       string
	Age        *int
	TotalGross *float64
	Movies     []string
}

// Validate checks that the record can be resolved against the graph.
func (r *ActorRecord) Validate() error {
	if r.WikiPage == "" && r.Name == "" {
		return ErrMissingIdentity
	}
	return nil
}

// MovieRecord is a parsed movie page. Actors is the cast in order of
// significance (order of appearance on the page); the allocation formula
// depends on this ordering.
type MovieRecord struct {
	WikiPage    string
	Name        string
	BoxOffice   *float64
	ReleaseDate *time.Time
	Actors      []string
}

// Validate checks that the record can be resolved against the graph.
func (r *MovieRecord) Validate() error {
	if r.WikiPage == "" && r.Name == "" {
		return ErrMissingIdentity
	}
	return nil
}

// Record is the tagged union the crawler produces and the ingestion engine
// consumes. Exactly one of Actor or Movie is set, matching Kind.
type Record struct {
	Kind  RecordKind
	Actor *ActorRecord
	Movie *MovieRecord
}

// NewActorRecord wraps an ActorRecord in the tagged union.
func NewActorRecord(r *ActorRecord) Record {
	return Record{Kind: KindActor, Actor: r}
}

// NewMovieRecord wraps a MovieRecord in the tagged union.
func NewMovieRecord(r *MovieRecord) Record {
	return Record{Kind: KindMovie, Movie: r}
}

// Validate dispatches to the variant's validation.
func (r Record) Validate() error {
	switch r.Kind {
	case KindActor:
		if r.Actor == nil {
			return errors.New("actor record has no payload")
		}
		return r.Actor.Validate()
	case KindMovie:
		if r.Movie == nil {
			return errors.New("movie record has no payload")
		}
		return r.Movie.Validate()
	default:
		return errors.New("record has unknown kind")
	}
}

// Helper constructors for optional fields, mostly used in tests and by the
// HTTP layer when building records from request bodies.

func IntPtr(v int) *int { return &v }

func FloatPtr(v float64) *float64 { return &v }

func TimePtr(v time.Time) *time.Time { return &v }
