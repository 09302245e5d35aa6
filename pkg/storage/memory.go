package storage

import (
	"context"
	"sync"

	"github.com/hmaier/filmgraph/pkg/model"
)

// MemoryStore implements Store with insertion-ordered in-process maps. It is
// the backend used by most tests and a fallback when no database path is
// configured. The write lock is held for the full lifetime of a transaction,
// so writers serialize exactly as they do on the SQLite backend.
type MemoryStore struct {
	mu sync.RWMutex

	actors     map[string]*model.Actor
	actorOrder []string
	movies     map[string]*model.Movie
	movieOrder []string

	edges     map[[2]string]*model.Edge // (movie page, actor page)
	edgeOrder [][2]string
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		actors: make(map[string]*model.Actor),
		movies: make(map[string]*model.Movie),
		edges:  make(map[[2]string]*model.Edge),
	}
}

// Info returns store information
func (s *MemoryStore) Info() StoreInfo {
	return StoreInfo{Type: "memory", Version: "1.0.0"}
}

// Close releases nothing; it exists to satisfy Store.
func (s *MemoryStore) Close() error {
	return nil
}

func copyActor(a *model.Actor) *model.Actor {
	if a == nil {
		return nil
	}
	cp := *a
	if a.Age != nil {
		v := *a.Age
		cp.Age = &v
	}
	if a.TotalGross != nil {
		v := *a.TotalGross
		cp.TotalGross = &v
	}
	return &cp
}

func copyMovie(m *model.Movie) *model.Movie {
	if m == nil {
		return nil
	}
	cp := *m
	if m.BoxOffice != nil {
		v := *m.BoxOffice
		cp.BoxOffice = &v
	}
	if m.ReleaseDate != nil {
		v := *m.ReleaseDate
		cp.ReleaseDate = &v
	}
	return &cp
}

func copyEdge(e *model.Edge) *model.Edge {
	if e == nil {
		return nil
	}
	cp := *e
	return &cp
}

func (s *MemoryStore) GetActor(ctx context.Context, page string) (*model.Actor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.actors[page]
	if !ok {
		return nil, ErrNotFound
	}
	return copyActor(a), nil
}

func (s *MemoryStore) GetActorByName(ctx context.Context, name string) (*model.Actor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// First match in insertion order wins.
	for _, page := range s.actorOrder {
		if a := s.actors[page]; a != nil && a.Name == name {
			return copyActor(a), nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) ListActors(ctx context.Context) ([]*model.Actor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	actors := make([]*model.Actor, 0, len(s.actorOrder))
	for _, page := range s.actorOrder {
		if a := s.actors[page]; a != nil {
			actors = append(actors, copyActor(a))
		}
	}
	return actors, nil
}

func (s *MemoryStore) CountActors(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.actors), nil
}

func (s *MemoryStore) GetMovie(ctx context.Context, page string) (*model.Movie, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.movies[page]
	if !ok {
		return nil, ErrNotFound
	}
	return copyMovie(m), nil
}

func (s *MemoryStore) GetMovieByName(ctx context.Context, name string) (*model.Movie, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, page := range s.movieOrder {
		if m := s.movies[page]; m != nil && m.Name == name {
			return copyMovie(m), nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) ListMovies(ctx context.Context) ([]*model.Movie, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	movies := make([]*model.Movie, 0, len(s.movieOrder))
	for _, page := range s.movieOrder {
		if m := s.movies[page]; m != nil {
			movies = append(movies, copyMovie(m))
		}
	}
	return movies, nil
}

func (s *MemoryStore) CountMovies(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.movies), nil
}

func (s *MemoryStore) GetEdge(ctx context.Context, moviePage, actorPage string) (*model.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.edges[[2]string{moviePage, actorPage}]
	if !ok {
		return nil, ErrNotFound
	}
	return copyEdge(e), nil
}

func (s *MemoryStore) EdgesByActor(ctx context.Context, actorPage string) ([]*model.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var edges []*model.Edge
	for _, key := range s.edgeOrder {
		if key[1] != actorPage {
			continue
		}
		if e := s.edges[key]; e != nil {
			edges = append(edges, copyEdge(e))
		}
	}
	return edges, nil
}

func (s *MemoryStore) EdgesByMovie(ctx context.Context, moviePage string) ([]*model.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var edges []*model.Edge
	for _, key := range s.edgeOrder {
		if key[0] != moviePage {
			continue
		}
		if e := s.edges[key]; e != nil {
			edges = append(edges, copyEdge(e))
		}
	}
	return edges, nil
}

// Begin opens a write transaction. Mutations stage in the transaction and
// apply to the store on Commit; the write lock is held throughout so a
// failed ingestion leaves the store untouched.
func (s *MemoryStore) Begin(ctx context.Context) (Tx, error) {
	s.mu.Lock()
	return &memoryTx{store: s, ops: nil}, nil
}

// memoryTx stages mutations as an ordered op log plus lookup overlays.
// Reads consult the overlays first, then the base store.
type memoryTx struct {
	store *MemoryStore
	ops   []func()

	actorOverlay map[string]*model.Actor // nil value marks deletion
	movieOverlay map[string]*model.Movie
	edgeOverlay  map[[2]string]*model.Edge
	done         bool
}

func (t *memoryTx) finish() {
	if !t.done {
		t.done = true
		t.store.mu.Unlock()
	}
}

func (t *memoryTx) Commit() error {
	for _, op := range t.ops {
		op()
	}
	t.finish()
	return nil
}

func (t *memoryTx) Rollback() error {
	t.finish()
	return nil
}

func (t *memoryTx) overlayActor(page string) (*model.Actor, bool) {
	if t.actorOverlay == nil {
		return nil, false
	}
	a, ok := t.actorOverlay[page]
	return a, ok
}

func (t *memoryTx) overlayMovie(page string) (*model.Movie, bool) {
	if t.movieOverlay == nil {
		return nil, false
	}
	m, ok := t.movieOverlay[page]
	return m, ok
}

func (t *memoryTx) overlayEdge(key [2]string) (*model.Edge, bool) {
	if t.edgeOverlay == nil {
		return nil, false
	}
	e, ok := t.edgeOverlay[key]
	return e, ok
}

func (t *memoryTx) GetActor(ctx context.Context, page string) (*model.Actor, error) {
	if a, ok := t.overlayActor(page); ok {
		if a == nil {
			return nil, ErrNotFound
		}
		return copyActor(a), nil
	}
	a, ok := t.store.actors[page]
	if !ok {
		return nil, ErrNotFound
	}
	return copyActor(a), nil
}

func (t *memoryTx) GetActorByName(ctx context.Context, name string) (*model.Actor, error) {
	for _, page := range t.store.actorOrder {
		a := t.store.actors[page]
		if overlay, ok := t.overlayActor(page); ok {
			a = overlay
		}
		if a != nil && a.Name == name {
			return copyActor(a), nil
		}
	}
	for page, a := range t.actorOverlay {
		if _, exists := t.store.actors[page]; !exists && a != nil && a.Name == name {
			return copyActor(a), nil
		}
	}
	return nil, ErrNotFound
}

func (t *memoryTx) ListActors(ctx context.Context) ([]*model.Actor, error) {
	var actors []*model.Actor
	seen := make(map[string]bool)
	for _, page := range t.store.actorOrder {
		seen[page] = true
		a := t.store.actors[page]
		if overlay, ok := t.overlayActor(page); ok {
			a = overlay
		}
		if a != nil {
			actors = append(actors, copyActor(a))
		}
	}
	for page, a := range t.actorOverlay {
		if !seen[page] && a != nil {
			actors = append(actors, copyActor(a))
		}
	}
	return actors, nil
}

func (t *memoryTx) CountActors(ctx context.Context) (int, error) {
	actors, err := t.ListActors(ctx)
	return len(actors), err
}

func (t *memoryTx) GetMovie(ctx context.Context, page string) (*model.Movie, error) {
	if m, ok := t.overlayMovie(page); ok {
		if m == nil {
			return nil, ErrNotFound
		}
		return copyMovie(m), nil
	}
	m, ok := t.store.movies[page]
	if !ok {
		return nil, ErrNotFound
	}
	return copyMovie(m), nil
}

func (t *memoryTx) GetMovieByName(ctx context.Context, name string) (*model.Movie, error) {
	for _, page := range t.store.movieOrder {
		m := t.store.movies[page]
		if overlay, ok := t.overlayMovie(page); ok {
			m = overlay
		}
		if m != nil && m.Name == name {
			return copyMovie(m), nil
		}
	}
	for page, m := range t.movieOverlay {
		if _, exists := t.store.movies[page]; !exists && m != nil && m.Name == name {
			return copyMovie(m), nil
		}
	}
	return nil, ErrNotFound
}

func (t *memoryTx) ListMovies(ctx context.Context) ([]*model.Movie, error) {
	var movies []*model.Movie
	seen := make(map[string]bool)
	for _, page := range t.store.movieOrder {
		seen[page] = true
		m := t.store.movies[page]
		if overlay, ok := t.overlayMovie(page); ok {
			m = overlay
		}
		if m != nil {
			movies = append(movies, copyMovie(m))
		}
	}
	for page, m := range t.movieOverlay {
		if !seen[page] && m != nil {
			movies = append(movies, copyMovie(m))
		}
	}
	return movies, nil
}

func (t *memoryTx) CountMovies(ctx context.Context) (int, error) {
	movies, err := t.ListMovies(ctx)
	return len(movies), err
}

func (t *memoryTx) GetEdge(ctx context.Context, moviePage, actorPage string) (*model.Edge, error) {
	key := [2]string{moviePage, actorPage}
	if e, ok := t.overlayEdge(key); ok {
		if e == nil {
			return nil, ErrNotFound
		}
		return copyEdge(e), nil
	}
	e, ok := t.store.edges[key]
	if !ok {
		return nil, ErrNotFound
	}
	return copyEdge(e), nil
}

func (t *memoryTx) edgesWhere(match func(key [2]string) bool) []*model.Edge {
	var edges []*model.Edge
	seen := make(map[[2]string]bool)
	for _, key := range t.store.edgeOrder {
		if !match(key) {
			continue
		}
		seen[key] = true
		e := t.store.edges[key]
		if overlay, ok := t.overlayEdge(key); ok {
			e = overlay
		}
		if e != nil {
			edges = append(edges, copyEdge(e))
		}
	}
	for key, e := range t.edgeOverlay {
		if match(key) && !seen[key] && e != nil {
			edges = append(edges, copyEdge(e))
		}
	}
	return edges
}

func (t *memoryTx) EdgesByActor(ctx context.Context, actorPage string) ([]*model.Edge, error) {
	return t.edgesWhere(func(key [2]string) bool { return key[1] == actorPage }), nil
}

func (t *memoryTx) EdgesByMovie(ctx context.Context, moviePage string) ([]*model.Edge, error) {
	return t.edgesWhere(func(key [2]string) bool { return key[0] == moviePage }), nil
}

func (t *memoryTx) PutActor(ctx context.Context, actor *model.Actor) error {
	if t.actorOverlay == nil {
		t.actorOverlay = make(map[string]*model.Actor)
	}
	cp := copyActor(actor)
	t.actorOverlay[cp.WikiPage] = cp

	s := t.store
	t.ops = append(t.ops, func() {
		if _, exists := s.actors[cp.WikiPage]; !exists {
			s.actorOrder = append(s.actorOrder, cp.WikiPage)
		}
		s.actors[cp.WikiPage] = cp
	})
	return nil
}

func (t *memoryTx) PutMovie(ctx context.Context, movie *model.Movie) error {
	if t.movieOverlay == nil {
		t.movieOverlay = make(map[string]*model.Movie)
	}
	cp := copyMovie(movie)
	t.movieOverlay[cp.WikiPage] = cp

	s := t.store
	t.ops = append(t.ops, func() {
		if _, exists := s.movies[cp.WikiPage]; !exists {
			s.movieOrder = append(s.movieOrder, cp.WikiPage)
		}
		s.movies[cp.WikiPage] = cp
	})
	return nil
}

func (t *memoryTx) PutEdge(ctx context.Context, edge *model.Edge) error {
	if t.edgeOverlay == nil {
		t.edgeOverlay = make(map[[2]string]*model.Edge)
	}
	cp := copyEdge(edge)
	key := [2]string{cp.MoviePage, cp.ActorPage}
	t.edgeOverlay[key] = cp

	s := t.store
	t.ops = append(t.ops, func() {
		if _, exists := s.edges[key]; !exists {
			s.edgeOrder = append(s.edgeOrder, key)
		}
		s.edges[key] = cp
	})
	return nil
}

func (t *memoryTx) DeleteActor(ctx context.Context, page string) error {
	if _, err := t.GetActor(ctx, page); err != nil {
		return err
	}
	if t.actorOverlay == nil {
		t.actorOverlay = make(map[string]*model.Actor)
	}
	t.actorOverlay[page] = nil

	s := t.store
	t.ops = append(t.ops, func() {
		delete(s.actors, page)
		s.actorOrder = removeKey(s.actorOrder, page)
	})
	return nil
}

func (t *memoryTx) DeleteMovie(ctx context.Context, page string) error {
	if _, err := t.GetMovie(ctx, page); err != nil {
		return err
	}
	if t.movieOverlay == nil {
		t.movieOverlay = make(map[string]*model.Movie)
	}
	t.movieOverlay[page] = nil

	s := t.store
	t.ops = append(t.ops, func() {
		delete(s.movies, page)
		s.movieOrder = removeKey(s.movieOrder, page)
	})
	return nil
}

func (t *memoryTx) DeleteEdge(ctx context.Context, moviePage, actorPage string) error {
	if _, err := t.GetEdge(ctx, moviePage, actorPage); err != nil {
		return err
	}
	key := [2]string{moviePage, actorPage}
	if t.edgeOverlay == nil {
		t.edgeOverlay = make(map[[2]string]*model.Edge)
	}
	t.edgeOverlay[key] = nil

	s := t.store
	t.ops = append(t.ops, func() {
		delete(s.edges, key)
		s.edgeOrder = removeEdgeKey(s.edgeOrder, key)
	})
	return nil
}

func removeKey(keys []string, key string) []string {
	filtered := keys[:0]
	for _, k := range keys {
		if k != key {
			filtered = append(filtered, k)
		}
	}
	return filtered
}

func removeEdgeKey(keys [][2]string, key [2]string) [][2]string {
	filtered := keys[:0]
	for _, k := range keys {
		if k != key {
			filtered = append(filtered, k)
		}
	}
	return filtered
}
