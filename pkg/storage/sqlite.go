package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/hmaier/filmgraph/pkg/model"
)

// SQLiteStore implements Store using a SQLite database
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex
	config SQLiteConfig
}

// SQLiteConfig holds SQLite-specific configuration
type SQLiteConfig struct {
	DBPath      string
	EnableWAL   bool // Write-Ahead Logging for better concurrency
	CacheSize   int  // Page cache size in KB
	BusyTimeout int  // Milliseconds to wait on locked database
}

// NewSQLiteStore creates a new SQLite-based storage
func NewSQLiteStore(dbPath string, config SQLiteConfig) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "filmgraph.db"
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single writer connection keeps transactions serialized at the
	// driver level as well as through the store mutex.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{
		db:     db,
		dbPath: dbPath,
		config: config,
	}

	if err := store.initialize(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return store, nil
}

// initialize applies pragmas and creates the schema
func (s *SQLiteStore) initialize(ctx context.Context) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
		fmt.Sprintf("PRAGMA cache_size = -%d", s.config.CacheSize),
		fmt.Sprintf("PRAGMA busy_timeout = %d", s.config.BusyTimeout),
	}

	for _, pragma := range pragmas {
		if _, err := s.db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	schema := `
		-- Actor vertices. wiki_page is the stable key; name is a
		-- non-unique secondary index used for external lookups.
		CREATE TABLE IF NOT EXISTS actors (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			wiki_page TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL DEFAULT '',
			age INTEGER,
			total_gross REAL
		);

		CREATE INDEX IF NOT EXISTS idx_actors_name ON actors(name);

		-- Movie vertices. release_date is RFC3339 text, NULL when the
		-- source page carried no date.
		CREATE TABLE IF NOT EXISTS movies (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			wiki_page TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL DEFAULT '',
			box_office REAL,
			release_date TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_movies_name ON movies(name);

		-- Relationship edges, one row per (movie, actor) pair carrying the
		-- actor's allocated share of the movie's box office.
		CREATE TABLE IF NOT EXISTS edges (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			movie_page TEXT NOT NULL,
			actor_page TEXT NOT NULL,
			income REAL NOT NULL DEFAULT 0,
			UNIQUE (movie_page, actor_page)
		);

		CREATE INDEX IF NOT EXISTS idx_edges_actor ON edges(actor_page);
		CREATE INDEX IF NOT EXISTS idx_edges_movie ON edges(movie_page);
	`

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// Info returns store information
func (s *SQLiteStore) Info() StoreInfo {
	return StoreInfo{Type: "sqlite", Version: "1.0.0"}
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// querier is satisfied by both *sql.DB and *sql.Tx so the row helpers below
// serve the store's lock-free reads and the transaction's reads alike.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func mapConflict(err error) error {
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}

const actorColumns = "wiki_page, name, age, total_gross"

func scanActor(row *sql.Row) (*model.Actor, error) {
	var a model.Actor
	var age sql.NullInt64
	var gross sql.NullFloat64

	err := row.Scan(&a.WikiPage, &a.Name, &age, &gross)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan actor: %w", err)
	}
	if age.Valid {
		v := int(age.Int64)
		a.Age = &v
	}
	if gross.Valid {
		v := gross.Float64
		a.TotalGross = &v
	}
	return &a, nil
}

func getActor(ctx context.Context, q querier, page string) (*model.Actor, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+actorColumns+` FROM actors WHERE wiki_page = ?
	`, page)
	return scanActor(row)
}

func getActorByName(ctx context.Context, q querier, name string) (*model.Actor, error) {
	// First match wins: ambiguity on display names is expected.
	row := q.QueryRowContext(ctx, `
		SELECT `+actorColumns+` FROM actors WHERE name = ? ORDER BY id LIMIT 1
	`, name)
	return scanActor(row)
}

func listActors(ctx context.Context, q querier) ([]*model.Actor, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+actorColumns+` FROM actors ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list actors: %w", err)
	}
	defer rows.Close()

	var actors []*model.Actor
	for rows.Next() {
		var a model.Actor
		var age sql.NullInt64
		var gross sql.NullFloat64
		if err := rows.Scan(&a.WikiPage, &a.Name, &age, &gross); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		if age.Valid {
			v := int(age.Int64)
			a.Age = &v
		}
		if gross.Valid {
			v := gross.Float64
			a.TotalGross = &v
		}
		actors = append(actors, &a)
	}
	return actors, rows.Err()
}

func countActors(ctx context.Context, q querier) (int, error) {
	var n int
	err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM actors").Scan(&n)
	return n, err
}

func putActor(ctx context.Context, q querier, actor *model.Actor) error {
	var age sql.NullInt64
	if actor.Age != nil {
		age = sql.NullInt64{Int64: int64(*actor.Age), Valid: true}
	}
	var gross sql.NullFloat64
	if actor.TotalGross != nil {
		gross = sql.NullFloat64{Float64: *actor.TotalGross, Valid: true}
	}

	_, err := q.ExecContext(ctx, `
		INSERT INTO actors (wiki_page, name, age, total_gross)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(wiki_page) DO UPDATE SET
			name = excluded.name,
			age = excluded.age,
			total_gross = excluded.total_gross
	`, actor.WikiPage, actor.Name, age, gross)
	if err != nil {
		return fmt.Errorf("failed to upsert actor: %w", mapConflict(err))
	}
	return nil
}

func deleteActor(ctx context.Context, q querier, page string) error {
	result, err := q.ExecContext(ctx, "DELETE FROM actors WHERE wiki_page = ?", page)
	if err != nil {
		return fmt.Errorf("failed to delete actor: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

const movieColumns = "wiki_page, name, box_office, release_date"

func scanMovieRow(wikiPage, name *string, box *sql.NullFloat64, released *sql.NullString) (*model.Movie, error) {
	m := model.Movie{WikiPage: *wikiPage, Name: *name}
	if box.Valid {
		v := box.Float64
		m.BoxOffice = &v
	}
	if released.Valid {
		t, err := time.Parse(time.RFC3339, released.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse release date: %w", err)
		}
		m.ReleaseDate = &t
	}
	return &m, nil
}

func scanMovie(row *sql.Row) (*model.Movie, error) {
	var page, name string
	var box sql.NullFloat64
	var released sql.NullString

	err := row.Scan(&page, &name, &box, &released)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan movie: %w", err)
	}
	return scanMovieRow(&page, &name, &box, &released)
}

func getMovie(ctx context.Context, q querier, page string) (*model.Movie, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+movieColumns+` FROM movies WHERE wiki_page = ?
	`, page)
	return scanMovie(row)
}

func getMovieByName(ctx context.Context, q querier, name string) (*model.Movie, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+movieColumns+` FROM movies WHERE name = ? ORDER BY id LIMIT 1
	`, name)
	return scanMovie(row)
}

func listMovies(ctx context.Context, q querier) ([]*model.Movie, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+movieColumns+` FROM movies ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list movies: %w", err)
	}
	defer rows.Close()

	var movies []*model.Movie
	for rows.Next() {
		var page, name string
		var box sql.NullFloat64
		var released sql.NullString
		if err := rows.Scan(&page, &name, &box, &released); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		m, err := scanMovieRow(&page, &name, &box, &released)
		if err != nil {
			return nil, err
		}
		movies = append(movies, m)
	}
	return movies, rows.Err()
}

func countMovies(ctx context.Context, q querier) (int, error) {
	var n int
	err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM movies").Scan(&n)
	return n, err
}

func putMovie(ctx context.Context, q querier, movie *model.Movie) error {
	var box sql.NullFloat64
	if movie.BoxOffice != nil {
		box = sql.NullFloat64{Float64: *movie.BoxOffice, Valid: true}
	}
	var released sql.NullString
	if movie.ReleaseDate != nil {
		released = sql.NullString{String: movie.ReleaseDate.Format(time.RFC3339), Valid: true}
	}

	_, err := q.ExecContext(ctx, `
		INSERT INTO movies (wiki_page, name, box_office, release_date)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(wiki_page) DO UPDATE SET
			name = excluded.name,
			box_office = excluded.box_office,
			release_date = excluded.release_date
	`, movie.WikiPage, movie.Name, box, released)
	if err != nil {
		return fmt.Errorf("failed to upsert movie: %w", mapConflict(err))
	}
	return nil
}

func deleteMovie(ctx context.Context, q querier, page string) error {
	result, err := q.ExecContext(ctx, "DELETE FROM movies WHERE wiki_page = ?", page)
	if err != nil {
		return fmt.Errorf("failed to delete movie: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func getEdge(ctx context.Context, q querier, moviePage, actorPage string) (*model.Edge, error) {
	var e model.Edge
	err := q.QueryRowContext(ctx, `
		SELECT movie_page, actor_page, income FROM edges
		WHERE movie_page = ? AND actor_page = ?
	`, moviePage, actorPage).Scan(&e.MoviePage, &e.ActorPage, &e.Income)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan edge: %w", err)
	}
	return &e, nil
}

func queryEdges(ctx context.Context, q querier, query string, arg string) ([]*model.Edge, error) {
	rows, err := q.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query edges: %w", err)
	}
	defer rows.Close()

	var edges []*model.Edge
	for rows.Next() {
		var e model.Edge
		if err := rows.Scan(&e.MoviePage, &e.ActorPage, &e.Income); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		edges = append(edges, &e)
	}
	return edges, rows.Err()
}

func edgesByActor(ctx context.Context, q querier, actorPage string) ([]*model.Edge, error) {
	return queryEdges(ctx, q, `
		SELECT movie_page, actor_page, income FROM edges
		WHERE actor_page = ? ORDER BY id
	`, actorPage)
}

func edgesByMovie(ctx context.Context, q querier, moviePage string) ([]*model.Edge, error) {
	return queryEdges(ctx, q, `
		SELECT movie_page, actor_page, income FROM edges
		WHERE movie_page = ? ORDER BY id
	`, moviePage)
}

func putEdge(ctx context.Context, q querier, edge *model.Edge) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO edges (movie_page, actor_page, income)
		VALUES (?, ?, ?)
		ON CONFLICT(movie_page, actor_page) DO UPDATE SET
			income = excluded.income
	`, edge.MoviePage, edge.ActorPage, edge.Income)
	if err != nil {
		return fmt.Errorf("failed to upsert edge: %w", err)
	}
	return nil
}

func deleteEdge(ctx context.Context, q querier, moviePage, actorPage string) error {
	result, err := q.ExecContext(ctx, `
		DELETE FROM edges WHERE movie_page = ? AND actor_page = ?
	`, moviePage, actorPage)
	if err != nil {
		return fmt.Errorf("failed to delete edge: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// Read-side operations on the store itself run outside any transaction.

func (s *SQLiteStore) GetActor(ctx context.Context, page string) (*model.Actor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getActor(ctx, s.db, page)
}

func (s *SQLiteStore) GetActorByName(ctx context.Context, name string) (*model.Actor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getActorByName(ctx, s.db, name)
}

func (s *SQLiteStore) ListActors(ctx context.Context) ([]*model.Actor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listActors(ctx, s.db)
}

func (s *SQLiteStore) CountActors(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return countActors(ctx, s.db)
}

func (s *SQLiteStore) GetMovie(ctx context.Context, page string) (*model.Movie, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getMovie(ctx, s.db, page)
}

func (s *SQLiteStore) GetMovieByName(ctx context.Context, name string) (*model.Movie, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getMovieByName(ctx, s.db, name)
}

func (s *SQLiteStore) ListMovies(ctx context.Context) ([]*model.Movie, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listMovies(ctx, s.db)
}

func (s *SQLiteStore) CountMovies(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return countMovies(ctx, s.db)
}

func (s *SQLiteStore) GetEdge(ctx context.Context, moviePage, actorPage string) (*model.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getEdge(ctx, s.db, moviePage, actorPage)
}

func (s *SQLiteStore) EdgesByActor(ctx context.Context, actorPage string) ([]*model.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return edgesByActor(ctx, s.db, actorPage)
}

func (s *SQLiteStore) EdgesByMovie(ctx context.Context, moviePage string) ([]*model.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return edgesByMovie(ctx, s.db, moviePage)
}

// Begin opens a write transaction. The store's write lock is held until
// Commit or Rollback, which serializes the read-modify-write sequence of an
// entire ingestion against other writers.
func (s *SQLiteStore) Begin(ctx context.Context) (Tx, error) {
	s.mu.Lock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	t := &sqliteTx{tx: tx}
	t.release = func() { s.mu.Unlock() }
	return t, nil
}

type sqliteTx struct {
	tx      *sql.Tx
	release func()
	once    sync.Once
}

func (t *sqliteTx) done() {
	t.once.Do(t.release)
}

func (t *sqliteTx) Commit() error {
	defer t.done()
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

func (t *sqliteTx) Rollback() error {
	defer t.done()
	return t.tx.Rollback()
}

func (t *sqliteTx) GetActor(ctx context.Context, page string) (*model.Actor, error) {
	return getActor(ctx, t.tx, page)
}

func (t *sqliteTx) GetActorByName(ctx context.Context, name string) (*model.Actor, error) {
	return getActorByName(ctx, t.tx, name)
}

func (t *sqliteTx) ListActors(ctx context.Context) ([]*model.Actor, error) {
	return listActors(ctx, t.tx)
}

func (t *sqliteTx) CountActors(ctx context.Context) (int, error) {
	return countActors(ctx, t.tx)
}

func (t *sqliteTx) GetMovie(ctx context.Context, page string) (*model.Movie, error) {
	return getMovie(ctx, t.tx, page)
}

func (t *sqliteTx) GetMovieByName(ctx context.Context, name string) (*model.Movie, error) {
	return getMovieByName(ctx, t.tx, name)
}

func (t *sqliteTx) ListMovies(ctx context.Context) ([]*model.Movie, error) {
	return listMovies(ctx, t.tx)
}

func (t *sqliteTx) CountMovies(ctx context.Context) (int, error) {
	return countMovies(ctx, t.tx)
}

func (t *sqliteTx) GetEdge(ctx context.Context, moviePage, actorPage string) (*model.Edge, error) {
	return getEdge(ctx, t.tx, moviePage, actorPage)
}

func (t *sqliteTx) EdgesByActor(ctx context.Context, actorPage string) ([]*model.Edge, error) {
	return edgesByActor(ctx, t.tx, actorPage)
}

func (t *sqliteTx) EdgesByMovie(ctx context.Context, moviePage string) ([]*model.Edge, error) {
	return edgesByMovie(ctx, t.tx, moviePage)
}

func (t *sqliteTx) PutActor(ctx context.Context, actor *model.Actor) error {
	return putActor(ctx, t.tx, actor)
}

func (t *sqliteTx) PutMovie(ctx context.Context, movie *model.Movie) error {
	return putMovie(ctx, t.tx, movie)
}

func (t *sqliteTx) PutEdge(ctx context.Context, edge *model.Edge) error {
	return putEdge(ctx, t.tx, edge)
}

func (t *sqliteTx) DeleteActor(ctx context.Context, page string) error {
	return deleteActor(ctx, t.tx, page)
}

func (t *sqliteTx) DeleteMovie(ctx context.Context, page string) error {
	return deleteMovie(ctx, t.tx, page)
}

func (t *sqliteTx) DeleteEdge(ctx context.Context, moviePage, actorPage string) error {
	return deleteEdge(ctx, t.tx, moviePage, actorPage)
}
