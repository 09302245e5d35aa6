package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hmaier/filmgraph/pkg/model"
	"github.com/hmaier/filmgraph/pkg/storage"
)

// actorPayload is the wire form of an actor submitted over the API. Absent
// fields stay nil and do not overwrite stored values.
type actorPayload struct {
	WikiPage   string   `json:"wiki_page,omitempty"`
	Name       string   `json:"name,omitempty"`
	Age        *int     `json:"age,omitempty"`
	TotalGross *float64 `json:"total_gross,omitempty"`
	Movies     []string `json:"movies,omitempty"`
}

func (p *actorPayload) record() model.Record {
	return model.NewActorRecord(&model.ActorRecord{
		WikiPage:   p.WikiPage,
		Name:       p.Name,
		Age:        p.Age,
		TotalGross: p.TotalGross,
		Movies:     p.Movies,
	})
}

// moviePayload is the wire form of a movie. ReleaseDate accepts "2006-01-02";
// Actors is the cast in billing order, which drives income allocation.
type moviePayload struct {
	WikiPage    string   `json:"wiki_page,omitempty"`
	Name        string   `json:"name,omitempty"`
	BoxOffice   *float64 `json:"box_office,omitempty"`
	ReleaseDate string   `json:"release_date,omitempty"`
	Actors      []string `json:"actors,omitempty"`
}

func (p *moviePayload) record() (model.Record, error) {
	rec := &model.MovieRecord{
		WikiPage:  p.WikiPage,
		Name:      p.Name,
		BoxOffice: p.BoxOffice,
		Actors:    p.Actors,
	}
	if p.ReleaseDate != "" {
		t, err := time.Parse("2006-01-02", p.ReleaseDate)
		if err != nil {
			return model.Record{}, fmt.Errorf("invalid release_date %q: want YYYY-MM-DD", p.ReleaseDate)
		}
		rec.ReleaseDate = model.TimePtr(t)
	}
	return model.NewMovieRecord(rec), nil
}

// handleListActors lists actors, optionally filtered by a q= expression.
func (s *Server) handleListActors(w http.ResponseWriter, r *http.Request) {
	cacheKey := "actor:list:" + r.URL.RawQuery
	if payload, err := s.cache.Get(r.Context(), cacheKey); err == nil {
		s.writeRaw(w, http.StatusOK, payload)
		return
	}

	query, err := parseActorQuery(r.URL.RawQuery)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	actors, err := s.graph.FilterActors(r.Context(), query)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list actors")
		s.writeError(w, http.StatusInternalServerError, "Failed to list actors")
		return
	}
	if actors == nil {
		actors = []*model.Actor{}
	}

	s.respondCached(w, r, cacheKey, map[string]interface{}{
		"actors": actors,
		"count":  len(actors),
	})
}

// handleCreateActor ingests an externally submitted actor record.
func (s *Server) handleCreateActor(w http.ResponseWriter, r *http.Request) {
	var p actorPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	rec := p.record()
	if err := s.graph.Add(r.Context(), rec, true); err != nil {
		if errors.Is(err, model.ErrMissingIdentity) {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error().Err(err).Msg("Failed to ingest actor")
		s.writeError(w, http.StatusInternalServerError, "Failed to save actor")
		return
	}

	s.invalidateCache("actor")
	s.invalidateCache("rank")
	s.logger.Info().Str("name", p.Name).Str("page", p.WikiPage).Msg("Ingested actor")

	s.writeJSON(w, http.StatusCreated, map[string]string{
		"message": fmt.Sprintf("Actor %s saved successfully", displayOf(p.Name, p.WikiPage)),
	})
}

// handleGetActor fetches one actor by page slug or display name.
func (s *Server) handleGetActor(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	cacheKey := "actor:" + slug
	if payload, err := s.cache.Get(r.Context(), cacheKey); err == nil {
		s.writeRaw(w, http.StatusOK, payload)
		return
	}

	actor, err := s.lookupActor(r.Context(), slug)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, fmt.Sprintf("Actor %s not found", slug))
			return
		}
		s.logger.Error().Err(err).Str("slug", slug).Msg("Failed to get actor")
		s.writeError(w, http.StatusInternalServerError, "Failed to get actor")
		return
	}

	edges, err := s.graph.MoviesOfActor(r.Context(), actor.WikiPage)
	if err != nil {
		s.logger.Error().Err(err).Str("slug", slug).Msg("Failed to load actor edges")
		s.writeError(w, http.StatusInternalServerError, "Failed to get actor")
		return
	}
	if edges == nil {
		edges = []*model.Edge{}
	}

	s.respondCached(w, r, cacheKey, map[string]interface{}{
		"actor":  actor,
		"movies": edges,
	})
}

// handlePutActor updates an existing actor with an external record.
func (s *Server) handlePutActor(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	actor, err := s.lookupActor(r.Context(), slug)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, fmt.Sprintf("Actor %s not found", slug))
			return
		}
		s.logger.Error().Err(err).Str("slug", slug).Msg("Failed to get actor")
		s.writeError(w, http.StatusInternalServerError, "Failed to get actor")
		return
	}

	var p actorPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	// The URL names the target; the body may omit identity entirely.
	p.WikiPage = actor.WikiPage
	if p.Name == "" {
		p.Name = actor.Name
	}

	if err := s.graph.Add(r.Context(), p.record(), true); err != nil {
		s.logger.Error().Err(err).Str("slug", slug).Msg("Failed to update actor")
		s.writeError(w, http.StatusInternalServerError, "Failed to update actor")
		return
	}

	s.invalidateCache("actor")
	s.invalidateCache("rank")
	s.logger.Info().Str("page", actor.WikiPage).Msg("Updated actor")

	s.writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Actor %s updated successfully", actor.Name),
	})
}

// handleDeleteActor removes an actor and its edges. Movie box office values
// are left untouched.
func (s *Server) handleDeleteActor(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	actor, err := s.lookupActor(r.Context(), slug)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, fmt.Sprintf("Actor %s not found", slug))
			return
		}
		s.logger.Error().Err(err).Str("slug", slug).Msg("Failed to get actor")
		s.writeError(w, http.StatusInternalServerError, "Failed to get actor")
		return
	}

	if err := s.graph.DeleteActor(r.Context(), actor.WikiPage); err != nil {
		s.logger.Error().Err(err).Str("page", actor.WikiPage).Msg("Failed to delete actor")
		s.writeError(w, http.StatusInternalServerError, "Failed to delete actor")
		return
	}

	s.invalidateCache("actor")
	s.invalidateCache("movie")
	s.invalidateCache("rank")
	s.logger.Info().Str("page", actor.WikiPage).Msg("Deleted actor")

	s.writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Actor %s deleted successfully", actor.Name),
	})
}

// handleListMovies lists movies, optionally filtered by a q= expression.
func (s *Server) handleListMovies(w http.ResponseWriter, r *http.Request) {
	cacheKey := "movie:list:" + r.URL.RawQuery
	if payload, err := s.cache.Get(r.Context(), cacheKey); err == nil {
		s.writeRaw(w, http.StatusOK, payload)
		return
	}

	query, err := parseMovieQuery(r.URL.RawQuery)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	movies, err := s.graph.FilterMovies(r.Context(), query)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list movies")
		s.writeError(w, http.StatusInternalServerError, "Failed to list movies")
		return
	}
	if movies == nil {
		movies = []*model.Movie{}
	}

	s.respondCached(w, r, cacheKey, map[string]interface{}{
		"movies": movies,
		"count":  len(movies),
	})
}

// handleCreateMovie ingests an externally submitted movie record. A cast list
// in the body triggers income reallocation across the listed participants.
func (s *Server) handleCreateMovie(w http.ResponseWriter, r *http.Request) {
	var p moviePayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	rec, err := p.record()
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.graph.Add(r.Context(), rec, true); err != nil {
		if errors.Is(err, model.ErrMissingIdentity) {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error().Err(err).Msg("Failed to ingest movie")
		s.writeError(w, http.StatusInternalServerError, "Failed to save movie")
		return
	}

	s.invalidateCache("movie")
	s.invalidateCache("actor")
	s.invalidateCache("rank")
	s.logger.Info().Str("name", p.Name).Str("page", p.WikiPage).Msg("Ingested movie")

	s.writeJSON(w, http.StatusCreated, map[string]string{
		"message": fmt.Sprintf("Movie %s saved successfully", displayOf(p.Name, p.WikiPage)),
	})
}

// handleGetMovie fetches one movie by page slug or display name.
func (s *Server) handleGetMovie(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	cacheKey := "movie:" + slug
	if payload, err := s.cache.Get(r.Context(), cacheKey); err == nil {
		s.writeRaw(w, http.StatusOK, payload)
		return
	}

	movie, err := s.lookupMovie(r.Context(), slug)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, fmt.Sprintf("Movie %s not found", slug))
			return
		}
		s.logger.Error().Err(err).Str("slug", slug).Msg("Failed to get movie")
		s.writeError(w, http.StatusInternalServerError, "Failed to get movie")
		return
	}

	edges, err := s.graph.ActorsOfMovie(r.Context(), movie.WikiPage)
	if err != nil {
		s.logger.Error().Err(err).Str("slug", slug).Msg("Failed to load movie edges")
		s.writeError(w, http.StatusInternalServerError, "Failed to get movie")
		return
	}
	if edges == nil {
		edges = []*model.Edge{}
	}

	s.respondCached(w, r, cacheKey, map[string]interface{}{
		"movie":  movie,
		"actors": edges,
	})
}

// handlePutMovie updates an existing movie with an external record. A body
// without box_office never reshuffles edge incomes; one with box_office but
// no cast reallocates across the current participants.
func (s *Server) handlePutMovie(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	movie, err := s.lookupMovie(r.Context(), slug)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, fmt.Sprintf("Movie %s not found", slug))
			return
		}
		s.logger.Error().Err(err).Str("slug", slug).Msg("Failed to get movie")
		s.writeError(w, http.StatusInternalServerError, "Failed to get movie")
		return
	}

	var p moviePayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	p.WikiPage = movie.WikiPage
	if p.Name == "" {
		p.Name = movie.Name
	}

	rec, err := p.record()
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.graph.Add(r.Context(), rec, true); err != nil {
		s.logger.Error().Err(err).Str("slug", slug).Msg("Failed to update movie")
		s.writeError(w, http.StatusInternalServerError, "Failed to update movie")
		return
	}

	s.invalidateCache("movie")
	s.invalidateCache("actor")
	s.invalidateCache("rank")
	s.logger.Info().Str("page", movie.WikiPage).Msg("Updated movie")

	s.writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Movie %s updated successfully", movie.Name),
	})
}

// handleDeleteMovie removes a movie, its edges, and the edge incomes from the
// affected actor totals.
func (s *Server) handleDeleteMovie(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	movie, err := s.lookupMovie(r.Context(), slug)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, fmt.Sprintf("Movie %s not found", slug))
			return
		}
		s.logger.Error().Err(err).Str("slug", slug).Msg("Failed to get movie")
		s.writeError(w, http.StatusInternalServerError, "Failed to get movie")
		return
	}

	if err := s.graph.DeleteMovie(r.Context(), movie.WikiPage); err != nil {
		s.logger.Error().Err(err).Str("page", movie.WikiPage).Msg("Failed to delete movie")
		s.writeError(w, http.StatusInternalServerError, "Failed to delete movie")
		return
	}

	s.invalidateCache("movie")
	s.invalidateCache("actor")
	s.invalidateCache("rank")
	s.logger.Info().Str("page", movie.WikiPage).Msg("Deleted movie")

	s.writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Movie %s deleted successfully", movie.Name),
	})
}

// handleHubActors returns the n actors with the highest running gross.
func (s *Server) handleHubActors(w http.ResponseWriter, r *http.Request) {
	n := 10
	if raw := r.URL.Query().Get("n"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "Invalid n")
			return
		}
		n = parsed
	}

	cacheKey := fmt.Sprintf("rank:hub:%d", n)
	if payload, err := s.cache.Get(r.Context(), cacheKey); err == nil {
		s.writeRaw(w, http.StatusOK, payload)
		return
	}

	actors, err := s.graph.HubActors(r.Context(), n)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to rank actors")
		s.writeError(w, http.StatusInternalServerError, "Failed to rank actors")
		return
	}
	if actors == nil {
		actors = []*model.Actor{}
	}

	s.respondCached(w, r, cacheKey, map[string]interface{}{
		"actors": actors,
		"count":  len(actors),
	})
}

// handleAgeGross returns actors ordered by age, oldest first, with their
// running gross totals. Actors without a known age are omitted.
func (s *Server) handleAgeGross(w http.ResponseWriter, r *http.Request) {
	cacheKey := "rank:age-gross"
	if payload, err := s.cache.Get(r.Context(), cacheKey); err == nil {
		s.writeRaw(w, http.StatusOK, payload)
		return
	}

	actors, err := s.graph.ActorsByAge(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to rank actors by age")
		s.writeError(w, http.StatusInternalServerError, "Failed to rank actors")
		return
	}

	type entry struct {
		Name       string  `json:"name"`
		Age        int     `json:"age"`
		TotalGross float64 `json:"total_gross"`
	}
	entries := make([]entry, 0, len(actors))
	for _, a := range actors {
		entries = append(entries, entry{
			Name:       a.Name,
			Age:        *a.Age,
			TotalGross: grossValue(a),
		})
	}

	s.respondCached(w, r, cacheKey, map[string]interface{}{
		"actors": entries,
		"count":  len(entries),
	})
}

// lookupActor resolves a URL slug: first as a "/wiki/<slug>" page key, then
// as a display name with underscores read as spaces.
func (s *Server) lookupActor(ctx context.Context, slug string) (*model.Actor, error) {
	actor, err := s.graph.GetActor(ctx, "/wiki/"+slug)
	if err == nil || !errors.Is(err, storage.ErrNotFound) {
		return actor, err
	}
	return s.graph.GetActor(ctx, strings.ReplaceAll(slug, "_", " "))
}

func (s *Server) lookupMovie(ctx context.Context, slug string) (*model.Movie, error) {
	movie, err := s.graph.GetMovie(ctx, "/wiki/"+slug)
	if err == nil || !errors.Is(err, storage.ErrNotFound) {
		return movie, err
	}
	return s.graph.GetMovie(ctx, strings.ReplaceAll(slug, "_", " "))
}

// respondCached writes the JSON response and stores the encoded payload for
// subsequent reads of the same key.
func (s *Server) respondCached(w http.ResponseWriter, r *http.Request, key string, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode response")
		s.writeError(w, http.StatusInternalServerError, "Failed to encode response")
		return
	}
	if err := s.cache.Set(r.Context(), key, payload, s.cacheTTL()); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("Failed to cache response")
	}
	s.writeRaw(w, http.StatusOK, payload)
}

func (s *Server) invalidateCache(prefix string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.cache.DeletePattern(ctx, prefix+"*"); err != nil {
		s.logger.Warn().Err(err).Str("prefix", prefix).Msg("Failed to invalidate cache")
	}
}

func displayOf(name, page string) string {
	if name != "" {
		return name
	}
	return page
}

func grossValue(a *model.Actor) float64 {
	if a.TotalGross == nil {
		return 0
	}
	return *a.TotalGross
}
