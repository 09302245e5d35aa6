package model

import (
	"strings"
	"time"
)

// Node is implemented by every graph vertex. Two nodes are considered the
// same entity if and only if their stable keys match; display names are not
// unique and must not be used for identity.
type Node interface {
	// StableKey returns the canonical identifier of the node, a wiki page
	// path such as "/wiki/Morgan_Freeman".
	StableKey() string
	// DisplayName returns the human-readable name of the node.
	DisplayName() string
}

// Actor is a person vertex. TotalGross is the running sum of the incomes of
// all current edges touching the actor and is maintained by the ingestion
// engine, never written directly by callers.
type Actor struct {
	WikiPage   string   `json:"wiki_page"`
	Name       string   `json:"name"`
	Age        *int     `json:"age,omitempty"`
	TotalGross *float64 `json:"total_gross,omitempty"`
}

// StableKey implements Node.
func (a *Actor) StableKey() string { return a.WikiPage }

// DisplayName implements Node.
func (a *Actor) DisplayName() string { return a.Name }

// Movie is a creative-work vertex.
type Movie struct {
	WikiPage    string     `json:"wiki_page"`
	Name        string     `json:"name"`
	BoxOffice   *float64   `json:"box_office,omitempty"`
	ReleaseDate *time.Time `json:"release_date,omitempty"`
}

// StableKey implements Node.
func (m *Movie) StableKey() string { return m.WikiPage }

// DisplayName implements Node.
func (m *Movie) DisplayName() string { return m.Name }

// Edge links one movie to one actor and carries the actor's allocated share
// of the movie's box office. The (MoviePage, ActorPage) pair is the edge's
// identity; at most one edge exists per pair.
type Edge struct {
	MoviePage string  `json:"movie_page"`
	ActorPage string  `json:"actor_page"`
	Income    float64 `json:"income"`
}

// DefaultSiteRoot is the root of the encyclopedia the stable keys are
// normalized against.
const DefaultSiteRoot = "https://en.wikipedia.org"

// NormalizeWikiPage strips the site root from an absolute page URL so that
// absolute and relative references to the same page resolve to one key.
// Already-relative paths pass through unchanged.
func NormalizeWikiPage(url, siteRoot string) string {
	if siteRoot == "" {
		siteRoot = DefaultSiteRoot
	}
	if strings.HasPrefix(url, siteRoot) {
		return url[len(siteRoot):]
	}
	return url
}

// SlugFromName derives a wiki-style page key from a display name. Used for
// externally submitted records that carry no page of their own.
func SlugFromName(name string) string {
	return "/wiki/" + strings.ReplaceAll(strings.TrimSpace(name), " ", "_")
}
