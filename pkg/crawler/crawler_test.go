package crawler

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hmaier/filmgraph/pkg/model"
)

// fixtureSite serves a tiny two-actor, one-movie encyclopedia.
var fixtureSite = map[string]string{
	"/wiki/Morgan_Freeman": `
<html><body>
<h1 id="firstHeading">Morgan Freeman</h1>
<table class="infobox"><tr><th>Born</th>
<td>June 1, 1937 <span class="ForceAgeToShow">(age 87)</span></td></tr></table>
<h2><span id="Filmography">Filmography</span></h2>
<ul><li><a href="/wiki/Se7en">Se7en</a></li></ul>
<h2><span id="Awards">Awards</span></h2>
</body></html>`,
	"/wiki/Se7en": `
<html><body>
<h1 id="firstHeading">Se7en</h1>
<table class="infobox">
<tr><th>Starring</th><td><a href="/wiki/Brad_Pitt">Brad Pitt</a>
<a href="/wiki/Morgan_Freeman">Morgan Freeman</a></td></tr>
<tr><th>Box office</th><td>$327.3 million</td></tr>
</table>
</body></html>`,
	"/wiki/Brad_Pitt": `
<html><body>
<h1 id="firstHeading">Brad Pitt</h1>
</body></html>`,
}

func fixtureServer(t *testing.T) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page, ok := fixtureSite[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		io.WriteString(w, page)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func runSpider(t *testing.T, s *Spider, start Task) []model.Record {
	t.Helper()

	out := make(chan model.Record, 16)
	errc := make(chan error, 1)
	go func() {
		errc <- s.Run(context.Background(), start, out)
		close(out)
	}()

	var records []model.Record
	for rec := range out {
		records = append(records, rec)
	}
	require.NoError(t, <-errc)
	return records
}

func TestSpiderCrawlsNeighborhood(t *testing.T) {
	ts := fixtureServer(t)

	s := New(Config{SiteRoot: ts.URL, Delay: time.Millisecond}, zerolog.New(io.Discard))
	records := runSpider(t, s, Task{URL: "/wiki/Morgan_Freeman"})

	// one actor, the movie it links to, and the movie's other lead;
	// the back-link to the visited actor is not refetched
	require.Len(t, records, 3)

	require.Equal(t, model.KindActor, records[0].Kind)
	assert.Equal(t, "Morgan Freeman", records[0].Actor.Name)
	require.NotNil(t, records[0].Actor.Age)
	assert.Equal(t, 87, *records[0].Actor.Age)

	require.Equal(t, model.KindMovie, records[1].Kind)
	assert.Equal(t, "Se7en", records[1].Movie.Name)
	require.NotNil(t, records[1].Movie.BoxOffice)
	assert.Equal(t, 327.3e6, *records[1].Movie.BoxOffice)
	assert.Equal(t, []string{"/wiki/Brad_Pitt", "/wiki/Morgan_Freeman"}, records[1].Movie.Actors)

	require.Equal(t, model.KindActor, records[2].Kind)
	assert.Equal(t, "Brad Pitt", records[2].Actor.Name)
}

func TestSpiderStopsAtMaxItems(t *testing.T) {
	ts := fixtureServer(t)

	s := New(Config{SiteRoot: ts.URL, Delay: time.Millisecond, MaxItems: 1}, zerolog.New(io.Discard))
	records := runSpider(t, s, Task{URL: "/wiki/Morgan_Freeman"})

	require.Len(t, records, 1)
	assert.Equal(t, "Morgan Freeman", records[0].Actor.Name)
}

func TestSpiderSkipsMissingPages(t *testing.T) {
	ts := fixtureServer(t)

	s := New(Config{SiteRoot: ts.URL, Delay: time.Millisecond}, zerolog.New(io.Discard))
	records := runSpider(t, s, Task{URL: "/wiki/Does_Not_Exist"})

	assert.Empty(t, records)
}

func TestSpiderHonorsCancellation(t *testing.T) {
	ts := fixtureServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := New(Config{SiteRoot: ts.URL, Delay: time.Millisecond}, zerolog.New(io.Discard))
	out := make(chan model.Record, 16)
	err := s.Run(ctx, Task{URL: "/wiki/Morgan_Freeman"}, out)
	assert.Error(t, err)
}
