package crawler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/hmaier/filmgraph/pkg/model"
)

const actorPageHTML = `
<html><body>
<h1 id="firstHeading">Morgan Freeman</h1>
<table class="infobox vcard">
<tr><th>Born</th><td>June 1, 1937 <span class="noprint ForceAgeToShow">(age 87)</span></td></tr>
</table>
<h2><span class="mw-headline" id="Filmography">Filmography</span></h2>
<ul>
<li><a href="/wiki/The_Shawshank_Redemption">The Shawshank Redemption</a></li>
<li><a href="/wiki/Se7en">Se7en</a></li>
<li><a href="/wiki/Category:American_male_actors">category link</a></li>
</ul>
<h2><span class="mw-headline" id="Awards">Awards</span></h2>
<ul><li><a href="/wiki/Academy_Award">Academy Award</a></li></ul>
</body></html>`

const deceasedActorHTML = `
<html><body>
<h1 id="firstHeading">Gene Hackman</h1>
<table class="infobox vcard">
<tr><th>Died</th><td><span class="dday">2025-02-18</span> (aged 95)</td></tr>
</table>
</body></html>`

const moviePageHTML = `
<html><body>
<h1 id="firstHeading">Heat</h1>
<table class="infobox vevent">
<tr><th>Starring</th><td>
<a href="/wiki/Al_Pacino">Al Pacino</a>
<a href="/wiki/Robert_De_Niro">Robert De Niro</a>
<a href="/wiki/Val_Kilmer">Val Kilmer</a>
</td></tr>
<tr><th>Release date</th><td><span class="bday">1995-12-15</span></td></tr>
<tr><th>Box office</th><td>$187.4 million[1]</td></tr>
</table>
</body></html>`

func parseFixture(t *testing.T, src string) *html.Node {
	t.Helper()
	root, err := html.Parse(strings.NewReader(src))
	require.NoError(t, err)
	return root
}

func TestParseActorPage(t *testing.T) {
	root := parseFixture(t, actorPageHTML)

	rec, tasks := parseActorPage(root, "/wiki/Morgan_Freeman", model.DefaultSiteRoot)
	require.Equal(t, model.KindActor, rec.Kind)
	require.NotNil(t, rec.Actor)

	assert.Equal(t, "Morgan Freeman", rec.Actor.Name)
	require.NotNil(t, rec.Actor.Age)
	assert.Equal(t, 87, *rec.Actor.Age)

	// filmography stops at the next section and skips namespace links
	assert.Equal(t, []string{"/wiki/The_Shawshank_Redemption", "/wiki/Se7en"}, rec.Actor.Movies)

	require.Len(t, tasks, 2)
	assert.True(t, tasks[0].IsMovie)
	assert.Equal(t, "/wiki/The_Shawshank_Redemption", tasks[0].URL)
}

func TestParseActorPageDeathDateAge(t *testing.T) {
	root := parseFixture(t, deceasedActorHTML)

	rec, _ := parseActorPage(root, "/wiki/Gene_Hackman", model.DefaultSiteRoot)
	require.NotNil(t, rec.Actor)
	require.NotNil(t, rec.Actor.Age)
	assert.Equal(t, 95, *rec.Actor.Age)
}

func TestParseActorPageWithoutHeading(t *testing.T) {
	root := parseFixture(t, `<html><body><p>nothing here</p></body></html>`)

	rec, tasks := parseActorPage(root, "/wiki/Nothing", model.DefaultSiteRoot)
	assert.Equal(t, model.RecordKind(0), rec.Kind)
	assert.Nil(t, tasks)
}

func TestParseMoviePage(t *testing.T) {
	root := parseFixture(t, moviePageHTML)

	rec, tasks := parseMoviePage(root, "/wiki/Heat", model.DefaultSiteRoot)
	require.Equal(t, model.KindMovie, rec.Kind)
	require.NotNil(t, rec.Movie)

	assert.Equal(t, "Heat", rec.Movie.Name)
	require.NotNil(t, rec.Movie.BoxOffice)
	assert.Equal(t, 187.4e6, *rec.Movie.BoxOffice)

	require.NotNil(t, rec.Movie.ReleaseDate)
	assert.Equal(t, 1995, rec.Movie.ReleaseDate.Year())

	// billing order drives the allocation, so it must survive parsing
	want := []string{"/wiki/Al_Pacino", "/wiki/Robert_De_Niro", "/wiki/Val_Kilmer"}
	assert.Equal(t, want, rec.Movie.Actors)

	require.Len(t, tasks, 3)
	assert.False(t, tasks[0].IsMovie)
}

func TestParseMoviePageWithoutInfobox(t *testing.T) {
	root := parseFixture(t, `<html><body><h1 id="firstHeading">Obscure Short</h1></body></html>`)

	rec, tasks := parseMoviePage(root, "/wiki/Obscure_Short", model.DefaultSiteRoot)
	require.NotNil(t, rec.Movie)
	assert.Equal(t, "Obscure Short", rec.Movie.Name)
	assert.Nil(t, rec.Movie.BoxOffice)
	assert.Nil(t, rec.Movie.Actors)
	assert.Nil(t, tasks)
}

func TestParseMoney(t *testing.T) {
	cases := []struct {
		in    string
		want  float64
		valid bool
	}{
		{"$120.5 million", 120.5e6, true},
		{"US$1.2 billion", 1.2e9, true},
		{"$2 trillion", 2e12, true},
		{"$75,000,000", 75000000, true},
		{"$187.4 million[1]", 187.4e6, true},
		{"$452.9 million (worldwide)", 452.9e6, true},
		{"unknown", 0, false},
		{"£40 million", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, ok := parseMoney(tc.in)
		if ok != tc.valid {
			t.Errorf("parseMoney(%q) valid=%v, want %v", tc.in, ok, tc.valid)
			continue
		}
		if ok && got != tc.want {
			t.Errorf("parseMoney(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestCrawlablePage(t *testing.T) {
	cases := []struct {
		page string
		want bool
	}{
		{"/wiki/Morgan_Freeman", true},
		{"/wiki/Heat_(1995_film)", true},
		{"/wiki/Category:Films", false},
		{"/wiki/File:Poster.jpg", false},
		{"/wiki/Help:Contents", false},
		{"/w/index.php?title=Heat", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := crawlablePage(tc.page); got != tc.want {
			t.Errorf("crawlablePage(%q) = %v, want %v", tc.page, got, tc.want)
		}
	}
}
