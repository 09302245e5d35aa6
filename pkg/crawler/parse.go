package crawler

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/hmaier/filmgraph/pkg/model"
)

var (
	agePattern   = regexp.MustCompile(`aged?\D*(\d+)`)
	parenPattern = regexp.MustCompile(`\(.*?\)`)
	citePattern  = regexp.MustCompile(`\[.*?\]`)
)

// dateLayouts are the release date spellings seen on movie infoboxes.
var dateLayouts = []string{
	"2006-01-02",
	"January 2, 2006",
	"2 January 2006",
}

// parseActorPage extracts an actor record and the movie links in the
// filmography section. A page without a heading yields a zero Record.
func parseActorPage(root *html.Node, page, siteRoot string) (model.Record, []Task) {
	name := headingText(root)
	if name == "" {
		return model.Record{}, nil
	}

	rec := &model.ActorRecord{
		WikiPage: page,
		Name:     name,
		Age:      extractAge(root),
	}

	var tasks []Task
	for _, href := range filmographyLinks(root) {
		moviePage := model.NormalizeWikiPage(href, siteRoot)
		if !crawlablePage(moviePage) {
			continue
		}
		rec.Movies = append(rec.Movies, moviePage)
		tasks = append(tasks, Task{URL: moviePage, IsMovie: true})
	}

	return model.NewActorRecord(rec), tasks
}

// parseMoviePage extracts a movie record and the actor links in the starring
// row of the infobox.
func parseMoviePage(root *html.Node, page, siteRoot string) (model.Record, []Task) {
	name := headingText(root)
	if name == "" {
		return model.Record{}, nil
	}

	rec := &model.MovieRecord{
		WikiPage: page,
		Name:     name,
	}

	infobox := findNode(root, func(n *html.Node) bool {
		return n.Data == "table" && hasClass(n, "infobox")
	})
	if infobox != nil {
		if value, ok := infoboxValue(infobox, "Box office"); ok {
			if income, ok := parseMoney(value); ok {
				rec.BoxOffice = model.FloatPtr(income)
			}
		}
		rec.ReleaseDate = extractReleaseDate(infobox)
	}

	var tasks []Task
	for _, href := range starringLinks(infobox) {
		actorPage := model.NormalizeWikiPage(href, siteRoot)
		if !crawlablePage(actorPage) {
			continue
		}
		rec.Actors = append(rec.Actors, actorPage)
		tasks = append(tasks, Task{URL: actorPage, IsMovie: false})
	}

	return model.NewMovieRecord(rec), tasks
}

// headingText returns the page title from the firstHeading element.
func headingText(root *html.Node) string {
	h := findNode(root, func(n *html.Node) bool { return attrValue(n, "id") == "firstHeading" })
	if h == nil {
		return ""
	}
	return strings.TrimSpace(nodeText(h))
}

// extractAge reads the actor's age, preferring the live-age span and falling
// back to the "(aged NN)" note next to a death date.
func extractAge(root *html.Node) *int {
	span := findNode(root, func(n *html.Node) bool {
		return n.Data == "span" && hasClass(n, "ForceAgeToShow")
	})
	if span == nil {
		span = findNode(root, func(n *html.Node) bool {
			return n.Data == "span" && hasClass(n, "dday")
		})
		if span != nil && span.Parent != nil {
			// the aged note sits beside the death date, not inside it
			span = span.Parent
		}
	}
	if span == nil {
		return nil
	}

	m := agePattern.FindStringSubmatch(nodeText(span))
	if m == nil {
		return nil
	}
	age, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	return model.IntPtr(age)
}

// filmographyLinks collects hrefs from the content between the Filmography
// heading and the next section heading, in document order.
func filmographyLinks(root *html.Node) []string {
	marker := findNode(root, func(n *html.Node) bool {
		return attrValue(n, "id") == "Filmography"
	})
	if marker == nil {
		return nil
	}

	heading := marker
	for heading != nil && heading.Data != "h2" {
		heading = heading.Parent
	}
	if heading == nil {
		return nil
	}

	var hrefs []string
	for sib := heading.NextSibling; sib != nil; sib = sib.NextSibling {
		if sib.Type == html.ElementNode && sib.Data == "h2" {
			break
		}
		hrefs = append(hrefs, collectHrefs(sib)...)
	}
	return hrefs
}

// starringLinks collects cast hrefs from the infobox row labeled "Starring",
// preserving billing order.
func starringLinks(infobox *html.Node) []string {
	if infobox == nil {
		return nil
	}
	label := findNode(infobox, func(n *html.Node) bool {
		return n.Type == html.TextNode && strings.TrimSpace(n.Data) == "Starring"
	})
	if label == nil {
		return nil
	}

	row := label.Parent
	for row != nil && row.Data != "tr" {
		row = row.Parent
	}
	if row == nil {
		return nil
	}
	return collectHrefs(row)
}

// infoboxValue finds the row whose label text matches and returns the text
// of the value cell next to it.
func infoboxValue(infobox *html.Node, label string) (string, bool) {
	node := findNode(infobox, func(n *html.Node) bool {
		return n.Type == html.TextNode && strings.TrimSpace(n.Data) == label
	})
	if node == nil {
		return "", false
	}

	cell := node.Parent
	for cell != nil {
		for sib := cell.NextSibling; sib != nil; sib = sib.NextSibling {
			if sib.Type == html.ElementNode {
				return nodeText(sib), true
			}
		}
		cell = cell.Parent
		if cell != nil && cell.Data == "tr" {
			break
		}
	}
	return "", false
}

func extractReleaseDate(infobox *html.Node) *time.Time {
	span := findNode(infobox, func(n *html.Node) bool {
		return n.Data == "span" && hasClass(n, "bday")
	})
	value := ""
	if span != nil {
		value = strings.TrimSpace(nodeText(span))
	} else {
		v, ok := infoboxValue(infobox, "Release date")
		if !ok {
			v, ok = infoboxValue(infobox, "Release dates")
		}
		if !ok {
			return nil
		}
		value = strings.TrimSpace(parenPattern.ReplaceAllString(v, ""))
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return model.TimePtr(t)
		}
	}
	return nil
}

// parseMoney converts a money string such as "$120.5 million" or
// "US$1.2 billion (worldwide)" into a plain float value.
func parseMoney(s string) (float64, bool) {
	s = parenPattern.ReplaceAllString(s, "")
	s = strings.TrimSpace(citePattern.ReplaceAllString(s, ""))
	if s == "" {
		return 0, false
	}
	// keep only the first line of multi-line cells
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}

	mult := 1.0
	for _, suffix := range []struct {
		word string
		mult float64
	}{
		{"trillion", 1e12},
		{"billion", 1e9},
		{"million", 1e6},
	} {
		if strings.HasSuffix(s, suffix.word) {
			mult = suffix.mult
			s = strings.TrimSpace(strings.TrimSuffix(s, suffix.word))
			break
		}
	}

	if i := strings.LastIndexByte(s, '$'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")

	value, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return value * mult, true
}

// crawlablePage filters out namespace pages (File:, Help:, citations) that
// link from articles but are not entities.
func crawlablePage(page string) bool {
	if !strings.HasPrefix(page, "/wiki/") {
		return false
	}
	return !strings.Contains(page[len("/wiki/"):], ":")
}

// DOM helpers over x/net/html nodes.

func findNode(n *html.Node, match func(*html.Node) bool) *html.Node {
	if match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findNode(c, match); found != nil {
			return found
		}
	}
	return nil
}

func attrValue(n *html.Node, key string) string {
	if n.Type != html.ElementNode {
		return ""
	}
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attrValue(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func collectHrefs(n *html.Node) []string {
	var hrefs []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			if href := attrValue(n, "href"); href != "" {
				hrefs = append(hrefs, href)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return hrefs
}
