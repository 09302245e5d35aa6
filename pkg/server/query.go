package server

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/hmaier/filmgraph/pkg/graph"
	"github.com/hmaier/filmgraph/pkg/model"
)

// The list endpoints accept a small filter language in the query string:
// attribute=value pairs joined by '&' form an AND-group, groups joined by
// '|' are alternatives. "name=Tom&age=50|total_gross=114000000" matches
// 50-year-old Toms plus anyone grossing near 114 million.

// parseActorQuery parses a raw query string into actor criteria groups.
func parseActorQuery(raw string) (graph.ActorQuery, error) {
	if raw == "" {
		return nil, nil
	}

	var query graph.ActorQuery
	for _, group := range strings.Split(raw, "|") {
		var c graph.ActorCriteria
		for _, field := range strings.Split(group, "&") {
			key, value, err := splitPair(field)
			if err != nil {
				return nil, err
			}
			switch key {
			case "name":
				c.NameContains = value
			case "wiki_page":
				c.PageContains = value
			case "age":
				age, err := strconv.Atoi(value)
				if err != nil {
					return nil, fmt.Errorf("invalid age %q", value)
				}
				c.Age = model.IntPtr(age)
			case "total_gross":
				gross, err := strconv.ParseFloat(value, 64)
				if err != nil {
					return nil, fmt.Errorf("invalid total_gross %q", value)
				}
				c.GrossNear = model.FloatPtr(gross)
			case "movies":
				c.MovieNames = append(c.MovieNames, splitList(value)...)
			default:
				return nil, fmt.Errorf("unknown actor filter %q", key)
			}
		}
		query = append(query, c)
	}
	return query, nil
}

// parseMovieQuery parses a raw query string into movie criteria groups.
func parseMovieQuery(raw string) (graph.MovieQuery, error) {
	if raw == "" {
		return nil, nil
	}

	var query graph.MovieQuery
	for _, group := range strings.Split(raw, "|") {
		var c graph.MovieCriteria
		for _, field := range strings.Split(group, "&") {
			key, value, err := splitPair(field)
			if err != nil {
				return nil, err
			}
			switch key {
			case "name":
				c.NameContains = value
			case "wiki_page":
				c.PageContains = value
			case "year":
				year, err := strconv.Atoi(value)
				if err != nil {
					return nil, fmt.Errorf("invalid year %q", value)
				}
				c.Year = model.IntPtr(year)
			case "box_office":
				box, err := strconv.ParseFloat(value, 64)
				if err != nil {
					return nil, fmt.Errorf("invalid box_office %q", value)
				}
				c.BoxOfficeNear = model.FloatPtr(box)
			case "actors":
				c.ActorNames = append(c.ActorNames, splitList(value)...)
			default:
				return nil, fmt.Errorf("unknown movie filter %q", key)
			}
		}
		query = append(query, c)
	}
	return query, nil
}

// splitPair splits one attribute=value field and percent-decodes both halves.
func splitPair(field string) (string, string, error) {
	key, value, found := strings.Cut(field, "=")
	if !found || key == "" {
		return "", "", fmt.Errorf("malformed filter %q: want attribute=value", field)
	}
	k, err := url.QueryUnescape(key)
	if err != nil {
		return "", "", fmt.Errorf("malformed filter %q", field)
	}
	v, err := url.QueryUnescape(value)
	if err != nil {
		return "", "", fmt.Errorf("malformed filter %q", field)
	}
	return k, v, nil
}

// splitList splits a comma-separated value list, dropping empty entries.
func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
