package model

import (
	"testing"
)

func TestNormalizeWikiPage(t *testing.T) {
	cases := []struct {
		url      string
		siteRoot string
		want     string
	}{
		{"https://en.wikipedia.org/wiki/Morgan_Freeman", "", "/wiki/Morgan_Freeman"},
		{"/wiki/Morgan_Freeman", "", "/wiki/Morgan_Freeman"},
		{"https://de.wikipedia.org/wiki/Berlin", "https://de.wikipedia.org", "/wiki/Berlin"},
		{"https://example.org/wiki/Other", "", "https://example.org/wiki/Other"},
	}

	for _, c := range cases {
		if got := NormalizeWikiPage(c.url, c.siteRoot); got != c.want {
			t.Errorf("NormalizeWikiPage(%q, %q) = %q, want %q", c.url, c.siteRoot, got, c.want)
		}
	}
}

func TestSlugFromName(t *testing.T) {
	cases := []struct {
		name string
		want string
	}{
		{"Morgan Freeman", "/wiki/Morgan_Freeman"},
		{"  Tom Hanks ", "/wiki/Tom_Hanks"},
		{"Cher", "/wiki/Cher"},
	}

	for _, c := range cases {
		if got := SlugFromName(c.name); got != c.want {
			t.Errorf("SlugFromName(%q) = %q, want %q", c.name, got, c.want)
		}
	}
}

func TestRecordValidate(t *testing.T) {
	t.Run("Actor with page only", func(t *testing.T) {
		rec := NewActorRecord(&ActorRecord{WikiPage: "/wiki/X"})
		if err := rec.Validate(); err != nil {
			t.Errorf("Unexpected error: %v", err)
		}
	})

	t.Run("Movie with name only", func(t *testing.T) {
		rec := NewMovieRecord(&MovieRecord{Name: "Heat"})
		if err := rec.Validate(); err != nil {
			t.Errorf("Unexpected error: %v", err)
		}
	})

	t.Run("Actor without identity", func(t *testing.T) {
		rec := NewActorRecord(&ActorRecord{})
		if err := rec.Validate(); err == nil {
			t.Error("Expected error for record without identity")
		}
	})

	t.Run("Record without payload", func(t *testing.T) {
		rec := Record{Kind: KindMovie}
		if err := rec.Validate(); err == nil {
			t.Error("Expected error for record without payload")
		}
	})

	t.Run("Record with unknown kind", func(t *testing.T) {
		var rec Record
		if err := rec.Validate(); err == nil {
			t.Error("Expected error for unknown kind")
		}
	})
}

func TestNodeIdentity(t *testing.T) {
	a := &Actor{WikiPage: "/wiki/A", Name: "Ann"}
	m := &Movie{WikiPage: "/wiki/M", Name: "Heat"}

	if a.StableKey() != "/wiki/A" || a.DisplayName() != "Ann" {
		t.Errorf("Unexpected actor identity: %q / %q", a.StableKey(), a.DisplayName())
	}
	if m.StableKey() != "/wiki/M" || m.DisplayName() != "Heat" {
		t.Errorf("Unexpected movie identity: %q / %q", m.StableKey(), m.DisplayName())
	}
}
