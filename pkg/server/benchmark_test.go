package server_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/hmaier/filmgraph/pkg/cache"
	"github.com/hmaier/filmgraph/pkg/config"
	"github.com/hmaier/filmgraph/pkg/graph"
	"github.com/hmaier/filmgraph/pkg/server"
	"github.com/hmaier/filmgraph/pkg/storage"
)

// setupBenchServer creates a server for benchmarking
func setupBenchServer(b *testing.B) *httptest.Server {
	b.Helper()

	cfg := config.Default()
	cfg.StorageType = "memory"
	cfg.CacheType = "memory"

	store, err := storage.NewStore("memory", nil)
	if err != nil {
		b.Fatal(err)
	}

	memCache := cache.NewMemoryCache(1000, time.Duration(cfg.CacheTTL)*time.Second)
	logger := zerolog.New(io.Discard)
	g := graph.New(store, logger, cfg.SiteRoot)

	srv := server.New(cfg, g, memCache, logger)
	ts := httptest.NewServer(srv.Handler())

	b.Cleanup(func() {
		ts.Close()
		memCache.Close()
		store.Close()
	})

	return ts
}

func benchPost(ts *httptest.Server, path string, body interface{}) {
	payload, _ := json.Marshal(body)
	req, _ := http.NewRequest("POST", ts.URL+path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := http.DefaultClient.Do(req)
	resp.Body.Close()
}

// seedBenchGraph loads movies sharing a pool of actors
func seedBenchGraph(ts *httptest.Server, movies int) {
	for i := 0; i < movies; i++ {
		benchPost(ts, "/api/movies", map[string]interface{}{
			"wiki_page":  fmt.Sprintf("/wiki/Movie_%d", i),
			"name":       fmt.Sprintf("Movie %d", i),
			"box_office": 1000000 + i*1000,
			"actors": []string{
				fmt.Sprintf("/wiki/Actor_%d", i%20),
				fmt.Sprintf("/wiki/Actor_%d", (i+1)%20),
				fmt.Sprintf("/wiki/Actor_%d", (i+2)%20),
			},
		})
	}
}

// BenchmarkCreateMovie benchmarks movie ingestion with income allocation
func BenchmarkCreateMovie(b *testing.B) {
	ts := setupBenchServer(b)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		benchPost(ts, "/api/movies", map[string]interface{}{
			"wiki_page":  fmt.Sprintf("/wiki/Movie_%d", i),
			"name":       fmt.Sprintf("Movie %d", i),
			"box_office": 1000000,
			"actors":     []string{"/wiki/Lead", "/wiki/Second", "/wiki/Third"},
		})
	}
}

// BenchmarkGetActor benchmarks cached actor retrieval
func BenchmarkGetActor(b *testing.B) {
	ts := setupBenchServer(b)
	seedBenchGraph(ts, 50)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			req, _ := http.NewRequest("GET", ts.URL+"/api/actors/Actor_0", nil)
			resp, _ := http.DefaultClient.Do(req)
			resp.Body.Close()
		}
	})
}

// BenchmarkListActors benchmarks filtered listing
func BenchmarkListActors(b *testing.B) {
	ts := setupBenchServer(b)
	seedBenchGraph(ts, 50)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			req, _ := http.NewRequest("GET", ts.URL+"/api/actors?name=Actor", nil)
			resp, _ := http.DefaultClient.Do(req)
			resp.Body.Close()
		}
	})
}

// BenchmarkHubActors benchmarks the gross ranking endpoint
func BenchmarkHubActors(b *testing.B) {
	ts := setupBenchServer(b)
	seedBenchGraph(ts, 100)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			req, _ := http.NewRequest("GET", ts.URL+"/api/analytics/hub-actors?n=10", nil)
			resp, _ := http.DefaultClient.Do(req)
			resp.Body.Close()
		}
	})
}

// BenchmarkHealthCheck benchmarks the health endpoint
func BenchmarkHealthCheck(b *testing.B) {
	ts := setupBenchServer(b)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			req, _ := http.NewRequest("GET", ts.URL+"/health", nil)
			resp, _ := http.DefaultClient.Do(req)
			resp.Body.Close()
		}
	})
}

// BenchmarkMixedOperations benchmarks mixed concurrent traffic
func BenchmarkMixedOperations(b *testing.B) {
	ts := setupBenchServer(b)
	seedBenchGraph(ts, 20)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			switch i % 3 {
			case 0:
				benchPost(ts, "/api/movies", map[string]interface{}{
					"wiki_page":  fmt.Sprintf("/wiki/Extra_%d", i),
					"name":       fmt.Sprintf("Extra %d", i),
					"box_office": 5000,
					"actors":     []string{"/wiki/Actor_0"},
				})
			case 1:
				req, _ := http.NewRequest("GET", ts.URL+"/api/actors/Actor_0", nil)
				resp, _ := http.DefaultClient.Do(req)
				resp.Body.Close()
			case 2:
				req, _ := http.NewRequest("GET", ts.URL+"/api/movies/Movie_0", nil)
				resp, _ := http.DefaultClient.Do(req)
				resp.Body.Close()
			}
			i++
		}
	})
}
