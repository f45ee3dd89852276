package healthcheck

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mlevkov/iptv-catalog/app/catalog"
)

func seedStream(t *testing.T, store *catalog.MemoryStore, id, url string) {
	t.Helper()
	err := store.SaveStreams([]catalog.MediaStream{
		{ID: id, ChannelID: "ch-1", URL: url, Health: catalog.HealthUnknown},
	})
	if err != nil {
		t.Fatal(err)
	}
}

func streamByID(t *testing.T, store *catalog.MemoryStore, id string) catalog.MediaStream {
	t.Helper()
	streams, err := store.ListAllStreams()
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range streams {
		if s.ID == id {
			return s
		}
	}
	t.Fatalf("stream %s not found", id)
	return catalog.MediaStream{}
}

func TestProberMarksHealthyStreamOK(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	store := catalog.NewMemoryStore()
	seedStream(t, store, "st-1", server.URL)

	prober := NewProber(store, 5*time.Second, "TestAgent/1.0", 2, 3)
	if err := prober.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	s := streamByID(t, store, "st-1")
	if s.Health != catalog.HealthOK {
		t.Errorf("Expected ok, got: %s", s.Health)
	}
	if s.FailureCount != 0 {
		t.Errorf("Expected zero failures, got: %d", s.FailureCount)
	}
	if s.LastCheckAt == nil {
		t.Error("Expected check timestamp recorded")
	}
}

func TestProberFallsBackToGet(t *testing.T) {
	var sawGet bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		sawGet = true
		if r.Header.Get("Range") == "" {
			t.Error("Expected a ranged GET")
		}
		w.WriteHeader(http.StatusPartialContent)
	}))
	defer server.Close()

	store := catalog.NewMemoryStore()
	seedStream(t, store, "st-1", server.URL)

	prober := NewProber(store, 5*time.Second, "TestAgent/1.0", 1, 3)
	if err := prober.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if !sawGet {
		t.Error("Expected GET fallback after rejected HEAD")
	}
	s := streamByID(t, store, "st-1")
	if s.Health != catalog.HealthOK {
		t.Errorf("Expected ok via GET fallback, got: %s", s.Health)
	}
}

func TestProberEscalatesFailuresToDead(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	store := catalog.NewMemoryStore()
	seedStream(t, store, "st-1", server.URL)

	prober := NewProber(store, 5*time.Second, "TestAgent/1.0", 1, 2)

	if err := prober.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	s := streamByID(t, store, "st-1")
	if s.Health != catalog.HealthFlaky || s.FailureCount != 1 {
		t.Errorf("Expected flaky after first failure, got: %s (%d)", s.Health, s.FailureCount)
	}

	if err := prober.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	s = streamByID(t, store, "st-1")
	if s.Health != catalog.HealthDead || s.FailureCount != 2 {
		t.Errorf("Expected dead at the threshold, got: %s (%d)", s.Health, s.FailureCount)
	}
}

func TestProberSendsStreamUserAgent(t *testing.T) {
	var agent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agent = r.Header.Get("User-Agent")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	store := catalog.NewMemoryStore()
	err := store.SaveStreams([]catalog.MediaStream{
		{ID: "st-1", ChannelID: "ch-1", URL: server.URL, UserAgent: "VLC/3.0"},
	})
	if err != nil {
		t.Fatal(err)
	}

	prober := NewProber(store, 5*time.Second, "Default/1.0", 1, 3)
	if err := prober.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	if agent != "VLC/3.0" {
		t.Errorf("Expected the stream's own user agent, got: %s", agent)
	}
}

func TestProberUnreachableHost(t *testing.T) {
	store := catalog.NewMemoryStore()
	seedStream(t, store, "st-1", "http://127.0.0.1:1/stream.m3u8")

	prober := NewProber(store, time.Second, "TestAgent/1.0", 1, 3)
	if err := prober.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	s := streamByID(t, store, "st-1")
	if s.Health != catalog.HealthFlaky {
		t.Errorf("Expected flaky after a connection failure, got: %s", s.Health)
	}
}

func TestProberAppliesSourceOverrides(t *testing.T) {
	var sawAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawAgent = r.Header.Get("User-Agent")
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	store := catalog.NewMemoryStore()
	err := store.SaveSource(&catalog.Source{
		ID:              "src-1",
		Name:            "Provider",
		Kind:            catalog.SourceRemote,
		URL:             "http://provider.example.com/list.m3u",
		UserAgent:       "Provider Agent",
		HealthThreshold: 1,
	})
	if err != nil {
		t.Fatal(err)
	}
	err = store.SaveChannels([]catalog.Channel{
		{ID: "ch-1", SourceID: "src-1", Name: "Channel 1"},
	})
	if err != nil {
		t.Fatal(err)
	}
	seedStream(t, store, "st-1", server.URL)

	prober := NewProber(store, 5*time.Second, "TestAgent/1.0", 2, 3)
	if err := prober.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if sawAgent != "Provider Agent" {
		t.Errorf("Expected the source user agent on the probe, got: %q", sawAgent)
	}

	s := streamByID(t, store, "st-1")
	if s.Health != catalog.HealthDead {
		t.Errorf("Source threshold of 1 escalates the first failure to dead, got: %s", s.Health)
	}
}

func TestProberStreamAgentBeatsSourceAgent(t *testing.T) {
	var sawAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawAgent = r.Header.Get("User-Agent")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	store := catalog.NewMemoryStore()
	err := store.SaveSource(&catalog.Source{
		ID:        "src-1",
		Name:      "Provider",
		Kind:      catalog.SourceRemote,
		URL:       "http://provider.example.com/list.m3u",
		UserAgent: "Provider Agent",
	})
	if err != nil {
		t.Fatal(err)
	}
	err = store.SaveChannels([]catalog.Channel{
		{ID: "ch-1", SourceID: "src-1", Name: "Channel 1"},
	})
	if err != nil {
		t.Fatal(err)
	}
	err = store.SaveStreams([]catalog.MediaStream{
		{ID: "st-1", ChannelID: "ch-1", URL: server.URL, UserAgent: "VLC/3.0"},
	})
	if err != nil {
		t.Fatal(err)
	}

	prober := NewProber(store, 5*time.Second, "TestAgent/1.0", 2, 3)
	if err := prober.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if sawAgent != "VLC/3.0" {
		t.Errorf("A stream's own user agent wins over the source's, got: %q", sawAgent)
	}
}
