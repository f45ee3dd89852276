package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestHTTPFetchSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "Test Agent" {
			t.Errorf("Expected custom user agent, got: %s", r.Header.Get("User-Agent"))
		}
		w.Write([]byte("#EXTM3U\n"))
	}))
	defer server.Close()

	fetcher := NewHTTP(5*time.Second, "Test Agent")
	data, err := fetcher.Fetch(context.Background(), server.URL, "")

	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if string(data) != "#EXTM3U\n" {
		t.Errorf("Unexpected body: %q", string(data))
	}
}

func TestHTTPFetchUserAgentOverride(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "Provider Agent" {
			t.Errorf("Expected per-request user agent, got: %s", r.Header.Get("User-Agent"))
		}
		w.Write([]byte("#EXTM3U\n"))
	}))
	defer server.Close()

	fetcher := NewHTTP(5*time.Second, "Test Agent")
	if _, err := fetcher.Fetch(context.Background(), server.URL, "Provider Agent"); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
}

func TestHTTPFetchNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	fetcher := NewHTTP(5*time.Second, "Test Agent")
	_, err := fetcher.Fetch(context.Background(), server.URL, "")

	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for 404, got: %v", err)
	}
}

func TestHTTPFetchServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	fetcher := NewHTTP(5*time.Second, "Test Agent")
	_, err := fetcher.Fetch(context.Background(), server.URL, "")

	if err == nil {
		t.Fatal("Expected error for 502")
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("Server errors must stay distinguishable from not-found")
	}
}

func TestFileFetch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "playlist.m3u")
	if err := os.WriteFile(path, []byte("#EXTM3U\n"), 0644); err != nil {
		t.Fatal(err)
	}

	fetcher := NewFile()
	data, err := fetcher.Fetch(context.Background(), path, "")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if string(data) != "#EXTM3U\n" {
		t.Errorf("Unexpected content: %q", string(data))
	}

	_, err = fetcher.Fetch(context.Background(), filepath.Join(dir, "missing.m3u"), "")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for missing file, got: %v", err)
	}
}
