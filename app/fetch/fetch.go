// Package fetch obtains raw playlist bytes for the import pipeline. The two
// failure classes the pipeline's error taxonomy needs stay distinguishable:
// ErrNotFound for missing or inaccessible playlists, plain wrapped errors
// for transport failures.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"time"
)

// ErrNotFound marks a playlist that does not exist or is not accessible, as
// opposed to a transport failure reaching it.
var ErrNotFound = errors.New("playlist not found or not accessible")

// HTTP fetches playlists over the network.
type HTTP struct {
	client    *http.Client
	userAgent string
}

func NewHTTP(timeout time.Duration, userAgent string) *HTTP {
	return &HTTP{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

// Fetch downloads the playlist at url. A non-empty userAgent takes
// precedence over the fetcher's default, so per-source overrides reach the
// provider.
func (f *HTTP) Fetch(ctx context.Context, url, userAgent string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if userAgent == "" {
		userAgent = f.userAgent
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch playlist: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound,
		resp.StatusCode == http.StatusForbidden,
		resp.StatusCode == http.StatusGone,
		resp.StatusCode == http.StatusUnauthorized:
		return nil, fmt.Errorf("%w: HTTP %d from %s", ErrNotFound, resp.StatusCode, url)
	default:
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return data, nil
}

// File reads playlists from the local filesystem.
type File struct{}

func NewFile() *File {
	return &File{}
}

func (f *File) Fetch(_ context.Context, path, _ string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to read playlist file: %w", err)
	}
	return data, nil
}
