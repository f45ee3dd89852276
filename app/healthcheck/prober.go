// Package healthcheck probes stream URLs and folds the outcomes into the
// per-stream health state.
package healthcheck

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/mlevkov/iptv-catalog/app/catalog"
)

const DefaultFanOut = 5

type Prober struct {
	store     catalog.Store
	client    *http.Client
	userAgent string
	fanOut    int
	threshold int
}

func NewProber(store catalog.Store, timeout time.Duration, userAgent string, fanOut, threshold int) *Prober {
	if fanOut <= 0 {
		fanOut = DefaultFanOut
	}
	if threshold <= 0 {
		threshold = catalog.DefaultHealthThreshold
	}
	return &Prober{
		store:     store,
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
		fanOut:    fanOut,
		threshold: threshold,
	}
}

// Run probes every stream in the catalog, bounded by the configured
// fan-out, and persists the resulting health transitions. Sources with
// their own user agent or failure threshold override the prober defaults
// for their streams.
func (p *Prober) Run(ctx context.Context) error {
	streams, err := p.store.ListAllStreams()
	if err != nil {
		return err
	}
	sourceByChannel, err := p.sourceByChannel()
	if err != nil {
		return err
	}

	start := time.Now()
	sem := make(chan struct{}, p.fanOut)
	var wg sync.WaitGroup
	var mu sync.Mutex
	checked, failed := 0, 0

	for _, stream := range streams {
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(s catalog.MediaStream) {
			defer wg.Done()
			defer func() { <-sem }()

			source := sourceByChannel[s.ChannelID]
			threshold := source.HealthThreshold
			if threshold <= 0 {
				threshold = p.threshold
			}

			healthy := p.probe(ctx, &s, source.UserAgent)
			now := time.Now().UTC()
			catalog.ApplyCheckResult(&s, healthy, threshold, now)

			if err := p.store.UpdateStreamHealth(s.ID, s.Health, s.FailureCount, now); err != nil {
				slog.Error("Failed to update stream health", "stream_id", s.ID, "error", err)
				return
			}

			mu.Lock()
			checked++
			if !healthy {
				failed++
			}
			mu.Unlock()
		}(stream)
	}

	wg.Wait()

	slog.Info("Health check completed",
		"checked", checked,
		"failed", failed,
		"duration", time.Since(start))

	return ctx.Err()
}

// sourceByChannel maps channel ids to their owning source record, so the
// per-stream goroutines can resolve source-level overrides without extra
// store reads.
func (p *Prober) sourceByChannel() (map[string]catalog.Source, error) {
	srcs, err := p.store.ListSources()
	if err != nil {
		return nil, err
	}
	byID := make(map[string]catalog.Source, len(srcs))
	for _, src := range srcs {
		byID[src.ID] = src
	}

	channels, err := p.store.ListChannels()
	if err != nil {
		return nil, err
	}
	out := make(map[string]catalog.Source, len(channels))
	for _, ch := range channels {
		if src, ok := byID[ch.SourceID]; ok {
			out[ch.ID] = src
		}
	}
	return out, nil
}

// probe considers a stream healthy when its URL answers with a success or
// redirect status. HEAD first; many stream servers reject HEAD, so a 4xx/5xx
// there falls back to a ranged GET whose body is discarded immediately.
func (p *Prober) probe(ctx context.Context, s *catalog.MediaStream, sourceUserAgent string) bool {
	if status, ok := p.request(ctx, http.MethodHead, s, sourceUserAgent); ok && statusHealthy(status) {
		return true
	}

	status, ok := p.request(ctx, http.MethodGet, s, sourceUserAgent)
	return ok && statusHealthy(status)
}

func (p *Prober) request(ctx context.Context, method string, s *catalog.MediaStream, sourceUserAgent string) (int, bool) {
	req, err := http.NewRequestWithContext(ctx, method, s.URL, nil)
	if err != nil {
		return 0, false
	}

	userAgent := s.UserAgent
	if userAgent == "" {
		userAgent = sourceUserAgent
	}
	if userAgent == "" {
		userAgent = p.userAgent
	}
	req.Header.Set("User-Agent", userAgent)
	if s.Referrer != "" {
		req.Header.Set("Referer", s.Referrer)
	}
	if method == http.MethodGet {
		req.Header.Set("Range", "bytes=0-1023")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, false
	}
	resp.Body.Close()

	return resp.StatusCode, true
}

func statusHealthy(status int) bool {
	return status >= 200 && status < 400
}
