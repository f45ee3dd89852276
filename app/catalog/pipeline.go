package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mlevkov/iptv-catalog/app/identity"
	"github.com/mlevkov/iptv-catalog/app/playlist"
)

// ErrSourceNotFound indicates a refresh was requested for an unknown source.
var ErrSourceNotFound = errors.New("source not found")

// ErrSourceHasNoLocation indicates caller misuse: a refresh of a source
// record that carries neither a URL nor a file reference.
var ErrSourceHasNoLocation = errors.New("source has no URL or file reference")

// ImportResult is the structured outcome of one ingestion pass.
type ImportResult struct {
	Source          *Source
	ChannelsAdded   int
	ChannelsUpdated int
	ChannelsRemoved int // reporting metric only; orphans are retained
	StreamsAdded    int
	Diagnostics     []playlist.Diagnostic
	Duration        time.Duration
}

// IsSuccess reports whether the pass produced a usable catalog update.
// Fatal failures never reach an ImportResult; they surface as errors from
// the pipeline entry points before anything is persisted.
func (r *ImportResult) IsSuccess() bool {
	return r.ChannelsAdded+r.ChannelsUpdated > 0
}

// Pipeline orchestrates end-to-end ingestion: fetch, parse, identity
// resolution, reconciliation against stored state, and persistence.
//
// Refreshes of the same source are serialized through a per-source mutex so
// the pre-image snapshot can never be invalidated by a concurrent writer;
// different sources proceed independently.
type Pipeline struct {
	store      Store
	remote     Fetcher
	local      Fetcher
	parser     *playlist.Parser
	mu         sync.Mutex
	sourceLock map[string]*sync.Mutex
}

func NewPipeline(store Store, remote, local Fetcher) *Pipeline {
	return &Pipeline{
		store:      store,
		remote:     remote,
		local:      local,
		parser:     playlist.NewParser(),
		sourceLock: make(map[string]*sync.Mutex),
	}
}

// ImportFromURL ingests a remote playlist. Importing a URL that already has
// a source record behaves as a refresh of that source.
func (p *Pipeline) ImportFromURL(ctx context.Context, url, name string, policy RefreshPolicy) (*ImportResult, error) {
	source, err := p.ensureSource(url, name, SourceRemote, policy)
	if err != nil {
		return nil, err
	}
	return p.run(ctx, source)
}

// ImportFile ingests a playlist from a local file path.
func (p *Pipeline) ImportFile(ctx context.Context, path, name string, policy RefreshPolicy) (*ImportResult, error) {
	source, err := p.ensureSource(path, name, SourceLocal, policy)
	if err != nil {
		return nil, err
	}
	return p.run(ctx, source)
}

// Refresh re-ingests an already-known source and reconciles catalog state
// with the latest upstream feed.
func (p *Pipeline) Refresh(ctx context.Context, sourceID string) (*ImportResult, error) {
	source, err := p.store.GetSource(sourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load source: %w", err)
	}
	if source == nil {
		return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, sourceID)
	}
	if source.URL == "" {
		return nil, fmt.Errorf("%w: %s", ErrSourceHasNoLocation, sourceID)
	}
	return p.run(ctx, source)
}

// ensureSource reuses the record registered for the location or builds a new
// one. New records are not persisted here: nothing is written until the
// fetch and parse steps have succeeded.
func (p *Pipeline) ensureSource(location, name string, kind SourceKind, policy RefreshPolicy) (*Source, error) {
	if location == "" {
		return nil, ErrSourceHasNoLocation
	}

	existing, err := p.store.GetSourceByURL(location)
	if err != nil {
		return nil, fmt.Errorf("failed to look up source: %w", err)
	}
	if existing != nil {
		if name != "" {
			existing.Name = name
		}
		if policy != "" {
			existing.RefreshPolicy = policy
		}
		return existing, nil
	}

	if policy == "" {
		policy = RefreshManual
	}
	now := time.Now().UTC()
	return &Source{
		ID:            uuid.NewString(),
		Name:          name,
		Kind:          kind,
		URL:           location,
		RefreshPolicy: policy,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

func (p *Pipeline) lockFor(sourceID string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	if l, ok := p.sourceLock[sourceID]; ok {
		return l
	}
	l := &sync.Mutex{}
	p.sourceLock[sourceID] = l
	return l
}

// run is the shared ingestion pass. A failed fetch or parse aborts before
// any persistence, leaving prior catalog state untouched.
func (p *Pipeline) run(ctx context.Context, source *Source) (*ImportResult, error) {
	start := time.Now()

	lock := p.lockFor(source.ID)
	lock.Lock()
	defer lock.Unlock()

	fetcher := p.remote
	if source.Kind == SourceLocal {
		fetcher = p.local
	}

	data, err := fetcher.Fetch(ctx, source.URL, source.UserAgent)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch playlist: %w", err)
	}

	parsed, err := p.parser.Run(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse playlist: %w", err)
	}

	now := time.Now().UTC()
	source.UpdatedAt = now
	source.LastRefreshAt = &now

	// Pre-image snapshot: the channel ids this source owned before the pass.
	// Must happen before new entries are processed (and is why refreshes of
	// one source are mutually exclusive).
	preImage := make(map[string]bool)
	owned, err := p.store.ListChannelsBySource(source.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot source channels: %w", err)
	}
	for _, ch := range owned {
		preImage[ch.ID] = true
	}

	result := &ImportResult{Source: source, Diagnostics: parsed.Diagnostics}

	touched := make(map[string]*Channel)
	var order []string
	var streams []MediaStream

	for position, entry := range parsed.Entries {
		id := identity.Identify(entry.DeclaredID, entry.Name, entry.URL)

		if ch, ok := touched[id]; ok {
			// Repeated id within one playlist: treat the extra URL as a
			// fallback mirror of the same channel.
			streams = append(streams, streamFor(ch.ID, entry, countStreamsFor(streams, ch.ID)))
			result.StreamsAdded++
			continue
		}

		existing, err := p.store.GetChannel(id)
		if err != nil {
			return nil, fmt.Errorf("failed to look up channel %s: %w", id, err)
		}

		var ch Channel
		if existing != nil {
			ch = *existing
			ch.Name = entry.Name
			ch.LogoURL = entry.LogoURL
			ch.Group = entry.Group
			ch.Country = entry.Country
			ch.Language = entry.Language
			ch.Position = position
			ch.UpdatedAt = now
			result.ChannelsUpdated++
		} else {
			ch = Channel{
				ID:         id,
				SourceID:   source.ID,
				Name:       entry.Name,
				DeclaredID: entry.DeclaredID,
				LogoURL:    entry.LogoURL,
				Group:      entry.Group,
				Country:    entry.Country,
				Language:   entry.Language,
				Position:   position,
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			result.ChannelsAdded++
		}

		touched[id] = &ch
		order = append(order, id)

		streams = append(streams, streamFor(ch.ID, entry, 0))
		result.StreamsAdded++
	}

	// Orphans: previously owned channels the new feed omitted. Counted but
	// never deleted, so folder membership, favorites, and history referring
	// to them survive a provider temporarily dropping a channel.
	for id := range preImage {
		if _, ok := touched[id]; !ok {
			result.ChannelsRemoved++
		}
	}

	// Single write phase: source, channels, and streams land in one atomic
	// batch, so concurrent readers see either the old pass or the new one.
	channels := make([]Channel, 0, len(order))
	for _, id := range order {
		channels = append(channels, *touched[id])
	}
	if err := p.store.SaveImport(source, channels, streams); err != nil {
		return nil, fmt.Errorf("failed to save import: %w", err)
	}

	result.Duration = time.Since(start)

	slog.Info("Playlist ingested",
		"source", source.Name,
		"added", result.ChannelsAdded,
		"updated", result.ChannelsUpdated,
		"removed", result.ChannelsRemoved,
		"streams", result.StreamsAdded,
		"diagnostics", len(result.Diagnostics),
		"duration", result.Duration)

	return result, nil
}

func streamFor(channelID string, entry playlist.Entry, priority int) MediaStream {
	return MediaStream{
		ID:        uuid.NewString(),
		ChannelID: channelID,
		URL:       entry.URL,
		Priority:  priority,
		Health:    HealthUnknown,
		UserAgent: entry.UserAgent,
		Referrer:  entry.Referrer,
	}
}

func countStreamsFor(streams []MediaStream, channelID string) int {
	n := 0
	for _, s := range streams {
		if s.ChannelID == channelID {
			n++
		}
	}
	return n
}
