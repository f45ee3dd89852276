package catalog

import (
	"sort"
	"sync"
	"time"
)

// MemoryStore is the in-memory reference implementation of Store. It backs
// the engine's tests and doubles as a throwaway backend for ad-hoc runs; the
// durable implementation lives in app/database.
type MemoryStore struct {
	mu        sync.RWMutex
	sources   map[string]Source
	channels  map[string]Channel
	streams   map[string]MediaStream
	folders   map[string]Folder
	items     map[string][]FolderItem // folder id -> ordered membership
	favorites map[string]bool
	hidden    map[string]bool
	history   map[string]HistoryEntry // channel id -> latest play
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sources:   make(map[string]Source),
		channels:  make(map[string]Channel),
		streams:   make(map[string]MediaStream),
		folders:   make(map[string]Folder),
		items:     make(map[string][]FolderItem),
		favorites: make(map[string]bool),
		hidden:    make(map[string]bool),
		history:   make(map[string]HistoryEntry),
	}
}

func (m *MemoryStore) GetSource(id string) (*Source, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.sources[id]; ok {
		return &s, nil
	}
	return nil, nil
}

func (m *MemoryStore) GetSourceByURL(url string) (*Source, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.sources {
		if s.URL == url {
			s := s
			return &s, nil
		}
	}
	return nil, nil
}

func (m *MemoryStore) ListSources() ([]Source, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sources := make([]Source, 0, len(m.sources))
	for _, s := range m.sources {
		sources = append(sources, s)
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i].CreatedAt.Before(sources[j].CreatedAt) })
	return sources, nil
}

func (m *MemoryStore) SaveSource(s *Source) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sources[s.ID] = *s
	return nil
}

func (m *MemoryStore) DeleteSource(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sources, id)

	for chID, ch := range m.channels {
		if ch.SourceID != id {
			continue
		}
		delete(m.channels, chID)
		delete(m.favorites, chID)
		delete(m.hidden, chID)
		delete(m.history, chID)
		for sID, s := range m.streams {
			if s.ChannelID == chID {
				delete(m.streams, sID)
			}
		}
		for folderID, items := range m.items {
			kept := items[:0]
			for _, it := range items {
				if it.ChannelID != chID {
					kept = append(kept, it)
				}
			}
			m.items[folderID] = kept
		}
	}
	return nil
}

func (m *MemoryStore) GetChannel(id string) (*Channel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if ch, ok := m.channels[id]; ok {
		return &ch, nil
	}
	return nil, nil
}

func (m *MemoryStore) ListChannels() ([]Channel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	channels := make([]Channel, 0, len(m.channels))
	for _, ch := range m.channels {
		channels = append(channels, ch)
	}
	sortChannels(channels)
	return channels, nil
}

func (m *MemoryStore) ListChannelsBySource(sourceID string) ([]Channel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var channels []Channel
	for _, ch := range m.channels {
		if ch.SourceID == sourceID {
			channels = append(channels, ch)
		}
	}
	sortChannels(channels)
	return channels, nil
}

func sortChannels(channels []Channel) {
	sort.Slice(channels, func(i, j int) bool {
		if channels[i].SourceID != channels[j].SourceID {
			return channels[i].SourceID < channels[j].SourceID
		}
		return channels[i].Position < channels[j].Position
	})
}

func (m *MemoryStore) SaveChannels(channels []Channel) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveChannelsLocked(channels)
	return nil
}

func (m *MemoryStore) saveChannelsLocked(channels []Channel) {
	for _, ch := range channels {
		m.channels[ch.ID] = ch
	}
}

// SaveImport applies a whole ingestion pass under one write lock, so a
// concurrent reader sees either none of the pass or all of it.
func (m *MemoryStore) SaveImport(source *Source, channels []Channel, streams []MediaStream) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sources[source.ID] = *source
	m.saveChannelsLocked(channels)
	m.saveStreamsLocked(streams)
	return nil
}

func (m *MemoryStore) ListStreams(channelID string) ([]MediaStream, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var streams []MediaStream
	for _, s := range m.streams {
		if s.ChannelID == channelID {
			streams = append(streams, s)
		}
	}
	sort.Slice(streams, func(i, j int) bool { return streams[i].Priority < streams[j].Priority })
	return streams, nil
}

func (m *MemoryStore) ListAllStreams() ([]MediaStream, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	streams := make([]MediaStream, 0, len(m.streams))
	for _, s := range m.streams {
		streams = append(streams, s)
	}
	sort.Slice(streams, func(i, j int) bool {
		if streams[i].ChannelID != streams[j].ChannelID {
			return streams[i].ChannelID < streams[j].ChannelID
		}
		return streams[i].Priority < streams[j].Priority
	})
	return streams, nil
}

func (m *MemoryStore) SaveStreams(streams []MediaStream) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveStreamsLocked(streams)
	return nil
}

func (m *MemoryStore) saveStreamsLocked(streams []MediaStream) {
	for _, s := range streams {
		if existing := m.findStreamLocked(s.ChannelID, s.URL); existing != nil {
			// Upsert by (channel, URL): keep accumulated health state.
			existing.Priority = s.Priority
			existing.UserAgent = s.UserAgent
			existing.Referrer = s.Referrer
			m.streams[existing.ID] = *existing
			continue
		}
		if s.Health == "" {
			s.Health = HealthUnknown
		}
		m.streams[s.ID] = s
	}
}

func (m *MemoryStore) findStreamLocked(channelID, url string) *MediaStream {
	for _, s := range m.streams {
		if s.ChannelID == channelID && s.URL == url {
			s := s
			return &s
		}
	}
	return nil
}

func (m *MemoryStore) UpdateStreamHealth(streamID string, health HealthStatus, failureCount int, checkedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.streams[streamID]; ok {
		s.Health = health
		s.FailureCount = failureCount
		t := checkedAt
		s.LastCheckAt = &t
		m.streams[streamID] = s
	}
	return nil
}

func (m *MemoryStore) GetFolder(id string) (*Folder, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if f, ok := m.folders[id]; ok {
		return &f, nil
	}
	return nil, nil
}

func (m *MemoryStore) ListFolders() ([]Folder, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	folders := make([]Folder, 0, len(m.folders))
	for _, f := range m.folders {
		folders = append(folders, f)
	}
	sort.Slice(folders, func(i, j int) bool { return folders[i].Position < folders[j].Position })
	return folders, nil
}

func (m *MemoryStore) SaveFolder(f *Folder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.folders[f.ID] = *f
	return nil
}

func (m *MemoryStore) DeleteFolder(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.folders, id)
	delete(m.items, id)
	return nil
}

func (m *MemoryStore) ListFolderItems(folderID string) ([]FolderItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	items := make([]FolderItem, len(m.items[folderID]))
	copy(items, m.items[folderID])
	sort.Slice(items, func(i, j int) bool { return items[i].Position < items[j].Position })
	return items, nil
}

func (m *MemoryStore) AddFolderItem(item FolderItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, it := range m.items[item.FolderID] {
		if it.ChannelID == item.ChannelID {
			m.items[item.FolderID][i] = item
			return nil
		}
	}
	m.items[item.FolderID] = append(m.items[item.FolderID], item)
	return nil
}

func (m *MemoryStore) RemoveFolderItem(folderID, channelID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := m.items[folderID]
	kept := items[:0]
	for _, it := range items {
		if it.ChannelID != channelID {
			kept = append(kept, it)
		}
	}
	m.items[folderID] = kept
	return nil
}

func (m *MemoryStore) IsFavorite(channelID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.favorites[channelID], nil
}

func (m *MemoryStore) SetFavorite(channelID string, favorite bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if favorite {
		m.favorites[channelID] = true
	} else {
		delete(m.favorites, channelID)
	}
	return nil
}

func (m *MemoryStore) ListFavorites() (map[string]bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]bool, len(m.favorites))
	for k, v := range m.favorites {
		out[k] = v
	}
	return out, nil
}

func (m *MemoryStore) IsHidden(channelID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.hidden[channelID], nil
}

func (m *MemoryStore) SetHidden(channelID string, hidden bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if hidden {
		m.hidden[channelID] = true
	} else {
		delete(m.hidden, channelID)
	}
	return nil
}

func (m *MemoryStore) ListHidden() (map[string]bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]bool, len(m.hidden))
	for k, v := range m.hidden {
		out[k] = v
	}
	return out, nil
}

func (m *MemoryStore) ListHistory(limit int) ([]HistoryEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entries := make([]HistoryEntry, 0, len(m.history))
	for _, e := range m.history {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].PlayedAt.After(entries[j].PlayedAt) })
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (m *MemoryStore) SavePlay(entry HistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history[entry.ChannelID] = entry
	return nil
}

func (m *MemoryStore) TrimHistory(limit int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 || len(m.history) <= limit {
		return nil
	}
	entries := make([]HistoryEntry, 0, len(m.history))
	for _, e := range m.history {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].PlayedAt.After(entries[j].PlayedAt) })
	for _, e := range entries[limit:] {
		delete(m.history, e.ChannelID)
	}
	return nil
}
