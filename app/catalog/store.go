package catalog

import (
	"context"
	"time"
)

// Store is the storage abstraction the pipeline and query layer depend on.
// The engine only requires reading current state and writing full
// replacement records; writes issued by one pipeline pass must become
// visible atomically to subsequent reads. Reconciliation logic never
// depends on a concrete backend (see app/database for the durable one and
// MemoryStore below for the reference implementation).
type Store interface {
	// Sources. DeleteSource cascades to the source's channels, their
	// streams, and any folder/favorite/hidden/history rows referencing them.
	GetSource(id string) (*Source, error)
	GetSourceByURL(url string) (*Source, error)
	ListSources() ([]Source, error)
	SaveSource(s *Source) error
	DeleteSource(id string) error

	// Channels. SaveChannels upserts the batch keyed by stable channel id.
	// ListChannels orders by (source id, position).
	GetChannel(id string) (*Channel, error)
	ListChannels() ([]Channel, error)
	ListChannelsBySource(sourceID string) ([]Channel, error)
	SaveChannels(channels []Channel) error

	// SaveImport persists one full ingestion pass: source record, channel
	// batch, and stream batch as a single atomic write. Readers never
	// observe a state where the channels landed but their streams did not.
	SaveImport(source *Source, channels []Channel, streams []MediaStream) error

	// Streams. SaveStreams upserts keyed by (channel id, URL): priority and
	// request overrides are overwritten, accumulated health state survives.
	// ListStreams returns a channel's streams sorted by priority.
	ListStreams(channelID string) ([]MediaStream, error)
	ListAllStreams() ([]MediaStream, error)
	SaveStreams(streams []MediaStream) error
	UpdateStreamHealth(streamID string, health HealthStatus, failureCount int, checkedAt time.Time) error

	// Folders. ListFolderItems returns membership rows ordered by position.
	GetFolder(id string) (*Folder, error)
	ListFolders() ([]Folder, error)
	SaveFolder(f *Folder) error
	DeleteFolder(id string) error
	ListFolderItems(folderID string) ([]FolderItem, error)
	AddFolderItem(item FolderItem) error
	RemoveFolderItem(folderID, channelID string) error

	// Per-channel user flags.
	IsFavorite(channelID string) (bool, error)
	SetFavorite(channelID string, favorite bool) error
	ListFavorites() (map[string]bool, error)
	IsHidden(channelID string) (bool, error)
	SetHidden(channelID string, hidden bool) error
	ListHidden() (map[string]bool, error)

	// History. SavePlay replaces any prior entry for the same channel.
	// ListHistory returns most-recent first.
	ListHistory(limit int) ([]HistoryEntry, error)
	SavePlay(entry HistoryEntry) error
	TrimHistory(limit int) error
}

// Fetcher obtains raw playlist bytes for a source. A non-empty userAgent
// overrides the fetcher's default for that request; local fetchers ignore
// it. Implementations must keep not-found/inaccessible failures
// distinguishable from transport failures (see app/fetch).
type Fetcher interface {
	Fetch(ctx context.Context, location, userAgent string) ([]byte, error)
}
