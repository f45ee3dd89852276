// Package catalog holds the channel catalog data model, the storage
// abstraction, and the import/refresh and query services built on it.
package catalog

import (
	"time"
)

// SourceKind tells a remote playlist URL apart from a local file reference.
type SourceKind string

const (
	SourceRemote SourceKind = "remote-url"
	SourceLocal  SourceKind = "local-file"
)

// RefreshPolicy controls how often a source is re-ingested automatically.
type RefreshPolicy string

const (
	RefreshManual RefreshPolicy = "manual"
	RefreshHourly RefreshPolicy = "hourly"
	RefreshDaily  RefreshPolicy = "daily"
	RefreshWeekly RefreshPolicy = "weekly"
)

// Interval returns the refresh period, or zero for manual sources.
func (p RefreshPolicy) Interval() time.Duration {
	switch p {
	case RefreshHourly:
		return time.Hour
	case RefreshDaily:
		return 24 * time.Hour
	case RefreshWeekly:
		return 7 * 24 * time.Hour
	default:
		return 0
	}
}

// Source is a playlist origin. URL holds the remote URL or the local file
// path depending on Kind. UserAgent and HealthThreshold carry per-source
// overrides from the source definition; zero values fall back to the
// global configuration.
type Source struct {
	ID              string
	Name            string
	Kind            SourceKind
	URL             string
	RefreshPolicy   RefreshPolicy
	UserAgent       string
	HealthThreshold int
	LastRefreshAt   *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Channel is a catalog entity with a stable identifier derived by the
// identity resolver, never random: repeated imports of the same logical
// channel collide onto the same record.
type Channel struct {
	ID         string
	SourceID   string
	Name       string
	DeclaredID string
	LogoURL    string
	Group      string
	Country    string
	Language   string
	Position   int // position within the most recent playlist
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// HealthStatus is the probed state of a single stream.
type HealthStatus string

const (
	HealthUnknown HealthStatus = "unknown"
	HealthOK      HealthStatus = "ok"
	HealthFlaky   HealthStatus = "flaky"
	HealthDead    HealthStatus = "dead"
)

// MediaStream is one playable URL for a channel. Channels may carry several
// as fallback mirrors; lower priority is preferred.
type MediaStream struct {
	ID           string
	ChannelID    string
	URL          string
	Priority     int
	Health       HealthStatus
	FailureCount int
	LastCheckAt  *time.Time
	UserAgent    string
	Referrer     string
}

// FolderKind distinguishes explicit membership folders from rule-derived
// smart folders.
type FolderKind string

const (
	FolderManual FolderKind = "manual"
	FolderSmart  FolderKind = "smart"
)

// Folder is a user-defined grouping. Smart folders store a serialized rule
// blob and no membership rows; membership is computed on demand.
type Folder struct {
	ID        string
	Name      string
	Kind      FolderKind
	Position  int
	Rules     []byte // serialized rule document, smart folders only
	Icon      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// FolderItem is one channel's membership in a manual folder.
// Composite identity: (FolderID, ChannelID).
type FolderItem struct {
	FolderID  string
	ChannelID string
	Position  int
}

// HistoryEntry is a play event. Retention is bounded by the caller's
// configured limit, most-recent first.
type HistoryEntry struct {
	ID             string
	ChannelID      string
	PlayedAt       time.Time
	WatchedSeconds int
}
