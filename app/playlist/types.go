package playlist

import (
	"errors"
	"time"
)

var (
	// ErrEmptyInput is returned when the playlist text contains no lines at all.
	ErrEmptyInput = errors.New("playlist is empty")
	// ErrNoValidEntries is returned when parsing completed but not a single
	// entry could be recovered (header-only or comment-only input).
	ErrNoValidEntries = errors.New("playlist contains no valid entries")
)

// Entry is one parsed playlist item. Entries are transient: the import
// pipeline consumes them immediately and never persists them as-is.
type Entry struct {
	Name       string
	URL        string
	DeclaredID string // tvg-id
	LogoURL    string // tvg-logo
	Group      string // group-title, possibly overridden by #EXTGRP
	Language   string // tvg-language
	Country    string // tvg-country
	UserAgent  string // from #EXTVLCOPT:http-user-agent
	Referrer   string // from #EXTVLCOPT:http-referrer
	Duration   int    // leading EXTINF duration, -1 for live streams
	Attributes map[string]string
}

// Diagnostic is a line-numbered parse problem. Diagnostics never abort
// parsing; they accumulate alongside successfully recovered entries.
type Diagnostic struct {
	Line    int
	Message string
}

// Result is the outcome of a parse run.
type Result struct {
	Entries     []Entry
	Diagnostics []Diagnostic
	Elapsed     time.Duration
}
