package catalog

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mlevkov/iptv-catalog/app/rules"
)

// ErrFolderNotFound indicates a folder lookup by id found nothing.
var ErrFolderNotFound = errors.New("folder not found")

// SearchOptions are the compound filters of a channel search. Pagination is
// applied after filtering.
type SearchOptions struct {
	Text          string // free text over name, group and declared identifier
	Group         string // exact facet matches, case-insensitive
	Country       string
	Language      string
	FavoritesOnly bool
	IncludeHidden bool
	Offset        int
	Limit         int
}

// Query is the read side of the catalog: search, folder resolution, user
// flags and history bookkeeping.
type Query struct {
	store        Store
	historyLimit int
}

// NewQuery builds the query layer. historyLimit bounds retained play
// history (a caller policy, not an engine decision).
func NewQuery(store Store, historyLimit int) *Query {
	return &Query{store: store, historyLimit: historyLimit}
}

// SearchChannels lists channels matching all given filters, in playlist
// order, hidden channels excluded unless requested.
func (q *Query) SearchChannels(opts SearchOptions) ([]Channel, error) {
	channels, err := q.store.ListChannels()
	if err != nil {
		return nil, fmt.Errorf("failed to list channels: %w", err)
	}

	hidden, err := q.store.ListHidden()
	if err != nil {
		return nil, fmt.Errorf("failed to list hidden flags: %w", err)
	}
	favorites, err := q.store.ListFavorites()
	if err != nil {
		return nil, fmt.Errorf("failed to list favorites: %w", err)
	}

	text := strings.ToLower(strings.TrimSpace(opts.Text))
	matched := make([]Channel, 0, len(channels))
	for _, ch := range channels {
		if !opts.IncludeHidden && hidden[ch.ID] {
			continue
		}
		if opts.FavoritesOnly && !favorites[ch.ID] {
			continue
		}
		if text != "" && !matchesText(&ch, text) {
			continue
		}
		if opts.Group != "" && !strings.EqualFold(opts.Group, ch.Group) {
			continue
		}
		if opts.Country != "" && !strings.EqualFold(opts.Country, ch.Country) {
			continue
		}
		if opts.Language != "" && !strings.EqualFold(opts.Language, ch.Language) {
			continue
		}
		matched = append(matched, ch)
	}

	return paginate(matched, opts.Offset, opts.Limit), nil
}

func matchesText(ch *Channel, text string) bool {
	return strings.Contains(strings.ToLower(ch.Name), text) ||
		strings.Contains(strings.ToLower(ch.Group), text) ||
		strings.Contains(strings.ToLower(ch.DeclaredID), text)
}

func paginate(channels []Channel, offset, limit int) []Channel {
	if offset >= len(channels) {
		return []Channel{}
	}
	channels = channels[offset:]
	if limit > 0 && len(channels) > limit {
		channels = channels[:limit]
	}
	return channels
}

// ResolveFolder returns a folder's effective channel list. Manual folders
// resolve their ordered membership rows; smart folders run their rule set
// over the full catalog. Stream context is loaded only when includeHealth is
// set; without it, health-status conditions see an absent field.
func (q *Query) ResolveFolder(folderID string, includeHealth bool) ([]Channel, error) {
	folder, err := q.store.GetFolder(folderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load folder: %w", err)
	}
	if folder == nil {
		return nil, fmt.Errorf("%w: %s", ErrFolderNotFound, folderID)
	}

	if folder.Kind == FolderManual {
		return q.resolveManual(folder)
	}
	return q.resolveSmart(folder, includeHealth)
}

func (q *Query) resolveManual(folder *Folder) ([]Channel, error) {
	items, err := q.store.ListFolderItems(folder.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list folder items: %w", err)
	}

	channels := make([]Channel, 0, len(items))
	for _, item := range items {
		ch, err := q.store.GetChannel(item.ChannelID)
		if err != nil {
			return nil, fmt.Errorf("failed to load channel %s: %w", item.ChannelID, err)
		}
		if ch != nil {
			channels = append(channels, *ch)
		}
	}
	return channels, nil
}

func (q *Query) resolveSmart(folder *Folder, includeHealth bool) ([]Channel, error) {
	doc, err := rules.Decode(folder.Rules)
	if err != nil {
		return nil, fmt.Errorf("failed to decode folder rules: %w", err)
	}

	channels, err := q.store.ListChannels()
	if err != nil {
		return nil, fmt.Errorf("failed to list channels: %w", err)
	}
	favorites, err := q.store.ListFavorites()
	if err != nil {
		return nil, fmt.Errorf("failed to list favorites: %w", err)
	}
	hidden, err := q.store.ListHidden()
	if err != nil {
		return nil, fmt.Errorf("failed to list hidden flags: %w", err)
	}

	health := make(map[string]HealthStatus)
	if includeHealth {
		streams, err := q.store.ListAllStreams()
		if err != nil {
			return nil, fmt.Errorf("failed to list streams: %w", err)
		}
		byChannel := make(map[string][]MediaStream)
		for _, s := range streams {
			byChannel[s.ChannelID] = append(byChannel[s.ChannelID], s)
		}
		for id, list := range byChannel {
			health[id] = AggregateHealth(list)
		}
	}

	return rules.Filter(doc, channels, func(ch Channel) *rules.Context {
		return &rules.Context{
			Name:         ch.Name,
			Group:        ch.Group,
			Country:      ch.Country,
			Language:     ch.Language,
			DeclaredID:   ch.DeclaredID,
			IsFavorite:   favorites[ch.ID],
			IsHidden:     hidden[ch.ID],
			HealthStatus: string(health[ch.ID]),
		}
	}), nil
}

// ToggleFavorite flips the favorite flag and returns the new state. The flip
// is idempotent in the sense that toggling twice restores the original.
func (q *Query) ToggleFavorite(channelID string) (bool, error) {
	current, err := q.store.IsFavorite(channelID)
	if err != nil {
		return false, fmt.Errorf("failed to read favorite flag: %w", err)
	}
	if err := q.store.SetFavorite(channelID, !current); err != nil {
		return false, fmt.Errorf("failed to write favorite flag: %w", err)
	}
	return !current, nil
}

// ToggleHidden flips the hidden flag and returns the new state.
func (q *Query) ToggleHidden(channelID string) (bool, error) {
	current, err := q.store.IsHidden(channelID)
	if err != nil {
		return false, fmt.Errorf("failed to read hidden flag: %w", err)
	}
	if err := q.store.SetHidden(channelID, !current); err != nil {
		return false, fmt.Errorf("failed to write hidden flag: %w", err)
	}
	return !current, nil
}

// RecordPlay stores a play event, replacing any prior entry for the same
// channel, then trims retained history to the configured bound.
func (q *Query) RecordPlay(channelID string, watchedSeconds int) error {
	entry := HistoryEntry{
		ID:             uuid.NewString(),
		ChannelID:      channelID,
		PlayedAt:       time.Now().UTC(),
		WatchedSeconds: watchedSeconds,
	}
	if err := q.store.SavePlay(entry); err != nil {
		return fmt.Errorf("failed to record play: %w", err)
	}
	if err := q.store.TrimHistory(q.historyLimit); err != nil {
		return fmt.Errorf("failed to trim history: %w", err)
	}
	return nil
}

// History returns play events, most recent first, capped at limit (or the
// configured bound when limit is zero).
func (q *Query) History(limit int) ([]HistoryEntry, error) {
	if limit <= 0 || limit > q.historyLimit {
		limit = q.historyLimit
	}
	entries, err := q.store.ListHistory(limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	return entries, nil
}
