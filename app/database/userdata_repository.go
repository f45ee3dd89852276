package database

import (
	"fmt"

	"github.com/mlevkov/iptv-catalog/app/catalog"
)

func (s *Store) IsFavorite(channelID string) (bool, error) {
	return s.readFlag(channelID, "is_favorite")
}

func (s *Store) SetFavorite(channelID string, favorite bool) error {
	return s.writeFlag(channelID, "is_favorite", favorite)
}

func (s *Store) ListFavorites() (map[string]bool, error) {
	return s.listFlags("is_favorite")
}

func (s *Store) IsHidden(channelID string) (bool, error) {
	return s.readFlag(channelID, "is_hidden")
}

func (s *Store) SetHidden(channelID string, hidden bool) error {
	return s.writeFlag(channelID, "is_hidden", hidden)
}

func (s *Store) ListHidden() (map[string]bool, error) {
	return s.listFlags("is_hidden")
}

// column names are code constants, never user input
func (s *Store) readFlag(channelID, column string) (bool, error) {
	var value bool
	err := s.db.QueryRow("SELECT "+column+" FROM channel_flags WHERE channel_id = ?", channelID).Scan(&value)
	if err != nil {
		if errorIsNoRows(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read %s flag: %w", column, err)
	}
	return value, nil
}

func (s *Store) writeFlag(channelID, column string, value bool) error {
	_, err := s.db.Exec(`
		INSERT INTO channel_flags (channel_id, `+column+`)
		VALUES (?, ?)
		ON CONFLICT(channel_id) DO UPDATE SET `+column+` = excluded.`+column+`
	`, channelID, value)
	if err != nil {
		return fmt.Errorf("failed to write %s flag: %w", column, err)
	}
	return nil
}

func (s *Store) listFlags(column string) (map[string]bool, error) {
	rows, err := s.db.Query("SELECT channel_id FROM channel_flags WHERE " + column + " = 1")
	if err != nil {
		return nil, fmt.Errorf("failed to list %s flags: %w", column, err)
	}
	defer rows.Close()

	flags := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan flag row: %w", err)
		}
		flags[id] = true
	}
	return flags, rows.Err()
}

func (s *Store) ListHistory(limit int) ([]catalog.HistoryEntry, error) {
	rows, err := s.db.Query(`
		SELECT id, channel_id, played_at, watched_seconds FROM play_history
		ORDER BY played_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer rows.Close()

	var entries []catalog.HistoryEntry
	for rows.Next() {
		var e catalog.HistoryEntry
		if err := rows.Scan(&e.ID, &e.ChannelID, &e.PlayedAt, &e.WatchedSeconds); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// SavePlay replaces a channel's prior entry; the unique channel_id column
// makes the replacement a plain upsert.
func (s *Store) SavePlay(entry catalog.HistoryEntry) error {
	_, err := s.db.Exec(`
		INSERT INTO play_history (id, channel_id, played_at, watched_seconds)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(channel_id) DO UPDATE SET
			played_at = excluded.played_at,
			watched_seconds = excluded.watched_seconds
	`, entry.ID, entry.ChannelID, entry.PlayedAt, entry.WatchedSeconds)
	if err != nil {
		return fmt.Errorf("failed to save play: %w", err)
	}
	return nil
}

func (s *Store) TrimHistory(limit int) error {
	_, err := s.db.Exec(`
		DELETE FROM play_history WHERE id NOT IN (
			SELECT id FROM play_history ORDER BY played_at DESC LIMIT ?
		)
	`, limit)
	if err != nil {
		return fmt.Errorf("failed to trim history: %w", err)
	}
	return nil
}
