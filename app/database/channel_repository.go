package database

import (
	"fmt"

	"github.com/mlevkov/iptv-catalog/app/catalog"
)

const channelColumns = "id, source_id, name, declared_id, logo_url, group_title, country, language, position, created_at, updated_at"

func (s *Store) GetChannel(id string) (*catalog.Channel, error) {
	row := s.db.QueryRow("SELECT "+channelColumns+" FROM channels WHERE id = ?", id)
	ch, err := scanChannel(row)
	if err != nil {
		if errorIsNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return ch, nil
}

func (s *Store) ListChannels() ([]catalog.Channel, error) {
	return s.queryChannels("SELECT " + channelColumns + " FROM channels ORDER BY source_id, position")
}

func (s *Store) ListChannelsBySource(sourceID string) ([]catalog.Channel, error) {
	return s.queryChannels("SELECT "+channelColumns+" FROM channels WHERE source_id = ? ORDER BY position", sourceID)
}

// SaveChannels upserts the batch in one transaction, keyed by stable id.
// Creation timestamps are written once and never overwritten.
func (s *Store) SaveChannels(channels []catalog.Channel) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := upsertChannels(tx, channels); err != nil {
		return err
	}
	return tx.Commit()
}

func upsertChannels(e execer, channels []catalog.Channel) error {
	stmt, err := e.Prepare(`
		INSERT INTO channels (id, source_id, name, declared_id, logo_url, group_title, country, language, position, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			source_id = excluded.source_id,
			name = excluded.name,
			declared_id = excluded.declared_id,
			logo_url = excluded.logo_url,
			group_title = excluded.group_title,
			country = excluded.country,
			language = excluded.language,
			position = excluded.position,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare channel upsert: %w", err)
	}
	defer stmt.Close()

	for _, ch := range channels {
		_, err := stmt.Exec(ch.ID, ch.SourceID, ch.Name, ch.DeclaredID, ch.LogoURL,
			ch.Group, ch.Country, ch.Language, ch.Position, ch.CreatedAt, ch.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to upsert channel %s: %w", ch.ID, err)
		}
	}

	return nil
}

func (s *Store) queryChannels(query string, args ...any) ([]catalog.Channel, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list channels: %w", err)
	}
	defer rows.Close()

	var channels []catalog.Channel
	for rows.Next() {
		ch, err := scanChannel(rows)
		if err != nil {
			return nil, err
		}
		channels = append(channels, *ch)
	}
	return channels, rows.Err()
}

func scanChannel(r rowScanner) (*catalog.Channel, error) {
	var ch catalog.Channel
	err := r.Scan(&ch.ID, &ch.SourceID, &ch.Name, &ch.DeclaredID, &ch.LogoURL,
		&ch.Group, &ch.Country, &ch.Language, &ch.Position, &ch.CreatedAt, &ch.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan channel: %w", err)
	}
	return &ch, nil
}
