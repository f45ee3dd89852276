package database

import (
	"database/sql"
	"fmt"

	"github.com/mlevkov/iptv-catalog/app/catalog"
)

const sourceColumns = "id, name, kind, url, refresh_policy, user_agent, health_threshold, last_refresh_at, created_at, updated_at"

func (s *Store) GetSource(id string) (*catalog.Source, error) {
	row := s.db.QueryRow("SELECT "+sourceColumns+" FROM sources WHERE id = ?", id)
	return scanSource(row)
}

func (s *Store) GetSourceByURL(url string) (*catalog.Source, error) {
	row := s.db.QueryRow("SELECT "+sourceColumns+" FROM sources WHERE url = ?", url)
	return scanSource(row)
}

func (s *Store) ListSources() ([]catalog.Source, error) {
	rows, err := s.db.Query("SELECT " + sourceColumns + " FROM sources ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	defer rows.Close()

	var sources []catalog.Source
	for rows.Next() {
		src, err := scanSourceRow(rows)
		if err != nil {
			return nil, err
		}
		sources = append(sources, *src)
	}
	return sources, rows.Err()
}

// SaveSource upserts by id. The url column stays unique, so re-adding an
// existing location conflicts instead of duplicating the source.
func (s *Store) SaveSource(src *catalog.Source) error {
	return upsertSource(s.db, src)
}

func upsertSource(e execer, src *catalog.Source) error {
	_, err := e.Exec(`
		INSERT INTO sources (id, name, kind, url, refresh_policy, user_agent, health_threshold, last_refresh_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			kind = excluded.kind,
			url = excluded.url,
			refresh_policy = excluded.refresh_policy,
			user_agent = excluded.user_agent,
			health_threshold = excluded.health_threshold,
			last_refresh_at = excluded.last_refresh_at,
			updated_at = excluded.updated_at
	`, src.ID, src.Name, string(src.Kind), src.URL, string(src.RefreshPolicy),
		src.UserAgent, src.HealthThreshold, src.LastRefreshAt, src.CreatedAt, src.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save source: %w", err)
	}
	return nil
}

// DeleteSource removes the source; channels, streams, folder membership,
// flags and history cascade via foreign keys.
func (s *Store) DeleteSource(id string) error {
	if _, err := s.db.Exec("DELETE FROM sources WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete source: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSourceRow(r rowScanner) (*catalog.Source, error) {
	var src catalog.Source
	var kind, policy string
	err := r.Scan(&src.ID, &src.Name, &kind, &src.URL, &policy,
		&src.UserAgent, &src.HealthThreshold, &src.LastRefreshAt, &src.CreatedAt, &src.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan source: %w", err)
	}
	src.Kind = catalog.SourceKind(kind)
	src.RefreshPolicy = catalog.RefreshPolicy(policy)
	return &src, nil
}

func scanSource(row *sql.Row) (*catalog.Source, error) {
	src, err := scanSourceRow(row)
	if err != nil {
		if errorIsNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return src, nil
}
