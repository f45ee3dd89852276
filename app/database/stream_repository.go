package database

import (
	"fmt"
	"time"

	"github.com/mlevkov/iptv-catalog/app/catalog"
)

const streamColumns = "id, channel_id, url, priority, health, failure_count, last_check_at, user_agent, referrer"

func (s *Store) ListStreams(channelID string) ([]catalog.MediaStream, error) {
	return s.queryStreams("SELECT "+streamColumns+" FROM streams WHERE channel_id = ? ORDER BY priority", channelID)
}

func (s *Store) ListAllStreams() ([]catalog.MediaStream, error) {
	return s.queryStreams("SELECT " + streamColumns + " FROM streams ORDER BY channel_id, priority")
}

// SaveStreams upserts by (channel_id, url). A refresh rewrites priority and
// request overrides but leaves accumulated health columns alone, so probe
// state survives re-ingesting the same URL.
func (s *Store) SaveStreams(streams []catalog.MediaStream) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := upsertStreams(tx, streams); err != nil {
		return err
	}
	return tx.Commit()
}

func upsertStreams(e execer, streams []catalog.MediaStream) error {
	stmt, err := e.Prepare(`
		INSERT INTO streams (id, channel_id, url, priority, health, failure_count, last_check_at, user_agent, referrer)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(channel_id, url) DO UPDATE SET
			priority = excluded.priority,
			user_agent = excluded.user_agent,
			referrer = excluded.referrer
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare stream upsert: %w", err)
	}
	defer stmt.Close()

	for _, st := range streams {
		_, err := stmt.Exec(st.ID, st.ChannelID, st.URL, st.Priority, string(st.Health),
			st.FailureCount, st.LastCheckAt, st.UserAgent, st.Referrer)
		if err != nil {
			return fmt.Errorf("failed to upsert stream %s: %w", st.URL, err)
		}
	}

	return nil
}

func (s *Store) UpdateStreamHealth(streamID string, health catalog.HealthStatus, failureCount int, checkedAt time.Time) error {
	_, err := s.db.Exec(`
		UPDATE streams SET health = ?, failure_count = ?, last_check_at = ?
		WHERE id = ?
	`, string(health), failureCount, checkedAt, streamID)
	if err != nil {
		return fmt.Errorf("failed to update stream health: %w", err)
	}
	return nil
}

func (s *Store) queryStreams(query string, args ...any) ([]catalog.MediaStream, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list streams: %w", err)
	}
	defer rows.Close()

	var streams []catalog.MediaStream
	for rows.Next() {
		var st catalog.MediaStream
		var health string
		err := rows.Scan(&st.ID, &st.ChannelID, &st.URL, &st.Priority, &health,
			&st.FailureCount, &st.LastCheckAt, &st.UserAgent, &st.Referrer)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stream: %w", err)
		}
		st.Health = catalog.HealthStatus(health)
		streams = append(streams, st)
	}
	return streams, rows.Err()
}
