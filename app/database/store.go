package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/mlevkov/iptv-catalog/app/catalog"
)

// Store implements catalog.Store on SQLite. Methods live in the per-entity
// repository files alongside.
type Store struct {
	db *DB
}

var _ catalog.Store = (*Store)(nil)

// NewStore creates the durable catalog store
func NewStore(db *DB) *Store {
	return &Store{db: db}
}

func errorIsNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// execer is satisfied by both *sql.DB and *sql.Tx, so the per-entity upsert
// helpers can run standalone or inside a shared transaction.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
	Prepare(query string) (*sql.Stmt, error)
}

// SaveImport persists one ingestion pass in a single transaction: the
// source record, its channel batch, and the stream batch commit together,
// so a reader can never observe channels whose streams are not yet written.
func (s *Store) SaveImport(source *catalog.Source, channels []catalog.Channel, streams []catalog.MediaStream) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := upsertSource(tx, source); err != nil {
		return err
	}
	if err := upsertChannels(tx, channels); err != nil {
		return err
	}
	if err := upsertStreams(tx, streams); err != nil {
		return err
	}
	return tx.Commit()
}
