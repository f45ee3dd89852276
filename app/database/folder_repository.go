package database

import (
	"fmt"

	"github.com/mlevkov/iptv-catalog/app/catalog"
)

const folderColumns = "id, name, kind, position, rules, icon, created_at, updated_at"

func (s *Store) GetFolder(id string) (*catalog.Folder, error) {
	row := s.db.QueryRow("SELECT "+folderColumns+" FROM folders WHERE id = ?", id)
	f, err := scanFolder(row)
	if err != nil {
		if errorIsNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return f, nil
}

func (s *Store) ListFolders() ([]catalog.Folder, error) {
	rows, err := s.db.Query("SELECT " + folderColumns + " FROM folders ORDER BY position, created_at")
	if err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}
	defer rows.Close()

	var folders []catalog.Folder
	for rows.Next() {
		f, err := scanFolder(rows)
		if err != nil {
			return nil, err
		}
		folders = append(folders, *f)
	}
	return folders, rows.Err()
}

func (s *Store) SaveFolder(f *catalog.Folder) error {
	_, err := s.db.Exec(`
		INSERT INTO folders (id, name, kind, position, rules, icon, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			kind = excluded.kind,
			position = excluded.position,
			rules = excluded.rules,
			icon = excluded.icon,
			updated_at = excluded.updated_at
	`, f.ID, f.Name, string(f.Kind), f.Position, f.Rules, f.Icon, f.CreatedAt, f.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save folder: %w", err)
	}
	return nil
}

func (s *Store) DeleteFolder(id string) error {
	if _, err := s.db.Exec("DELETE FROM folders WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete folder: %w", err)
	}
	return nil
}

func (s *Store) ListFolderItems(folderID string) ([]catalog.FolderItem, error) {
	rows, err := s.db.Query(`
		SELECT folder_id, channel_id, position FROM folder_items
		WHERE folder_id = ? ORDER BY position
	`, folderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list folder items: %w", err)
	}
	defer rows.Close()

	var items []catalog.FolderItem
	for rows.Next() {
		var item catalog.FolderItem
		if err := rows.Scan(&item.FolderID, &item.ChannelID, &item.Position); err != nil {
			return nil, fmt.Errorf("failed to scan folder item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *Store) AddFolderItem(item catalog.FolderItem) error {
	_, err := s.db.Exec(`
		INSERT INTO folder_items (folder_id, channel_id, position)
		VALUES (?, ?, ?)
		ON CONFLICT(folder_id, channel_id) DO UPDATE SET position = excluded.position
	`, item.FolderID, item.ChannelID, item.Position)
	if err != nil {
		return fmt.Errorf("failed to add folder item: %w", err)
	}
	return nil
}

func (s *Store) RemoveFolderItem(folderID, channelID string) error {
	_, err := s.db.Exec("DELETE FROM folder_items WHERE folder_id = ? AND channel_id = ?", folderID, channelID)
	if err != nil {
		return fmt.Errorf("failed to remove folder item: %w", err)
	}
	return nil
}

func scanFolder(r rowScanner) (*catalog.Folder, error) {
	var f catalog.Folder
	var kind string
	err := r.Scan(&f.ID, &f.Name, &kind, &f.Position, &f.Rules, &f.Icon, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan folder: %w", err)
	}
	f.Kind = catalog.FolderKind(kind)
	return &f, nil
}
