package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mlevkov/iptv-catalog/app/catalog"
	"github.com/mlevkov/iptv-catalog/app/sources"
)

// SyncSourceTask registers a declarative source definition in the catalog,
// or reconciles the stored record when the definition changed. It never
// fetches playlist data; that is RefreshSourceTask's job.
type SyncSourceTask struct {
	Task
	Definition *sources.Definition
	store      catalog.Store
}

func NewSyncSourceTask(sourceName string, definition *sources.Definition, store catalog.Store) *SyncSourceTask {
	return &SyncSourceTask{
		Task:       NewTask(TaskTypeSyncSource, sourceName),
		Definition: definition,
		store:      store,
	}
}

func (t *SyncSourceTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	location := t.Definition.URL
	kind := catalog.SourceRemote
	if t.Definition.File != "" {
		location = t.Definition.File
		kind = catalog.SourceLocal
	}

	existing, err := t.store.GetSourceByURL(location)
	if err != nil {
		slog.Error("Task failed", "type", "SyncSource", "source", t.SourceName, "error", err)
		return fmt.Errorf("failed to look up source: %w", err)
	}

	now := time.Now().UTC()
	var src catalog.Source
	if existing != nil {
		src = *existing
	} else {
		src = catalog.Source{ID: uuid.NewString(), CreatedAt: now}
	}
	src.Name = t.SourceName
	src.Kind = kind
	src.URL = location
	src.RefreshPolicy = catalog.RefreshPolicy(t.Definition.Settings.RefreshPolicy)
	src.UserAgent = t.Definition.Settings.UserAgent
	src.HealthThreshold = t.Definition.Settings.HealthThreshold
	src.UpdatedAt = now

	if err := t.store.SaveSource(&src); err != nil {
		slog.Error("Task failed", "type", "SyncSource", "source", t.SourceName, "error", err)
		return fmt.Errorf("failed to sync source definition: %w", err)
	}

	slog.Info("Task completed",
		"type", "SyncSource",
		"source", t.SourceName,
		"duration", t.GetDuration())

	return nil
}
