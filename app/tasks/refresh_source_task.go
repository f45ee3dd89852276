package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mlevkov/iptv-catalog/app/catalog"
	"github.com/mlevkov/iptv-catalog/app/metrics"
	"github.com/mlevkov/iptv-catalog/app/sources"
)

// RefreshSourceTask re-ingests one source's playlist through the pipeline.
type RefreshSourceTask struct {
	Task
	Definition *sources.Definition
	store      catalog.Store
	pipeline   *catalog.Pipeline
}

func NewRefreshSourceTask(sourceName string, definition *sources.Definition, store catalog.Store, pipeline *catalog.Pipeline) *RefreshSourceTask {
	return &RefreshSourceTask{
		Task:       NewTask(TaskTypeRefreshSource, sourceName),
		Definition: definition,
		store:      store,
		pipeline:   pipeline,
	}
}

func (t *RefreshSourceTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if !t.Definition.Settings.Enabled {
		slog.Debug("Source disabled, skipping", "source", t.SourceName)
		return nil
	}

	location := t.Definition.URL
	if t.Definition.File != "" {
		location = t.Definition.File
	}

	src, err := t.store.GetSourceByURL(location)
	if err != nil {
		return fmt.Errorf("failed to look up source: %w", err)
	}
	if src == nil {
		return fmt.Errorf("source %s not registered yet", t.SourceName)
	}

	result, err := t.pipeline.Refresh(ctx, src.ID)
	if err != nil {
		metrics.ImportsTotal.WithLabelValues("failure").Inc()
		slog.Error("Task failed", "type", "RefreshSource", "source", t.SourceName, "error", err)
		return fmt.Errorf("failed to refresh source: %w", err)
	}

	metrics.ImportsTotal.WithLabelValues("success").Inc()
	metrics.ImportDuration.Observe(result.Duration.Seconds())
	metrics.UpdateCatalog(t.store)

	slog.Info("Task completed",
		"type", "RefreshSource",
		"source", t.SourceName,
		"added", result.ChannelsAdded,
		"updated", result.ChannelsUpdated,
		"removed", result.ChannelsRemoved,
		"duration", t.GetDuration())

	return nil
}
