package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mlevkov/iptv-catalog/app/catalog"
	"github.com/mlevkov/iptv-catalog/app/healthcheck"
	"github.com/mlevkov/iptv-catalog/app/metrics"
)

// HealthCheckTask probes every stream in the catalog once.
type HealthCheckTask struct {
	Task
	prober *healthcheck.Prober
	store  catalog.Store
}

func NewHealthCheckTask(prober *healthcheck.Prober, store catalog.Store) *HealthCheckTask {
	return &HealthCheckTask{
		Task:   NewTask(TaskTypeHealthCheck, ""),
		prober: prober,
		store:  store,
	}
}

func (t *HealthCheckTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if err := t.prober.Run(ctx); err != nil {
		slog.Error("Task failed", "type", "HealthCheck", "error", err)
		return fmt.Errorf("failed to run health check: %w", err)
	}

	metrics.UpdateCatalog(t.store)

	slog.Info("Task completed",
		"type", "HealthCheck",
		"duration", t.GetDuration())

	return nil
}
