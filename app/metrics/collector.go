package metrics

import (
	"log/slog"

	"github.com/mlevkov/iptv-catalog/app/catalog"
)

// UpdateCatalog recomputes the catalog population gauges. Called after
// import passes and health-check runs rather than on scrape, so a scrape
// never touches storage.
func UpdateCatalog(store catalog.Store) {
	channels, err := store.ListChannels()
	if err != nil {
		slog.Warn("Failed to update channel metrics", "error", err)
		return
	}
	ChannelsTotal.Set(float64(len(channels)))

	streams, err := store.ListAllStreams()
	if err != nil {
		slog.Warn("Failed to update stream metrics", "error", err)
		return
	}

	counts := make(map[catalog.HealthStatus]int)
	for _, s := range streams {
		health := s.Health
		if health == "" {
			health = catalog.HealthUnknown
		}
		counts[health]++
	}
	for _, health := range []catalog.HealthStatus{catalog.HealthUnknown, catalog.HealthOK, catalog.HealthFlaky, catalog.HealthDead} {
		StreamsByHealth.WithLabelValues(string(health)).Set(float64(counts[health]))
	}
}
