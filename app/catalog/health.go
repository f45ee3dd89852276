package catalog

import (
	"time"
)

// DefaultHealthThreshold is the consecutive-failure count at which a stream
// escalates from flaky to dead.
const DefaultHealthThreshold = 3

// ApplyCheckResult folds one health-check outcome into a stream record. Any
// success resets the stream to ok with a zero failure count; failures
// escalate to flaky below the threshold and dead at or above it.
func ApplyCheckResult(s *MediaStream, healthy bool, threshold int, checkedAt time.Time) {
	if threshold <= 0 {
		threshold = DefaultHealthThreshold
	}

	if healthy {
		s.Health = HealthOK
		s.FailureCount = 0
	} else {
		s.FailureCount++
		if s.FailureCount >= threshold {
			s.Health = HealthDead
		} else {
			s.Health = HealthFlaky
		}
	}

	t := checkedAt
	s.LastCheckAt = &t
}

// AggregateHealth reports a channel's best status across its streams:
// ok > unknown > flaky > dead. A channel with one healthy mirror is a
// healthy channel.
func AggregateHealth(streams []MediaStream) HealthStatus {
	if len(streams) == 0 {
		return HealthUnknown
	}

	best := HealthDead
	for _, s := range streams {
		switch s.Health {
		case HealthOK:
			return HealthOK
		case HealthUnknown, "":
			best = HealthUnknown
		case HealthFlaky:
			if best != HealthUnknown {
				best = HealthFlaky
			}
		}
	}
	return best
}
