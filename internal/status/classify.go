package status

import (
	"time"

	"github.com/znetops/netmon/internal/probe"
)

// Thresholds controls when a target is considered degraded or down.
type Thresholds struct {
	// DownFailures is the number of consecutive failures before a target
	// goes DOWN. Fewer failures leave it DEGRADED, which damps flapping.
	DownFailures int
	// DegradedLatency is the round-trip time above which a reachable
	// target is reported DEGRADED.
	DegradedLatency time.Duration
}

// Seed returns the initial record for a target that has never been observed.
// It starts UP with zero failures so the first real outcome can still
// produce a legitimate transition.
func Seed(name, host string, now time.Time) TargetStatus {
	return TargetStatus{
		Name:       name,
		Host:       host,
		Status:     StatusUp,
		LastChange: now,
		UpdatedAt:  now,
	}
}

// Classify folds one probe outcome into a target's prior status and returns
// the new status. It is a pure function: same inputs, same result.
func Classify(prior TargetStatus, outcome probe.Outcome, th Thresholds) TargetStatus {
	next := prior
	next.UpdatedAt = outcome.Timestamp

	if outcome.Success {
		ms := outcome.Latency.Milliseconds()
		ts := outcome.Timestamp
		next.Failures = 0
		next.LastLatencyMS = &ms
		next.LastSeen = &ts
		if outcome.Latency <= th.DegradedLatency {
			next.Status = StatusUp
		} else {
			next.Status = StatusDegraded
		}
	} else {
		next.Failures = prior.Failures + 1
		if next.Failures >= th.DownFailures {
			next.Status = StatusDown
		} else {
			next.Status = StatusDegraded
		}
	}

	if next.Status != prior.Status {
		next.LastChange = outcome.Timestamp
	}
	return next
}

// Changed reports whether an outcome moved a target to a different tier, and
// if so returns the transition event to append to the alert log.
func Changed(prior, next TargetStatus, at time.Time) (AlertEvent, bool) {
	if next.Status == prior.Status {
		return AlertEvent{}, false
	}
	return AlertEvent{
		Name:      next.Name,
		Host:      next.Host,
		Timestamp: at,
		From:      prior.Status,
		To:        next.Status,
	}, true
}
