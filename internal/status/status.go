package status

import "time"

// Status is the health tier of a monitored target.
type Status string

const (
	StatusUp       Status = "UP"
	StatusDegraded Status = "DEGRADED"
	StatusDown     Status = "DOWN"
)

// TargetStatus is the current health record for one target. The engine owns
// the table of these during a cycle; everything else reads persisted copies.
type TargetStatus struct {
	Name          string     `json:"name"`
	Host          string     `json:"host"`
	Status        Status     `json:"status"`
	LastLatencyMS *int64     `json:"last_latency_ms"`
	Failures      int        `json:"failures"`
	LastSeen      *time.Time `json:"last_seen"`
	LastChange    time.Time  `json:"last_status_change"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// AlertEvent records a single status transition. Events are immutable once
// written to the alert log.
type AlertEvent struct {
	Name      string    `json:"name"`
	Host      string    `json:"host"`
	Timestamp time.Time `json:"ts"`
	From      Status    `json:"from"`
	To        Status    `json:"to"`
}
