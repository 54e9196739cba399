package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/znetops/netmon/internal/status"
)

const alertFile = "alerts.jsonl"

// AlertLog is an append-only record of status transitions, one JSON object
// per line in chronological order. Entries are never mutated or removed;
// retention is left to the operator.
type AlertLog struct {
	path string
}

// NewAlertLog creates the data directory if needed and returns a log rooted
// there.
func NewAlertLog(dir string) (*AlertLog, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir %q: %w", dir, err)
	}
	return &AlertLog{path: filepath.Join(dir, alertFile)}, nil
}

// Path returns the log file location.
func (l *AlertLog) Path() string {
	return l.path
}

// Append durably writes one event to the end of the log. The record is
// fsynced before Append returns.
func (l *AlertLog) Append(ev status.AlertEvent) error {
	line, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encoding alert: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening alert log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("appending alert: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("syncing alert log: %w", err)
	}
	return nil
}

// Recent returns the most recent n events in chronological order. A missing
// log yields an empty slice. Malformed lines (e.g. a partial trailing write
// observed mid-append) are skipped.
func (l *AlertLog) Recent(n int) ([]status.AlertEvent, error) {
	f, err := os.Open(l.path)
	if os.IsNotExist(err) {
		return []status.AlertEvent{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening alert log: %w", err)
	}
	defer f.Close()

	var events []status.AlertEvent
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		var ev status.AlertEvent
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			continue
		}
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading alert log: %w", err)
	}

	if n > 0 && len(events) > n {
		events = events[len(events)-n:]
	}
	return events, nil
}
