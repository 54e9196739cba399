// Package engine drives the monitoring loop: every interval it probes all
// targets concurrently, classifies each outcome against the target's prior
// status, persists the full status table atomically, and appends one alert
// per detected transition.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/znetops/netmon/internal/config"
	"github.com/znetops/netmon/internal/notify"
	"github.com/znetops/netmon/internal/probe"
	"github.com/znetops/netmon/internal/status"
)

// StateStore persists the full status table.
type StateStore interface {
	Write(snapshot map[string]status.TargetStatus) error
	Read() (map[string]status.TargetStatus, error)
}

// AlertLog appends transition events durably.
type AlertLog interface {
	Append(ev status.AlertEvent) error
}

// History records individual probe outcomes. May be nil.
type History interface {
	Insert(ctx context.Context, out probe.Outcome) error
}

// ProberFactory creates a Prober for a given target.
type ProberFactory func(config.Target) (probe.Prober, error)

// Engine owns the in-memory status table and is the sole writer of the
// state store and alert log.
type Engine struct {
	logger      *zap.Logger
	registry    []config.Target
	probers     []probe.Prober
	thresholds  status.Thresholds
	interval    time.Duration
	concurrency int

	state    StateStore
	alerts   AlertLog
	history  History
	notifier notify.Notifier

	states map[string]status.TargetStatus
	// pending holds alert events whose append failed; they are retried, in
	// order, before the next cycle's events.
	pending []status.AlertEvent
}

// Options carries the engine's collaborators and tuning.
type Options struct {
	Registry    []config.Target
	Thresholds  status.Thresholds
	Interval    time.Duration
	Concurrency int
	Factory     ProberFactory
	State       StateStore
	Alerts      AlertLog
	History     History
	Notifier    notify.Notifier
}

// New builds an engine over the given registry. The registry order is
// preserved: alerts within a cycle are appended in declaration order.
func New(logger *zap.Logger, opts Options) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(opts.Registry) == 0 {
		return nil, fmt.Errorf("registry is empty")
	}
	if opts.Factory == nil {
		opts.Factory = probe.New
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}

	probers := make([]probe.Prober, len(opts.Registry))
	for i, tgt := range opts.Registry {
		p, err := opts.Factory(tgt)
		if err != nil {
			return nil, fmt.Errorf("target %q: %w", tgt.Name, err)
		}
		probers[i] = p
	}

	return &Engine{
		logger:      logger,
		registry:    opts.Registry,
		probers:     probers,
		thresholds:  opts.Thresholds,
		interval:    opts.Interval,
		concurrency: opts.Concurrency,
		state:       opts.State,
		alerts:      opts.Alerts,
		history:     opts.History,
		notifier:    opts.Notifier,
		states:      make(map[string]status.TargetStatus, len(opts.Registry)),
	}, nil
}

// Hydrate seeds the in-memory table from the last persisted snapshot so
// failure streaks survive a restart. Entries for targets no longer in the
// registry are dropped.
func (e *Engine) Hydrate() error {
	snapshot, err := e.state.Read()
	if err != nil {
		return fmt.Errorf("hydrating from snapshot: %w", err)
	}
	for _, tgt := range e.registry {
		if st, ok := snapshot[tgt.Name]; ok {
			e.states[tgt.Name] = st
		}
	}
	if len(e.states) > 0 {
		e.logger.Info("hydrated_state", zap.Int("targets", len(e.states)))
	}
	return nil
}

// Run executes one cycle immediately, then one per interval until the
// context is cancelled. An in-flight cycle completes before Run returns.
func (e *Engine) Run(ctx context.Context) {
	e.logger.Info("engine_started",
		zap.Int("targets", len(e.registry)),
		zap.Duration("interval", e.interval),
		zap.Int("concurrency", e.concurrency),
	)

	e.RunCycle(ctx)

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("engine_stopped")
			return
		case <-ticker.C:
			e.RunCycle(ctx)
		}
	}
}

// RunCycle performs one probe-classify-persist pass over all targets.
func (e *Engine) RunCycle(ctx context.Context) {
	outcomes := e.probeAll(ctx)

	// Classification is sequential in registry order so the resulting alert
	// sequence is deterministic.
	next := make(map[string]status.TargetStatus, len(e.registry))
	var events []status.AlertEvent
	for i, tgt := range e.registry {
		out := outcomes[i]

		prior, known := e.states[tgt.Name]
		if !known {
			prior = status.Seed(tgt.Name, tgt.Host, out.Timestamp)
		}

		st := status.Classify(prior, out, e.thresholds)
		next[tgt.Name] = st

		if ev, changed := status.Changed(prior, st, out.Timestamp); changed {
			events = append(events, ev)
			e.logger.Info("status_change",
				zap.String("target", tgt.Name),
				zap.String("host", tgt.Host),
				zap.String("from", string(ev.From)),
				zap.String("to", string(ev.To)),
				zap.Int("failures", st.Failures),
			)
		}

		if e.history != nil {
			if err := e.history.Insert(ctx, out); err != nil {
				e.logger.Warn("history_insert_error", zap.String("target", tgt.Name), zap.Error(err))
			}
		}
	}

	e.states = next

	if err := e.state.Write(next); err != nil {
		// The prior persisted snapshot stays authoritative; the next cycle
		// writes a fresh full table anyway.
		e.logger.Error("state_persist_error", zap.Error(err))
	}

	e.pending = append(e.pending, events...)
	e.flushAlerts()

	if e.notifier != nil {
		for _, ev := range events {
			ev := ev
			go func() {
				if err := e.notifier.Send(ctx, ev); err != nil {
					e.logger.Warn("notify_error", zap.String("target", ev.Name), zap.Error(err))
				}
			}()
		}
	}
}

// probeAll fans out one probe per target, bounded by the concurrency limit,
// and blocks until every probe has resolved. A panicking prober is contained
// to its own target and reported as a failure outcome.
func (e *Engine) probeAll(ctx context.Context) []probe.Outcome {
	outcomes := make([]probe.Outcome, len(e.registry))
	sem := make(chan struct{}, e.concurrency)
	var wg sync.WaitGroup

	for i, tgt := range e.registry {
		i, tgt := i, tgt
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer func() { <-sem }()
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					outcomes[i] = probe.Outcome{
						Name:      tgt.Name,
						Host:      tgt.Host,
						Timestamp: time.Now(),
						Reason:    fmt.Sprintf("probe panic: %v", r),
					}
					e.logger.Error("probe_panic", zap.String("target", tgt.Name), zap.Any("panic", r))
				}
			}()

			pctx, cancel := context.WithTimeout(ctx, tgt.Timeout.Duration)
			defer cancel()
			outcomes[i] = e.probers[i].Probe(pctx)
		}()
	}

	wg.Wait()
	return outcomes
}

// flushAlerts appends pending events in order. On the first failure the
// remainder stays queued for the next cycle, preserving chronology.
func (e *Engine) flushAlerts() {
	for len(e.pending) > 0 {
		ev := e.pending[0]
		if err := e.alerts.Append(ev); err != nil {
			e.logger.Error("alert_append_error",
				zap.String("target", ev.Name),
				zap.Int("queued", len(e.pending)),
				zap.Error(err),
			)
			return
		}
		e.pending = e.pending[1:]
	}
}
