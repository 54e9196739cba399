package internal_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/znetops/netmon/internal/config"
	"github.com/znetops/netmon/internal/engine"
	"github.com/znetops/netmon/internal/history"
	"github.com/znetops/netmon/internal/server"
	"github.com/znetops/netmon/internal/status"
	"github.com/znetops/netmon/internal/store"
)

// TestIntegration_FullFlow verifies the complete pipeline:
// config → engine → probe → stores → API
func TestIntegration_FullFlow(t *testing.T) {
	// 1. Start a fake HTTP target.
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer target.Close()

	host, port := hostPort(t, target.URL)

	// 2. Parse a real config pointing at it.
	cfg, err := config.Parse([]byte(`
targets:
  - name: test-api
    host: ` + host + `
    probe: http
    port: ` + port + `
`))
	if err != nil {
		t.Fatalf("parsing config: %v", err)
	}

	// 3. Durable stores in a temp dir, history in memory.
	dir := t.TempDir()
	state, err := store.NewStateStore(dir)
	if err != nil {
		t.Fatalf("opening state store: %v", err)
	}
	alerts, err := store.NewAlertLog(dir)
	if err != nil {
		t.Fatalf("opening alert log: %v", err)
	}
	hist, err := history.Open(":memory:")
	if err != nil {
		t.Fatalf("opening history: %v", err)
	}
	defer hist.Close()

	// 4. Build the engine and run one cycle synchronously.
	eng, err := engine.New(nil, engine.Options{
		Registry:    cfg.Targets,
		Thresholds:  status.Thresholds{DownFailures: 2, DegradedLatency: 5 * time.Second},
		Interval:    cfg.Interval.Duration,
		Concurrency: cfg.Concurrency,
		State:       state,
		Alerts:      alerts,
		History:     hist,
	})
	if err != nil {
		t.Fatalf("building engine: %v", err)
	}
	eng.RunCycle(context.Background())

	// 5. The snapshot on disk reflects the probe.
	snapshot, err := state.Read()
	if err != nil {
		t.Fatalf("reading snapshot: %v", err)
	}
	ts, ok := snapshot["test-api"]
	if !ok {
		t.Fatal("expected test-api in persisted snapshot")
	}
	if ts.Status != status.StatusUp {
		t.Errorf("expected UP, got %q", ts.Status)
	}
	if ts.LastSeen == nil {
		t.Error("expected last_seen to be set after a successful probe")
	}

	// 6. The probe landed in history.
	rec, err := hist.Latest(context.Background(), "test-api")
	if err != nil {
		t.Fatalf("reading latest history record: %v", err)
	}
	if rec == nil || !rec.Success {
		t.Errorf("expected successful history record, got %+v", rec)
	}

	// 7. API serves the persisted state.
	apiServer := server.New(state, alerts, hist, cfg.Targets, nil)

	t.Run("health endpoint", func(t *testing.T) {
		w := httptest.NewRecorder()
		apiServer.Router().ServeHTTP(w, httptest.NewRequest("GET", "/api/health", nil))

		if w.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", w.Code)
		}
	})

	t.Run("status endpoint", func(t *testing.T) {
		w := httptest.NewRecorder()
		apiServer.Router().ServeHTTP(w, httptest.NewRequest("GET", "/api/status", nil))

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d; body: %s", w.Code, w.Body.String())
		}

		var resp struct {
			OK   bool                           `json:"ok"`
			Data map[string]status.TargetStatus `json:"data"`
		}
		json.NewDecoder(w.Body).Decode(&resp)
		if !resp.OK {
			t.Error("expected ok=true")
		}
		if got := resp.Data["test-api"].Status; got != status.StatusUp {
			t.Errorf("expected test-api UP via API, got %q", got)
		}
	})

	t.Run("list targets", func(t *testing.T) {
		w := httptest.NewRecorder()
		apiServer.Router().ServeHTTP(w, httptest.NewRequest("GET", "/api/targets", nil))

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d; body: %s", w.Code, w.Body.String())
		}

		var resp struct {
			Data []struct {
				Name   string `json:"name"`
				Status string `json:"status"`
			} `json:"data"`
		}
		json.NewDecoder(w.Body).Decode(&resp)
		if len(resp.Data) != 1 {
			t.Fatalf("expected 1 target, got %d", len(resp.Data))
		}
		if resp.Data[0].Name != "test-api" || resp.Data[0].Status != "UP" {
			t.Errorf("unexpected target row: %+v", resp.Data[0])
		}
	})

	t.Run("target history", func(t *testing.T) {
		w := httptest.NewRecorder()
		apiServer.Router().ServeHTTP(w, httptest.NewRequest("GET", "/api/targets/test-api/history", nil))

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d; body: %s", w.Code, w.Body.String())
		}

		var resp struct {
			Data struct {
				Total  int           `json:"total"`
				Probes []interface{} `json:"probes"`
			} `json:"data"`
		}
		json.NewDecoder(w.Body).Decode(&resp)
		if resp.Data.Total < 1 {
			t.Errorf("expected at least 1 probe in history, got %d", resp.Data.Total)
		}
	})

	t.Run("target detail", func(t *testing.T) {
		w := httptest.NewRecorder()
		apiServer.Router().ServeHTTP(w, httptest.NewRequest("GET", "/api/targets/test-api", nil))

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d; body: %s", w.Code, w.Body.String())
		}

		var resp struct {
			Data struct {
				Name      string `json:"name"`
				Status    string `json:"status"`
				LastProbe *struct {
					Success bool `json:"success"`
				} `json:"last_probe"`
			} `json:"data"`
		}
		json.NewDecoder(w.Body).Decode(&resp)
		if resp.Data.Name != "test-api" || resp.Data.Status != "UP" {
			t.Errorf("unexpected detail: %+v", resp.Data)
		}
		if resp.Data.LastProbe == nil || !resp.Data.LastProbe.Success {
			t.Errorf("expected successful last probe in detail, got %+v", resp.Data.LastProbe)
		}
	})

	t.Run("alerts empty on healthy start", func(t *testing.T) {
		// Seed→UP is not a transition, so the first successful cycle
		// must not write an alert.
		w := httptest.NewRecorder()
		apiServer.Router().ServeHTTP(w, httptest.NewRequest("GET", "/api/alerts", nil))

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d; body: %s", w.Code, w.Body.String())
		}

		var resp struct {
			Data []status.AlertEvent `json:"data"`
		}
		json.NewDecoder(w.Body).Decode(&resp)
		if len(resp.Data) != 0 {
			t.Errorf("expected no alerts, got %d", len(resp.Data))
		}
	})

	// 8. Kill the target; two more cycles push it DEGRADED then DOWN and
	// append the transitions to the alert log.
	target.Close()
	eng.RunCycle(context.Background())
	eng.RunCycle(context.Background())

	snapshot, err = state.Read()
	if err != nil {
		t.Fatalf("re-reading snapshot: %v", err)
	}
	if got := snapshot["test-api"].Status; got != status.StatusDown {
		t.Errorf("expected DOWN after two failed cycles, got %q", got)
	}

	events, err := alerts.Recent(0)
	if err != nil {
		t.Fatalf("reading alert log: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 transition events, got %d", len(events))
	}
	if events[0].To != status.StatusDegraded || events[1].To != status.StatusDown {
		t.Errorf("unexpected transition sequence: %+v", events)
	}
}

func hostPort(t *testing.T, rawURL string) (string, string) {
	t.Helper()
	trimmed := rawURL[len("http://"):]
	for i := len(trimmed) - 1; i >= 0; i-- {
		if trimmed[i] == ':' {
			return trimmed[:i], trimmed[i+1:]
		}
	}
	t.Fatalf("no port in %q", rawURL)
	return "", ""
}
