package store_test

import (
	"sync"
	"testing"
	"time"

	"github.com/znetops/netmon/internal/status"
	"github.com/znetops/netmon/internal/store"
)

func makeSnapshot(names ...string) map[string]status.TargetStatus {
	now := time.Now().UTC()
	snap := make(map[string]status.TargetStatus, len(names))
	for _, n := range names {
		snap[n] = status.TargetStatus{
			Name:       n,
			Host:       n + ".example.com",
			Status:     status.StatusUp,
			LastChange: now,
			UpdatedAt:  now,
		}
	}
	return snap
}

func TestStateStore_ReadBeforeWrite(t *testing.T) {
	s, err := store.NewStateStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	snap, err := s.Read()
	if err != nil {
		t.Fatalf("Read on empty store: %v", err)
	}
	if len(snap) != 0 {
		t.Errorf("expected empty snapshot, got %d entries", len(snap))
	}
}

func TestStateStore_WriteThenRead(t *testing.T) {
	s, err := store.NewStateStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	want := makeSnapshot("dns", "gateway")
	if err := s.Write(want); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := s.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if got["dns"].Host != "dns.example.com" {
		t.Errorf("unexpected host: %q", got["dns"].Host)
	}
	if got["dns"].Status != status.StatusUp {
		t.Errorf("unexpected status: %q", got["dns"].Status)
	}
}

func TestStateStore_WriteReplacesWholeSnapshot(t *testing.T) {
	s, err := store.NewStateStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Write(makeSnapshot("dns", "gateway")); err != nil {
		t.Fatal(err)
	}
	if err := s.Write(makeSnapshot("dns")); err != nil {
		t.Fatal(err)
	}

	got, err := s.Read()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Errorf("snapshot must be replaced wholesale, got %d entries", len(got))
	}
	if _, ok := got["gateway"]; ok {
		t.Error("stale entry survived a full rewrite")
	}
}

// Concurrent readers must always observe a complete snapshot of one write or
// another, never a mix.
func TestStateStore_ConcurrentReadersSeeFullSnapshots(t *testing.T) {
	s, err := store.NewStateStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Write(makeSnapshot("a", "b")); err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			var snap map[string]status.TargetStatus
			if i%2 == 0 {
				snap = makeSnapshot("a", "b")
			} else {
				snap = makeSnapshot("c", "d", "e")
			}
			if err := s.Write(snap); err != nil {
				t.Errorf("Write: %v", err)
				return
			}
		}
		close(done)
	}()

	for {
		select {
		case <-done:
			wg.Wait()
			return
		default:
		}
		snap, err := s.Read()
		if err != nil {
			t.Fatalf("Read during writes: %v", err)
		}
		if n := len(snap); n != 2 && n != 3 {
			t.Fatalf("observed partial snapshot with %d entries", n)
		}
	}
}

func makeEvent(name string, at time.Time, from, to status.Status) status.AlertEvent {
	return status.AlertEvent{
		Name:      name,
		Host:      name + ".example.com",
		Timestamp: at,
		From:      from,
		To:        to,
	}
}

func TestAlertLog_RecentOnEmptyLog(t *testing.T) {
	l, err := store.NewAlertLog(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	events, err := l.Recent(10)
	if err != nil {
		t.Fatalf("Recent on empty log: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("expected no events, got %d", len(events))
	}
}

func TestAlertLog_AppendAndRecent(t *testing.T) {
	l, err := store.NewAlertLog(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	now := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < 5; i++ {
		ev := makeEvent("dns", now.Add(time.Duration(i)*time.Second), status.StatusUp, status.StatusDegraded)
		if err := l.Append(ev); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	events, err := l.Recent(3)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	// Chronological order: the last returned event is the newest append.
	if !events[2].Timestamp.Equal(now.Add(4 * time.Second)) {
		t.Errorf("expected newest event last, got %v", events[2].Timestamp)
	}
	if !events[0].Timestamp.Before(events[1].Timestamp) {
		t.Error("events not in chronological order")
	}
}

func TestAlertLog_RecentZeroReturnsAll(t *testing.T) {
	l, err := store.NewAlertLog(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	now := time.Now().UTC()
	for i := 0; i < 4; i++ {
		if err := l.Append(makeEvent("gw", now, status.StatusDegraded, status.StatusDown)); err != nil {
			t.Fatal(err)
		}
	}
	events, err := l.Recent(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 4 {
		t.Errorf("expected all 4 events, got %d", len(events))
	}
}

func TestStateStoreAndAlertLog_ShareDataDir(t *testing.T) {
	dir := t.TempDir()
	s, err := store.NewStateStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	l, err := store.NewAlertLog(dir)
	if err != nil {
		t.Fatal(err)
	}
	if s.Path() == l.Path() {
		t.Error("state and alert files must not collide")
	}
}
