package presence

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"examwatch/models"
	"examwatch/translog"
)

// memSink collects appended records for assertions.
type memSink struct {
	mu      sync.Mutex
	records []translog.Record
}

func (s *memSink) Append(r translog.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, r)
	return nil
}

func (s *memSink) all() []translog.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]translog.Record, len(s.records))
	copy(out, s.records)
	return out
}

// newTestRegistry pins the registry clock to a controllable time.
func newTestRegistry(timeout time.Duration) (*Registry, *memSink, *time.Time) {
	sink := &memSink{}
	r := NewRegistry(timeout, sink)
	now := time.Date(2026, 6, 15, 9, 0, 0, 0, time.Local)
	r.now = func() time.Time { return now }
	return r, sink, &now
}

func TestRegister_LogsOnlineOnce(t *testing.T) {
	r, sink, _ := newTestRegistry(5 * time.Second)

	r.Register("42 - Jane Doe")
	r.Register("42 - Jane Doe")

	recs := sink.all()
	if len(recs) != 1 {
		t.Fatalf("expected 1 record after double register, got %d", len(recs))
	}
	if recs[0].Identity != "42 - Jane Doe" || !recs[0].Online {
		t.Errorf("unexpected record: %+v", recs[0])
	}
}

func TestHeartbeat_NeverLogs(t *testing.T) {
	r, sink, now := newTestRegistry(5 * time.Second)

	r.Register("a")
	for i := 0; i < 10; i++ {
		*now = now.Add(time.Second)
		if err := r.Heartbeat("a"); err != nil {
			t.Fatalf("heartbeat: %v", err)
		}
	}

	if got := len(sink.all()); got != 1 {
		t.Fatalf("heartbeats while online must not log, got %d records", got)
	}
}

func TestHeartbeat_UnknownIdentity(t *testing.T) {
	r, sink, _ := newTestRegistry(5 * time.Second)

	if err := r.Heartbeat("ghost"); err != models.ErrUnknownIdentity {
		t.Fatalf("expected ErrUnknownIdentity, got %v", err)
	}
	if len(sink.all()) != 0 {
		t.Error("unknown heartbeat must not log")
	}
	if len(r.Snapshot()) != 0 {
		t.Error("unknown heartbeat must not create an entry")
	}
}

func TestForceOffline_Idempotent(t *testing.T) {
	r, sink, _ := newTestRegistry(5 * time.Second)

	r.Register("a")
	r.ForceOffline("a")
	r.ForceOffline("a")

	recs := sink.all()
	if len(recs) != 2 {
		t.Fatalf("expected ONLINE+OFFLINE, got %d records", len(recs))
	}
	if recs[1].Online {
		t.Error("second record should be OFFLINE")
	}
}

func TestForceOffline_UnknownIdentityIsNoop(t *testing.T) {
	r, sink, _ := newTestRegistry(5 * time.Second)

	r.ForceOffline("ghost")

	if len(sink.all()) != 0 {
		t.Error("forcing an unknown identity offline must not log")
	}
}

// The forced rewind must make the very next evaluation offline no
// matter when it runs, without waiting for the timeout to elapse.
func TestForceOffline_TimeoutIndependent(t *testing.T) {
	for _, timeout := range []time.Duration{0, time.Second, 20 * time.Second} {
		r, _, now := newTestRegistry(timeout)

		r.Register("a")
		r.ForceOffline("a")

		if changed := r.EvaluateTransitions(*now); len(changed) != 0 {
			t.Errorf("timeout %v: evaluation right after ForceOffline should see the cached offline, got %v", timeout, changed)
		}
		for _, e := range r.Snapshot() {
			if e.Online {
				t.Errorf("timeout %v: snapshot must report offline immediately after ForceOffline", timeout)
			}
		}
	}
}

func TestEvaluateTransitions_TimeoutExpiry(t *testing.T) {
	r, sink, now := newTestRegistry(5 * time.Second)

	r.Register("a")
	r.Register("b")

	// Within the window: nothing changes.
	if changed := r.EvaluateTransitions(now.Add(4 * time.Second)); len(changed) != 0 {
		t.Fatalf("no transition expected within timeout, got %v", changed)
	}

	// Past the window: both go offline, once.
	changed := r.EvaluateTransitions(now.Add(6 * time.Second))
	if len(changed) != 2 {
		t.Fatalf("expected 2 offline transitions, got %v", changed)
	}
	for _, tr := range changed {
		if tr.Online {
			t.Errorf("expected offline transition for %s", tr.Identity)
		}
	}

	// A second evaluation at the same point logs nothing new.
	if changed := r.EvaluateTransitions(now.Add(7 * time.Second)); len(changed) != 0 {
		t.Fatalf("repeated evaluation must be edge-triggered, got %v", changed)
	}

	if got := len(sink.all()); got != 4 {
		t.Errorf("expected 2 ONLINE + 2 OFFLINE records, got %d", got)
	}
}

func TestEvaluateTransitions_RecoveryAfterHeartbeat(t *testing.T) {
	r, sink, now := newTestRegistry(5 * time.Second)

	r.Register("a")
	r.EvaluateTransitions(now.Add(10 * time.Second)) // offline

	*now = now.Add(20 * time.Second)
	if err := r.Heartbeat("a"); err != nil {
		t.Fatalf("heartbeat: %v", err)
	}
	changed := r.EvaluateTransitions(*now)
	if len(changed) != 1 || !changed[0].Online {
		t.Fatalf("expected recovery to ONLINE, got %v", changed)
	}

	recs := sink.all()
	want := []bool{true, false, true}
	if len(recs) != len(want) {
		t.Fatalf("expected %d records, got %d", len(want), len(recs))
	}
	for i, online := range want {
		if recs[i].Online != online {
			t.Errorf("record %d: got %s, want %s", i, models.StatusName(recs[i].Online), models.StatusName(online))
		}
	}
}

func TestSnapshot_RecomputesFromCurrentTime(t *testing.T) {
	r, _, now := newTestRegistry(5 * time.Second)

	r.Register("42 - Jane Doe")
	*now = now.Add(4 * time.Second)
	if err := r.Heartbeat("42 - Jane Doe"); err != nil {
		t.Fatalf("heartbeat: %v", err)
	}
	heartbeatAt := *now

	// Two seconds after the heartbeat: online, even though no
	// evaluation has run since.
	*now = heartbeatAt.Add(2 * time.Second)
	snap := r.Snapshot()
	if len(snap) != 1 || !snap[0].Online {
		t.Fatalf("expected online 2s after heartbeat, got %+v", snap)
	}

	// Six seconds after: offline, with the cache still saying online.
	*now = heartbeatAt.Add(6 * time.Second)
	snap = r.Snapshot()
	if len(snap) != 1 || snap[0].Online {
		t.Fatalf("expected offline 6s after heartbeat, got %+v", snap)
	}
}

func TestSnapshot_OrderedByIdentity(t *testing.T) {
	r, _, _ := newTestRegistry(5 * time.Second)

	for _, id := range []string{"charlie", "alice", "bob"} {
		r.Register(id)
	}

	snap := r.Snapshot()
	for i := 1; i < len(snap); i++ {
		if snap[i-1].Identity >= snap[i].Identity {
			t.Fatalf("snapshot not ordered: %q before %q", snap[i-1].Identity, snap[i].Identity)
		}
	}
}

func TestOnline_RecomputedFromPolicy(t *testing.T) {
	r, _, now := newTestRegistry(5 * time.Second)

	if r.Online("ghost") {
		t.Error("unknown identity must read offline")
	}

	r.Register("a")
	if !r.Online("a") {
		t.Error("freshly registered identity must read online")
	}

	// Past the window the verdict flips even before any evaluation runs.
	*now = now.Add(10 * time.Second)
	if r.Online("a") {
		t.Error("stale heartbeat must read offline without an evaluation")
	}
}

// failingSink refuses every append, as if the log storage vanished.
type failingSink struct {
	mu    sync.Mutex
	calls int
}

func (s *failingSink) Append(translog.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return errors.New("disk gone")
}

func (s *failingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// A failed append loses the audit record but nothing else: the
// transition is still reported, the cache still advances, and later
// evaluations stay edge-triggered instead of re-logging the same edge.
func TestAppendFailure_RegistryKeepsGoing(t *testing.T) {
	sink := &failingSink{}
	r := NewRegistry(5*time.Second, sink)
	now := time.Date(2026, 6, 15, 9, 0, 0, 0, time.Local)
	r.now = func() time.Time { return now }

	r.Register("a")
	snap := r.Snapshot()
	if len(snap) != 1 || !snap[0].Online {
		t.Fatalf("entry must exist and be online despite the failed append, got %+v", snap)
	}

	changed := r.EvaluateTransitions(now.Add(10 * time.Second))
	if len(changed) != 1 || changed[0].Online {
		t.Fatalf("expected the OFFLINE transition to be reported, got %v", changed)
	}

	if changed := r.EvaluateTransitions(now.Add(11 * time.Second)); len(changed) != 0 {
		t.Fatalf("cache must advance past the failed append, got %v", changed)
	}

	if got := sink.count(); got != 2 {
		t.Errorf("expected 2 append attempts (ONLINE, OFFLINE), got %d", got)
	}
}

// Clients whose heartbeat gaps stay under the timeout must never be
// evaluated offline, regardless of concurrent load.
func TestConcurrentHeartbeats_StayOnline(t *testing.T) {
	sink := &memSink{}
	r := NewRegistry(200*time.Millisecond, sink)

	const clients = 10
	for i := 0; i < clients; i++ {
		r.Register(fmt.Sprintf("student-%02d", i))
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < clients; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			ticker := time.NewTicker(40 * time.Millisecond)
			defer ticker.Stop()
			for {
				select {
				case <-done:
					return
				case <-ticker.C:
					if err := r.Heartbeat(id); err != nil {
						t.Errorf("heartbeat %s: %v", id, err)
						return
					}
				}
			}
		}(fmt.Sprintf("student-%02d", i))
	}

	deadline := time.Now().Add(600 * time.Millisecond)
	for time.Now().Before(deadline) {
		if changed := r.EvaluateTransitions(time.Now()); len(changed) != 0 {
			t.Errorf("unexpected transitions while heartbeating: %v", changed)
		}
		time.Sleep(50 * time.Millisecond)
	}

	close(done)
	wg.Wait()

	if got := len(sink.all()); got != clients {
		t.Errorf("expected only the %d initial ONLINE records, got %d", clients, got)
	}
}
