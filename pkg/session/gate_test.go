package session

import (
	"testing"
	"time"
)

type stepClock struct{ t time.Time }

func (c *stepClock) now() time.Time { return c.t }

func TestGate_Admission(t *testing.T) {
	clock := &stepClock{t: time.Unix(1000, 0)}
	g := NewGate(50*time.Millisecond, clock.now)

	if _, ok := g.Admit(); ok {
		t.Fatal("frame admitted before model ready")
	}
	g.SetReady(true)

	id1, ok := g.Admit()
	if !ok || id1 == 0 {
		t.Fatalf("first frame: id=%d ok=%v", id1, ok)
	}

	clock.t = clock.t.Add(100 * time.Millisecond)
	if _, ok := g.Admit(); ok {
		t.Fatal("frame admitted while inference in flight")
	}
	if !g.Done(id1) {
		t.Fatal("Done(current) should succeed")
	}

	tests := []struct {
		name    string
		advance time.Duration
		want    bool
	}{
		{"after interval", 0, true}, // 100ms already passed
		{"too soon", 49 * time.Millisecond, false},
		{"exactly interval", 1 * time.Millisecond, true},
	}
	var last uint64
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock.t = clock.t.Add(tt.advance)
			id, ok := g.Admit()
			if ok != tt.want {
				t.Fatalf("Admit() ok = %v, want %v", ok, tt.want)
			}
			if ok {
				if id <= last {
					t.Errorf("id %d not increasing after %d", id, last)
				}
				last = id
				g.Done(id)
			}
		})
	}

	st := g.Stats()
	if st.Admitted != 3 || st.Dropped != 3 {
		t.Errorf("stats = %+v, want 3 admitted, 3 dropped", st)
	}
}

func TestGate_StaleResults(t *testing.T) {
	g := NewGate(0, nil)
	g.SetReady(true)

	id, _ := g.Admit()
	g.Invalidate()
	if g.Done(id) {
		t.Error("result of invalidated request should be stale")
	}
	if g.Busy() {
		t.Error("gate should be idle after Invalidate")
	}

	next, ok := g.Admit()
	if !ok {
		t.Fatal("Admit after Invalidate")
	}
	if g.Done(id) {
		t.Error("older id must not complete the newer request")
	}
	if !g.Done(next) {
		t.Error("current id should complete")
	}
	if g.Done(next) {
		t.Error("double Done should be stale")
	}
	if got := g.Stats().Stale; got != 3 {
		t.Errorf("stale = %d, want 3", got)
	}
}

func TestGate_NotReadyDrops(t *testing.T) {
	g := NewGate(0, nil)
	g.SetReady(true)
	g.SetReady(false)
	if _, ok := g.Admit(); ok {
		t.Error("admitted after readiness lost")
	}
}
