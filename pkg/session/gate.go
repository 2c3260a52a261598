package session

import (
	"sync"
	"time"
)

// Gate decides which frames reach the detector. A frame is admitted only when
// the model is ready, no inference is in flight and the minimum interval has
// passed since the previous admitted frame. Rejected frames are dropped, never
// queued.
//
// Every admitted frame gets an increasing request id. Only the result of the
// current in-flight id is accepted; anything else is stale.
type Gate struct {
	mu       sync.Mutex
	interval time.Duration
	now      func() time.Time

	ready    bool
	inflight uint64 // 0 when idle
	lastID   uint64
	last     time.Time

	admitted uint64
	dropped  uint64
	stale    uint64
}

// GateStats counts gate decisions.
type GateStats struct {
	Admitted uint64 `json:"admitted"`
	Dropped  uint64 `json:"dropped"`
	Stale    uint64 `json:"stale"`
}

// NewGate creates a gate. A nil now uses time.Now.
func NewGate(interval time.Duration, now func() time.Time) *Gate {
	if now == nil {
		now = time.Now
	}
	return &Gate{interval: interval, now: now}
}

// SetReady records whether the model can accept frames.
func (g *Gate) SetReady(ready bool) {
	g.mu.Lock()
	g.ready = ready
	g.mu.Unlock()
}

// Ready reports the model readiness last set.
func (g *Gate) Ready() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ready
}

// Busy reports whether a request is in flight.
func (g *Gate) Busy() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inflight != 0
}

// Admit returns a request id for the frame, or ok == false if it must be
// dropped.
func (g *Gate) Admit() (id uint64, ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if !g.ready || g.inflight != 0 || (!g.last.IsZero() && now.Sub(g.last) < g.interval) {
		g.dropped++
		return 0, false
	}

	g.lastID++
	g.inflight = g.lastID
	g.last = now
	g.admitted++
	return g.lastID, true
}

// Done marks request id finished. It returns false if id is not the current
// in-flight request, in which case its result must be discarded.
func (g *Gate) Done(id uint64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if id == 0 || id != g.inflight {
		g.stale++
		return false
	}
	g.inflight = 0
	return true
}

// Invalidate abandons the in-flight request so its result will be stale.
func (g *Gate) Invalidate() {
	g.mu.Lock()
	g.inflight = 0
	g.mu.Unlock()
}

// Drop counts a frame discarded after admission, e.g. overwritten by a newer
// one before the pipeline consumed it.
func (g *Gate) Drop() {
	g.mu.Lock()
	g.dropped++
	g.mu.Unlock()
}

// Stats returns the decision counters.
func (g *Gate) Stats() GateStats {
	g.mu.Lock()
	defer g.mu.Unlock()
	return GateStats{Admitted: g.admitted, Dropped: g.dropped, Stale: g.stale}
}
