package detection

import (
	"context"
	"sync"
)

// MockDetector is a scriptable Detector for tests.
type MockDetector struct {
	mu      sync.Mutex
	results []*Result
	err     error
	ready   bool
	calls   int
	closed  bool
	block   chan struct{}
	started chan struct{}
}

// NewMockDetector returns a ready mock that replays results in order, then
// repeats the last one.
func NewMockDetector(results ...*Result) *MockDetector {
	return &MockDetector{results: results, ready: true}
}

// SetError makes subsequent Detect calls fail with err.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

// SetReady changes the reported readiness.
func (m *MockDetector) SetReady(ready bool) {
	m.mu.Lock()
	m.ready = ready
	m.mu.Unlock()
}

// Block makes Detect wait until Release is called. Started receives once per
// blocked call.
func (m *MockDetector) Block() {
	m.mu.Lock()
	m.block = make(chan struct{})
	m.started = make(chan struct{}, 16)
	m.mu.Unlock()
}

// Started returns the channel signalled when a blocked Detect begins.
func (m *MockDetector) Started() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.started
}

// Release unblocks all waiting Detect calls.
func (m *MockDetector) Release() {
	m.mu.Lock()
	if m.block != nil {
		close(m.block)
		m.block = nil
	}
	m.mu.Unlock()
}

// Calls returns how many times Detect ran.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Closed reports whether Close was called.
func (m *MockDetector) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Detect implements Detector.
func (m *MockDetector) Detect(ctx context.Context, jpeg []byte) (*Result, error) {
	m.mu.Lock()
	m.calls++
	block, started := m.block, m.started
	m.mu.Unlock()

	if block != nil {
		started <- struct{}{}
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if len(m.results) == 0 {
		return &Result{}, nil
	}
	res := m.results[0]
	if len(m.results) > 1 {
		m.results = m.results[1:]
	}
	out := *res
	return &out, nil
}

// Ready implements Detector.
func (m *MockDetector) Ready() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ready && !m.closed
}

// Close implements Detector.
func (m *MockDetector) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

var _ Detector = (*MockDetector)(nil)
