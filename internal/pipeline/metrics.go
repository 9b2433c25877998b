package pipeline

import "sync"

// StageMetrics counts swallowed stage failures keyed by stage and error kind.
// Counters only grow; the daemon exposes a snapshot through its status
// endpoint so silent degradation stays visible.
type StageMetrics struct {
	mu     sync.Mutex
	counts map[string]map[string]uint64
}

// NewStageMetrics returns an empty counter set.
func NewStageMetrics() *StageMetrics {
	return &StageMetrics{counts: make(map[string]map[string]uint64)}
}

// Record increments the counter for a stage/kind pair.
func (m *StageMetrics) Record(stage, kind string) {
	if stage == "" {
		return
	}
	if kind == "" {
		kind = "unknown"
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	byKind := m.counts[stage]
	if byKind == nil {
		byKind = make(map[string]uint64)
		m.counts[stage] = byKind
	}
	byKind[kind]++
}

// Snapshot copies the current counters.
func (m *StageMetrics) Snapshot() map[string]map[string]uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	snapshot := make(map[string]map[string]uint64, len(m.counts))
	for stage, byKind := range m.counts {
		cp := make(map[string]uint64, len(byKind))
		for kind, count := range byKind {
			cp[kind] = count
		}
		snapshot[stage] = cp
	}
	return snapshot
}

// Total returns the sum of all failure counters.
func (m *StageMetrics) Total() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var total uint64
	for _, byKind := range m.counts {
		for _, count := range byKind {
			total += count
		}
	}
	return total
}
