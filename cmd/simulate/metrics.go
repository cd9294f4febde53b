package main

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
)

type outcome int

const (
	outcomeSuccess outcome = iota
	outcomeConflict
	outcomeError
)

// opMetrics collects latencies and outcomes for one kind of request.
type opMetrics struct {
	mu        sync.Mutex
	counts    [3]int
	codes     map[string]int
	latencies []time.Duration
}

func (m *opMetrics) record(latency time.Duration, o outcome, code string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[o]++
	if code != "" {
		if m.codes == nil {
			m.codes = make(map[string]int)
		}
		m.codes[code]++
	}
	m.latencies = append(m.latencies, latency)
}

func (m *opMetrics) total() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[0] + m.counts[1] + m.counts[2]
}

type latencyStats struct {
	Avg, Min, Max, P50, P95 time.Duration
}

func (m *opMetrics) stats() latencyStats {
	m.mu.Lock()
	latencies := slices.Clone(m.latencies)
	m.mu.Unlock()

	if len(latencies) == 0 {
		return latencyStats{}
	}
	slices.Sort(latencies)

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}
	return latencyStats{
		Avg: sum / time.Duration(len(latencies)),
		Min: latencies[0],
		Max: latencies[len(latencies)-1],
		P50: percentile(latencies, 50),
		P95: percentile(latencies, 95),
	}
}

// percentile expects sorted input.
func percentile(sorted []time.Duration, p int) time.Duration {
	idx := len(sorted) * p / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func (m *opMetrics) report(name string) string {
	total := m.total()
	if total == 0 {
		return ""
	}

	m.mu.Lock()
	counts := m.counts
	codes := make([]string, 0, len(m.codes))
	for code, n := range m.codes {
		codes = append(codes, fmt.Sprintf("%s=%d", code, n))
	}
	m.mu.Unlock()
	slices.Sort(codes)

	st := m.stats()
	pct := func(n int) float64 { return float64(n) / float64(total) * 100 }

	var b strings.Builder
	fmt.Fprintf(&b, "%s:\n", name)
	fmt.Fprintf(&b, "  Total: %d\n", total)
	fmt.Fprintf(&b, "  Success: %d (%.1f%%)\n", counts[outcomeSuccess], pct(counts[outcomeSuccess]))
	if counts[outcomeConflict] > 0 {
		fmt.Fprintf(&b, "  Conflicts: %d (%.1f%%)\n", counts[outcomeConflict], pct(counts[outcomeConflict]))
	}
	if counts[outcomeError] > 0 {
		fmt.Fprintf(&b, "  Errors: %d (%.1f%%)\n", counts[outcomeError], pct(counts[outcomeError]))
	}
	if len(codes) > 0 {
		fmt.Fprintf(&b, "  Codes: %s\n", strings.Join(codes, " "))
	}
	fmt.Fprintf(&b, "  Latency: avg=%s min=%s max=%s p50=%s p95=%s\n",
		st.Avg.Round(time.Millisecond), st.Min.Round(time.Millisecond), st.Max.Round(time.Millisecond),
		st.P50.Round(time.Millisecond), st.P95.Round(time.Millisecond))
	return b.String()
}
