// Package observability tracks how the missions table is being explored.
package observability

import (
	"sort"
	"sync"
	"time"
)

// FilterStats counts which filter columns and aggregate kinds callers use.
// It is safe for concurrent use.
type FilterStats struct {
	mu         sync.RWMutex
	filters    map[string]*UsageStats
	aggregates map[string]*UsageStats
	queries    int64
	window     time.Duration
	now        func() time.Time
}

// UsageStats holds usage counts for one filter column or aggregate kind.
type UsageStats struct {
	Name      string         `json:"name"`
	Frequency int64          `json:"frequency"`
	LastSeen  time.Time      `json:"last_seen"`
	Modes     map[string]int `json:"modes,omitempty"` // match mode → count (e.g., "in" → 5, "contains" → 2)
}

// NewFilterStats creates a tracker. Entries not seen within window are
// dropped by Prune; a zero window keeps everything.
func NewFilterStats(window time.Duration) *FilterStats {
	return &FilterStats{
		filters:    make(map[string]*UsageStats),
		aggregates: make(map[string]*UsageStats),
		window:     window,
		now:        time.Now,
	}
}

// RecordQuery counts one explore call.
func (f *FilterStats) RecordQuery() {
	f.mu.Lock()
	f.queries++
	f.mu.Unlock()
}

// RecordFilter records use of a filter on column with the given match mode
// ("range", "in", "contains").
func (f *FilterStats) RecordFilter(column, mode string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record(f.filters, column, mode, f.now())
}

// RecordAggregate records a request for an aggregate kind.
func (f *FilterStats) RecordAggregate(kind string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record(f.aggregates, kind, "", f.now())
}

func record(m map[string]*UsageStats, name, mode string, now time.Time) {
	stats, ok := m[name]
	if !ok {
		stats = &UsageStats{Name: name, Modes: make(map[string]int)}
		m[name] = stats
	}
	stats.Frequency++
	stats.LastSeen = now
	if mode != "" {
		stats.Modes[mode]++
	}
}

// Queries returns the number of explore calls recorded.
func (f *FilterStats) Queries() int64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.queries
}

// TopFilters returns the n most used filter columns, most used first.
func (f *FilterStats) TopFilters(n int) []UsageStats {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return top(f.filters, n)
}

// TopAggregates returns the n most requested aggregate kinds.
func (f *FilterStats) TopAggregates(n int) []UsageStats {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return top(f.aggregates, n)
}

// top copies the entries of m, so callers never share maps with the tracker.
func top(m map[string]*UsageStats, n int) []UsageStats {
	if n <= 0 || len(m) == 0 {
		return []UsageStats{}
	}

	out := make([]UsageStats, 0, len(m))
	for _, s := range m {
		c := *s
		c.Modes = make(map[string]int, len(s.Modes))
		for mode, count := range s.Modes {
			c.Modes[mode] = count
		}
		out = append(out, c)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Frequency != out[j].Frequency {
			return out[i].Frequency > out[j].Frequency
		}
		return out[i].Name < out[j].Name
	})

	if n < len(out) {
		out = out[:n]
	}
	return out
}

// Prune removes entries last seen before the window.
func (f *FilterStats) Prune() {
	if f.window <= 0 {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	threshold := f.now().Add(-f.window)
	for _, m := range []map[string]*UsageStats{f.filters, f.aggregates} {
		for name, stats := range m {
			if stats.LastSeen.Before(threshold) {
				delete(m, name)
			}
		}
	}
}
