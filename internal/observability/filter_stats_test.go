package observability

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRecordFilterConcurrent checks that concurrent recording loses no counts.
func TestRecordFilterConcurrent(t *testing.T) {
	fs := NewFilterStats(time.Hour)
	var wg sync.WaitGroup
	numGoroutines := 10
	recordsPerGoroutine := 100

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < recordsPerGoroutine; j++ {
				fs.RecordQuery()
				fs.RecordFilter("company", "in")
				fs.RecordFilter("status", "in")
				fs.RecordFilter("date", "range")
				fs.RecordAggregate("success_rate")
			}
		}()
	}
	wg.Wait()

	expected := int64(numGoroutines * recordsPerGoroutine)
	assert.Equal(t, expected, fs.Queries())

	filters := fs.TopFilters(10)
	require.Len(t, filters, 3)
	for _, s := range filters {
		assert.Equal(t, expected, s.Frequency, s.Name)
	}

	aggs := fs.TopAggregates(10)
	require.Len(t, aggs, 1)
	assert.Equal(t, expected, aggs[0].Frequency)
}

func TestTopFiltersOrdering(t *testing.T) {
	fs := NewFilterStats(time.Hour)

	for i := 0; i < 10; i++ {
		fs.RecordFilter("company", "in")
	}
	for i := 0; i < 5; i++ {
		fs.RecordFilter("location", "contains")
	}
	for i := 0; i < 5; i++ {
		fs.RecordFilter("rocket", "in")
	}
	for i := 0; i < 20; i++ {
		fs.RecordFilter("date", "range")
	}

	got := fs.TopFilters(3)
	require.Len(t, got, 3)
	assert.Equal(t, "date", got[0].Name)
	assert.Equal(t, "company", got[1].Name)
	assert.Equal(t, "location", got[2].Name, "ties are ordered by name")

	assert.Empty(t, fs.TopFilters(0))
	assert.Empty(t, NewFilterStats(time.Hour).TopFilters(5))
}

func TestTopFiltersModes(t *testing.T) {
	fs := NewFilterStats(time.Hour)
	fs.RecordFilter("rocket", "in")
	fs.RecordFilter("rocket", "contains")
	fs.RecordFilter("rocket", "contains")

	got := fs.TopFilters(1)
	require.Len(t, got, 1)
	assert.Equal(t, map[string]int{"in": 1, "contains": 2}, got[0].Modes)

	// Returned stats are copies
	got[0].Modes["in"] = 99
	assert.Equal(t, 1, fs.TopFilters(1)[0].Modes["in"])
}

func TestPrune(t *testing.T) {
	fs := NewFilterStats(time.Minute)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	fs.now = func() time.Time { return now }

	fs.RecordFilter("company", "in")
	fs.RecordAggregate("counts_by_year")

	now = now.Add(30 * time.Second)
	fs.RecordFilter("status", "in")

	now = now.Add(45 * time.Second)
	fs.Prune()

	filters := fs.TopFilters(10)
	require.Len(t, filters, 1)
	assert.Equal(t, "status", filters[0].Name)
	assert.Empty(t, fs.TopAggregates(10))
}

func TestPruneZeroWindowKeepsEverything(t *testing.T) {
	fs := NewFilterStats(0)
	fs.RecordFilter("company", "in")
	fs.Prune()
	assert.Len(t, fs.TopFilters(10), 1)
}
