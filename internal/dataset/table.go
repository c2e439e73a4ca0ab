// Package dataset loads the missions source into an immutable in-memory table.
package dataset

import (
	"sort"
	"time"

	"github.com/missionlens/missionlens/internal/bloom"
	"github.com/missionlens/missionlens/pkg/types"
)

// bloomFPR is the target false positive rate of the categorical filters.
const bloomFPR = 0.01

// Table is the loaded, read-only missions table. No method mutates it, so a
// single Table may be shared by any number of concurrent readers.
type Table struct {
	missions []types.Mission

	minDate time.Time
	maxDate time.Time

	companies []string
	rockets   []string
	locations []string
	statuses  []types.Status

	filters map[types.Column]*bloom.Filter
}

// NewTable builds a Table from missions. The slice is copied, so later
// changes by the caller are not visible through the Table.
func NewTable(missions []types.Mission) *Table {
	t := &Table{
		missions: make([]types.Mission, len(missions)),
		filters:  make(map[types.Column]*bloom.Filter),
	}
	copy(t.missions, missions)

	companies := make(map[string]struct{})
	rockets := make(map[string]struct{})
	locations := make(map[string]struct{})
	var seen [4]bool

	for i, m := range t.missions {
		if i == 0 || m.Date.Before(t.minDate) {
			t.minDate = m.Date
		}
		if i == 0 || m.Date.After(t.maxDate) {
			t.maxDate = m.Date
		}
		companies[m.Company] = struct{}{}
		locations[m.Location] = struct{}{}
		if m.HasRocket() {
			rockets[m.Rocket] = struct{}{}
		}
		if idx := m.Status.Index(); idx >= 0 {
			seen[idx] = true
		}
	}

	t.companies = sortedKeys(companies)
	t.rockets = sortedKeys(rockets)
	t.locations = sortedKeys(locations)
	for i, ok := range seen {
		if ok {
			t.statuses = append(t.statuses, types.AllStatuses[i])
		}
	}

	t.filters[types.ColumnCompany] = buildFilter(t.companies)
	t.filters[types.ColumnRocket] = buildFilter(t.rockets)
	t.filters[types.ColumnLocation] = buildFilter(t.locations)

	return t
}

// Len returns the number of missions.
func (t *Table) Len() int {
	return len(t.missions)
}

// At returns a copy of the mission at index i.
func (t *Table) At(i int) types.Mission {
	return t.missions[i]
}

// Missions returns a copy of every mission in source order.
func (t *Table) Missions() []types.Mission {
	out := make([]types.Mission, len(t.missions))
	copy(out, t.missions)
	return out
}

// MinDate returns the earliest launch date, zero for an empty table.
func (t *Table) MinDate() time.Time {
	return t.minDate
}

// MaxDate returns the latest launch date, zero for an empty table.
func (t *Table) MaxDate() time.Time {
	return t.maxDate
}

// YearSpan returns the first and last launch years. ok is false for an empty table.
func (t *Table) YearSpan() (start, end int, ok bool) {
	if len(t.missions) == 0 {
		return 0, 0, false
	}
	return t.minDate.Year(), t.maxDate.Year(), true
}

// Companies returns the distinct companies in ascending order.
func (t *Table) Companies() []string {
	return append([]string(nil), t.companies...)
}

// Rockets returns the distinct known rockets in ascending order.
func (t *Table) Rockets() []string {
	return append([]string(nil), t.rockets...)
}

// Locations returns the distinct launch sites in ascending order.
func (t *Table) Locations() []string {
	return append([]string(nil), t.locations...)
}

// Statuses returns the statuses present in the table, in display order.
func (t *Table) Statuses() []types.Status {
	return append([]types.Status(nil), t.statuses...)
}

// MightContainAny reports whether any of values may appear in column.
// A false result is definite; true may be a false positive. Columns without
// a filter always report true.
func (t *Table) MightContainAny(column types.Column, values []string) bool {
	f, ok := t.filters[column]
	if !ok {
		return true
	}
	return f.MightContainAny(values)
}

func buildFilter(values []string) *bloom.Filter {
	f := bloom.NewWithEstimates(len(values), bloomFPR)
	for _, v := range values {
		f.Add(v)
	}
	return f
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
