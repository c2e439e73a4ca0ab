// Package engine filters and aggregates the missions table.
//
// Every function is a pure function of its inputs: the table is never
// mutated, criteria are never retained, and identical inputs give identical
// outputs. Callers own the Criteria value and pass it in on every call.
package engine

import (
	"strings"
	"time"

	"github.com/missionlens/missionlens/internal/dataset"
	"github.com/missionlens/missionlens/pkg/types"
)

// Subset is an ordered sequence of missions selected from a table.
type Subset []types.Mission

// DateRange bounds launch dates inclusively. A zero bound is unbounded.
type DateRange struct {
	From time.Time
	To   time.Time
}

// IsZero reports whether neither bound is set.
func (r DateRange) IsZero() bool {
	return r.From.IsZero() && r.To.IsZero()
}

// Contains reports whether d lies within the range, comparing calendar days.
func (r DateRange) Contains(d time.Time) bool {
	d = types.Day(d)
	if !r.From.IsZero() && d.Before(types.Day(r.From)) {
		return false
	}
	if !r.To.IsZero() && d.After(types.Day(r.To)) {
		return false
	}
	return true
}

// Criteria narrows the missions table. Criteria compose conjunctively and an
// empty criterion never excludes a mission.
type Criteria struct {
	// Dates bounds the launch date
	Dates DateRange

	// Companies is the set of allowed companies (exact match)
	Companies []string

	// Statuses is the set of allowed outcomes
	Statuses []types.Status

	// Locations is the set of allowed launch sites (exact match)
	Locations []string

	// LocationContains matches launch sites containing the text, ignoring case
	LocationContains string

	// Rockets is the set of allowed rockets (exact match)
	Rockets []string

	// RocketContains matches rockets containing the text, ignoring case
	RocketContains string
}

// IsEmpty reports whether no criterion is set.
func (c Criteria) IsEmpty() bool {
	return c.Dates.IsZero() &&
		len(c.Companies) == 0 &&
		len(c.Statuses) == 0 &&
		len(c.Locations) == 0 &&
		c.LocationContains == "" &&
		len(c.Rockets) == 0 &&
		c.RocketContains == ""
}

type predicate func(m *types.Mission) bool

// ApplyFilters returns the missions of t matching every criterion, in table
// order. The result is never nil; no match yields an empty Subset.
func ApplyFilters(t *dataset.Table, c Criteria) Subset {
	out := Subset{}
	if t == nil || t.Len() == 0 {
		return out
	}
	if c.IsEmpty() {
		return Subset(t.Missions())
	}

	// Definite misses on categorical columns skip the scan entirely
	if len(c.Companies) > 0 && !t.MightContainAny(types.ColumnCompany, c.Companies) {
		return out
	}
	if len(c.Rockets) > 0 && !t.MightContainAny(types.ColumnRocket, c.Rockets) {
		return out
	}
	if len(c.Locations) > 0 && !t.MightContainAny(types.ColumnLocation, c.Locations) {
		return out
	}

	preds := compile(c)
	for i := 0; i < t.Len(); i++ {
		m := t.At(i)
		if matchAll(preds, &m) {
			out = append(out, m)
		}
	}
	return out
}

// Filter applies c to an existing subset, preserving its order.
func Filter(s Subset, c Criteria) Subset {
	out := Subset{}
	preds := compile(c)
	for i := range s {
		if matchAll(preds, &s[i]) {
			out = append(out, s[i])
		}
	}
	return out
}

func matchAll(preds []predicate, m *types.Mission) bool {
	for _, p := range preds {
		if !p(m) {
			return false
		}
	}
	return true
}

// compile turns the set criteria into predicates. Unset criteria produce none.
func compile(c Criteria) []predicate {
	var preds []predicate

	if !c.Dates.IsZero() {
		dates := c.Dates
		preds = append(preds, func(m *types.Mission) bool {
			return dates.Contains(m.Date)
		})
	}
	if len(c.Companies) > 0 {
		set := toSet(c.Companies)
		preds = append(preds, func(m *types.Mission) bool {
			_, ok := set[m.Company]
			return ok
		})
	}
	if len(c.Statuses) > 0 {
		set := make(map[types.Status]struct{}, len(c.Statuses))
		for _, s := range c.Statuses {
			set[s] = struct{}{}
		}
		preds = append(preds, func(m *types.Mission) bool {
			_, ok := set[m.Status]
			return ok
		})
	}
	if len(c.Locations) > 0 {
		set := toSet(c.Locations)
		preds = append(preds, func(m *types.Mission) bool {
			_, ok := set[m.Location]
			return ok
		})
	}
	if c.LocationContains != "" {
		needle := strings.ToLower(c.LocationContains)
		preds = append(preds, func(m *types.Mission) bool {
			return strings.Contains(strings.ToLower(m.Location), needle)
		})
	}
	if len(c.Rockets) > 0 {
		set := toSet(c.Rockets)
		preds = append(preds, func(m *types.Mission) bool {
			// An unknown rocket is never selected by name
			if !m.HasRocket() {
				return false
			}
			_, ok := set[m.Rocket]
			return ok
		})
	}
	if c.RocketContains != "" {
		needle := strings.ToLower(c.RocketContains)
		preds = append(preds, func(m *types.Mission) bool {
			return strings.Contains(strings.ToLower(m.Rocket), needle)
		})
	}

	return preds
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		set[item] = struct{}{}
	}
	return set
}
