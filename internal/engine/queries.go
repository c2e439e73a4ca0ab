package engine

import (
	"sort"
	"time"

	"github.com/missionlens/missionlens/pkg/types"
)

// MissionCount returns the number of launches by company.
func MissionCount(s Subset, company string) int {
	n := 0
	for i := range s {
		if s[i].Company == company {
			n++
		}
	}
	return n
}

// CompanySuccessRate returns the success rate of one company's launches.
// A company with no launches has an undefined rate.
func CompanySuccessRate(s Subset, company string) Rate {
	return SuccessRate(Filter(s, Criteria{Companies: []string{company}}))
}

// MissionsInYear returns the number of launches in a calendar year.
func MissionsInYear(s Subset, year int) int {
	n := 0
	for i := range s {
		if s[i].Year() == year {
			n++
		}
	}
	return n
}

// MostUsedRocket returns the rocket with the most launches, ties broken
// alphabetically. ok is false when no launch has a known rocket.
func MostUsedRocket(s Subset) (rocket string, ok bool) {
	top, _ := CountsByRocket(s, 1)
	if len(top) == 0 {
		return "", false
	}
	return top[0].Label, true
}

// MissionNamesBetween returns the names of missions launched between from
// and to inclusive, in chronological order. Launches on the same day keep
// their subset order and missions without a name are left out.
func MissionNamesBetween(s Subset, from, to time.Time) []string {
	in := Filter(s, Criteria{Dates: DateRange{From: from, To: to}})
	sort.SliceStable(in, func(i, j int) bool {
		return in[i].Date.Before(in[j].Date)
	})

	names := make([]string, 0, len(in))
	for i := range in {
		if in[i].Mission != "" {
			names = append(names, in[i].Mission)
		}
	}
	return names
}

// StatusCounts returns a count for every status in the closed set,
// including those with no launches.
func StatusCounts(s Subset) map[types.Status]int {
	out := make(map[types.Status]int, len(types.AllStatuses))
	for _, st := range types.AllStatuses {
		out[st] = 0
	}
	for i := range s {
		out[s[i].Status]++
	}
	return out
}
