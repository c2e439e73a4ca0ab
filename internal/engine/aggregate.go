package engine

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"

	mlerrors "github.com/missionlens/missionlens/internal/errors"
	"github.com/missionlens/missionlens/pkg/types"
)

// Count is one labelled entry of a count series.
type Count struct {
	Label string `json:"label"`
	Value int    `json:"value"`
}

// YearCount is the number of launches in one calendar year.
type YearCount struct {
	Year  int `json:"year"`
	Count int `json:"count"`
}

// YearRange is an inclusive range of calendar years.
type YearRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// MaxYearSpan is the widest year range an aggregate accepts.
const MaxYearSpan = 10000

// Len returns the number of years in the range, 0 when the range is invalid.
func (r YearRange) Len() int {
	if r.Validate() != nil {
		return 0
	}
	return r.End - r.Start + 1
}

// Contains reports whether year lies within the range.
func (r YearRange) Contains(year int) bool {
	return year >= r.Start && year <= r.End
}

// Validate fails with an INVALID_RANGE error when the range is empty or
// wider than MaxYearSpan years.
func (r YearRange) Validate() error {
	if r.Start > r.End {
		return mlerrors.NewInvalidRangeError(r.Start, r.End)
	}
	// A negative difference means End-Start overflowed
	if span := r.End - r.Start; span < 0 || span >= MaxYearSpan {
		return mlerrors.NewYearSpanError(r.Start, r.End, MaxYearSpan)
	}
	return nil
}

// CountsByYear counts launches for every year of r, ascending. Years without
// launches are present with a zero count.
func CountsByYear(s Subset, r YearRange) ([]YearCount, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	out := make([]YearCount, r.Len())
	for i := range out {
		out[i].Year = r.Start + i
	}
	for i := range s {
		y := s[i].Year()
		if r.Contains(y) {
			out[y-r.Start].Count++
		}
	}
	return out, nil
}

// CountsByCompany returns the topN companies by launch count, descending,
// ties broken by name ascending.
func CountsByCompany(s Subset, topN int) ([]Count, error) {
	if topN < 0 {
		return nil, mlerrors.NewInvalidArgumentError(fmt.Sprintf("top_n must be >= 0, got %d", topN))
	}
	counts := make(map[string]int)
	for i := range s {
		counts[s[i].Company]++
	}
	return rank(counts, topN), nil
}

// CountsByRocket returns the topN rockets by launch count with the same
// ordering as CountsByCompany. Launches with an unknown rocket are not counted.
func CountsByRocket(s Subset, topN int) ([]Count, error) {
	if topN < 0 {
		return nil, mlerrors.NewInvalidArgumentError(fmt.Sprintf("top_n must be >= 0, got %d", topN))
	}
	counts := make(map[string]int)
	for i := range s {
		if s[i].HasRocket() {
			counts[s[i].Rocket]++
		}
	}
	return rank(counts, topN), nil
}

// CountsByStatus returns one entry per status present in s, in display order.
// Statuses outside the closed set follow, ordered by label.
func CountsByStatus(s Subset) []Count {
	counts := make(map[types.Status]int)
	for i := range s {
		counts[s[i].Status]++
	}

	out := make([]Count, 0, len(counts))
	for _, st := range types.AllStatuses {
		if n := counts[st]; n > 0 {
			out = append(out, Count{Label: string(st), Value: n})
			delete(counts, st)
		}
	}

	var extra []Count
	for st, n := range counts {
		extra = append(extra, Count{Label: string(st), Value: n})
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i].Label < extra[j].Label })
	return append(out, extra...)
}

// Rate is the share of successful launches. It is undefined for an empty
// subset and must then be shown as "N/A", not 0%.
type Rate struct {
	Successes int `json:"successes"`
	Total     int `json:"total"`
}

// Defined reports whether the rate has at least one launch behind it.
func (r Rate) Defined() bool {
	return r.Total > 0
}

// Value returns successes/total in [0,1]. NaN when undefined.
func (r Rate) Value() float64 {
	if !r.Defined() {
		return math.NaN()
	}
	return float64(r.Successes) / float64(r.Total)
}

// Percent returns the rate as a percentage rounded to 2 decimals. NaN when undefined.
func (r Rate) Percent() float64 {
	if !r.Defined() {
		return math.NaN()
	}
	return Round2(r.Value() * 100)
}

func (r Rate) String() string {
	if !r.Defined() {
		return "N/A"
	}
	return strconv.FormatFloat(r.Percent(), 'f', 2, 64) + "%"
}

// MarshalJSON adds the computed percent, null when undefined.
func (r Rate) MarshalJSON() ([]byte, error) {
	type plain Rate
	out := struct {
		plain
		Percent *float64 `json:"percent"`
		Display string   `json:"display"`
	}{plain: plain(r), Display: r.String()}
	if r.Defined() {
		p := r.Percent()
		out.Percent = &p
	}
	return json.Marshal(out)
}

// SuccessRate computes the share of StatusSuccess launches in s.
func SuccessRate(s Subset) Rate {
	r := Rate{Total: len(s)}
	for i := range s {
		if s[i].Status == types.StatusSuccess {
			r.Successes++
		}
	}
	return r
}

// AveragePerYear divides the launches that fall within r by the number of
// years in r. An empty range fails with INVALID_RANGE.
func AveragePerYear(s Subset, r YearRange) (float64, error) {
	if err := r.Validate(); err != nil {
		return 0, err
	}
	total := 0
	for i := range s {
		if r.Contains(s[i].Year()) {
			total++
		}
	}
	return float64(total) / float64(r.Len()), nil
}

// Round2 rounds v to 2 decimal places, halves away from zero.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// rank orders counts by value descending then label ascending and keeps topN.
func rank(counts map[string]int, topN int) []Count {
	out := make([]Count, 0, len(counts))
	for label, n := range counts {
		out = append(out, Count{Label: label, Value: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		return out[i].Label < out[j].Label
	})
	if topN < len(out) {
		out = out[:topN]
	}
	return out
}
