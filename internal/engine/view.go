package engine

import (
	"fmt"
	"strconv"

	mlerrors "github.com/missionlens/missionlens/internal/errors"
)

// Kind names an aggregate view.
type Kind string

const (
	KindCountsByYear    Kind = "counts_by_year"
	KindCountsByCompany Kind = "counts_by_company"
	KindCountsByStatus  Kind = "counts_by_status"
	KindCountsByRocket  Kind = "counts_by_rocket"
	KindSuccessRate     Kind = "success_rate"
	KindAveragePerYear  Kind = "average_per_year"
)

// Kinds lists every supported aggregate.
var Kinds = []Kind{
	KindCountsByYear,
	KindCountsByCompany,
	KindCountsByStatus,
	KindCountsByRocket,
	KindSuccessRate,
	KindAveragePerYear,
}

// ParseKind validates a kind name.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", mlerrors.NewInvalidArgumentError(fmt.Sprintf("unknown aggregate kind %q", s))
}

// Params carries the inputs some aggregates need. Years is used by
// counts_by_year and average_per_year, TopN by the company and rocket rankings.
type Params struct {
	Years YearRange `json:"years"`
	TopN  int       `json:"top_n"`
}

// View is a derived aggregate. Count kinds fill Series, success_rate fills
// Rate and average_per_year fills Average.
type View struct {
	Kind    Kind     `json:"kind"`
	Series  []Count  `json:"series,omitempty"`
	Rate    *Rate    `json:"rate,omitempty"`
	Average *float64 `json:"average,omitempty"`
}

// Aggregate computes the view named by kind over s.
func Aggregate(s Subset, kind Kind, p Params) (View, error) {
	v := View{Kind: kind}

	switch kind {
	case KindCountsByYear:
		years, err := CountsByYear(s, p.Years)
		if err != nil {
			return View{}, err
		}
		v.Series = make([]Count, len(years))
		for i, y := range years {
			v.Series[i] = Count{Label: strconv.Itoa(y.Year), Value: y.Count}
		}

	case KindCountsByCompany:
		series, err := CountsByCompany(s, p.TopN)
		if err != nil {
			return View{}, err
		}
		v.Series = series

	case KindCountsByRocket:
		series, err := CountsByRocket(s, p.TopN)
		if err != nil {
			return View{}, err
		}
		v.Series = series

	case KindCountsByStatus:
		v.Series = CountsByStatus(s)

	case KindSuccessRate:
		r := SuccessRate(s)
		v.Rate = &r

	case KindAveragePerYear:
		avg, err := AveragePerYear(s, p.Years)
		if err != nil {
			return View{}, err
		}
		v.Average = &avg

	default:
		return View{}, mlerrors.NewInvalidArgumentError(fmt.Sprintf("unknown aggregate kind %q", kind))
	}

	return v, nil
}

// Total sums the series values of a count view.
func (v View) Total() int {
	total := 0
	for _, c := range v.Series {
		total += c.Value
	}
	return total
}
