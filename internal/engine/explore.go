package engine

import (
	"fmt"

	"github.com/missionlens/missionlens/internal/dataset"
	mlerrors "github.com/missionlens/missionlens/internal/errors"
	"github.com/missionlens/missionlens/pkg/types"
)

// AggregateSpec requests one aggregate view.
type AggregateSpec struct {
	Kind   Kind
	Params Params
}

// SortSpec requests an explicit ordering of the returned rows.
type SortSpec struct {
	Column    types.Column
	Direction Direction
}

// Query is one interaction cycle: filter, optionally sort, then aggregate.
type Query struct {
	Criteria   Criteria
	Aggregates []AggregateSpec
	Sort       *SortSpec

	// Limit caps the rows returned; aggregates always see the full subset.
	// Zero returns every row.
	Limit int
}

// Result is the output of Explore.
type Result struct {
	// Total is the number of missions matching the criteria
	Total int `json:"total"`

	// Rows are the matching missions, sorted if requested and capped by Limit
	Rows Subset `json:"rows"`

	// Views holds one view per requested aggregate, in request order
	Views []View `json:"views"`
}

// Explore runs q against t. Any failing aggregate fails the whole call and
// nothing partial is returned.
func Explore(t *dataset.Table, q Query) (*Result, error) {
	if q.Limit < 0 {
		return nil, mlerrors.NewInvalidArgumentError(fmt.Sprintf("limit must be >= 0, got %d", q.Limit))
	}

	subset := ApplyFilters(t, q.Criteria)

	views := make([]View, 0, len(q.Aggregates))
	for _, agg := range q.Aggregates {
		v, err := Aggregate(subset, agg.Kind, agg.Params)
		if err != nil {
			return nil, fmt.Errorf("aggregate %s: %w", agg.Kind, err)
		}
		views = append(views, v)
	}

	rows := subset
	if q.Sort != nil {
		sorted, err := SortTable(subset, q.Sort.Column, q.Sort.Direction)
		if err != nil {
			return nil, err
		}
		rows = sorted
	}
	if q.Limit > 0 && q.Limit < len(rows) {
		rows = rows[:q.Limit]
	}

	return &Result{
		Total: len(subset),
		Rows:  rows,
		Views: views,
	}, nil
}
