package engine

import (
	"fmt"
	"sort"
	"strings"

	mlerrors "github.com/missionlens/missionlens/internal/errors"
	"github.com/missionlens/missionlens/pkg/types"
)

// Direction is a sort order.
type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// ParseDirection accepts "asc"/"ascending" and "desc"/"descending".
// An empty string is ascending.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "asc", "ascending":
		return Ascending, nil
	case "desc", "descending":
		return Descending, nil
	default:
		return "", mlerrors.NewInvalidArgumentError(fmt.Sprintf("invalid sort direction %q", s))
	}
}

// SortTable returns a copy of s ordered by column. The sort is stable, so
// missions with equal keys keep their relative order in either direction.
// Unknown prices and times sort before known ones when ascending; statuses
// sort in display order.
func SortTable(s Subset, column types.Column, dir Direction) (Subset, error) {
	cmp, err := comparator(column)
	if err != nil {
		return nil, err
	}
	if dir != Ascending && dir != Descending {
		return nil, mlerrors.NewInvalidArgumentError(fmt.Sprintf("invalid sort direction %q", dir))
	}

	out := make(Subset, len(s))
	copy(out, s)

	sort.SliceStable(out, func(i, j int) bool {
		c := cmp(&out[i], &out[j])
		if dir == Descending {
			return c > 0
		}
		return c < 0
	})
	return out, nil
}

type compareFunc func(a, b *types.Mission) int

func comparator(column types.Column) (compareFunc, error) {
	switch column {
	case types.ColumnCompany:
		return func(a, b *types.Mission) int { return strings.Compare(a.Company, b.Company) }, nil
	case types.ColumnLocation:
		return func(a, b *types.Mission) int { return strings.Compare(a.Location, b.Location) }, nil
	case types.ColumnDate:
		return func(a, b *types.Mission) int { return a.Date.Compare(b.Date) }, nil
	case types.ColumnTime:
		return func(a, b *types.Mission) int { return strings.Compare(a.Time, b.Time) }, nil
	case types.ColumnRocket:
		return func(a, b *types.Mission) int { return strings.Compare(a.Rocket, b.Rocket) }, nil
	case types.ColumnMission:
		return func(a, b *types.Mission) int { return strings.Compare(a.Mission, b.Mission) }, nil
	case types.ColumnRocketStatus:
		return func(a, b *types.Mission) int { return strings.Compare(a.RocketStatus, b.RocketStatus) }, nil
	case types.ColumnPrice:
		return comparePrice, nil
	case types.ColumnStatus:
		return func(a, b *types.Mission) int { return compareInt(a.Status.Index(), b.Status.Index()) }, nil
	default:
		return nil, mlerrors.NewInvalidArgumentError(fmt.Sprintf("cannot sort by column %q", column))
	}
}

func comparePrice(a, b *types.Mission) int {
	switch {
	case !a.Price.Known && !b.Price.Known:
		return 0
	case !a.Price.Known:
		return -1
	case !b.Price.Known:
		return 1
	case a.Price.Value < b.Price.Value:
		return -1
	case a.Price.Value > b.Price.Value:
		return 1
	default:
		return 0
	}
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
