package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/missionlens/missionlens/internal/dataset"
	mlerrors "github.com/missionlens/missionlens/internal/errors"
	"github.com/missionlens/missionlens/pkg/types"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func mission(company string, status types.Status, date string) types.Mission {
	return types.Mission{
		Company:  company,
		Location: "Site",
		Date:     day(date),
		Rocket:   "Rocket " + company,
		Mission:  fmt.Sprintf("%s-%s", company, date),
		Status:   status,
	}
}

func loadFixture(t *testing.T) *dataset.Table {
	t.Helper()
	table, _, err := dataset.Load(context.Background(), "../dataset/testdata/missions.csv")
	require.NoError(t, err)
	return table
}

func companies(s Subset) []string {
	out := make([]string, len(s))
	for i, m := range s {
		out[i] = m.Company
	}
	return out
}

func TestApplyFilters_EmptyCriteriaReturnsTable(t *testing.T) {
	table := loadFixture(t)
	got := ApplyFilters(table, Criteria{})
	assert.Equal(t, Subset(table.Missions()), got)
}

func TestApplyFilters_EmptyCriteriaResultIsACopy(t *testing.T) {
	table := loadFixture(t)
	got := ApplyFilters(table, Criteria{})
	got[0].Company = "changed"
	assert.NotEqual(t, "changed", table.At(0).Company)
}

func TestCriteria_IsEmpty(t *testing.T) {
	assert.True(t, Criteria{}.IsEmpty())
	assert.True(t, Criteria{Companies: []string{}}.IsEmpty())
	assert.False(t, Criteria{RocketContains: "falcon"}.IsEmpty())
	assert.False(t, Criteria{Dates: DateRange{To: day("2000-01-01")}}.IsEmpty())
	assert.False(t, Criteria{Statuses: []types.Status{types.StatusFailure}}.IsEmpty())
}

func TestApplyFilters_Conjunctive(t *testing.T) {
	table := dataset.NewTable([]types.Mission{
		mission("A", types.StatusSuccess, "2000-01-01"),
		mission("A", types.StatusFailure, "2000-01-02"),
		mission("B", types.StatusSuccess, "2000-01-03"),
	})

	got := ApplyFilters(table, Criteria{
		Companies: []string{"A"},
		Statuses:  []types.Status{types.StatusSuccess},
	})
	require.Len(t, got, 1)
	assert.Equal(t, "A", got[0].Company)
	assert.Equal(t, types.StatusSuccess, got[0].Status)
}

func TestApplyFilters_DateRangeInclusive(t *testing.T) {
	table := loadFixture(t)

	got := ApplyFilters(table, Criteria{Dates: DateRange{From: day("1957-10-01"), To: day("1957-12-06")}})
	assert.Equal(t, []string{"RVSN USSR", "RVSN USSR", "US Navy"}, companies(got))

	openEnded := ApplyFilters(table, Criteria{Dates: DateRange{From: day("2020-01-01")}})
	assert.Len(t, openEnded, 3)

	openStart := ApplyFilters(table, Criteria{Dates: DateRange{To: day("1957-12-31")}})
	assert.Len(t, openStart, 3)

	inverted := ApplyFilters(table, Criteria{Dates: DateRange{From: day("2020-01-01"), To: day("1990-01-01")}})
	assert.NotNil(t, inverted)
	assert.Empty(t, inverted)
}

func TestApplyFilters_FullDateRangeKeepsEverything(t *testing.T) {
	table := loadFixture(t)
	got := ApplyFilters(table, Criteria{Dates: DateRange{From: table.MinDate(), To: table.MaxDate()}})
	assert.Equal(t, table.Len(), len(got))
}

func TestApplyFilters_UnknownValuesMatchNothing(t *testing.T) {
	table := loadFixture(t)

	for _, c := range []Criteria{
		{Companies: []string{"Blue Origin"}},
		{Statuses: []types.Status{"Exploded"}},
		{Rockets: []string{"New Glenn"}},
		{Locations: []string{"Moon"}},
		{Rockets: []string{""}},
	} {
		got := ApplyFilters(table, c)
		assert.NotNil(t, got)
		assert.Empty(t, got, "%+v", c)
	}
}

func TestApplyFilters_Substrings(t *testing.T) {
	table := loadFixture(t)

	china := ApplyFilters(table, Criteria{LocationContains: "china"})
	assert.Equal(t, []string{"CASC", "CASC"}, companies(china))

	falcon := ApplyFilters(table, Criteria{RocketContains: "FALCON"})
	assert.Len(t, falcon, 3)

	both := ApplyFilters(table, Criteria{LocationContains: "Kennedy", RocketContains: "falcon"})
	require.Len(t, both, 1)
	assert.Equal(t, "Falcon Heavy", both[0].Rocket)
}

func TestApplyFilters_ExactLocationAndRocket(t *testing.T) {
	table := loadFixture(t)

	got := ApplyFilters(table, Criteria{
		Locations: []string{"LC-39A, Kennedy Space Center, Florida, USA"},
		Rockets:   []string{"Saturn V", "Falcon Heavy"},
	})
	assert.Len(t, got, 3)
}

func TestApplyFilters_DoesNotMutateInputs(t *testing.T) {
	table := loadFixture(t)
	before := table.Missions()
	c := Criteria{Companies: []string{"NASA", "SpaceX"}}

	got := ApplyFilters(table, c)
	got[0].Company = "changed"

	assert.Equal(t, before, table.Missions())
	assert.Equal(t, []string{"NASA", "SpaceX"}, c.Companies)
}

func TestApplyFilters_NilAndEmptyTable(t *testing.T) {
	assert.Equal(t, Subset{}, ApplyFilters(nil, Criteria{}))
	assert.Equal(t, Subset{}, ApplyFilters(dataset.NewTable(nil), Criteria{Companies: []string{"A"}}))
}

func TestCountsByYear_ZeroFilled(t *testing.T) {
	table := loadFixture(t)
	s := ApplyFilters(table, Criteria{})

	got, err := CountsByYear(s, YearRange{Start: 1956, End: 1959})
	require.NoError(t, err)
	assert.Equal(t, []YearCount{
		{Year: 1956, Count: 0},
		{Year: 1957, Count: 3},
		{Year: 1958, Count: 2},
		{Year: 1959, Count: 0},
	}, got)

	_, err = CountsByYear(s, YearRange{Start: 2000, End: 1999})
	assert.True(t, errors.Is(err, mlerrors.ErrInvalidRange))
}

func TestCountsByYear_EmptySubset(t *testing.T) {
	got, err := CountsByYear(Subset{}, YearRange{Start: 2020, End: 2020})
	require.NoError(t, err)
	assert.Equal(t, []YearCount{{Year: 2020, Count: 0}}, got)
}

func TestCountsByCompany_TieBreak(t *testing.T) {
	var s Subset
	for i := 0; i < 5; i++ {
		s = append(s, mission("B", types.StatusSuccess, "2000-01-01"))
		s = append(s, mission("A", types.StatusSuccess, "2000-01-01"))
	}
	for i := 0; i < 3; i++ {
		s = append(s, mission("C", types.StatusSuccess, "2000-01-01"))
	}

	got, err := CountsByCompany(s, 2)
	require.NoError(t, err)
	assert.Equal(t, []Count{{Label: "A", Value: 5}, {Label: "B", Value: 5}}, got)

	all, err := CountsByCompany(s, 10)
	require.NoError(t, err)
	assert.Equal(t, []Count{{"A", 5}, {"B", 5}, {"C", 3}}, all)

	none, err := CountsByCompany(s, 0)
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = CountsByCompany(s, -1)
	assert.True(t, errors.Is(err, mlerrors.ErrInvalidArgument))
}

func TestCountsByRocket(t *testing.T) {
	table := loadFixture(t)
	s := ApplyFilters(table, Criteria{})

	got, err := CountsByRocket(s, 3)
	require.NoError(t, err)
	assert.Equal(t, []Count{
		{Label: "Falcon 9 Block 5", Value: 2},
		{Label: "Saturn V", Value: 2},
		{Label: "Sputnik 8K71PS", Value: 2},
	}, got)

	all, err := CountsByRocket(s, 100)
	require.NoError(t, err)
	total := 0
	for _, c := range all {
		assert.NotEmpty(t, c.Label, "unknown rockets are not ranked")
		total += c.Value
	}
	assert.Equal(t, len(s)-1, total)

	_, err = CountsByRocket(s, -2)
	assert.True(t, errors.Is(err, mlerrors.ErrInvalidArgument))
}

func TestCountsByStatus(t *testing.T) {
	table := loadFixture(t)
	s := ApplyFilters(table, Criteria{Companies: []string{"NASA"}})

	got := CountsByStatus(s)
	assert.Equal(t, []Count{
		{Label: "Success", Value: 1},
		{Label: "Failure", Value: 1},
		{Label: "Partial Failure", Value: 1},
	}, got)

	assert.Empty(t, CountsByStatus(Subset{}))
}

func TestCountsByStatus_UnknownStatusStillCounted(t *testing.T) {
	s := Subset{
		mission("A", "Scrubbed", "2000-01-01"),
		mission("A", types.StatusSuccess, "2000-01-01"),
	}
	got := CountsByStatus(s)
	assert.Equal(t, []Count{{"Success", 1}, {"Scrubbed", 1}}, got)
}

func TestSuccessRate(t *testing.T) {
	table := loadFixture(t)

	r := SuccessRate(ApplyFilters(table, Criteria{Companies: []string{"SpaceX"}}))
	assert.True(t, r.Defined())
	assert.Equal(t, 2, r.Successes)
	assert.Equal(t, 3, r.Total)
	assert.InDelta(t, 0.6667, r.Value(), 0.0001)
	assert.Equal(t, 66.67, r.Percent())
	assert.Equal(t, "66.67%", r.String())
}

func TestSuccessRate_EmptyIsUndefined(t *testing.T) {
	r := SuccessRate(Subset{})
	assert.False(t, r.Defined())
	assert.True(t, math.IsNaN(r.Value()))
	assert.True(t, math.IsNaN(r.Percent()))
	assert.Equal(t, "N/A", r.String())
}

func TestRate_MarshalJSON(t *testing.T) {
	b, err := Rate{Successes: 1, Total: 4}.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"successes":1,"total":4,"percent":25,"display":"25.00%"}`, string(b))

	b, err = Rate{}.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"successes":0,"total":0,"percent":null,"display":"N/A"}`, string(b))
}

func TestAveragePerYear(t *testing.T) {
	table := loadFixture(t)
	s := ApplyFilters(table, Criteria{})

	avg, err := AveragePerYear(s, YearRange{Start: 1957, End: 1958})
	require.NoError(t, err)
	assert.Equal(t, 2.5, avg)

	avg, err = AveragePerYear(s, YearRange{Start: 2010, End: 2020})
	require.NoError(t, err)
	assert.Equal(t, 0.45, Round2(avg))

	avg, err = AveragePerYear(Subset{}, YearRange{Start: 2000, End: 2000})
	require.NoError(t, err)
	assert.Zero(t, avg)

	_, err = AveragePerYear(s, YearRange{Start: 2020, End: 2010})
	require.Error(t, err)
	assert.True(t, errors.Is(err, mlerrors.ErrInvalidRange))
}

func TestYearRange_RejectsOversizedSpans(t *testing.T) {
	s := Subset{mission("A", types.StatusSuccess, "2000-01-01")}

	tests := []struct {
		name string
		r    YearRange
	}{
		{"overflowing span", YearRange{Start: math.MinInt, End: math.MaxInt}},
		{"overflow by one", YearRange{Start: -1, End: math.MaxInt}},
		{"millions of years", YearRange{Start: 0, End: 5000000}},
		{"one past the cap", YearRange{Start: 1, End: MaxYearSpan + 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Zero(t, tt.r.Len())
			assert.True(t, errors.Is(tt.r.Validate(), mlerrors.ErrInvalidRange))

			years, err := CountsByYear(s, tt.r)
			assert.Nil(t, years)
			assert.True(t, errors.Is(err, mlerrors.ErrInvalidRange))

			_, err = AveragePerYear(s, tt.r)
			assert.True(t, errors.Is(err, mlerrors.ErrInvalidRange))

			_, err = Aggregate(s, KindCountsByYear, Params{Years: tt.r})
			assert.True(t, errors.Is(err, mlerrors.ErrInvalidRange))
		})
	}

	widest := YearRange{Start: 1, End: MaxYearSpan}
	require.NoError(t, widest.Validate())
	years, err := CountsByYear(s, widest)
	require.NoError(t, err)
	assert.Len(t, years, MaxYearSpan)
}

func TestAggregate_Dispatch(t *testing.T) {
	table := loadFixture(t)
	s := ApplyFilters(table, Criteria{})

	v, err := Aggregate(s, KindCountsByYear, Params{Years: YearRange{Start: 1957, End: 1958}})
	require.NoError(t, err)
	assert.Equal(t, []Count{{"1957", 3}, {"1958", 2}}, v.Series)
	assert.Equal(t, 5, v.Total())

	v, err = Aggregate(s, KindCountsByCompany, Params{TopN: 1})
	require.NoError(t, err)
	assert.Equal(t, []Count{{"NASA", 3}}, v.Series)

	v, err = Aggregate(s, KindCountsByStatus, Params{})
	require.NoError(t, err)
	assert.Equal(t, len(s), v.Total())

	v, err = Aggregate(s, KindSuccessRate, Params{})
	require.NoError(t, err)
	require.NotNil(t, v.Rate)
	assert.Equal(t, len(s), v.Rate.Total)

	v, err = Aggregate(s, KindAveragePerYear, Params{Years: YearRange{Start: 1957, End: 1958}})
	require.NoError(t, err)
	require.NotNil(t, v.Average)
	assert.Equal(t, 2.5, *v.Average)

	_, err = Aggregate(s, KindAveragePerYear, Params{Years: YearRange{Start: 1, End: 0}})
	assert.True(t, errors.Is(err, mlerrors.ErrInvalidRange))

	_, err = Aggregate(s, "median", Params{})
	assert.True(t, errors.Is(err, mlerrors.ErrInvalidArgument))
}

func TestParseKind(t *testing.T) {
	for _, k := range Kinds {
		got, err := ParseKind(string(k))
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}
	_, err := ParseKind("COUNTS_BY_YEAR")
	assert.Error(t, err)
}

func TestSortTable_Stable(t *testing.T) {
	s := Subset{
		mission("B", types.StatusSuccess, "2000-01-01"),
		mission("A", types.StatusFailure, "2000-01-02"),
		mission("B", types.StatusFailure, "2000-01-03"),
		mission("A", types.StatusSuccess, "2000-01-04"),
	}

	asc, err := SortTable(s, types.ColumnCompany, Ascending)
	require.NoError(t, err)
	assert.Equal(t, []string{"A-2000-01-02", "A-2000-01-04", "B-2000-01-01", "B-2000-01-03"}, names(asc))

	desc, err := SortTable(s, types.ColumnCompany, Descending)
	require.NoError(t, err)
	assert.Equal(t, []string{"B-2000-01-01", "B-2000-01-03", "A-2000-01-02", "A-2000-01-04"}, names(desc))

	byStatus, err := SortTable(s, types.ColumnStatus, Ascending)
	require.NoError(t, err)
	assert.Equal(t, []string{"B-2000-01-01", "A-2000-01-04", "A-2000-01-02", "B-2000-01-03"}, names(byStatus))

	// Input untouched
	assert.Equal(t, "B-2000-01-01", s[0].Mission)
}

func TestSortTable_Columns(t *testing.T) {
	table := loadFixture(t)
	s := ApplyFilters(table, Criteria{})

	byDate, err := SortTable(s, types.ColumnDate, Descending)
	require.NoError(t, err)
	assert.Equal(t, "Crew-1", byDate[0].Mission)
	assert.Equal(t, "Sputnik-1", byDate[len(byDate)-1].Mission)

	byPrice, err := SortTable(s, types.ColumnPrice, Descending)
	require.NoError(t, err)
	assert.Equal(t, "Apollo 11", byPrice[0].Mission)
	assert.Equal(t, "Apollo 13", byPrice[1].Mission)
	assert.False(t, byPrice[len(byPrice)-1].Price.Known)

	for _, col := range []types.Column{
		types.ColumnCompany, types.ColumnLocation, types.ColumnTime, types.ColumnRocket,
		types.ColumnMission, types.ColumnRocketStatus,
	} {
		out, err := SortTable(s, col, Ascending)
		require.NoError(t, err, col)
		assert.Len(t, out, len(s))
	}

	_, err = SortTable(s, "payload_mass", Ascending)
	assert.True(t, errors.Is(err, mlerrors.ErrInvalidArgument))

	_, err = SortTable(s, types.ColumnDate, "sideways")
	assert.True(t, errors.Is(err, mlerrors.ErrInvalidArgument))
}

func TestParseDirection(t *testing.T) {
	for in, want := range map[string]Direction{
		"":           Ascending,
		"asc":        Ascending,
		"Ascending":  Ascending,
		"DESC":       Descending,
		"descending": Descending,
	} {
		got, err := ParseDirection(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseDirection("up")
	assert.Error(t, err)
}

func names(s Subset) []string {
	out := make([]string, len(s))
	for i, m := range s {
		out[i] = m.Mission
	}
	return out
}
