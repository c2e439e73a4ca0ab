package dataset

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	mlerrors "github.com/missionlens/missionlens/internal/errors"
	"github.com/missionlens/missionlens/pkg/types"
)

// dateLayouts are tried in order when parsing the date column.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	time.RFC3339Nano,
	"2006/01/02",
	"01/02/2006",
	"Mon Jan 02, 2006",
	"Mon Jan 2, 2006",
	"Jan 2, 2006",
}

// rawRow is one source row keyed by canonical column.
type rawRow struct {
	line   int
	values map[types.Column]string
}

func (r rawRow) get(col types.Column) string {
	return strings.TrimSpace(r.values[col])
}

// parseMission converts a raw row into a Mission. Only the required columns
// can fail; optional columns fall back to their zero values.
func parseMission(r rawRow) (types.Mission, *mlerrors.RowParseError) {
	var m types.Mission

	// Null tokens only apply to optional columns; a site may be named "NA"
	m.Company = r.get(types.ColumnCompany)
	if m.Company == "" {
		return m, rowError(r, types.ColumnCompany, "empty value")
	}

	m.Location = r.get(types.ColumnLocation)
	if m.Location == "" {
		return m, rowError(r, types.ColumnLocation, "empty value")
	}

	date, err := parseDate(r.get(types.ColumnDate))
	if err != nil {
		return m, rowError(r, types.ColumnDate, err.Error())
	}
	m.Date = date

	status, err := types.ParseStatus(r.get(types.ColumnStatus))
	if err != nil {
		return m, rowError(r, types.ColumnStatus, "not one of "+statusList())
	}
	m.Status = status

	m.Rocket = nullable(r.get(types.ColumnRocket))
	m.Time = nullable(r.get(types.ColumnTime))
	m.Mission = nullable(r.get(types.ColumnMission))
	m.RocketStatus = nullable(r.get(types.ColumnRocketStatus))
	m.Price = parsePrice(r.get(types.ColumnPrice))

	return m, nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return types.Day(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date")
}

// parsePrice accepts "50.0", "1,160.0" and "$62". Anything else is unpublished.
func parsePrice(s string) types.Price {
	if isNull(s) {
		return types.Price{}
	}
	s = strings.NewReplacer(",", "", "$", "").Replace(s)
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return types.Price{}
	}
	return types.KnownPrice(v)
}

func nullable(s string) string {
	if isNull(s) {
		return ""
	}
	return s
}

// isNull reports whether an optional cell holds one of the usual spellings
// of a missing value.
func isNull(s string) bool {
	switch strings.ToLower(s) {
	case "", "nan", "null", "none", "n/a", "na":
		return true
	}
	return false
}

func rowError(r rawRow, col types.Column, reason string) *mlerrors.RowParseError {
	return &mlerrors.RowParseError{
		Line:   r.line,
		Column: string(col),
		Value:  r.values[col],
		Reason: reason,
	}
}

func statusList() string {
	names := make([]string, len(types.AllStatuses))
	for i, s := range types.AllStatuses {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}
