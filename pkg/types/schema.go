package types

import (
	"fmt"
	"strings"
)

// Column identifies a displayable mission column.
type Column string

const (
	ColumnCompany      Column = "company"
	ColumnLocation     Column = "location"
	ColumnDate         Column = "date"
	ColumnTime         Column = "time"
	ColumnRocket       Column = "rocket"
	ColumnMission      Column = "mission"
	ColumnRocketStatus Column = "rocket_status"
	ColumnPrice        Column = "price"
	ColumnStatus       Column = "status"
)

// ColumnDef defines a single column of the missions source.
type ColumnDef struct {
	// Name is the canonical column name
	Name Column `json:"name"`

	// Aliases are alternative header spellings accepted by the loader
	Aliases []string `json:"aliases,omitempty"`

	// Required indicates the loader must find this column in the header
	Required bool `json:"required"`
}

// Schema is the fixed layout of the missions source, in display order.
var Schema = []ColumnDef{
	{Name: ColumnCompany, Aliases: []string{"company_name", "organisation", "organization"}, Required: true},
	{Name: ColumnLocation, Aliases: []string{"launch_site", "site"}, Required: true},
	{Name: ColumnDate, Aliases: []string{"launch_date", "datum"}, Required: true},
	{Name: ColumnTime, Aliases: []string{"launch_time"}},
	{Name: ColumnRocket, Aliases: []string{"rocket_name", "vehicle"}, Required: true},
	{Name: ColumnMission, Aliases: []string{"mission_name", "detail", "payload"}},
	{Name: ColumnRocketStatus, Aliases: []string{"status_rocket"}},
	{Name: ColumnPrice, Aliases: []string{"rocket_price", "cost"}},
	{Name: ColumnStatus, Aliases: []string{"mission_status", "status_mission", "outcome"}, Required: true},
}

// RequiredColumns returns the canonical names of every required column.
func RequiredColumns() []Column {
	var cols []Column
	for _, def := range Schema {
		if def.Required {
			cols = append(cols, def.Name)
		}
	}
	return cols
}

// ParseColumn resolves a header or user-supplied name to a canonical Column.
// "MissionStatus", "mission status" and "mission_status" all resolve to ColumnStatus.
func ParseColumn(name string) (Column, error) {
	key := NormalizeHeader(name)
	for _, def := range Schema {
		if key == string(def.Name) {
			return def.Name, nil
		}
		for _, alias := range def.Aliases {
			if key == alias {
				return def.Name, nil
			}
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownColumn, name)
}

// NormalizeHeader converts "MissionStatus", "Mission Status" or
// "mission-status" into "mission_status".
func NormalizeHeader(s string) string {
	s = strings.TrimSpace(strings.TrimPrefix(s, "\ufeff"))
	var b strings.Builder
	prevLower := false
	for _, r := range s {
		switch {
		case r == ' ' || r == '-' || r == '_' || r == '.':
			if b.Len() > 0 && !strings.HasSuffix(b.String(), "_") {
				b.WriteByte('_')
			}
			prevLower = false
		case r >= 'A' && r <= 'Z':
			if prevLower {
				b.WriteByte('_')
			}
			b.WriteRune(r + ('a' - 'A'))
			prevLower = false
		default:
			b.WriteRune(r)
			prevLower = (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}
