// Package types provides the core data types for missionlens.
package types

import (
	"encoding/json"
	"strconv"
	"time"
)

// Mission represents a single launch in the missions table.
type Mission struct {
	// Company is the launch provider (e.g., "SpaceX", "RVSN USSR")
	Company string `json:"company"`

	// Location is the free-text launch site, usually ending in the country
	Location string `json:"location"`

	// Date is the launch date at UTC midnight
	Date time.Time `json:"date"`

	// Time is the launch time of day as recorded, empty when unknown
	Time string `json:"time,omitempty"`

	// Rocket is the launch vehicle, empty when unknown
	Rocket string `json:"rocket"`

	// Mission is the payload or mission name
	Mission string `json:"mission,omitempty"`

	// RocketStatus reports whether the vehicle is still flying ("Active", "Retired")
	RocketStatus string `json:"rocket_status,omitempty"`

	// Price is the launch cost in millions of USD
	Price Price `json:"price"`

	// Status is the mission outcome
	Status Status `json:"status"`
}

// Year returns the calendar year of the launch.
func (m Mission) Year() int {
	return m.Date.Year()
}

// HasRocket reports whether the launch vehicle is known.
func (m Mission) HasRocket() bool {
	return m.Rocket != ""
}

// Day truncates t to UTC midnight.
func Day(t time.Time) time.Time {
	y, mo, d := t.Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
}

// Price is an optional launch cost. The zero value is an unpublished price.
type Price struct {
	Value float64
	Known bool
}

// KnownPrice returns a published price.
func KnownPrice(v float64) Price {
	return Price{Value: v, Known: true}
}

// MarshalJSON encodes an unpublished price as null.
func (p Price) MarshalJSON() ([]byte, error) {
	if !p.Known {
		return []byte("null"), nil
	}
	return json.Marshal(p.Value)
}

// UnmarshalJSON accepts a number or null.
func (p *Price) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*p = Price{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*p = KnownPrice(v)
	return nil
}

func (p Price) String() string {
	if !p.Known {
		return ""
	}
	return strconv.FormatFloat(p.Value, 'f', -1, 64)
}
