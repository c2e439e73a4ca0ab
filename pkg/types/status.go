package types

import (
	"fmt"
	"strings"
)

// Status is the outcome of a mission. The set of values is closed.
type Status string

const (
	StatusSuccess          Status = "Success"
	StatusFailure          Status = "Failure"
	StatusPartialFailure   Status = "Partial Failure"
	StatusPrelaunchFailure Status = "Prelaunch Failure"
)

// AllStatuses lists every status in display order.
var AllStatuses = []Status{
	StatusSuccess,
	StatusFailure,
	StatusPartialFailure,
	StatusPrelaunchFailure,
}

// ParseStatus converts a raw label into a Status.
// Matching ignores case and surrounding whitespace.
func ParseStatus(s string) (Status, error) {
	s = strings.TrimSpace(s)
	for _, st := range AllStatuses {
		if strings.EqualFold(s, string(st)) {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
}

// Valid reports whether s belongs to the closed status set.
func (s Status) Valid() bool {
	return s.Index() >= 0
}

// Index returns the position of s in AllStatuses, or -1.
func (s Status) Index() int {
	for i, st := range AllStatuses {
		if st == s {
			return i
		}
	}
	return -1
}

func (s Status) String() string {
	return string(s)
}
