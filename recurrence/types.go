package recurrence

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/samber/mo"
)

// HorizonMonths is the hard cap on how far past the base day generation may
// project. It cannot be extended by a later end date.
const HorizonMonths = 3

// Type selects the recurrence rule.
type Type int

const (
	TypeDaily Type = iota
	TypeWeekly
)

// String returns the wire name of the recurrence type.
func (t Type) String() string {
	switch t {
	case TypeDaily:
		return "daily"
	case TypeWeekly:
		return "weekly"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

// ParseType accepts "daily" or "weekly" in any case.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "daily":
		return TypeDaily, nil
	case "weekly":
		return TypeWeekly, nil
	default:
		return 0, fmt.Errorf("unknown recurrence type %q", s)
	}
}

func (t Type) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *Type) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Settings is the user-chosen generation policy.
type Settings struct {
	Type Type
	// EndDate is a calendar day; its time of day is ignored. None means the
	// horizon is the only limit.
	EndDate mo.Option[time.Time]
	// SelectedDays holds weekday numbers, 0 (Sunday) to 6 (Saturday). Only
	// consulted for TypeWeekly.
	SelectedDays []int
}

// Input is everything generation needs. Zero timestamps mean "not chosen yet".
type Input struct {
	BaseStartAt time.Time
	BaseEndAt   time.Time
	Settings    Settings
}

// Occurrence is one generated start/end pair. It never carries an identifier.
type Occurrence struct {
	StartAt time.Time
	EndAt   time.Time
}
