// Package datetime provides the calendar arithmetic used by slot generation.
//
// All operations interpret instants in a single location owned by the
// Calendar. Nothing here converts between zones: a value parsed by a Calendar
// keeps its wall-clock fields through every operation.
package datetime

import (
	"fmt"
	"strings"
	"time"
)

// Layouts accepted by ParseDateTime and ParseDate.
const (
	LayoutDateTime        = "2006-01-02T15:04"
	LayoutDateTimeSeconds = "2006-01-02T15:04:05"
	LayoutDate            = "2006-01-02"
	LayoutMonthKey        = "2006-01"
)

// Calendar is the date-time abstraction injected into the generator and the
// presentation helpers.
type Calendar interface {
	// Location is the zone all calendar fields are read in.
	Location() *time.Location
	// StartOfDay returns local midnight of t's calendar day.
	StartOfDay(t time.Time) time.Time
	// AddDays moves t by n calendar days keeping its time of day.
	AddDays(t time.Time, n int) time.Time
	// AddMonths moves t by n calendar months, clamping the day to the last day
	// of the target month.
	AddMonths(t time.Time, n int) time.Time
	// Weekday returns 0 (Sunday) through 6 (Saturday).
	Weekday(t time.Time) int
	// DiffMs returns end - start in whole milliseconds.
	DiffMs(start, end time.Time) int64
	// AddMs returns t shifted by ms elapsed milliseconds.
	AddMs(t time.Time, ms int64) time.Time
	// WithTimeOfDay returns day's calendar date carrying source's hour, minute,
	// second and sub-second fields.
	WithTimeOfDay(day, source time.Time) time.Time
	// DayDifference counts calendar-day boundaries from earlier to later.
	DayDifference(later, earlier time.Time) int
}

// Local implements Calendar on top of the time package in a fixed location.
type Local struct {
	loc *time.Location
}

// NewLocal creates a Calendar for loc. A nil loc means time.Local.
func NewLocal(loc *time.Location) *Local {
	if loc == nil {
		loc = time.Local
	}
	return &Local{loc: loc}
}

// LoadLocal resolves an IANA zone name. An empty name yields time.Local.
func LoadLocal(name string) (*Local, error) {
	if name == "" {
		return NewLocal(nil), nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", name, err)
	}
	return NewLocal(loc), nil
}

func (c *Local) Location() *time.Location {
	return c.loc
}

func (c *Local) StartOfDay(t time.Time) time.Time {
	t = t.In(c.loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, c.loc)
}

func (c *Local) AddDays(t time.Time, n int) time.Time {
	t = t.In(c.loc)
	return time.Date(t.Year(), t.Month(), t.Day()+n, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), c.loc)
}

func (c *Local) AddMonths(t time.Time, n int) time.Time {
	t = t.In(c.loc)
	firstOfTarget := time.Date(t.Year(), t.Month()+time.Month(n), 1, 0, 0, 0, 0, c.loc)
	day := t.Day()
	if last := daysIn(firstOfTarget.Year(), firstOfTarget.Month()); day > last {
		day = last
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), c.loc)
}

func (c *Local) Weekday(t time.Time) int {
	return int(t.In(c.loc).Weekday())
}

func (c *Local) DiffMs(start, end time.Time) int64 {
	return end.Sub(start).Milliseconds()
}

func (c *Local) AddMs(t time.Time, ms int64) time.Time {
	return t.Add(time.Duration(ms) * time.Millisecond).In(c.loc)
}

func (c *Local) WithTimeOfDay(day, source time.Time) time.Time {
	day = day.In(c.loc)
	source = source.In(c.loc)
	return time.Date(day.Year(), day.Month(), day.Day(),
		source.Hour(), source.Minute(), source.Second(), source.Nanosecond(), c.loc)
}

func (c *Local) DayDifference(later, earlier time.Time) int {
	return civilDays(later.In(c.loc)) - civilDays(earlier.In(c.loc))
}

// ParseDateTime parses a wall-clock timestamp such as "2025-01-01T10:00" in
// the calendar's location. RFC 3339 values are accepted and moved into the
// location.
func (c *Local) ParseDateTime(value string) (time.Time, error) {
	return ParseDateTimeIn(c.loc, value)
}

// ParseDate parses a calendar date ("2006-01-02") at local midnight.
func (c *Local) ParseDate(value string) (time.Time, error) {
	return ParseDateIn(c.loc, value)
}

// ParseDateTimeIn is ParseDateTime for an explicit location. An empty value
// yields the zero time, which callers treat as absent.
func ParseDateTimeIn(loc *time.Location, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{LayoutDateTime, LayoutDateTimeSeconds, "2006-01-02T15:04:05.000"} {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", value, err)
	}
	return t.In(loc), nil
}

// ParseDateIn is ParseDate for an explicit location.
func ParseDateIn(loc *time.Location, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	t, err := time.ParseInLocation(LayoutDate, value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", value, err)
	}
	return t, nil
}

// MonthKey renders the "YYYY-MM" key of t's calendar month.
func MonthKey(cal Calendar, t time.Time) string {
	return t.In(cal.Location()).Format(LayoutMonthKey)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// civilDays maps a calendar date to a day number independent of DST.
func civilDays(t time.Time) int {
	y, m, d := t.Date()
	return int(time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400)
}

var _ Calendar = (*Local)(nil)
