package slot

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/emersion/go-ical"
	"github.com/google/uuid"
)

// ProductID identifies exported calendars.
const ProductID = "-//libslots//Opportunity Slots//EN"

// ExportOptions controls calendar export.
type ExportOptions struct {
	// Summary is the title of every event.
	Summary string
	// Stamp is written as DTSTAMP. Zero means time.Now.
	Stamp time.Time
}

// Calendar builds a VCALENDAR with one VEVENT per slot. Persisted slots use
// their ID as UID; new slots get a random one. Nil slots are skipped.
func Calendar(slots []Slot, opts ExportOptions) *ical.Calendar {
	stamp := opts.Stamp
	if stamp.IsZero() {
		stamp = time.Now()
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, ProductID)

	for _, s := range slots {
		s, ok := Value(s)
		if !ok {
			continue
		}

		event := ical.NewEvent()
		event.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())
		event.Props.SetDateTime(ical.PropDateTimeStart, s.Start())
		event.Props.SetDateTime(ical.PropDateTimeEnd, s.End())
		if opts.Summary != "" {
			event.Props.SetText(ical.PropSummary, opts.Summary)
		}

		switch v := s.(type) {
		case NewSlot:
			event.Props.SetText(ical.PropUID, uuid.NewString())
			event.Props.SetText(ical.PropStatus, "TENTATIVE")
		case PersistedSlot:
			event.Props.SetText(ical.PropUID, v.ID)
			if v.Cancelled() {
				event.Props.SetText(ical.PropStatus, "CANCELLED")
			} else {
				event.Props.SetText(ical.PropStatus, "CONFIRMED")
			}
		}

		if capacity, ok := SpecOf(s).Capacity.Get(); ok {
			prop := ical.NewProp("X-CAPACITY")
			prop.Value = strconv.Itoa(capacity)
			event.Props.Set(prop)
		}

		cal.Children = append(cal.Children, event.Component)
	}

	return cal
}

// WriteICS encodes slots as an iCalendar stream.
func WriteICS(w io.Writer, slots []Slot, opts ExportOptions) error {
	if err := ical.NewEncoder(w).Encode(Calendar(slots, opts)); err != nil {
		return fmt.Errorf("failed to encode calendar: %w", err)
	}
	return nil
}
