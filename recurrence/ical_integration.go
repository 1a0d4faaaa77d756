package recurrence

import (
	"errors"
	"fmt"
	"time"

	"github.com/emersion/go-ical"
	"github.com/samber/mo"
	"github.com/teambition/rrule-go"
)

// MasterEvent renders the input as one recurring VEVENT: DTSTART/DTEND are
// the base pair and RRULE carries the settings. Calendar clients expand it to
// the same occurrences as Generate.
func (e *Engine) MasterEvent(in Input, uid, summary string, stamp time.Time) (*ical.Event, error) {
	opt, err := e.ROption(in)
	if err != nil {
		return nil, err
	}

	event := ical.NewEvent()
	event.Props.SetText(ical.PropUID, uid)
	event.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())
	event.Props.SetDateTime(ical.PropDateTimeStart, in.BaseStartAt)
	event.Props.SetDateTime(ical.PropDateTimeEnd, e.cal.AddMs(in.BaseStartAt, e.cal.DiffMs(in.BaseStartAt, in.BaseEndAt)))
	if summary != "" {
		event.Props.SetText(ical.PropSummary, summary)
	}

	rule := ical.NewProp(ical.PropRecurrenceRule)
	rule.Value = opt.RRuleString()
	event.Props.Set(rule)

	return event, nil
}

// InputFromComponent reads a recurring VEVENT back into an Input. Floating
// and TZID-less times are read in the engine's calendar location.
func (e *Engine) InputFromComponent(comp *ical.Component) (Input, error) {
	loc := e.cal.Location()

	startProp := comp.Props.Get(ical.PropDateTimeStart)
	if startProp == nil {
		return Input{}, errors.New("missing DTSTART")
	}
	start, err := startProp.DateTime(loc)
	if err != nil {
		return Input{}, fmt.Errorf("failed to read DTSTART: %w", err)
	}
	start = start.In(loc)

	var end time.Time
	if endProp := comp.Props.Get(ical.PropDateTimeEnd); endProp != nil {
		dtend, err := endProp.DateTime(loc)
		if err != nil {
			return Input{}, fmt.Errorf("failed to read DTEND: %w", err)
		}
		end = dtend.In(loc)
	} else if durationProp := comp.Props.Get(ical.PropDuration); durationProp != nil {
		duration, err := durationProp.Duration()
		if err != nil {
			return Input{}, fmt.Errorf("failed to read DURATION: %w", err)
		}
		end = start.Add(duration)
	} else {
		end = start
	}

	in := Input{BaseStartAt: start, BaseEndAt: end}

	ruleProp := comp.Props.Get(ical.PropRecurrenceRule)
	if ruleProp == nil || ruleProp.Value == "" {
		// A single event is a daily rule that ends on its own day.
		in.Settings = Settings{Type: TypeDaily}
		in.Settings.EndDate = mo.Some(e.cal.StartOfDay(start))
		return in, nil
	}

	opt, err := rrule.StrToROptionInLocation(ruleProp.Value, loc)
	if err != nil {
		return Input{}, fmt.Errorf("failed to parse RRULE %q: %w", ruleProp.Value, err)
	}
	settings, err := e.SettingsFromROption(opt, start)
	if err != nil {
		return Input{}, err
	}
	in.Settings = settings
	return in, nil
}
