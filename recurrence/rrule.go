package recurrence

import (
	"errors"
	"fmt"
	"time"

	"github.com/samber/mo"
	"github.com/teambition/rrule-go"
)

// rruleWeekdays is indexed by time.Weekday (0 = Sunday).
var rruleWeekdays = [7]rrule.Weekday{rrule.SU, rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA}

// ErrUnsupportedRule is returned for RRULEs the generator cannot express.
var ErrUnsupportedRule = errors.New("unsupported recurrence rule")

// ROption expresses the input as an RFC 5545 rule anchored at the base start.
// UNTIL is the base time of day on the effective end day, so the rule expands
// to the same starts Generate produces.
func (e *Engine) ROption(in Input) (*rrule.ROption, error) {
	if in.BaseStartAt.IsZero() {
		return nil, errors.New("base start is required")
	}

	first := e.cal.StartOfDay(in.BaseStartAt)
	last := e.EffectiveEnd(first, in.Settings.EndDate)

	opt := &rrule.ROption{
		Dtstart: e.cal.WithTimeOfDay(first, in.BaseStartAt),
		Until:   e.cal.WithTimeOfDay(last, in.BaseStartAt),
	}

	switch in.Settings.Type {
	case TypeDaily:
		opt.Freq = rrule.DAILY
	case TypeWeekly:
		opt.Freq = rrule.WEEKLY
		seen := [7]bool{}
		for _, d := range in.Settings.SelectedDays {
			if d < 0 || d > 6 {
				return nil, fmt.Errorf("%w: weekday %d", ErrUnsupportedRule, d)
			}
			if seen[d] {
				continue
			}
			seen[d] = true
		}
		for d, ok := range seen {
			if ok {
				opt.Byweekday = append(opt.Byweekday, rruleWeekdays[d])
			}
		}
		if len(opt.Byweekday) == 0 {
			return nil, fmt.Errorf("%w: weekly rule without weekdays", ErrUnsupportedRule)
		}
	default:
		return nil, fmt.Errorf("%w: type %s", ErrUnsupportedRule, in.Settings.Type)
	}

	return opt, nil
}

// RRule builds the expandable rule for the input.
func (e *Engine) RRule(in Input) (*rrule.RRule, error) {
	opt, err := e.ROption(in)
	if err != nil {
		return nil, err
	}
	return rrule.NewRRule(*opt)
}

// SettingsFromROption maps a parsed rule back to recurrence settings. Only
// FREQ=DAILY and FREQ=WEEKLY with INTERVAL=1 and no COUNT/BYxxx parts other
// than BYDAY are representable. A weekly rule without BYDAY repeats on
// dtstart's weekday, as RFC 5545 specifies.
func (e *Engine) SettingsFromROption(opt *rrule.ROption, dtstart time.Time) (Settings, error) {
	if opt == nil {
		return Settings{}, fmt.Errorf("%w: empty rule", ErrUnsupportedRule)
	}
	if opt.Interval > 1 {
		return Settings{}, fmt.Errorf("%w: INTERVAL=%d", ErrUnsupportedRule, opt.Interval)
	}
	if opt.Count != 0 {
		return Settings{}, fmt.Errorf("%w: COUNT", ErrUnsupportedRule)
	}
	if len(opt.Bymonth)+len(opt.Bymonthday)+len(opt.Byyearday)+len(opt.Byweekno)+len(opt.Bysetpos) > 0 {
		return Settings{}, fmt.Errorf("%w: BYxxx parts", ErrUnsupportedRule)
	}

	settings := Settings{EndDate: mo.None[time.Time]()}
	if !opt.Until.IsZero() {
		settings.EndDate = mo.Some(e.cal.StartOfDay(opt.Until))
	}

	switch opt.Freq {
	case rrule.DAILY:
		if len(opt.Byweekday) > 0 {
			return Settings{}, fmt.Errorf("%w: BYDAY on a daily rule", ErrUnsupportedRule)
		}
		settings.Type = TypeDaily
	case rrule.WEEKLY:
		settings.Type = TypeWeekly
		for _, wd := range opt.Byweekday {
			if wd.N() != 0 {
				return Settings{}, fmt.Errorf("%w: BYDAY=%s", ErrUnsupportedRule, wd)
			}
			// rrule counts Monday as 0.
			settings.SelectedDays = append(settings.SelectedDays, (wd.Day()+1)%7)
		}
		if len(settings.SelectedDays) == 0 {
			settings.SelectedDays = []int{e.cal.Weekday(dtstart)}
		}
	default:
		return Settings{}, fmt.Errorf("%w: FREQ=%s", ErrUnsupportedRule, opt.Freq)
	}

	return settings, nil
}
