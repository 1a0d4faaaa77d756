package recurrence

import (
	"bytes"
	"testing"
	"time"

	"github.com/emersion/go-ical"
	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyp0633/libslots/datetime"
)

func roundTrip(t *testing.T, event *ical.Event) *ical.Component {
	t.Helper()

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//libslots//test//EN")
	cal.Children = append(cal.Children, event.Component)

	var buf bytes.Buffer
	require.NoError(t, ical.NewEncoder(&buf).Encode(cal))

	decoded, err := ical.NewDecoder(&buf).Decode()
	require.NoError(t, err)
	events := decoded.Events()
	require.Len(t, events, 1)
	return events[0].Component
}

func TestEngine_MasterEventRoundTrip(t *testing.T) {
	engine := NewEngine(datetime.NewLocal(time.UTC))
	utc := func(y int, m time.Month, d, hh, mm int) time.Time {
		return time.Date(y, m, d, hh, mm, 0, 0, time.UTC)
	}
	stamp := utc(2025, 1, 1, 0, 0)

	inputs := map[string]Input{
		"weekly with end": {
			BaseStartAt: utc(2025, 1, 6, 10, 0),
			BaseEndAt:   utc(2025, 1, 6, 12, 0),
			Settings:    Settings{Type: TypeWeekly, SelectedDays: []int{1, 3, 5}, EndDate: mo.Some(utc(2025, 1, 31, 0, 0))},
		},
		"overnight daily to horizon": {
			BaseStartAt: utc(2025, 1, 1, 22, 0),
			BaseEndAt:   utc(2025, 1, 2, 1, 0),
			Settings:    Settings{Type: TypeDaily},
		},
	}

	for name, in := range inputs {
		t.Run(name, func(t *testing.T) {
			event, err := engine.MasterEvent(in, "uid-1", "Beach cleanup", stamp)
			require.NoError(t, err)
			assert.Equal(t, "Beach cleanup", event.Props.Get(ical.PropSummary).Value)
			assert.NotNil(t, event.Props.Get(ical.PropRecurrenceRule))

			parsed, err := engine.InputFromComponent(roundTrip(t, event))
			require.NoError(t, err)

			assert.True(t, in.BaseStartAt.Equal(parsed.BaseStartAt))
			assert.True(t, in.BaseEndAt.Equal(parsed.BaseEndAt))
			assert.Equal(t, in.Settings.Type, parsed.Settings.Type)
			assert.Equal(t, engine.Generate(in), engine.Generate(parsed))
		})
	}
}

func TestEngine_InputFromComponent(t *testing.T) {
	engine := NewEngine(datetime.NewLocal(time.UTC))
	start := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	t.Run("single event repeats once", func(t *testing.T) {
		event := ical.NewEvent()
		event.Props.SetDateTime(ical.PropDateTimeStart, start)
		event.Props.SetDateTime(ical.PropDateTimeEnd, start.Add(90*time.Minute))

		in, err := engine.InputFromComponent(event.Component)
		require.NoError(t, err)
		got := engine.Generate(in)
		require.Len(t, got, 1)
		assert.Equal(t, start.Add(90*time.Minute), got[0].EndAt)
	})

	t.Run("duration instead of dtend", func(t *testing.T) {
		event := ical.NewEvent()
		event.Props.SetDateTime(ical.PropDateTimeStart, start)
		duration := ical.NewProp(ical.PropDuration)
		duration.Value = "PT45M"
		event.Props.Set(duration)
		rule := ical.NewProp(ical.PropRecurrenceRule)
		rule.Value = "FREQ=DAILY;UNTIL=20250303T090000Z"
		event.Props.Set(rule)

		in, err := engine.InputFromComponent(event.Component)
		require.NoError(t, err)
		assert.Equal(t, start.Add(45*time.Minute), in.BaseEndAt)
		assert.Len(t, engine.Generate(in), 3)
	})

	t.Run("missing dtstart", func(t *testing.T) {
		_, err := engine.InputFromComponent(ical.NewEvent().Component)
		assert.Error(t, err)
	})

	t.Run("unsupported rule", func(t *testing.T) {
		event := ical.NewEvent()
		event.Props.SetDateTime(ical.PropDateTimeStart, start)
		rule := ical.NewProp(ical.PropRecurrenceRule)
		rule.Value = "FREQ=MONTHLY;BYMONTHDAY=1"
		event.Props.Set(rule)

		_, err := engine.InputFromComponent(event.Component)
		assert.ErrorIs(t, err, ErrUnsupportedRule)
	})
}
