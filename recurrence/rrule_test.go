package recurrence

import (
	"testing"
	"time"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teambition/rrule-go"
)

func TestEngine_RRule_MatchesGenerate(t *testing.T) {
	engine := newTestEngine()

	inputs := map[string]Input{
		"daily with end date": {
			BaseStartAt: at(2025, 1, 1, 10, 0),
			BaseEndAt:   at(2025, 1, 1, 12, 0),
			Settings:    Settings{Type: TypeDaily, EndDate: day(2025, 1, 3)},
		},
		"daily to horizon": {
			BaseStartAt: at(2024, 11, 30, 22, 0),
			BaseEndAt:   at(2024, 12, 1, 1, 0),
			Settings:    Settings{Type: TypeDaily},
		},
		"weekly mon wed fri": {
			BaseStartAt: at(2025, 1, 6, 10, 0),
			BaseEndAt:   at(2025, 1, 6, 12, 0),
			Settings:    Settings{Type: TypeWeekly, SelectedDays: []int{5, 1, 3}, EndDate: day(2025, 2, 28)},
		},
		"weekly weekends not on base day": {
			BaseStartAt: at(2025, 1, 1, 9, 0),
			BaseEndAt:   at(2025, 1, 1, 17, 30),
			Settings:    Settings{Type: TypeWeekly, SelectedDays: []int{0, 6}},
		},
	}

	for name, in := range inputs {
		t.Run(name, func(t *testing.T) {
			rule, err := engine.RRule(in)
			require.NoError(t, err)

			want := engine.Generate(in)
			got := rule.All()
			require.Len(t, got, len(want))
			for i := range want {
				assert.True(t, want[i].StartAt.Equal(got[i]), "occurrence %d: %s != %s", i, want[i].StartAt, got[i])
			}
		})
	}
}

func TestEngine_ROption(t *testing.T) {
	engine := newTestEngine()

	opt, err := engine.ROption(Input{
		BaseStartAt: at(2025, 1, 6, 10, 0),
		BaseEndAt:   at(2025, 1, 6, 12, 0),
		Settings:    Settings{Type: TypeWeekly, SelectedDays: []int{5, 1, 3, 1}, EndDate: day(2025, 1, 12)},
	})
	require.NoError(t, err)

	assert.Equal(t, rrule.WEEKLY, opt.Freq)
	assert.Equal(t, []rrule.Weekday{rrule.MO, rrule.WE, rrule.FR}, opt.Byweekday)
	assert.True(t, at(2025, 1, 6, 10, 0).Equal(opt.Dtstart))
	assert.True(t, at(2025, 1, 12, 10, 0).Equal(opt.Until))
	assert.Equal(t, "FREQ=WEEKLY;UNTIL=20250112T010000Z;BYDAY=MO,WE,FR", opt.RRuleString())

	errorCases := map[string]Input{
		"missing base": {Settings: Settings{Type: TypeDaily}},
		"weekly without days": {
			BaseStartAt: at(2025, 1, 6, 10, 0),
			Settings:    Settings{Type: TypeWeekly},
		},
		"weekday out of range": {
			BaseStartAt: at(2025, 1, 6, 10, 0),
			Settings:    Settings{Type: TypeWeekly, SelectedDays: []int{7}},
		},
		"unknown type": {
			BaseStartAt: at(2025, 1, 6, 10, 0),
			Settings:    Settings{Type: Type(9)},
		},
	}
	for name, in := range errorCases {
		t.Run(name, func(t *testing.T) {
			_, err := engine.ROption(in)
			assert.Error(t, err)
		})
	}
}

func TestEngine_SettingsFromROption(t *testing.T) {
	engine := newTestEngine()
	dtstart := at(2025, 1, 7, 10, 0) // Tuesday

	tests := []struct {
		name    string
		rule    string
		want    Settings
		wantErr bool
	}{
		{
			name: "daily forever",
			rule: "FREQ=DAILY",
			want: Settings{Type: TypeDaily, EndDate: mo.None[time.Time]()},
		},
		{
			name: "weekly until",
			rule: "FREQ=WEEKLY;UNTIL=20250112T010000Z;BYDAY=MO,WE,FR",
			want: Settings{Type: TypeWeekly, SelectedDays: []int{1, 3, 5}, EndDate: day(2025, 1, 12)},
		},
		{
			name: "weekly sunday",
			rule: "FREQ=WEEKLY;BYDAY=SU",
			want: Settings{Type: TypeWeekly, SelectedDays: []int{0}, EndDate: mo.None[time.Time]()},
		},
		{
			name: "weekly without byday uses dtstart",
			rule: "FREQ=WEEKLY",
			want: Settings{Type: TypeWeekly, SelectedDays: []int{2}, EndDate: mo.None[time.Time]()},
		},
		{name: "interval", rule: "FREQ=DAILY;INTERVAL=2", wantErr: true},
		{name: "count", rule: "FREQ=DAILY;COUNT=3", wantErr: true},
		{name: "monthly", rule: "FREQ=MONTHLY", wantErr: true},
		{name: "ordinal weekday", rule: "FREQ=WEEKLY;BYDAY=1MO", wantErr: true},
		{name: "bymonth", rule: "FREQ=DAILY;BYMONTH=1", wantErr: true},
		{name: "daily byday", rule: "FREQ=DAILY;BYDAY=MO", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opt, err := rrule.StrToROptionInLocation(tt.rule, jst)
			require.NoError(t, err)

			got, err := engine.SettingsFromROption(opt, dtstart)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedRule)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want.Type, got.Type)
			assert.Equal(t, tt.want.SelectedDays, got.SelectedDays)

			wantEnd, wantOK := tt.want.EndDate.Get()
			gotEnd, gotOK := got.EndDate.Get()
			require.Equal(t, wantOK, gotOK)
			assert.True(t, wantEnd.Equal(gotEnd), "end date %s != %s", wantEnd, gotEnd)
		})
	}

	_, err := engine.SettingsFromROption(nil, dtstart)
	assert.ErrorIs(t, err, ErrUnsupportedRule)
}
