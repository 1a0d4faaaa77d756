package slot

import (
	"bytes"
	"testing"
	"time"

	"github.com/emersion/go-ical"
	"github.com/google/uuid"
	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteICS(t *testing.T) {
	utc := func(d, hh int) time.Time { return time.Date(2025, 1, d, hh, 0, 0, 0, time.UTC) }

	cancelled := PersistedSlot{
		ID:            "slot-1",
		Spec:          Spec{StartAt: utc(1, 10), EndAt: utc(1, 12)},
		HostingStatus: mo.Some(StatusCancelled),
	}
	fresh := NewSlot{Spec: Spec{StartAt: utc(2, 22), EndAt: utc(3, 1), Capacity: mo.Some(8)}}

	var buf bytes.Buffer
	require.NoError(t, WriteICS(&buf, []Slot{cancelled, fresh}, ExportOptions{
		Summary: "Beach cleanup",
		Stamp:   utc(1, 0),
	}))

	decoded, err := ical.NewDecoder(&buf).Decode()
	require.NoError(t, err)
	assert.Equal(t, ProductID, decoded.Props.Get(ical.PropProductID).Value)

	events := decoded.Events()
	require.Len(t, events, 2)

	first := events[0]
	assert.Equal(t, "slot-1", first.Props.Get(ical.PropUID).Value)
	assert.Equal(t, "CANCELLED", first.Props.Get(ical.PropStatus).Value)
	assert.Equal(t, "Beach cleanup", first.Props.Get(ical.PropSummary).Value)
	assert.Nil(t, first.Props.Get("X-CAPACITY"))

	second := events[1]
	_, err = uuid.Parse(second.Props.Get(ical.PropUID).Value)
	assert.NoError(t, err)
	assert.Equal(t, "TENTATIVE", second.Props.Get(ical.PropStatus).Value)
	assert.Equal(t, "8", second.Props.Get("X-CAPACITY").Value)

	start, err := second.DateTimeStart(time.UTC)
	require.NoError(t, err)
	end, err := second.DateTimeEnd(time.UTC)
	require.NoError(t, err)
	assert.True(t, utc(2, 22).Equal(start))
	assert.Equal(t, 3*time.Hour, end.Sub(start))
}

func TestWriteICSPointerVariants(t *testing.T) {
	utc := func(d, hh int) time.Time { return time.Date(2025, 1, d, hh, 0, 0, 0, time.UTC) }

	saved := &PersistedSlot{
		ID:            "slot-1",
		Spec:          Spec{StartAt: utc(1, 10), EndAt: utc(1, 12), Capacity: mo.Some(4)},
		HostingStatus: mo.Some(StatusScheduled),
	}
	fresh := &NewSlot{Spec: Spec{StartAt: utc(2, 10), EndAt: utc(2, 12)}}

	var buf bytes.Buffer
	require.NoError(t, WriteICS(&buf, []Slot{saved, (*NewSlot)(nil), fresh}, ExportOptions{Stamp: utc(1, 0)}))

	decoded, err := ical.NewDecoder(&buf).Decode()
	require.NoError(t, err)
	events := decoded.Events()
	require.Len(t, events, 2)

	assert.Equal(t, "slot-1", events[0].Props.Get(ical.PropUID).Value)
	assert.Equal(t, "CONFIRMED", events[0].Props.Get(ical.PropStatus).Value)
	assert.Equal(t, "4", events[0].Props.Get("X-CAPACITY").Value)
	assert.Equal(t, "TENTATIVE", events[1].Props.Get(ical.PropStatus).Value)
}
