// Package storagetest checks a storage.Storage implementation against the
// behavior every backend shares.
package storagetest

import (
	"context"
	"testing"
	"time"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyp0633/libslots/slot"
	"github.com/cyp0633/libslots/storage"
)

var jst = time.FixedZone("JST", 9*60*60)

func at(d, hh int) time.Time {
	return time.Date(2025, 1, d, hh, 0, 0, 0, jst)
}

// Run exercises a fresh store returned by newStore for every subtest. The
// store must return times in JST.
func Run(t *testing.T, newStore func(t *testing.T) storage.Storage) {
	t.Run("create and get", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		record := &storage.Slot{
			OpportunityID: "opp-1",
			StartAt:       at(1, 22),
			EndAt:         at(2, 1),
			Capacity:      mo.Some(5),
		}
		require.NoError(t, store.CreateSlot(ctx, record))
		assert.NotEmpty(t, record.ID)
		assert.Equal(t, slot.StatusScheduled, record.HostingStatus)
		assert.False(t, record.Created.IsZero())

		got, err := store.GetSlot(ctx, record.ID)
		require.NoError(t, err)
		assert.Equal(t, "opp-1", got.OpportunityID)
		assert.True(t, at(1, 22).Equal(got.StartAt))
		assert.True(t, at(2, 1).Equal(got.EndAt))
		assert.Equal(t, jst.String(), got.StartAt.Location().String())
		assert.Equal(t, mo.Some(5), got.Capacity)
		assert.Equal(t, slot.StatusScheduled, got.HostingStatus)

		p := got.Persisted()
		assert.Equal(t, record.ID, p.ID)
		assert.Equal(t, mo.Some(slot.StatusScheduled), p.HostingStatus)
	})

	t.Run("create duplicate", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		record := &storage.Slot{ID: "slot-1", OpportunityID: "opp-1", StartAt: at(1, 10), EndAt: at(1, 11)}
		require.NoError(t, store.CreateSlot(ctx, record))

		again := &storage.Slot{ID: "slot-1", OpportunityID: "opp-1", StartAt: at(2, 10), EndAt: at(2, 11)}
		err := store.CreateSlot(ctx, again)
		assert.True(t, storage.IsType(err, storage.ErrAlreadyExists), "got %v", err)
	})

	t.Run("create invalid", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		invalid := []*storage.Slot{
			{StartAt: at(1, 10), EndAt: at(1, 11)},
			{OpportunityID: "opp-1", StartAt: at(1, 11), EndAt: at(1, 10)},
			{OpportunityID: "opp-1", EndAt: at(1, 10)},
			{OpportunityID: "opp-1", StartAt: at(1, 10), EndAt: at(1, 11), Capacity: mo.Some(-1)},
			{OpportunityID: "opp-1", StartAt: at(1, 10), EndAt: at(1, 11), HostingStatus: "POSTPONED"},
		}
		for i, record := range invalid {
			err := store.CreateSlot(ctx, record)
			assert.True(t, storage.IsType(err, storage.ErrInvalidInput), "case %d: got %v", i, err)
		}
	})

	t.Run("get missing", func(t *testing.T) {
		store := newStore(t)
		_, err := store.GetSlot(context.Background(), "missing")
		assert.True(t, storage.IsType(err, storage.ErrNotFound), "got %v", err)
	})

	t.Run("list orders by start", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		for _, record := range []*storage.Slot{
			{OpportunityID: "opp-1", StartAt: at(3, 10), EndAt: at(3, 11)},
			{OpportunityID: "opp-2", StartAt: at(1, 10), EndAt: at(1, 11)},
			{OpportunityID: "opp-1", StartAt: at(1, 10), EndAt: at(1, 11)},
			{OpportunityID: "opp-1", StartAt: at(2, 10), EndAt: at(2, 11)},
		} {
			require.NoError(t, store.CreateSlot(ctx, record))
		}

		slots, err := store.ListSlots(ctx, "opp-1")
		require.NoError(t, err)
		require.Len(t, slots, 3)
		for i, day := range []int{1, 2, 3} {
			assert.True(t, at(day, 10).Equal(slots[i].StartAt), "slot %d", i)
		}

		none, err := store.ListSlots(ctx, "opp-3")
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("update", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		record := &storage.Slot{OpportunityID: "opp-1", StartAt: at(1, 10), EndAt: at(1, 11)}
		require.NoError(t, store.CreateSlot(ctx, record))

		record.StartAt = at(1, 12)
		record.EndAt = at(1, 14)
		record.Capacity = mo.Some(3)
		record.HostingStatus = slot.StatusCancelled
		require.NoError(t, store.UpdateSlot(ctx, record))

		got, err := store.GetSlot(ctx, record.ID)
		require.NoError(t, err)
		assert.True(t, at(1, 12).Equal(got.StartAt))
		assert.True(t, at(1, 14).Equal(got.EndAt))
		assert.Equal(t, mo.Some(3), got.Capacity)
		assert.Equal(t, slot.StatusCancelled, got.HostingStatus)

		missing := &storage.Slot{ID: "missing", OpportunityID: "opp-1", StartAt: at(1, 10), EndAt: at(1, 11), HostingStatus: slot.StatusScheduled}
		err = store.UpdateSlot(ctx, missing)
		assert.True(t, storage.IsType(err, storage.ErrNotFound), "got %v", err)

		moved := *got
		moved.OpportunityID = "opp-2"
		err = store.UpdateSlot(ctx, &moved)
		assert.True(t, storage.IsType(err, storage.ErrInvalidInput), "got %v", err)
	})

	t.Run("update many is atomic", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		first := &storage.Slot{OpportunityID: "opp-1", StartAt: at(1, 10), EndAt: at(1, 11)}
		second := &storage.Slot{OpportunityID: "opp-1", StartAt: at(2, 10), EndAt: at(2, 11)}
		other := &storage.Slot{OpportunityID: "opp-2", StartAt: at(3, 10), EndAt: at(3, 11)}
		for _, record := range []*storage.Slot{first, second, other} {
			require.NoError(t, store.CreateSlot(ctx, record))
		}

		moved := func(record *storage.Slot, opportunityID string, day int) *storage.Slot {
			c := *record
			c.OpportunityID = opportunityID
			c.StartAt = at(day, 14)
			c.EndAt = at(day, 15)
			return &c
		}

		tests := []struct {
			name    string
			updates []*storage.Slot
			errType storage.ErrorType
		}{
			{
				name:    "missing slot last",
				updates: []*storage.Slot{moved(first, "opp-1", 1), {ID: "missing", OpportunityID: "opp-1", StartAt: at(1, 10), EndAt: at(1, 11), HostingStatus: slot.StatusScheduled}},
				errType: storage.ErrNotFound,
			},
			{
				name:    "foreign slot last",
				updates: []*storage.Slot{moved(first, "opp-1", 1), moved(other, "opp-1", 3)},
				errType: storage.ErrInvalidInput,
			},
			{
				name:    "invalid range last",
				updates: []*storage.Slot{moved(first, "opp-1", 1), {ID: second.ID, OpportunityID: "opp-1", StartAt: at(2, 11), EndAt: at(2, 10), HostingStatus: slot.StatusScheduled}},
				errType: storage.ErrInvalidInput,
			},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				err := store.UpdateSlots(ctx, tt.updates)
				assert.True(t, storage.IsType(err, tt.errType), "got %v", err)

				got, err := store.GetSlot(ctx, first.ID)
				require.NoError(t, err)
				assert.True(t, at(1, 10).Equal(got.StartAt), "first update must not be stored")
			})
		}

		require.NoError(t, store.UpdateSlots(ctx, []*storage.Slot{moved(first, "opp-1", 1), moved(second, "opp-1", 2)}))
		for id, day := range map[string]int{first.ID: 1, second.ID: 2} {
			got, err := store.GetSlot(ctx, id)
			require.NoError(t, err)
			assert.True(t, at(day, 14).Equal(got.StartAt), id)
		}

		require.NoError(t, store.UpdateSlots(ctx, nil))
	})

	t.Run("complete ended slots", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		ended := &storage.Slot{OpportunityID: "opp-1", StartAt: at(1, 10), EndAt: at(1, 11)}
		endsNow := &storage.Slot{OpportunityID: "opp-1", StartAt: at(1, 11), EndAt: at(1, 12)}
		running := &storage.Slot{OpportunityID: "opp-1", StartAt: at(1, 11), EndAt: at(1, 13)}
		cancelled := &storage.Slot{OpportunityID: "opp-1", StartAt: at(1, 8), EndAt: at(1, 9), HostingStatus: slot.StatusCancelled}
		for _, record := range []*storage.Slot{ended, endsNow, running, cancelled} {
			require.NoError(t, store.CreateSlot(ctx, record))
		}

		n, err := store.CompleteEndedSlots(ctx, at(1, 12).UTC())
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		want := map[string]slot.HostingStatus{
			ended.ID:     slot.StatusCompleted,
			endsNow.ID:   slot.StatusCompleted,
			running.ID:   slot.StatusScheduled,
			cancelled.ID: slot.StatusCancelled,
		}
		for id, status := range want {
			got, err := store.GetSlot(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, status, got.HostingStatus, id)
		}

		n, err = store.CompleteEndedSlots(ctx, at(1, 12))
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}
