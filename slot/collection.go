package slot

import (
	"errors"
	"fmt"
	"time"

	"github.com/samber/mo"

	"github.com/cyp0633/libslots/recurrence"
)

var (
	// ErrIndexOutOfRange is returned for positions outside the collection.
	ErrIndexOutOfRange = errors.New("slot index out of range")
	// ErrPersisted is returned when removing a slot the service already knows;
	// those are cancelled instead.
	ErrPersisted = errors.New("slot is persisted")
	// ErrNotPersisted is returned when cancelling a slot that was never saved.
	ErrNotPersisted = errors.New("slot is not persisted")
	// ErrInvalidRange is returned when an end is not after its start.
	ErrInvalidRange = errors.New("slot end must be after start")
	// ErrNilSlot is returned when a nil slot is stored.
	ErrNilSlot = errors.New("slot is nil")
)

// Collection is the ordered slot list of an editing form. Callers address
// slots by position, the same position GroupByMonth reports. Slots are stored
// as values; pointer variants are dereferenced on the way in.
type Collection struct {
	slots []Slot
}

// NewCollection starts a collection from slots loaded from the service. Nil
// slots are dropped.
func NewCollection(slots ...Slot) *Collection {
	c := &Collection{}
	c.Append(slots...)
	return c
}

// Len returns the number of slots.
func (c *Collection) Len() int {
	return len(c.slots)
}

// All returns a copy of the slots in order.
func (c *Collection) All() []Slot {
	return append([]Slot(nil), c.slots...)
}

// At returns the slot at index i.
func (c *Collection) At(i int) (Slot, error) {
	if err := c.check(i); err != nil {
		return nil, err
	}
	return c.slots[i], nil
}

// Append adds slots at the end. Nil slots are dropped.
func (c *Collection) Append(slots ...Slot) {
	for _, s := range slots {
		if v, ok := Value(s); ok {
			c.slots = append(c.slots, v)
		}
	}
}

// Merge appends confirmed occurrences as new slots and returns how many were
// added.
func (c *Collection) Merge(occurrences []recurrence.Occurrence, capacity mo.Option[int]) int {
	added := FromOccurrences(occurrences, capacity)
	c.Append(added...)
	return len(added)
}

// Update moves the slot at index i to a new range keeping its variant.
func (c *Collection) Update(i int, startAt, endAt time.Time) error {
	if err := c.check(i); err != nil {
		return err
	}
	if !endAt.After(startAt) {
		return ErrInvalidRange
	}

	switch v := c.slots[i].(type) {
	case NewSlot:
		v.StartAt, v.EndAt = startAt, endAt
		c.slots[i] = v
	case PersistedSlot:
		v.StartAt, v.EndAt = startAt, endAt
		c.slots[i] = v
	}
	return nil
}

// Remove drops an unsaved slot. Later slots shift down by one.
func (c *Collection) Remove(i int) error {
	if err := c.check(i); err != nil {
		return err
	}
	if _, ok := AsPersisted(c.slots[i]); ok {
		return fmt.Errorf("remove slot %d: %w", i, ErrPersisted)
	}
	c.slots = append(c.slots[:i], c.slots[i+1:]...)
	return nil
}

// Cancel marks the persisted slot at index i as cancelled and returns the
// status change to send.
func (c *Collection) Cancel(i int) (StatusChange, error) {
	if err := c.check(i); err != nil {
		return StatusChange{}, err
	}
	persisted, ok := AsPersisted(c.slots[i])
	if !ok {
		return StatusChange{}, fmt.Errorf("cancel slot %d: %w", i, ErrNotPersisted)
	}

	change := NewStatusChange(persisted, StatusCancelled)
	persisted.HostingStatus = mo.Some(StatusCancelled)
	c.slots[i] = persisted
	return change, nil
}

// Replace swaps the slot at index i, typically with the saved version of a
// new slot.
func (c *Collection) Replace(i int, s Slot) error {
	if err := c.check(i); err != nil {
		return err
	}
	v, ok := Value(s)
	if !ok {
		return fmt.Errorf("replace slot %d: %w", i, ErrNilSlot)
	}
	c.slots[i] = v
	return nil
}

func (c *Collection) check(i int) error {
	if i < 0 || i >= len(c.slots) {
		return fmt.Errorf("%w: %d (len %d)", ErrIndexOutOfRange, i, len(c.slots))
	}
	return nil
}
