// Package slot models the time slots of an opportunity as the editing form
// sees them: freshly generated candidates and slots already known to the
// persistence service.
package slot

import (
	"fmt"
	"strings"
	"time"

	"github.com/samber/mo"

	"github.com/cyp0633/libslots/recurrence"
)

// HostingStatus is set by the persistence service, never by the generator.
type HostingStatus string

const (
	StatusScheduled HostingStatus = "SCHEDULED"
	StatusCancelled HostingStatus = "CANCELLED"
	StatusCompleted HostingStatus = "COMPLETED"
)

// ParseHostingStatus accepts the wire names case-insensitively.
func ParseHostingStatus(s string) (HostingStatus, error) {
	switch status := HostingStatus(strings.ToUpper(strings.TrimSpace(s))); status {
	case StatusScheduled, StatusCancelled, StatusCompleted:
		return status, nil
	default:
		return "", fmt.Errorf("unknown hosting status %q", s)
	}
}

// Spec is the part every slot carries.
type Spec struct {
	StartAt  time.Time
	EndAt    time.Time
	Capacity mo.Option[int]
}

func (s Spec) Start() time.Time { return s.StartAt }
func (s Spec) End() time.Time   { return s.EndAt }

// Slot is either a NewSlot or a PersistedSlot. The variant decides whether a
// save creates or updates it. Pointers to either variant are accepted too and
// read as the value they point to.
type Slot interface {
	Start() time.Time
	End() time.Time
	isSlot()
}

// NewSlot has never been saved.
type NewSlot struct {
	Spec
}

// PersistedSlot originates from the persistence service.
type PersistedSlot struct {
	Spec
	ID            string
	HostingStatus mo.Option[HostingStatus]
}

func (NewSlot) isSlot()       {}
func (PersistedSlot) isSlot() {}

// Cancelled reports whether the service has cancelled the slot.
func (p PersistedSlot) Cancelled() bool {
	status, ok := p.HostingStatus.Get()
	return ok && status == StatusCancelled
}

// FromOccurrences turns generated occurrences into new slots sharing one
// capacity.
func FromOccurrences(occurrences []recurrence.Occurrence, capacity mo.Option[int]) []Slot {
	slots := make([]Slot, 0, len(occurrences))
	for _, occ := range occurrences {
		slots = append(slots, NewSlot{Spec: Spec{
			StartAt:  occ.StartAt,
			EndAt:    occ.EndAt,
			Capacity: capacity,
		}})
	}
	return slots
}

// Value returns the value variant behind s, dereferencing *NewSlot and
// *PersistedSlot. It reports false for a nil slot or nil pointer.
func Value(s Slot) (Slot, bool) {
	switch v := s.(type) {
	case NewSlot, PersistedSlot:
		return v, true
	case *NewSlot:
		if v == nil {
			return nil, false
		}
		return *v, true
	case *PersistedSlot:
		if v == nil {
			return nil, false
		}
		return *v, true
	default:
		return nil, false
	}
}

// AsPersisted returns the persisted variant of s, if it is one.
func AsPersisted(s Slot) (PersistedSlot, bool) {
	v, _ := Value(s)
	p, ok := v.(PersistedSlot)
	return p, ok
}

// SpecOf returns the shared fields of any slot. A nil slot yields the zero
// Spec.
func SpecOf(s Slot) Spec {
	v, _ := Value(s)
	switch v := v.(type) {
	case NewSlot:
		return v.Spec
	case PersistedSlot:
		return v.Spec
	default:
		return Spec{}
	}
}
