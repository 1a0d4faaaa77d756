package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samber/mo"

	"github.com/cyp0633/libslots/slot"
)

// Error types
type ErrorType string

const (
	ErrNotFound      ErrorType = "not_found"
	ErrAlreadyExists ErrorType = "already_exists"
	ErrInvalidInput  ErrorType = "invalid_input"
)

// Error represents a storage-related error
type Error struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsType reports whether err is a storage error of type t.
func IsType(err error, t ErrorType) bool {
	var storageErr *Error
	return errors.As(err, &storageErr) && storageErr.Type == t
}

// Slot is a stored slot of an opportunity.
type Slot struct {
	ID            string
	OpportunityID string
	StartAt       time.Time
	EndAt         time.Time
	Capacity      mo.Option[int]
	HostingStatus slot.HostingStatus
	Created       time.Time
	Modified      time.Time
}

// Persisted converts the record to the form-side slot.
func (s *Slot) Persisted() slot.PersistedSlot {
	return slot.PersistedSlot{
		ID: s.ID,
		Spec: slot.Spec{
			StartAt:  s.StartAt,
			EndAt:    s.EndAt,
			Capacity: s.Capacity,
		},
		HostingStatus: mo.Some(s.HostingStatus),
	}
}

// Storage is the interface that must be implemented by storage backends
type Storage interface {
	// ListSlots returns the slots of an opportunity ordered by start.
	ListSlots(ctx context.Context, opportunityID string) ([]*Slot, error)
	// GetSlot finds a slot by ID.
	GetSlot(ctx context.Context, id string) (*Slot, error)
	// CreateSlot stores a new slot. An empty ID is assigned; an empty status
	// becomes SCHEDULED.
	CreateSlot(ctx context.Context, s *Slot) error
	// UpdateSlot replaces the range, capacity and status of a stored slot.
	UpdateSlot(ctx context.Context, s *Slot) error
	// UpdateSlots applies several updates atomically. If any update fails,
	// none is stored.
	UpdateSlots(ctx context.Context, slots []*Slot) error
	// CompleteEndedSlots marks every scheduled slot that ended at or before
	// now as completed and returns how many changed.
	CompleteEndedSlots(ctx context.Context, now time.Time) (int, error)
}
