package storage

import (
	"github.com/google/uuid"

	"github.com/cyp0633/libslots/slot"
)

// NewID returns a fresh slot ID.
func NewID() string {
	return uuid.NewString()
}

// PrepareCreate validates s and fills the defaults of a new record.
func PrepareCreate(s *Slot) error {
	if s.ID == "" {
		s.ID = NewID()
	}
	if s.HostingStatus == "" {
		s.HostingStatus = slot.StatusScheduled
	}
	return Validate(s)
}

// Validate checks the fields every stored slot must satisfy.
func Validate(s *Slot) error {
	if s.OpportunityID == "" {
		return &Error{Type: ErrInvalidInput, Message: "opportunity id is required"}
	}
	if s.StartAt.IsZero() || s.EndAt.IsZero() {
		return &Error{Type: ErrInvalidInput, Message: "start and end are required"}
	}
	if !s.EndAt.After(s.StartAt) {
		return &Error{Type: ErrInvalidInput, Message: "end must be after start"}
	}
	if capacity, ok := s.Capacity.Get(); ok && capacity < 0 {
		return &Error{Type: ErrInvalidInput, Message: "capacity must not be negative"}
	}
	if _, err := slot.ParseHostingStatus(string(s.HostingStatus)); err != nil {
		return &Error{Type: ErrInvalidInput, Message: "invalid hosting status", Err: err}
	}
	return nil
}
