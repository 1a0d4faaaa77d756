// memory based implementation for testing purposes
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cyp0633/libslots/slot"
	"github.com/cyp0633/libslots/storage"
)

// Store implements storage.Storage interface using in-memory maps
type Store struct {
	mu    sync.RWMutex
	slots map[string]*storage.Slot // key: slot ID
	now   func() time.Time
}

// New creates a new in-memory storage
func New() *Store {
	return &Store{
		slots: make(map[string]*storage.Slot),
		now:   time.Now,
	}
}

func clone(s *storage.Slot) *storage.Slot {
	c := *s
	return &c
}

func (s *Store) ListSlots(_ context.Context, opportunityID string) ([]*storage.Slot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var slots []*storage.Slot
	for _, record := range s.slots {
		if record.OpportunityID == opportunityID {
			slots = append(slots, clone(record))
		}
	}
	sort.Slice(slots, func(i, j int) bool {
		if slots[i].StartAt.Equal(slots[j].StartAt) {
			return slots[i].ID < slots[j].ID
		}
		return slots[i].StartAt.Before(slots[j].StartAt)
	})

	return slots, nil
}

func (s *Store) GetSlot(_ context.Context, id string) (*storage.Slot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.slots[id]
	if !ok {
		return nil, &storage.Error{
			Type:    storage.ErrNotFound,
			Message: "slot not found",
		}
	}

	return clone(record), nil
}

func (s *Store) CreateSlot(_ context.Context, record *storage.Slot) error {
	if err := storage.PrepareCreate(record); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.slots[record.ID]; exists {
		return &storage.Error{
			Type:    storage.ErrAlreadyExists,
			Message: "slot already exists",
		}
	}

	now := s.now()
	record.Created = now
	record.Modified = now
	s.slots[record.ID] = clone(record)

	return nil
}

func (s *Store) UpdateSlot(ctx context.Context, record *storage.Slot) error {
	return s.UpdateSlots(ctx, []*storage.Slot{record})
}

func (s *Store) UpdateSlots(_ context.Context, records []*storage.Slot) error {
	for _, record := range records {
		if err := storage.Validate(record); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, record := range records {
		if err := s.checkUpdate(record); err != nil {
			return err
		}
	}

	now := s.now()
	for _, record := range records {
		record.Created = s.slots[record.ID].Created
		record.Modified = now
		s.slots[record.ID] = clone(record)
	}

	return nil
}

func (s *Store) checkUpdate(record *storage.Slot) error {
	existing, exists := s.slots[record.ID]
	if !exists {
		return &storage.Error{
			Type:    storage.ErrNotFound,
			Message: "slot not found",
		}
	}
	if existing.OpportunityID != record.OpportunityID {
		return &storage.Error{
			Type:    storage.ErrInvalidInput,
			Message: "slot belongs to another opportunity",
		}
	}
	return nil
}

func (s *Store) CompleteEndedSlots(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	completed := 0
	for _, record := range s.slots {
		if record.HostingStatus == slot.StatusScheduled && !record.EndAt.After(now) {
			record.HostingStatus = slot.StatusCompleted
			record.Modified = s.now()
			completed++
		}
	}

	return completed, nil
}

var _ storage.Storage = (*Store)(nil)
