// Package editor holds the slot-editing session of an opportunity form:
// recurrence preview, confirmation into the slot list, and saving.
package editor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/samber/mo"

	"github.com/cyp0633/libslots/recurrence"
	"github.com/cyp0633/libslots/slot"
	"github.com/cyp0633/libslots/slotclient"
)

var (
	// ErrEmptyPreview is returned when confirming a preview that has errors
	// or no occurrences.
	ErrEmptyPreview = errors.New("nothing to confirm")
	// ErrIndexOutOfRange is returned for positions outside the slot list.
	ErrIndexOutOfRange = slot.ErrIndexOutOfRange
)

// Session is one editing session. It is not safe for concurrent use.
type Session struct {
	opportunityID string
	engine        *recurrence.Engine
	service       slotclient.Service
	slots         *slot.Collection
	preview       recurrence.Preview
	logger        *slog.Logger
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger for the session
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// NewSession starts editing the slots of an opportunity, seeded with the
// slots the service already has.
func NewSession(opportunityID string, engine *recurrence.Engine, service slotclient.Service, existing []slot.PersistedSlot, opts ...Option) *Session {
	seed := make([]slot.Slot, 0, len(existing))
	for _, p := range existing {
		seed = append(seed, p)
	}

	s := &Session{
		opportunityID: opportunityID,
		engine:        engine,
		service:       service,
		slots:         slot.NewCollection(seed...),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return s
}

// OpportunityID returns the opportunity being edited.
func (s *Session) OpportunityID() string {
	return s.opportunityID
}

// Preview recomputes the recurrence preview. The last preview is what
// Confirm merges.
func (s *Session) Preview(req recurrence.PreviewRequest) recurrence.Preview {
	s.preview = s.engine.Preview(req)
	return s.preview
}

// Confirm merges the current preview into the slot list as new slots and
// clears it.
func (s *Session) Confirm(capacity mo.Option[int]) (int, error) {
	if !s.preview.CanConfirm() {
		return 0, ErrEmptyPreview
	}
	added := s.slots.Merge(s.preview.Occurrences, capacity)
	s.preview = recurrence.Preview{}

	s.logger.Debug("confirmed preview", "opportunity_id", s.opportunityID, "added", added)
	return added, nil
}

// Slots returns the current slot list.
func (s *Session) Slots() []slot.Slot {
	return s.slots.All()
}

// Groups returns the slot list grouped by month with original indices.
func (s *Session) Groups() slot.MonthGroups {
	return slot.GroupByMonth(s.engine.Calendar(), s.slots.All())
}

// Update changes the range of the slot at index i.
func (s *Session) Update(i int, startAt, endAt time.Time) error {
	return s.slots.Update(i, startAt, endAt)
}

// Remove drops the unsaved slot at index i.
func (s *Session) Remove(i int) error {
	return s.slots.Remove(i)
}

// SaveResult reports a save. Failed is keyed by slot index.
type SaveResult struct {
	Created int
	Updated int
	Failed  map[int]error
}

// Save partitions the slot list and sends it in one bulk update. Created
// slots are replaced by their persisted version in place, so indices stay
// valid. Slots the service rejected stay new and are reported in Failed.
func (s *Session) Save(ctx context.Context) (SaveResult, error) {
	batch := slot.Partition(s.opportunityID, s.slots.All())
	if batch.Empty() {
		return SaveResult{}, nil
	}

	bulk, err := s.service.UpdateSlots(ctx, batch)
	if err != nil {
		return SaveResult{}, fmt.Errorf("save slots of %s: %w", s.opportunityID, err)
	}

	result := SaveResult{Failed: map[int]error{}}
	for i, created := range bulk.Created {
		index := batch.CreateIndex[i]
		saved, err := created.Get()
		if err != nil {
			result.Failed[index] = err
			continue
		}
		if err := s.slots.Replace(index, saved); err != nil {
			return result, err
		}
		result.Created++
	}

	positions := map[string]int{}
	for i, current := range s.slots.All() {
		if p, ok := slot.AsPersisted(current); ok {
			positions[p.ID] = i
		}
	}
	for _, updated := range bulk.Updated {
		if index, ok := positions[updated.ID]; ok {
			if err := s.slots.Replace(index, updated); err != nil {
				return result, err
			}
			result.Updated++
		}
	}

	s.logger.Info("saved slots",
		"opportunity_id", s.opportunityID,
		"created", result.Created,
		"updated", result.Updated,
		"failed", len(result.Failed))
	return result, nil
}

// CancelSlot cancels the persisted slot at index i through the service. The
// slot list keeps the previous value when the service call fails.
func (s *Session) CancelSlot(ctx context.Context, i int) error {
	previous, err := s.slots.At(i)
	if err != nil {
		return err
	}
	change, err := s.slots.Cancel(i)
	if err != nil {
		return err
	}

	saved, err := s.service.ChangeHostingStatus(ctx, change)
	if err != nil {
		_ = s.slots.Replace(i, previous)
		return fmt.Errorf("cancel slot %s: %w", change.ID, err)
	}

	s.logger.Info("cancelled slot", "opportunity_id", s.opportunityID, "slot_id", change.ID)
	return s.slots.Replace(i, saved)
}
