package slotclient

import (
	"fmt"
	"time"

	"github.com/samber/mo"

	"github.com/cyp0633/libslots/slot"
)

// Operation names understood by the slot service.
const (
	OperationBulkUpdate   = "UpdateOpportunitySlotsBulk"
	OperationStatusChange = "UpdateSlotHostingStatus"
)

// BulkUpdateDocument is the bulk slot mutation.
const BulkUpdateDocument = `mutation UpdateOpportunitySlotsBulk($input: OpportunitySlotsBulkUpdateInput!) {
  opportunitySlotsBulkUpdate(input: $input) {
    created { slot { id startAt endAt capacity hostingStatus } error }
    updated { id startAt endAt capacity hostingStatus }
  }
}`

// StatusChangeDocument is the single-slot hosting status mutation.
const StatusChangeDocument = `mutation UpdateSlotHostingStatus($input: SlotHostingStatusUpdateInput!) {
  slotHostingStatusUpdate(input: $input) {
    slot { id startAt endAt capacity hostingStatus }
  }
}`

// CreateInput is one element of the bulk create list.
type CreateInput struct {
	StartAt  string `json:"startAt"`
	EndAt    string `json:"endAt"`
	Capacity *int   `json:"capacity,omitempty"`
}

// UpdateInput is one element of the bulk update list.
type UpdateInput struct {
	ID      string `json:"id"`
	StartAt string `json:"startAt"`
	EndAt   string `json:"endAt"`
}

// BulkUpdateInput is the input variable of the bulk mutation.
type BulkUpdateInput struct {
	OpportunityID string        `json:"opportunityId"`
	Create        []CreateInput `json:"create"`
	Update        []UpdateInput `json:"update"`
}

// StatusChangeInput is the input variable of the status mutation.
type StatusChangeInput struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	StartAt  string `json:"startAt"`
	EndAt    string `json:"endAt"`
	Capacity int    `json:"capacity"`
}

// SlotPayload is a persisted slot as the service returns it.
type SlotPayload struct {
	ID            string  `json:"id"`
	StartAt       string  `json:"startAt"`
	EndAt         string  `json:"endAt"`
	Capacity      *int    `json:"capacity"`
	HostingStatus *string `json:"hostingStatus"`
}

// CreatedPayload is the outcome of one create. Exactly one member is set.
type CreatedPayload struct {
	Slot  *SlotPayload `json:"slot"`
	Error *string      `json:"error"`
}

// BulkUpdatePayload is the data of the bulk mutation.
type BulkUpdatePayload struct {
	Created []CreatedPayload `json:"created"`
	Updated []SlotPayload    `json:"updated"`
}

// StatusChangePayload is the data of the status mutation.
type StatusChangePayload struct {
	Slot SlotPayload `json:"slot"`
}

// FormatTime renders t as RFC 3339 in loc. Sub-second precision is kept and
// trailing zeros are trimmed.
func FormatTime(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(time.RFC3339Nano)
}

// ParseTime reads an RFC 3339 value, with or without fractional seconds, into
// loc.
func ParseTime(value string, loc *time.Location) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", value, err)
	}
	return t.In(loc), nil
}

// EncodeBatch converts a batch to the mutation input.
func EncodeBatch(batch slot.Batch, loc *time.Location) BulkUpdateInput {
	input := BulkUpdateInput{
		OpportunityID: batch.OpportunityID,
		Create:        make([]CreateInput, 0, len(batch.Create)),
		Update:        make([]UpdateInput, 0, len(batch.Update)),
	}
	for _, c := range batch.Create {
		item := CreateInput{
			StartAt: FormatTime(c.StartAt, loc),
			EndAt:   FormatTime(c.EndAt, loc),
		}
		if capacity, ok := c.Capacity.Get(); ok {
			item.Capacity = &capacity
		}
		input.Create = append(input.Create, item)
	}
	for _, u := range batch.Update {
		input.Update = append(input.Update, UpdateInput{
			ID:      u.ID,
			StartAt: FormatTime(u.StartAt, loc),
			EndAt:   FormatTime(u.EndAt, loc),
		})
	}
	return input
}

// DecodeBatch is the inverse of EncodeBatch.
func DecodeBatch(input BulkUpdateInput, loc *time.Location) (slot.Batch, error) {
	batch := slot.Batch{OpportunityID: input.OpportunityID}
	for i, c := range input.Create {
		start, end, err := parseRange(c.StartAt, c.EndAt, loc)
		if err != nil {
			return slot.Batch{}, fmt.Errorf("create[%d]: %w", i, err)
		}
		batch.Create = append(batch.Create, slot.Create{
			StartAt:  start,
			EndAt:    end,
			Capacity: mo.PointerToOption(c.Capacity),
		})
		batch.CreateIndex = append(batch.CreateIndex, i)
	}
	for i, u := range input.Update {
		start, end, err := parseRange(u.StartAt, u.EndAt, loc)
		if err != nil {
			return slot.Batch{}, fmt.Errorf("update[%d]: %w", i, err)
		}
		batch.Update = append(batch.Update, slot.Update{ID: u.ID, StartAt: start, EndAt: end})
	}
	return batch, nil
}

// EncodeStatusChange converts a status change to the mutation input.
func EncodeStatusChange(change slot.StatusChange, loc *time.Location) StatusChangeInput {
	return StatusChangeInput{
		ID:       change.ID,
		Status:   string(change.Status),
		StartAt:  FormatTime(change.StartAt, loc),
		EndAt:    FormatTime(change.EndAt, loc),
		Capacity: change.Capacity,
	}
}

// DecodeStatusChange is the inverse of EncodeStatusChange.
func DecodeStatusChange(input StatusChangeInput, loc *time.Location) (slot.StatusChange, error) {
	status, err := slot.ParseHostingStatus(input.Status)
	if err != nil {
		return slot.StatusChange{}, err
	}
	start, end, err := parseRange(input.StartAt, input.EndAt, loc)
	if err != nil {
		return slot.StatusChange{}, err
	}
	return slot.StatusChange{
		ID:       input.ID,
		Status:   status,
		StartAt:  start,
		EndAt:    end,
		Capacity: input.Capacity,
	}, nil
}

// EncodeSlot converts a persisted slot to its payload.
func EncodeSlot(p slot.PersistedSlot, loc *time.Location) SlotPayload {
	payload := SlotPayload{
		ID:       p.ID,
		StartAt:  FormatTime(p.StartAt, loc),
		EndAt:    FormatTime(p.EndAt, loc),
		Capacity: p.Capacity.ToPointer(),
	}
	if status, ok := p.HostingStatus.Get(); ok {
		s := string(status)
		payload.HostingStatus = &s
	}
	return payload
}

// Decode converts a payload to a persisted slot.
func (p SlotPayload) Decode(loc *time.Location) (slot.PersistedSlot, error) {
	start, end, err := parseRange(p.StartAt, p.EndAt, loc)
	if err != nil {
		return slot.PersistedSlot{}, err
	}
	persisted := slot.PersistedSlot{
		ID: p.ID,
		Spec: slot.Spec{
			StartAt:  start,
			EndAt:    end,
			Capacity: mo.PointerToOption(p.Capacity),
		},
		HostingStatus: mo.None[slot.HostingStatus](),
	}
	if p.HostingStatus != nil {
		status, err := slot.ParseHostingStatus(*p.HostingStatus)
		if err != nil {
			return slot.PersistedSlot{}, err
		}
		persisted.HostingStatus = mo.Some(status)
	}
	return persisted, nil
}

func parseRange(startValue, endValue string, loc *time.Location) (time.Time, time.Time, error) {
	start, err := ParseTime(startValue, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := ParseTime(endValue, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}
