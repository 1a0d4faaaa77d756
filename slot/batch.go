package slot

import (
	"time"

	"github.com/samber/mo"
)

// Create is one slot the service should create.
type Create struct {
	StartAt  time.Time
	EndAt    time.Time
	Capacity mo.Option[int]
}

// Update is one known slot whose range changed.
type Update struct {
	ID      string
	StartAt time.Time
	EndAt   time.Time
}

// Batch is the bulk update sent on save.
type Batch struct {
	OpportunityID string
	Create        []Create
	Update        []Update
	// CreateIndex maps Create[i] back to its position in the collection.
	CreateIndex []int
}

// Empty reports whether the batch carries nothing.
func (b Batch) Empty() bool {
	return len(b.Create) == 0 && len(b.Update) == 0
}

// Partition splits slots by variant: new slots are created, persisted ones
// updated. Nil slots are skipped.
func Partition(opportunityID string, slots []Slot) Batch {
	batch := Batch{OpportunityID: opportunityID}
	for i, s := range slots {
		v, _ := Value(s)
		switch v := v.(type) {
		case NewSlot:
			batch.Create = append(batch.Create, Create{
				StartAt:  v.StartAt,
				EndAt:    v.EndAt,
				Capacity: v.Capacity,
			})
			batch.CreateIndex = append(batch.CreateIndex, i)
		case PersistedSlot:
			batch.Update = append(batch.Update, Update{
				ID:      v.ID,
				StartAt: v.StartAt,
				EndAt:   v.EndAt,
			})
		}
	}
	return batch
}

// StatusChange is the single-slot hosting status mutation.
type StatusChange struct {
	ID       string
	Status   HostingStatus
	StartAt  time.Time
	EndAt    time.Time
	Capacity int
}

// NewStatusChange builds the mutation for p. A slot without capacity sends 0.
func NewStatusChange(p PersistedSlot, status HostingStatus) StatusChange {
	return StatusChange{
		ID:       p.ID,
		Status:   status,
		StartAt:  p.StartAt,
		EndAt:    p.EndAt,
		Capacity: p.Capacity.OrElse(0),
	}
}
