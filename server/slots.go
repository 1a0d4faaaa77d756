package server

import (
	"net/http"

	"github.com/cyp0633/libslots/slot"
)

type slotListResponse struct {
	OpportunityID string      `json:"opportunityId"`
	Count         int         `json:"count"`
	Groups        []groupView `json:"groups"`
}

// handleListSlots lists an opportunity's stored slots grouped by month, or as
// an iCalendar stream with ?format=ics.
func (s *Server) handleListSlots(w http.ResponseWriter, r *http.Request) {
	opportunityID := r.PathValue("id")
	if opportunityID == "" {
		s.sendError(w, ErrNotFound)
		return
	}

	records, err := s.storage.ListSlots(r.Context(), opportunityID)
	if err != nil {
		s.sendError(w, err)
		return
	}

	slots := make([]slot.Slot, 0, len(records))
	for _, rec := range records {
		slots = append(slots, rec.Persisted())
	}

	if r.URL.Query().Get("format") == "ics" {
		s.writeCalendar(w, slot.Calendar(slots, slot.ExportOptions{Summary: s.config.Summary}))
		return
	}

	groups, err := s.groupViews(slots)
	if err != nil {
		s.sendError(w, err)
		return
	}

	s.logger.Debug("listed slots", "opportunity_id", opportunityID, "count", len(slots))
	s.writeJSON(w, http.StatusOK, slotListResponse{
		OpportunityID: opportunityID,
		Count:         len(slots),
		Groups:        groups,
	})
}
