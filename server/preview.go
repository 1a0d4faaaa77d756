package server

import (
	"net/http"
	"time"

	"github.com/emersion/go-ical"
	"github.com/google/uuid"
	"github.com/samber/mo"

	"github.com/cyp0633/libslots/datetime"
	"github.com/cyp0633/libslots/recurrence"
	"github.com/cyp0633/libslots/slot"
)

// previewRequest is the JSON form of the recurrence sheet. Timestamps are
// local wall-clock values ("2025-01-01T10:00") or RFC 3339.
type previewRequest struct {
	BaseStartAt  string          `json:"baseStartAt"`
	BaseEndAt    string          `json:"baseEndAt"`
	Type         recurrence.Type `json:"type"`
	SelectedDays []int           `json:"selectedDays"`
	HasEndDate   bool            `json:"hasEndDate"`
	EndDate      string          `json:"endDate"`
	Capacity     *int            `json:"capacity,omitempty"`
	Summary      string          `json:"summary,omitempty"`
}

type slotView struct {
	Index         int     `json:"index"`
	ID            string  `json:"id,omitempty"`
	StartAt       string  `json:"startAt"`
	EndAt         string  `json:"endAt"`
	Capacity      *int    `json:"capacity,omitempty"`
	HostingStatus *string `json:"hostingStatus,omitempty"`
	slot.RangeLabel
}

type groupView struct {
	Month  string     `json:"month"`
	Header string     `json:"header"`
	Slots  []slotView `json:"slots"`
}

type previewResponse struct {
	Slots      []slotView        `json:"slots"`
	Errors     recurrence.Errors `json:"errors"`
	CanConfirm bool              `json:"canConfirm"`
	Groups     []groupView       `json:"groups"`
	RRule      string            `json:"rrule,omitempty"`
}

func (s *Server) parsePreviewRequest(w http.ResponseWriter, r *http.Request) (recurrence.PreviewRequest, previewRequest, error) {
	var body previewRequest
	if err := s.decodeJSON(w, r, &body); err != nil {
		return recurrence.PreviewRequest{}, body, err
	}

	loc := s.cal.Location()
	start, err := datetime.ParseDateTimeIn(loc, body.BaseStartAt)
	if err != nil {
		return recurrence.PreviewRequest{}, body, badRequest("Invalid baseStartAt", err)
	}
	end, err := datetime.ParseDateTimeIn(loc, body.BaseEndAt)
	if err != nil {
		return recurrence.PreviewRequest{}, body, badRequest("Invalid baseEndAt", err)
	}

	return recurrence.PreviewRequest{
		BaseStartAt:  start,
		BaseEndAt:    end,
		Type:         body.Type,
		SelectedDays: body.SelectedDays,
		HasEndDate:   body.HasEndDate,
		EndDateInput: body.EndDate,
	}, body, nil
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	req, body, err := s.parsePreviewRequest(w, r)
	if err != nil {
		s.sendError(w, err)
		return
	}

	preview := s.engine.Preview(req)
	slots := slot.FromOccurrences(preview.Occurrences, mo.PointerToOption(body.Capacity))

	resp := previewResponse{
		Slots:      s.slotViews(slots),
		Errors:     preview.Errors,
		CanConfirm: preview.CanConfirm(),
	}
	groups, err := s.groupViews(slots)
	if err != nil {
		s.sendError(w, err)
		return
	}
	resp.Groups = groups

	if resp.CanConfirm {
		if opt, err := s.engine.ROption(s.previewInput(req)); err == nil {
			resp.RRule = opt.RRuleString()
		} else {
			s.logger.Debug("preview has no rrule form", "error", err)
		}
	}

	s.logger.Debug("preview generated",
		"type", req.Type,
		"count", len(slots),
		"can_confirm", resp.CanConfirm)
	s.writeJSON(w, http.StatusOK, resp)
}

// handlePreviewICS exports the preview as one VEVENT per occurrence, or as a
// single recurring VEVENT with ?master=1.
func (s *Server) handlePreviewICS(w http.ResponseWriter, r *http.Request) {
	req, body, err := s.parsePreviewRequest(w, r)
	if err != nil {
		s.sendError(w, err)
		return
	}

	preview := s.engine.Preview(req)
	if !preview.CanConfirm() {
		s.writeJSON(w, http.StatusUnprocessableEntity, previewResponse{
			Slots:  []slotView{},
			Errors: preview.Errors,
			Groups: []groupView{},
		})
		return
	}

	summary := body.Summary
	if summary == "" {
		summary = s.config.Summary
	}

	var cal *ical.Calendar
	if r.URL.Query().Get("master") == "1" {
		event, err := s.engine.MasterEvent(s.previewInput(req), uuid.NewString(), summary, time.Now())
		if err != nil {
			s.sendError(w, &HTTPError{Status: http.StatusUnprocessableEntity, Message: "Preview has no recurring form", Err: err})
			return
		}
		cal = ical.NewCalendar()
		cal.Props.SetText(ical.PropVersion, "2.0")
		cal.Props.SetText(ical.PropProductID, slot.ProductID)
		cal.Children = append(cal.Children, event.Component)
	} else {
		slots := slot.FromOccurrences(preview.Occurrences, mo.PointerToOption(body.Capacity))
		cal = slot.Calendar(slots, slot.ExportOptions{Summary: summary})
	}

	s.writeCalendar(w, cal)
}

func (s *Server) writeCalendar(w http.ResponseWriter, cal *ical.Calendar) {
	w.Header().Set(headerContentType, mimeTypeCalendar)
	w.WriteHeader(http.StatusOK)
	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		s.logger.Error("failed to encode calendar", "error", err)
	}
}

// previewInput rebuilds the generator input of a validated request.
func (s *Server) previewInput(req recurrence.PreviewRequest) recurrence.Input {
	in := recurrence.Input{
		BaseStartAt: req.BaseStartAt,
		BaseEndAt:   req.BaseEndAt,
		Settings: recurrence.Settings{
			Type:         req.Type,
			SelectedDays: req.SelectedDays,
			EndDate:      mo.None[time.Time](),
		},
	}
	if req.HasEndDate {
		if d, err := datetime.ParseDateIn(s.cal.Location(), req.EndDateInput); err == nil {
			in.Settings.EndDate = mo.Some(d)
		}
	}
	return in
}

func (s *Server) slotView(index int, sl slot.Slot) slotView {
	loc := s.cal.Location()
	spec := slot.SpecOf(sl)
	view := slotView{
		Index:      index,
		StartAt:    spec.StartAt.In(loc).Format(time.RFC3339Nano),
		EndAt:      spec.EndAt.In(loc).Format(time.RFC3339Nano),
		Capacity:   spec.Capacity.ToPointer(),
		RangeLabel: s.formatter.SlotRange(spec.StartAt, spec.EndAt),
	}
	if p, ok := slot.AsPersisted(sl); ok {
		view.ID = p.ID
		if status, ok := p.HostingStatus.Get(); ok {
			st := string(status)
			view.HostingStatus = &st
		}
	}
	return view
}

func (s *Server) slotViews(slots []slot.Slot) []slotView {
	views := make([]slotView, 0, len(slots))
	for i, sl := range slots {
		views = append(views, s.slotView(i, sl))
	}
	return views
}

func (s *Server) groupViews(slots []slot.Slot) ([]groupView, error) {
	groups := slot.GroupByMonth(s.cal, slots)
	views := make([]groupView, 0, len(groups))
	for _, key := range groups.Keys() {
		members := groups[key]
		header, err := s.formatter.MonthHeader(key, len(members))
		if err != nil {
			return nil, err
		}
		group := groupView{Month: key, Header: header, Slots: make([]slotView, 0, len(members))}
		for _, m := range members {
			group.Slots = append(group.Slots, s.slotView(m.Index, m.Slot))
		}
		views = append(views, group)
	}
	return views, nil
}
