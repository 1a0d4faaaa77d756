package recurrence

import (
	"time"

	"github.com/samber/mo"

	"github.com/cyp0633/libslots/datetime"
)

// PreviewRequest is the recurrence sheet's state: a base pair chosen in the
// date picker plus the recurrence options.
type PreviewRequest struct {
	BaseStartAt  time.Time
	BaseEndAt    time.Time
	Type         Type
	SelectedDays []int
	HasEndDate   bool
	EndDateInput string
}

// ValidationRequest returns the subset validation looks at.
func (r PreviewRequest) ValidationRequest() ValidationRequest {
	return ValidationRequest{
		Type:         r.Type,
		SelectedDays: r.SelectedDays,
		HasEndDate:   r.HasEndDate,
		EndDateInput: r.EndDateInput,
		BaseStartAt:  r.BaseStartAt,
	}
}

// Preview is what the user is asked to confirm.
type Preview struct {
	Occurrences []Occurrence
	Errors      Errors
}

// CanConfirm is false for an invalid or empty preview.
func (p Preview) CanConfirm() bool {
	return p.Errors.Valid() && len(p.Occurrences) > 0
}

// Preview validates the request and only generates when every rule passes.
func (e *Engine) Preview(req PreviewRequest) Preview {
	errs := Validate(e.cal, req.ValidationRequest())
	if !errs.Valid() {
		e.logger.Debug("preview rejected by validation", "fields", errs.Fields())
		return Preview{Errors: errs}
	}

	settings := Settings{
		Type:         req.Type,
		SelectedDays: req.SelectedDays,
		EndDate:      mo.None[time.Time](),
	}
	if req.HasEndDate {
		// Validate already proved the input parses.
		endDate, err := datetime.ParseDateIn(e.cal.Location(), req.EndDateInput)
		if err == nil {
			settings.EndDate = mo.Some(endDate)
		}
	}

	return Preview{
		Occurrences: e.Generate(Input{
			BaseStartAt: req.BaseStartAt,
			BaseEndAt:   req.BaseEndAt,
			Settings:    settings,
		}),
		Errors: errs,
	}
}
