package recurrence

import (
	"sort"
	"strings"
	"time"

	"github.com/cyp0633/libslots/datetime"
)

// Field names the form input a validation error belongs to.
type Field string

const (
	FieldDays    Field = "days"
	FieldEndDate Field = "endDate"
)

// Validation messages.
const (
	MsgDaysRequired       = "select at least one weekday"
	MsgDayOutOfRange      = "weekday out of range"
	MsgEndDateRequired    = "end date is required"
	MsgEndDateInvalid     = "invalid end date"
	MsgEndDateBeforeStart = "end date must be on or after the start date"
)

// Errors maps fields to user-correctable messages. An empty set is valid.
type Errors map[Field]string

// Valid reports whether no rule fired.
func (e Errors) Valid() bool {
	return len(e) == 0
}

// Fields returns the failing fields in stable order.
func (e Errors) Fields() []Field {
	fields := make([]Field, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i] < fields[j] })
	return fields
}

// ValidationRequest mirrors the recurrence form as the user filled it in.
type ValidationRequest struct {
	Type         Type
	SelectedDays []int
	HasEndDate   bool
	// EndDateInput is the raw "YYYY-MM-DD" value of the end date picker.
	EndDateInput string
	BaseStartAt  time.Time
}

// Validate runs every rule and accumulates the failures. A later rule on the
// same field does not overwrite an earlier one.
func Validate(cal datetime.Calendar, req ValidationRequest) Errors {
	errs := Errors{}
	add := func(f Field, msg string) {
		if _, exists := errs[f]; !exists {
			errs[f] = msg
		}
	}

	if req.Type == TypeWeekly {
		if len(req.SelectedDays) == 0 {
			add(FieldDays, MsgDaysRequired)
		}
		for _, d := range req.SelectedDays {
			if d < 0 || d > 6 {
				add(FieldDays, MsgDayOutOfRange)
				break
			}
		}
	}

	if req.HasEndDate {
		input := strings.TrimSpace(req.EndDateInput)
		switch {
		case input == "":
			add(FieldEndDate, MsgEndDateRequired)
		default:
			endDate, err := datetime.ParseDateIn(cal.Location(), input)
			if err != nil {
				add(FieldEndDate, MsgEndDateInvalid)
				break
			}
			if !req.BaseStartAt.IsZero() && cal.StartOfDay(endDate).Before(cal.StartOfDay(req.BaseStartAt)) {
				add(FieldEndDate, MsgEndDateBeforeStart)
			}
		}
	}

	return errs
}
