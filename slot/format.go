package slot

import (
	"fmt"
	"strings"
	"time"

	"github.com/cyp0633/libslots/datetime"
)

// Locale selects the label language.
type Locale string

const (
	LocaleJapanese Locale = "ja"
	LocaleEnglish  Locale = "en"
)

// ParseLocale maps a config value to a Locale. Empty means Japanese.
func ParseLocale(s string) (Locale, error) {
	switch l := Locale(strings.ToLower(strings.TrimSpace(s))); l {
	case "":
		return LocaleJapanese, nil
	case LocaleJapanese, LocaleEnglish:
		return l, nil
	default:
		return "", fmt.Errorf("unsupported locale %q", s)
	}
}

var japaneseWeekdays = [7]string{"日", "月", "火", "水", "木", "金", "土"}

const timeOfDay = "15:04"

// RangeLabel is the two-line label of one slot.
type RangeLabel struct {
	DateLabel      string `json:"dateLabel"`
	TimeRangeLabel string `json:"timeRangeLabel"`
}

// Formatter renders month headers and slot ranges.
type Formatter struct {
	cal    datetime.Calendar
	locale Locale
}

// NewFormatter creates a formatter reading dates in cal.
func NewFormatter(cal datetime.Calendar, locale Locale) *Formatter {
	if locale == "" {
		locale = LocaleJapanese
	}
	return &Formatter{cal: cal, locale: locale}
}

// MonthHeader renders a month key with its slot count.
func (f *Formatter) MonthHeader(monthKey string, count int) (string, error) {
	month, err := time.ParseInLocation(datetime.LayoutMonthKey, monthKey, f.cal.Location())
	if err != nil {
		return "", fmt.Errorf("parse month key %q: %w", monthKey, err)
	}

	switch f.locale {
	case LocaleEnglish:
		return fmt.Sprintf("%s (%d)", month.Format("January 2006"), count), nil
	default:
		return fmt.Sprintf("%d年%d月（%d件）", month.Year(), int(month.Month()), count), nil
	}
}

// SlotRange renders the start date and the time range. The end time carries
// a marker when it falls on a later calendar day than the start.
func (f *Formatter) SlotRange(startAt, endAt time.Time) RangeLabel {
	loc := f.cal.Location()
	startAt, endAt = startAt.In(loc), endAt.In(loc)

	diffDays := f.cal.DayDifference(f.cal.StartOfDay(endAt), f.cal.StartOfDay(startAt))
	end := endAt.Format(timeOfDay)

	return RangeLabel{
		DateLabel:      f.dateLabel(startAt),
		TimeRangeLabel: fmt.Sprintf("%s 〜 %s", startAt.Format(timeOfDay), f.endLabel(diffDays, end)),
	}
}

func (f *Formatter) dateLabel(t time.Time) string {
	switch f.locale {
	case LocaleEnglish:
		return t.Format("Monday, January 2, 2006")
	default:
		return fmt.Sprintf("%d年%d月%d日(%s)", t.Year(), int(t.Month()), t.Day(), japaneseWeekdays[f.cal.Weekday(t)])
	}
}

func (f *Formatter) endLabel(diffDays int, end string) string {
	if diffDays <= 0 {
		return end
	}

	switch f.locale {
	case LocaleEnglish:
		if diffDays == 1 {
			return "next day " + end
		}
		return fmt.Sprintf("%d days later %s", diffDays, end)
	default:
		switch diffDays {
		case 1:
			return "翌日 " + end
		case 2:
			return "翌々日 " + end
		default:
			return fmt.Sprintf("%d日後 %s", diffDays, end)
		}
	}
}
