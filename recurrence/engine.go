package recurrence

import (
	"log/slog"
	"time"

	"github.com/samber/mo"

	"github.com/cyp0633/libslots/datetime"
)

// Engine projects a base start/end pair across the calendar.
type Engine struct {
	cal    datetime.Calendar
	cache  *PreviewCache
	logger *slog.Logger
}

// NewEngine creates an engine without a cache, adjusted by opts
func NewEngine(cal datetime.Calendar, opts ...Option) *Engine {
	config := DisabledCacheConfig
	for _, opt := range opts {
		opt(&config)
	}
	return NewEngineWithConfig(cal, config)
}

// NewEngineWithConfig creates a new recurrence engine with custom configuration
func NewEngineWithConfig(cal datetime.Calendar, config EngineConfig) *Engine {
	config.normalize()

	var cache *PreviewCache
	if config.CacheEnabled {
		cache = NewPreviewCache(config.CacheConfig)
	}

	return &Engine{
		cal:    cal,
		cache:  cache,
		logger: config.Logger,
	}
}

// Calendar returns the calendar the engine reads dates in.
func (e *Engine) Calendar() datetime.Calendar {
	return e.cal
}

// Close releases the cache, if any.
func (e *Engine) Close() {
	if e.cache != nil {
		e.cache.Close()
	}
}

// Generate returns one occurrence per matching day from the base day through
// the effective end day, inclusive, in ascending order. Every end is the
// occurrence start plus the base pair's elapsed duration, so spans crossing
// midnight keep their length. Absent base timestamps produce nothing.
func (e *Engine) Generate(in Input) []Occurrence {
	if in.BaseStartAt.IsZero() || in.BaseEndAt.IsZero() {
		return nil
	}

	var key string
	if e.cache != nil {
		key = cacheKey(e.cal, in)
		if cached, ok := e.cache.Get(key); ok {
			return cached
		}
	}

	occurrences := e.generate(in)

	if e.cache != nil {
		e.cache.Set(key, occurrences)
	}
	return occurrences
}

func (e *Engine) generate(in Input) []Occurrence {
	durationMs := e.cal.DiffMs(in.BaseStartAt, in.BaseEndAt)

	first := e.cal.StartOfDay(in.BaseStartAt)
	last := e.EffectiveEnd(first, in.Settings.EndDate)

	var accept func(day time.Time) bool
	switch in.Settings.Type {
	case TypeDaily:
		accept = func(time.Time) bool { return true }
	case TypeWeekly:
		var selected [7]bool
		for _, d := range in.Settings.SelectedDays {
			if d >= 0 && d < len(selected) {
				selected[d] = true
			}
		}
		accept = func(day time.Time) bool { return selected[e.cal.Weekday(day)] }
	default:
		e.logger.Debug("unknown recurrence type", "type", in.Settings.Type)
		return nil
	}

	var occurrences []Occurrence
	for day := first; !day.After(last); day = e.cal.AddDays(day, 1) {
		if !accept(day) {
			continue
		}
		start := e.cal.WithTimeOfDay(day, in.BaseStartAt)
		occurrences = append(occurrences, Occurrence{
			StartAt: start,
			EndAt:   e.cal.AddMs(start, durationMs),
		})
	}

	e.logger.Debug("generated occurrences",
		"type", in.Settings.Type,
		"first_day", first.Format(datetime.LayoutDate),
		"last_day", last.Format(datetime.LayoutDate),
		"count", len(occurrences))

	return occurrences
}

// Ceiling is the last day generation may reach from firstDay.
func (e *Engine) Ceiling(firstDay time.Time) time.Time {
	return e.cal.AddMonths(e.cal.StartOfDay(firstDay), HorizonMonths)
}

// EffectiveEnd clamps an optional end date to the horizon.
func (e *Engine) EffectiveEnd(firstDay time.Time, endDate mo.Option[time.Time]) time.Time {
	ceiling := e.Ceiling(firstDay)
	if d, ok := endDate.Get(); ok {
		d = e.cal.StartOfDay(d)
		if !d.After(ceiling) {
			return d
		}
	}
	return ceiling
}
