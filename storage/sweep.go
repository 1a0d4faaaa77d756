package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultSweepSpec runs the completion sweep at the start of every minute.
const DefaultSweepSpec = "0 * * * * *"

// Sweeper periodically marks ended slots as completed, the transition the
// persistence service performs on its own.
type Sweeper struct {
	store  Storage
	cron   *cron.Cron
	now    func() time.Time
	logger *slog.Logger
}

// NewSweeper schedules the sweep on a six-field cron spec (with seconds) in
// loc. It does not run until Start.
func NewSweeper(store Storage, spec string, loc *time.Location, logger *slog.Logger) (*Sweeper, error) {
	if spec == "" {
		spec = DefaultSweepSpec
	}
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	s := &Sweeper{
		store:  store,
		cron:   cron.New(cron.WithLocation(loc), cron.WithSeconds()),
		now:    time.Now,
		logger: logger,
	}
	if _, err := s.cron.AddFunc(spec, func() { s.Sweep(context.Background()) }); err != nil {
		return nil, fmt.Errorf("invalid sweep spec %q: %w", spec, err)
	}
	return s, nil
}

// Sweep runs one pass and returns how many slots were completed.
func (s *Sweeper) Sweep(ctx context.Context) int {
	n, err := s.store.CompleteEndedSlots(ctx, s.now())
	if err != nil {
		s.logger.Error("completion sweep failed", "error", err)
		return 0
	}
	if n > 0 {
		s.logger.Info("completed ended slots", "count", n)
	}
	return n
}

func (s *Sweeper) Start() {
	s.cron.Start()
}

// Stop waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
