// Package jobs runs the periodic maintenance tasks of the server.
package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// OrphanPurger removes unassigned uploads older than maxAge
type OrphanPurger interface {
	PurgeOrphans(ctx context.Context, maxAge time.Duration) (int, error)
}

// Scheduler wraps a cron runner. Each run gets its own timeout derived from
// the scheduler's base context, so Stop cancels work in flight.
type Scheduler struct {
	cron    *cron.Cron
	ctx     context.Context
	cancel  context.CancelFunc
	timeout time.Duration
}

// NewScheduler creates a stopped scheduler. Runs are skipped while the
// previous run of the same job is still going.
func NewScheduler(timeout time.Duration) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		ctx:     ctx,
		cancel:  cancel,
		timeout: timeout,
	}
}

// AddOrphanSweep schedules the orphan media sweep on schedule, e.g. "@hourly"
func (s *Scheduler) AddOrphanSweep(schedule string, purger OrphanPurger, maxAge time.Duration) error {
	_, err := s.cron.AddFunc(schedule, func() {
		s.runOrphanSweep(purger, maxAge)
	})
	if err != nil {
		return fmt.Errorf("could not schedule orphan sweep %q: %w", schedule, err)
	}
	log.Printf("[JOBS] Orphan media sweep scheduled (%s, max age %s)", schedule, maxAge)
	return nil
}

func (s *Scheduler) runOrphanSweep(purger OrphanPurger, maxAge time.Duration) {
	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	purged, err := purger.PurgeOrphans(ctx, maxAge)
	if err != nil {
		log.Printf("[JOBS] Orphan media sweep failed after %d removals: %v", purged, err)
		return
	}
	if purged > 0 {
		log.Printf("[JOBS] Orphan media sweep removed %d uploads", purged)
	}
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop cancels running jobs and waits for them to return
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	log.Println("[JOBS] Scheduler stopped")
}
