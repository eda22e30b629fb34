package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPurger struct {
	mu     sync.Mutex
	calls  []time.Duration
	err    error
	hadCtx bool
}

func (p *recordingPurger) PurgeOrphans(ctx context.Context, maxAge time.Duration) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, p.hadCtx = ctx.Deadline()
	p.calls = append(p.calls, maxAge)
	return len(p.calls), p.err
}

func TestAddOrphanSweep_InvalidSchedule(t *testing.T) {
	s := NewScheduler(time.Second)
	err := s.AddOrphanSweep("not a schedule", &recordingPurger{}, time.Hour)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "orphan sweep")
}

func TestRunOrphanSweep_PassesMaxAgeWithDeadline(t *testing.T) {
	s := NewScheduler(time.Second)
	p := &recordingPurger{}

	s.runOrphanSweep(p, 24*time.Hour)

	require.Len(t, p.calls, 1)
	assert.Equal(t, 24*time.Hour, p.calls[0])
	assert.True(t, p.hadCtx)
}

func TestRunOrphanSweep_ErrorIsLogged(t *testing.T) {
	s := NewScheduler(time.Second)
	p := &recordingPurger{err: errors.New("db down")}

	assert.NotPanics(t, func() { s.runOrphanSweep(p, time.Hour) })
}

func TestScheduler_RunsAndStops(t *testing.T) {
	s := NewScheduler(time.Second)
	p := &recordingPurger{}
	require.NoError(t, s.AddOrphanSweep("@every 10ms", p, time.Minute))

	s.Start()
	assert.Eventually(t, func() bool {
		p.mu.Lock()
		defer p.mu.Unlock()
		return len(p.calls) > 0
	}, 3*time.Second, 10*time.Millisecond)
	s.Stop()
}
