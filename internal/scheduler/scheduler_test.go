package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retailops/backend/internal/domain"
	"retailops/backend/internal/lock"
	"retailops/backend/internal/service"
	"retailops/backend/internal/store/memory"
)

type countingEnsurer struct {
	calls int
	actor domain.Actor
	err   error
}

func (c *countingEnsurer) EnsureToday(ctx context.Context) (string, bool, error) {
	c.calls++
	c.actor, _ = service.ActorFromContext(ctx)
	if c.err != nil {
		return "", false, c.err
	}
	return "2026-03-01", c.calls == 1, nil
}

func TestRunOnceUsesSystemActor(t *testing.T) {
	ensurer := &countingEnsurer{}
	job := NewDailyJob(ensurer, lock.NewLocalLocker(), 0)

	created, err := job.RunOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, domain.RoleAdmin, ensurer.actor.Role)
	assert.Equal(t, "2026-03-01", job.lastRun)
}

func TestRunOnceSkipsWhenLockHeld(t *testing.T) {
	locker := lock.NewLocalLocker()
	ensurer := &countingEnsurer{}
	job := NewDailyJob(ensurer, locker, 0)
	job.now = func() time.Time { return time.Date(2026, 3, 1, 17, 0, 0, 0, time.UTC) }

	_, err := locker.Obtain(context.Background(), "jobs:daily-ensure:2026-03-01", time.Minute)
	require.NoError(t, err)

	created, err := job.RunOnce(context.Background())
	require.NoError(t, err)
	assert.False(t, created)
	assert.Zero(t, ensurer.calls)
}

func TestRunOnceReportsEnsureFailure(t *testing.T) {
	ensurer := &countingEnsurer{err: errors.New("db down")}
	job := NewDailyJob(ensurer, nil, 0)

	_, err := job.RunOnce(context.Background())
	assert.EqualError(t, err, "db down")
	assert.Empty(t, job.lastRun)
}

func TestDueRespectsLimaHour(t *testing.T) {
	job := NewDailyJob(&countingEnsurer{}, nil, 6)

	// 05:30 in Lima.
	job.now = func() time.Time { return time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC) }
	assert.False(t, job.due())

	// 06:00 in Lima.
	job.now = func() time.Time { return time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC) }
	assert.True(t, job.due())

	job.markRun("2026-03-01")
	assert.False(t, job.due())
}

func TestRunCreatesTodaysReport(t *testing.T) {
	repo := memory.New()
	now := time.Date(2026, 3, 1, 17, 0, 0, 0, time.UTC)
	svc := service.New(repo, service.Options{Now: func() time.Time { return now }})
	job := NewDailyJob(svc, nil, 0)
	job.now = func() time.Time { return now }
	job.interval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		job.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		_, err := repo.GetDailyReport(context.Background(), "2026-03-01")
		return err == nil
	}, time.Second, 10*time.Millisecond)

	cancel()
	<-done
}
