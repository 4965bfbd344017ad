// Package scheduler runs the once-per-Lima-day report job.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"retailops/backend/internal/lima"
	"retailops/backend/internal/lock"
	"retailops/backend/internal/logger"
	"retailops/backend/internal/service"
)

const (
	defaultPollInterval = time.Minute
	leaseTTL            = 5 * time.Minute
)

// Ensurer creates today's report when it does not exist yet.
type Ensurer interface {
	EnsureToday(ctx context.Context) (string, bool, error)
}

type DailyJob struct {
	ensure   Ensurer
	locker   lock.Locker
	hour     int
	interval time.Duration
	now      func() time.Time

	mu      sync.Mutex
	lastRun string
}

func NewDailyJob(ensure Ensurer, locker lock.Locker, hour int) *DailyJob {
	if locker == nil {
		locker = lock.NewLocalLocker()
	}
	return &DailyJob{
		ensure:   ensure,
		locker:   locker,
		hour:     hour,
		interval: defaultPollInterval,
		now:      time.Now,
	}
}

// Run polls until ctx is done, running the job once per Lima day as soon as
// the configured hour is reached.
func (j *DailyJob) Run(ctx context.Context) {
	log := logger.FromContext(ctx).WithComponent("daily-job")
	log.Infow("daily job started", "hour", j.hour)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		if j.due() {
			if _, err := j.RunOnce(ctx); err != nil && ctx.Err() == nil {
				log.Errorw("daily ensure failed", "error", err)
			}
		}
		select {
		case <-ctx.Done():
			log.Infow("daily job stopped")
			return
		case <-ticker.C:
		}
	}
}

func (j *DailyJob) due() bool {
	now := j.now().In(lima.Location)
	if now.Hour() < j.hour {
		return false
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.lastRun != now.Format(lima.DateLayout)
}

// RunOnce ensures today's report under the distributed lock. It reports
// false without error when another replica holds the lock.
func (j *DailyJob) RunOnce(ctx context.Context) (bool, error) {
	today := lima.DateOf(j.now())
	lease, err := j.locker.Obtain(ctx, "jobs:daily-ensure:"+today, leaseTTL)
	if errors.Is(err, lock.ErrNotObtained) {
		logger.Debug(ctx, "daily ensure held by another replica", "date", today)
		j.markRun(today)
		return false, nil
	}
	if err != nil {
		return false, err
	}
	defer func() {
		if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
			logger.Warn(ctx, "daily ensure lock release failed", "error", err)
		}
	}()

	date, created, err := j.ensure.EnsureToday(service.SystemContext(ctx))
	if err != nil {
		return false, err
	}
	j.markRun(date)
	logger.Info(ctx, "daily ensure done", "date", date, "created", created)
	return created, nil
}

func (j *DailyJob) markRun(date string) {
	j.mu.Lock()
	j.lastRun = date
	j.mu.Unlock()
}
