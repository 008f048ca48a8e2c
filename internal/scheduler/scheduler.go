// Package scheduler runs the daily maintenance jobs of rehab serve.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/julianstephens/rehab/internal/constants"
	"github.com/julianstephens/rehab/internal/logger"
)

const (
	JobRefreshStreaks  = "refresh-streaks"
	JobRollAffirmation = "roll-affirmation"
)

// StreakRefresher recomputes stored streaks
type StreakRefresher interface {
	RefreshStreaks(ctx context.Context, now time.Time) (int, error)
}

// AffirmationCache is rolled over to a new affirmation each day
type AffirmationCache interface {
	Invalidate()
	Today(now time.Time) string
}

type Scheduler struct {
	cron    gocron.Scheduler
	streaks StreakRefresher
	cache   AffirmationCache
	loc     *time.Location
	now     func() time.Time
}

// New registers the daily jobs in loc. Nothing runs until Start.
func New(streaks StreakRefresher, cache AffirmationCache, loc *time.Location) (*Scheduler, error) {
	if loc == nil {
		loc = time.Local
	}
	cron, err := gocron.NewScheduler(gocron.WithLocation(loc))
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	s := &Scheduler{cron: cron, streaks: streaks, cache: cache, loc: loc, now: time.Now}
	at := gocron.NewAtTimes(gocron.NewAtTime(constants.DailyJobHour, constants.DailyJobMinute, 0))

	jobs := []struct {
		name string
		fn   func()
	}{
		{JobRefreshStreaks, s.refreshStreaks},
		{JobRollAffirmation, s.rollAffirmation},
	}
	for _, j := range jobs {
		_, err := cron.NewJob(
			gocron.DailyJob(1, at),
			gocron.NewTask(j.fn),
			gocron.WithName(j.name),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			_ = cron.Shutdown()
			return nil, fmt.Errorf("failed to register %s: %w", j.name, err)
		}
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	logger.Info("Scheduler started", "jobs", len(s.cron.Jobs()), "location", s.loc.String())
}

func (s *Scheduler) Shutdown() error {
	return s.cron.Shutdown()
}

// JobNames lists the registered jobs
func (s *Scheduler) JobNames() []string {
	jobs := s.cron.Jobs()
	names := make([]string, 0, len(jobs))
	for _, j := range jobs {
		names = append(names, j.Name())
	}
	return names
}

func (s *Scheduler) refreshStreaks() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Hour)
	defer cancel()
	if _, err := s.streaks.RefreshStreaks(ctx, s.now().In(s.loc)); err != nil {
		logger.Error("Streak refresh failed", "error", err)
	}
}

func (s *Scheduler) rollAffirmation() {
	s.cache.Invalidate()
	text := s.cache.Today(s.now().In(s.loc))
	logger.Debug("Rolled affirmation", "affirmation", text)
}
