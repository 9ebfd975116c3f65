package notifier

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"notification-service/domain"
)

const (
	// DefaultDueSoonWindow classifies a task as due soon when its due date
	// falls within this much of now.
	DefaultDueSoonWindow = 24 * time.Hour

	// DefaultSchedule runs a scan every 30 minutes.
	DefaultSchedule = "*/30 * * * *"
)

// TaskStore queries tasks by due-date window across all users. Both queries
// exclude completed tasks.
type TaskStore interface {
	FetchTasksDueBetween(ctx context.Context, from, to time.Time) ([]domain.Task, error)
	FetchTasksOverdue(ctx context.Context, now time.Time) ([]domain.Task, error)
}

// Scanner periodically queries the task store for tasks approaching or past
// their due date and hands the results to the dispatcher. It is a
// process-lifetime activity: a failed cycle logs and waits for the next tick.
type Scanner struct {
	store         TaskStore
	dispatcher    *Dispatcher
	logger        *log.Logger
	dueSoonWindow time.Duration
}

func NewScanner(store TaskStore, dispatcher *Dispatcher, logger *log.Logger, dueSoonWindow time.Duration) *Scanner {
	if dueSoonWindow <= 0 {
		dueSoonWindow = DefaultDueSoonWindow
	}
	return &Scanner{store: store, dispatcher: dispatcher, logger: logger, dueSoonWindow: dueSoonWindow}
}

// Start registers the scan on the given cron schedule (UTC) and starts the
// scheduler. A tick that fires while the previous cycle is still running is
// skipped, so cycles never overlap. The returned cron must be stopped by the
// caller on shutdown.
func (s *Scanner) Start(ctx context.Context, schedule string) (*cron.Cron, error) {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(s.logger))),
	)
	if _, err := c.AddFunc(schedule, func() { s.RunCycle(ctx) }); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}
	c.Start()
	s.logger.Infof("due-date scanner started, schedule: %s, due soon window: %v", schedule, s.dueSoonWindow)
	return c, nil
}

// RunCycle executes one scan. The due-soon window is [now, now+window); the
// overdue window is everything before now. The two store queries run
// concurrently; a failed query is logged and degrades to an empty result for
// that window only.
func (s *Scanner) RunCycle(ctx context.Context) {
	now := time.Now().UTC()
	metrics := newScanCycleMetrics(s.logger)

	var wg sync.WaitGroup
	var dueSoon, overdue []domain.Task
	var dueSoonErr, overdueErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		dueSoon, dueSoonErr = s.store.FetchTasksDueBetween(ctx, now, now.Add(s.dueSoonWindow))
	}()
	go func() {
		defer wg.Done()
		overdue, overdueErr = s.store.FetchTasksOverdue(ctx, now)
	}()
	wg.Wait()

	if dueSoonErr != nil {
		metrics.AddFailedWindow("due_soon")
		s.logger.Errorf("due soon scan failed: %v", dueSoonErr)
		dueSoon = nil
	}
	if overdueErr != nil {
		metrics.AddFailedWindow("overdue")
		s.logger.Errorf("overdue scan failed: %v", overdueErr)
		overdue = nil
	}
	metrics.SetTasksFound(len(dueSoon), len(overdue))

	published := s.dispatcher.DispatchDueSoon(ctx, dueSoon)
	published += s.dispatcher.DispatchOverdue(ctx, overdue)
	metrics.SetPublished(published)
	metrics.Log()
}
