package notifier

import (
	"context"

	log "github.com/sirupsen/logrus"

	"notification-service/domain"
)

// UserStore looks up the owner of a task.
type UserStore interface {
	FetchUser(ctx context.Context, userID string) (domain.User, error)
}

// Publisher delivers a notification to every live connection of a user.
type Publisher interface {
	Publish(ctx context.Context, userID string, n domain.Notification) error
}

// Dispatcher fans scan results out to task owners, gated on each owner's
// notification preferences. One bad record never drops the rest of a batch:
// per-task failures are logged and skipped.
type Dispatcher struct {
	users     UserStore
	publisher Publisher
	logger    *log.Logger
}

func NewDispatcher(users UserStore, publisher Publisher, logger *log.Logger) *Dispatcher {
	return &Dispatcher{users: users, publisher: publisher, logger: logger}
}

// DispatchDueSoon publishes a due-soon notification for every task whose
// owner has due-soon notifications enabled. It returns the number published.
func (d *Dispatcher) DispatchDueSoon(ctx context.Context, tasks []domain.Task) int {
	return d.dispatch(ctx, domain.DueSoonNotification, tasks, func(u domain.User) bool {
		return u.Notifications.DueSoon
	})
}

// DispatchOverdue publishes an overdue notification for every task whose
// owner has overdue notifications enabled. It returns the number published.
func (d *Dispatcher) DispatchOverdue(ctx context.Context, tasks []domain.Task) int {
	return d.dispatch(ctx, domain.OverdueNotification, tasks, func(u domain.User) bool {
		return u.Notifications.Overdue
	})
}

func (d *Dispatcher) dispatch(ctx context.Context, kind string, tasks []domain.Task, enabled func(domain.User) bool) int {
	published := 0
	for _, task := range tasks {
		owner, err := d.users.FetchUser(ctx, task.OwnerID)
		if err != nil {
			d.logger.Errorf("owner lookup for task %s failed: %v", task.ID, err)
			continue
		}
		if !enabled(owner) {
			continue
		}
		if err := d.publisher.Publish(ctx, owner.ID, domain.Notification{Kind: kind, Task: task}); err != nil {
			d.logger.Errorf("publish %s for task %s failed: %v", kind, task.ID, err)
			continue
		}
		published++
	}
	return published
}
