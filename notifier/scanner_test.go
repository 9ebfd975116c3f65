package notifier

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"notification-service/domain"
)

type fakeTaskStore struct {
	mu           sync.Mutex
	dueSoonTasks []domain.Task
	overdueTasks []domain.Task
	dueSoonErr   error
	overdueErr   error
	dueSoonFrom  time.Time
	dueSoonTo    time.Time
	overdueNow   time.Time
}

func (f *fakeTaskStore) FetchTasksDueBetween(_ context.Context, from, to time.Time) ([]domain.Task, error) {
	f.mu.Lock()
	f.dueSoonFrom = from
	f.dueSoonTo = to
	f.mu.Unlock()
	return f.dueSoonTasks, f.dueSoonErr
}

func (f *fakeTaskStore) FetchTasksOverdue(_ context.Context, now time.Time) ([]domain.Task, error) {
	f.mu.Lock()
	f.overdueNow = now
	f.mu.Unlock()
	return f.overdueTasks, f.overdueErr
}

func newTestScanner(store *fakeTaskStore, users *fakeUserStore, pub *fakePublisher, window time.Duration) *Scanner {
	logger := quietLogger()
	return NewScanner(store, NewDispatcher(users, pub, logger), logger, window)
}

func TestRunCycleWindows(t *testing.T) {
	store := &fakeTaskStore{}
	s := newTestScanner(store, &fakeUserStore{}, &fakePublisher{}, 24*time.Hour)

	before := time.Now().UTC()
	s.RunCycle(context.Background())
	after := time.Now().UTC()

	if store.dueSoonFrom.Before(before) || store.dueSoonFrom.After(after) {
		t.Fatalf("due soon window start %v outside [%v, %v]", store.dueSoonFrom, before, after)
	}
	if got := store.dueSoonTo.Sub(store.dueSoonFrom); got != 24*time.Hour {
		t.Fatalf("expected 24h window, got %v", got)
	}
	if !store.overdueNow.Equal(store.dueSoonFrom) {
		t.Fatalf("windows computed from different nows: %v vs %v", store.overdueNow, store.dueSoonFrom)
	}
	if store.dueSoonFrom.Location() != time.UTC {
		t.Fatal("scan time must be UTC")
	}
}

func TestRunCycleDispatchesBothKinds(t *testing.T) {
	store := &fakeTaskStore{
		dueSoonTasks: []domain.Task{{ID: "tA", OwnerID: "user1", Status: domain.StatusPending}},
		overdueTasks: []domain.Task{{ID: "tB", OwnerID: "user2", Status: domain.StatusInProgress}},
	}
	users := &fakeUserStore{users: map[string]domain.User{
		"user1": {ID: "user1", Notifications: domain.NotificationPreferences{DueSoon: true}},
		"user2": {ID: "user2", Notifications: domain.NotificationPreferences{Overdue: true}},
	}}
	pub := &fakePublisher{}
	s := newTestScanner(store, users, pub, 24*time.Hour)

	s.RunCycle(context.Background())

	records := pub.all()
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %+v", records)
	}
	kinds := map[string]string{}
	for _, r := range records {
		kinds[r.n.Kind] = r.n.Task.ID
	}
	if kinds[domain.DueSoonNotification] != "tA" || kinds[domain.OverdueNotification] != "tB" {
		t.Fatalf("unexpected kinds %+v", kinds)
	}
}

func TestRunCycleWindowFailureIsolated(t *testing.T) {
	store := &fakeTaskStore{
		dueSoonErr:   errors.New("query timeout"),
		overdueTasks: []domain.Task{{ID: "tB", OwnerID: "user2"}},
	}
	users := &fakeUserStore{users: map[string]domain.User{
		"user2": {ID: "user2", Notifications: domain.NotificationPreferences{Overdue: true}},
	}}
	pub := &fakePublisher{}
	s := newTestScanner(store, users, pub, 24*time.Hour)

	s.RunCycle(context.Background())

	records := pub.all()
	if len(records) != 1 || records[0].n.Kind != domain.OverdueNotification {
		t.Fatalf("overdue window should survive due-soon failure, got %+v", records)
	}
}

func TestRunCycleIdempotentAcrossCycles(t *testing.T) {
	store := &fakeTaskStore{
		dueSoonTasks: []domain.Task{{ID: "tA", OwnerID: "user1"}},
		overdueTasks: []domain.Task{{ID: "tB", OwnerID: "user1"}},
	}
	users := &fakeUserStore{users: map[string]domain.User{
		"user1": {ID: "user1", Notifications: domain.NotificationPreferences{DueSoon: true, Overdue: true}},
	}}
	pub := &fakePublisher{}
	s := newTestScanner(store, users, pub, 24*time.Hour)

	s.RunCycle(context.Background())
	s.RunCycle(context.Background())

	if len(pub.all()) != 4 {
		t.Fatalf("expected both events re-published each cycle, got %d records", len(pub.all()))
	}
}

func TestStartInvalidSchedule(t *testing.T) {
	s := newTestScanner(&fakeTaskStore{}, &fakeUserStore{}, &fakePublisher{}, 24*time.Hour)
	if _, err := s.Start(context.Background(), "not a schedule"); err == nil {
		t.Fatal("expected error for invalid schedule")
	}
}

func TestStartAndStop(t *testing.T) {
	s := newTestScanner(&fakeTaskStore{}, &fakeUserStore{}, &fakePublisher{}, 24*time.Hour)
	c, err := s.Start(context.Background(), DefaultSchedule)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	<-c.Stop().Done()
}
