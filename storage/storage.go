package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"

	"notification-service/domain"
)

// Storage provides read access to the task and user tables. Tasks are keyed
// by owner (PartitionKey) and task id (RowKey); users by their id as both
// keys. This service never writes to either table.
type Storage struct {
	taskTable *aztables.Client
	userTable *aztables.Client
}

// New creates a Storage instance from the given connection string.
func New(connStr, tasksTable, usersTable string) (*Storage, error) {
	clientOptions := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute * 3,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &clientOptions)
	if err != nil {
		return nil, err
	}
	return &Storage{taskTable: svc.NewClient(tasksTable), userTable: svc.NewClient(usersTable)}, nil
}

type taskEntity struct {
	aztables.Entity
	Title       string               `json:"Title"`
	Description string               `json:"Description"`
	DueDate     aztables.EDMDateTime `json:"DueDate"`
	Status      string               `json:"Status"`
}

func decodeTaskEntity(data []byte) (domain.Task, error) {
	var ent taskEntity
	if err := json.Unmarshal(data, &ent); err != nil {
		return domain.Task{}, err
	}
	return domain.Task{
		ID:          ent.RowKey,
		OwnerID:     ent.PartitionKey,
		Title:       ent.Title,
		Description: ent.Description,
		DueDate:     time.Time(ent.DueDate),
		Status:      ent.Status,
	}, nil
}

type userEntity struct {
	aztables.Entity
	Name          string `json:"Name"`
	Email         string `json:"Email"`
	NotifyDueSoon bool   `json:"NotifyDueSoon"`
	NotifyOverdue bool   `json:"NotifyOverdue"`
}

func decodeUserEntity(data []byte) (domain.User, error) {
	var ent userEntity
	if err := json.Unmarshal(data, &ent); err != nil {
		return domain.User{}, err
	}
	return domain.User{
		ID:    ent.RowKey,
		Name:  ent.Name,
		Email: ent.Email,
		Notifications: domain.NotificationPreferences{
			DueSoon: ent.NotifyDueSoon,
			Overdue: ent.NotifyOverdue,
		},
	}, nil
}

func edmDateTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func dueBetweenFilter(from, to time.Time) string {
	return fmt.Sprintf("DueDate ge datetime'%s' and DueDate lt datetime'%s' and Status ne '%s'",
		edmDateTime(from), edmDateTime(to), domain.StatusCompleted)
}

func overdueFilter(now time.Time) string {
	return fmt.Sprintf("DueDate lt datetime'%s' and Status ne '%s'",
		edmDateTime(now), domain.StatusCompleted)
}

func forUser(userID, filter string) string {
	return fmt.Sprintf("PartitionKey eq '%s' and %s", userID, filter)
}

// FetchTasksDueBetween returns incomplete tasks across all users whose due
// date falls within [from, to).
func (s *Storage) FetchTasksDueBetween(ctx context.Context, from, to time.Time) ([]domain.Task, error) {
	return s.queryTasks(ctx, dueBetweenFilter(from, to))
}

// FetchTasksOverdue returns incomplete tasks across all users whose due date
// has already passed.
func (s *Storage) FetchTasksOverdue(ctx context.Context, now time.Time) ([]domain.Task, error) {
	return s.queryTasks(ctx, overdueFilter(now))
}

func (s *Storage) queryTasks(ctx context.Context, filter string) ([]domain.Task, error) {
	pager := s.taskTable.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	tasks := []domain.Task{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, e := range resp.Entities {
			task, err := decodeTaskEntity(e)
			if err != nil {
				return nil, err
			}
			tasks = append(tasks, task)
		}
	}
	return tasks, nil
}

// FetchUser retrieves the user record, including notification preferences.
func (s *Storage) FetchUser(ctx context.Context, userID string) (domain.User, error) {
	ent, err := s.userTable.GetEntity(ctx, userID, userID, nil)
	if err != nil {
		return domain.User{}, err
	}
	return decodeUserEntity(ent.Value)
}

// CountDue returns the user's due-soon and overdue task counts, using the
// same predicates as the scan windows so the two paths always agree.
func (s *Storage) CountDue(ctx context.Context, userID string, now time.Time, dueSoonWindow time.Duration) (domain.DueSummary, error) {
	dueSoon, err := s.queryTasks(ctx, forUser(userID, dueBetweenFilter(now, now.Add(dueSoonWindow))))
	if err != nil {
		return domain.DueSummary{}, err
	}
	overdue, err := s.queryTasks(ctx, forUser(userID, overdueFilter(now)))
	if err != nil {
		return domain.DueSummary{}, err
	}
	return domain.DueSummary{DueSoon: len(dueSoon), Overdue: len(overdue)}, nil
}
