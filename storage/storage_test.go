package storage

import (
	"testing"
	"time"

	"notification-service/domain"
)

func TestDecodeTaskEntity(t *testing.T) {
	data := []byte(`{"PartitionKey":"user1","RowKey":"task1","Title":"write report","Description":"quarterly numbers","DueDate":"2024-01-01T12:00:00Z","Status":"pending"}`)
	task, err := decodeTaskEntity(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if task.ID != "task1" || task.OwnerID != "user1" || task.Title != "write report" {
		t.Fatalf("unexpected task: %+v", task)
	}
	if task.Status != domain.StatusPending {
		t.Fatalf("unexpected status: %s", task.Status)
	}
	want := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	if !task.DueDate.Equal(want) {
		t.Fatalf("unexpected due date: %v", task.DueDate)
	}
}

func TestDecodeUserEntity(t *testing.T) {
	data := []byte(`{"PartitionKey":"user1","RowKey":"user1","Name":"Ada","Email":"ada@example.com","NotifyDueSoon":true,"NotifyOverdue":false}`)
	user, err := decodeUserEntity(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if user.ID != "user1" || user.Name != "Ada" || user.Email != "ada@example.com" {
		t.Fatalf("unexpected user: %+v", user)
	}
	if !user.Notifications.DueSoon || user.Notifications.Overdue {
		t.Fatalf("unexpected preferences: %+v", user.Notifications)
	}
}

func TestDecodeUserEntityAbsentPreferencesDisabled(t *testing.T) {
	data := []byte(`{"PartitionKey":"user2","RowKey":"user2","Name":"Lin"}`)
	user, err := decodeUserEntity(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if user.Notifications.DueSoon || user.Notifications.Overdue {
		t.Fatalf("absent preferences must decode disabled: %+v", user.Notifications)
	}
}

func TestDueBetweenFilter(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)
	got := dueBetweenFilter(from, to)
	want := "DueDate ge datetime'2024-01-01T00:00:00Z' and DueDate lt datetime'2024-01-02T00:00:00Z' and Status ne 'completed'"
	if got != want {
		t.Fatalf("unexpected filter %q", got)
	}
}

func TestOverdueFilter(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	got := overdueFilter(now)
	want := "DueDate lt datetime'2024-01-01T00:00:00Z' and Status ne 'completed'"
	if got != want {
		t.Fatalf("unexpected filter %q", got)
	}
}

func TestForUserFilter(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	got := forUser("user1", overdueFilter(now))
	want := "PartitionKey eq 'user1' and DueDate lt datetime'2024-01-01T00:00:00Z' and Status ne 'completed'"
	if got != want {
		t.Fatalf("unexpected filter %q", got)
	}
}
