package api

import (
	"context"
	"time"

	"notification-service/domain"
)

// SummaryStore provides per-user counts of due-soon and overdue tasks.
type SummaryStore interface {
	CountDue(ctx context.Context, userID string, now time.Time, dueSoonWindow time.Duration) (domain.DueSummary, error)
}

// Authenticator is implemented by types able to verify connect-time
// credentials and extract the user identity they were issued for.
type Authenticator interface {
	UserIDFromCredential(string) (string, error)
}
