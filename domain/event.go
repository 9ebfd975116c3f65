package domain

// Outbound event names, matching what the web client listens for.
const (
	DueSoonNotification = "dueSoonNotification"
	OverdueNotification = "overdueNotification"
)

// Notification is a single push event for one user. Notifications are
// ephemeral: constructed, delivered to whatever connections are live, and
// discarded. There is no acknowledgment and no redelivery.
type Notification struct {
	Kind string `json:"kind"`
	Task Task   `json:"task"`
}

// Envelope is the wire form a notification takes on the fan-out channel
// between service instances.
type Envelope struct {
	UserID string `json:"userId"`
	Kind   string `json:"kind"`
	Task   Task   `json:"task"`
}
