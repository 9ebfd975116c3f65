package domain

// NotificationPreferences controls which notification kinds a user receives.
// Absent preferences decode to the zero value, i.e. everything disabled.
type NotificationPreferences struct {
	DueSoon bool `json:"dueSoon"`
	Overdue bool `json:"overdue"`
}

// User is the subset of the user record this service reads: identity plus
// notification preferences.
type User struct {
	ID            string                  `json:"id"`
	Name          string                  `json:"name,omitempty"`
	Email         string                  `json:"email,omitempty"`
	Notifications NotificationPreferences `json:"notifications"`
}
