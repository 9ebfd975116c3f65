package consts

const (
	SSEEventPrefix = "event: "
	SSEDataPrefix  = "data: "
	SSEHeartbeat   = ": heartbeat\n\n"

	DefaultNotificationsChannel = "notifications"
)
