package ws

import "time"

// ConnInfo describes the current broker connection for logging.
type ConnInfo struct {
	ConnID      string
	UserID      string
	URL         string
	ConnectedAt time.Time
	Attempt     int
}
