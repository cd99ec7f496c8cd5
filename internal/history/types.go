package history

import "time"

type Status string

const (
	StatusDelivered Status = "delivered"
	StatusPending   Status = "pending"
	StatusFailed    Status = "failed"
)

// Entry is one transcript bubble as it was shown to the user.
type Entry struct {
	ID          string
	WorkspaceID string
	TS          time.Time
	Role        string
	Content     string
	Status      Status
}

// Hit is a workspace with the number of journal entries matching a search.
type Hit struct {
	WorkspaceID string
	Matches     int
	LastTS      time.Time
	Preview     string
}
