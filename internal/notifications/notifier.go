package notifications

import "context"

// DBAccessRequest asks the operations webhook to open database access for
// Timeout minutes.
type DBAccessRequest struct {
	Timeout     int
	RequestedBy string
}

type Notifier interface {
	RequestDBAccess(ctx context.Context, in DBAccessRequest) error
}
