package admission

import (
	"context"
	"errors"
	"time"
)

// ErrRejected is reported when a client has used up its request budget for
// the current window.
var ErrRejected = errors.New("admission: rate limit exceeded")

// Decision is the outcome of a single admission check.
type Decision struct {
	Allowed   bool
	Remaining int
	Limit     int
	ResetAt   time.Time
	// RetryAfter is zero for admitted requests.
	RetryAfter time.Duration
}

// Err returns ErrRejected for a rejected decision and nil otherwise.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return ErrRejected
}

// Controller decides whether a request from clientID may proceed.
// Implementations must make the read-check-increment for one client atomic.
type Controller interface {
	Check(ctx context.Context, clientID string) (Decision, error)
}
