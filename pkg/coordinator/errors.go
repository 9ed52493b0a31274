package coordinator

import (
	"errors"
	"fmt"
)

// ErrStopped is returned by Refresh and Start after Stop.
var ErrStopped = errors.New("coordinator stopped")

// Stage names the sub-fetch that failed a cycle.
type Stage string

const (
	StageUsage   Stage = "usage"
	StageBalance Stage = "balance"
)

// FetchError fails a whole refresh cycle. Err is the underlying transport or
// protocol error.
type FetchError struct {
	Account string
	Stage   Stage
	Err     error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("refresh %s: %s fetch: %v", e.Account, e.Stage, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
