package database

import (
	"errors"
	"fmt"
)

// ErrNotPending is returned when a state transition targets a join request
// that is not in the pending state.
var ErrNotPending = errors.New("join request is not pending")

// JoinRequestNotFoundError names the offending id when a batch operation
// references a join request that does not exist or is not pending.
type JoinRequestNotFoundError struct {
	Id int
}

func (e *JoinRequestNotFoundError) Error() string {
	return fmt.Sprintf("join request %d not found", e.Id)
}
