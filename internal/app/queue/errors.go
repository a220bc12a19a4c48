// Package queue provides the request store, the request state machine and
// the reorder/shuffle engine that together own the play queue.
package queue

import "github.com/cockroachdb/errors"

// Errors
var (
	ErrNotFound        = errors.New("request not found")
	ErrInvalidState    = errors.New("invalid state transition")
	ErrInvalidArgument = errors.New("invalid argument")
)
