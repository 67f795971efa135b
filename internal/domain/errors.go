package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across the pipeline.
var (
	// ErrAssetNotFound means the asset store has no blob for the card.
	// Distinct from a store failure so callers can tell absence from outage.
	ErrAssetNotFound = errors.New("asset not found")

	// ErrQueueFull is returned by a non-blocking enqueue when the delivery
	// queue is at capacity.
	ErrQueueFull = errors.New("delivery queue is at capacity")
)

// StoreError wraps a failure from the card or asset store.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// APIError is a non-2xx response from the chat platform API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("chat platform api: status %d: %s", e.Status, e.Message)
}
