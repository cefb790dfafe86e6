package syncchan

import (
	"errors"
	"fmt"
)

// ErrConnectionLost reports that the channel dropped mid-operation. Callers
// must treat it as retryable: the channel reconnects on its own and a queued
// save is re-sent once the connection is back.
var ErrConnectionLost = errors.New("syncchan: connection lost")

// ErrTimeout reports that no acknowledgment arrived within the bounded
// window. It matches ErrConnectionLost under errors.Is, since the two are
// handled identically.
var ErrTimeout = fmt.Errorf("syncchan: ack timeout: %w", ErrConnectionLost)

// ErrClosed reports that the channel was shut down by its owner.
var ErrClosed = errors.New("syncchan: channel closed")

// RemoteError carries the human-readable message the backing store reported
// with status "error".
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("syncchan: remote error: %s", e.Message)
}
