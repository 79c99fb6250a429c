package bridge

import "errors"

var (
	// ErrSendFailed marks a datagram the network layer refused. The sample
	// is not recorded as sent, so the next differing sample retries.
	ErrSendFailed = errors.New("osc send failed")

	// ErrBindFailed marks a destination no session could be opened for.
	// The transmitter stays unbound until a new destination arrives.
	ErrBindFailed = errors.New("osc bind failed")
)
