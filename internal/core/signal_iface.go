package core

import "errors"

// Frame is a raw encoded message.
type Frame []byte

type ConnID string

// Close codes sent to clients when the server ends a connection.
const (
	CloseGoingAway           = 1001
	CloseDuplicateConnection = 4001
	CloseRoomEvicted         = 4002
)

var (
	ErrConnectionClosed = errors.New("connection closed")
	ErrBackpressure     = errors.New("backpressure")
)

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	ID() ConnID
	// TrySend queues f without blocking. It returns ErrConnectionClosed
	// once the connection is closed and ErrBackpressure when the queue is full.
	TrySend(f Frame) error
	IsOpen() bool
	// Close tells the peer why it is being dropped. Safe to call repeatedly.
	Close(code int, reason string)
}
