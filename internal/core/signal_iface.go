package core

import "errors"

// Frame is a raw encoded event as written to the wire.
type Frame []byte

var (
	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
)

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
// TrySend never blocks: a full queue is ErrBackpressure.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}
