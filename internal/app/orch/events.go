package orch

import (
	"context"

	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
)

// Event is one item on the loop's queue.
type Event interface{ isEvent() }

// Connected binds an authenticated session. Cancel stops its pumps.
type Connected struct {
	Session core.MemberSession
	Cancel  context.CancelFunc
}

// Inbound is one decoded envelope read from a session.
type Inbound struct {
	SID core.SessionID
	Env core.Envelope
}

// Disconnected is reported exactly once per session by its adapter.
type Disconnected struct {
	SID core.SessionID
}

// MeetingEnded is raised by the REST surface after a successful end.
type MeetingEnded struct {
	MeetingID domain.MeetingID
}

// continuation carries the result of background I/O back into the loop.
type continuation func()

func (Connected) isEvent()    {}
func (Inbound) isEvent()      {}
func (Disconnected) isEvent() {}
func (MeetingEnded) isEvent() {}
func (continuation) isEvent() {}
