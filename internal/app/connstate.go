package app

import (
	"github.com/dkeye/Meet/internal/domain"
)

// Phase is where a connection stands relative to meeting membership.
// Joining, Rejoining and Leaving cover the time a store call is in flight.
type Phase int

const (
	Unjoined Phase = iota
	Joining
	Joined
	Leaving
	// Rejoining is a repeated join from a subscribed connection. The
	// connection stays in the group while the store re-admits the user.
	Rejoining
)

func (p Phase) String() string {
	switch p {
	case Unjoined:
		return "unjoined"
	case Joining:
		return "joining"
	case Joined:
		return "joined"
	case Leaving:
		return "leaving"
	case Rejoining:
		return "rejoining"
	}
	return "unknown"
}

// ConnState is a value; transitions return a new one and never touch
// shared state, so they can be checked without a network.
type ConnState struct {
	Phase     Phase
	MeetingID domain.MeetingID
}

// In reports whether the connection is subscribed to mid's group.
func (s ConnState) In(mid domain.MeetingID) bool {
	return (s.Phase == Joined || s.Phase == Rejoining) && s.MeetingID == mid
}

// JoinOutcome says what a join request should do next.
type JoinOutcome int

const (
	JoinStart   JoinOutcome = iota // go ask the store
	JoinAlready                    // already subscribed, re-admit in the store
)

func (s ConnState) RequestJoin(mid domain.MeetingID) (ConnState, JoinOutcome, error) {
	if mid == "" {
		return s, 0, domain.Errorf(domain.KindInvalidArgument, "meetingId is required")
	}
	switch s.Phase {
	case Unjoined:
		return ConnState{Phase: Joining, MeetingID: mid}, JoinStart, nil
	case Joined:
		if s.MeetingID == mid {
			return ConnState{Phase: Rejoining, MeetingID: mid}, JoinAlready, nil
		}
		return s, 0, domain.Errorf(domain.KindInvalidState, "already in meeting %s, leave it first", s.MeetingID)
	default:
		return s, 0, domain.Errorf(domain.KindInvalidState, "a %s is already in progress", s.Phase)
	}
}

// JoinDone settles a Joining state with the store's answer.
func (s ConnState) JoinDone(err error) ConnState {
	if s.Phase != Joining {
		return s
	}
	if err != nil {
		return ConnState{Phase: Unjoined}
	}
	return ConnState{Phase: Joined, MeetingID: s.MeetingID}
}

// RejoinDone settles a Rejoining state. A meeting that filled up while the
// user was inactive drops the connection out of the group; any other
// failure keeps the subscription.
func (s ConnState) RejoinDone(err error) ConnState {
	if s.Phase != Rejoining {
		return s
	}
	if err != nil && domain.KindOf(err) == domain.KindMeetingFull {
		return ConnState{Phase: Unjoined}
	}
	return ConnState{Phase: Joined, MeetingID: s.MeetingID}
}

// RequestLeave returns ok=false when there is nothing to leave. A non-empty
// mid must match the bound meeting.
func (s ConnState) RequestLeave(mid domain.MeetingID) (ConnState, bool, error) {
	switch s.Phase {
	case Joined:
		if mid != "" && mid != s.MeetingID {
			return s, false, domain.Errorf(domain.KindInvalidState, "not in meeting %s", mid)
		}
		return ConnState{Phase: Leaving, MeetingID: s.MeetingID}, true, nil
	case Unjoined:
		return s, false, nil
	default:
		return s, false, domain.Errorf(domain.KindInvalidState, "a %s is already in progress", s.Phase)
	}
}

// LeaveDone settles a Leaving state. A failed leave keeps the membership.
func (s ConnState) LeaveDone(err error) ConnState {
	if s.Phase != Leaving {
		return s
	}
	if err != nil {
		return ConnState{Phase: Joined, MeetingID: s.MeetingID}
	}
	return ConnState{Phase: Unjoined}
}
