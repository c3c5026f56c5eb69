package core

import (
	"github.com/dkeye/Meet/internal/domain"
)

// PublishResult reports delivery stats/backpressure to orchestrator.
type PublishResult struct {
	SendTo  int
	Dropped []MemberSession
}

// MemberDTO is a read-only view for APIs (no transport fields).
type MemberDTO struct {
	SessionID SessionID     `json:"sessionId"`
	UserID    domain.UserID `json:"userId"`
	UserName  string        `json:"userName"`
}

// RoomService is the fan-out group of one meeting.
// It owns the subscription set but never touches transport resources.
type RoomService interface {
	MeetingID() domain.MeetingID
	MemberCount() int
	MembersSnapshot() []MemberDTO
	Has(sid SessionID) bool

	AddMember(ms MemberSession)
	RemoveMember(sid SessionID) bool
	// Broadcast sends to every member except `except` (empty: nobody is skipped).
	Broadcast(except SessionID, data Frame) PublishResult
}

type RoomInfo struct {
	MeetingID   domain.MeetingID `json:"meetingId"`
	MemberCount int              `json:"memberCount"`
}

type RoomManager interface {
	GetOrCreate(id domain.MeetingID) RoomService
	Get(id domain.MeetingID) (RoomService, bool)
	List() []RoomInfo
	// StopRoom drops the group if nobody is subscribed anymore.
	StopRoom(id domain.MeetingID) bool
}
