package core

import (
	"encoding/json"
	"time"

	"github.com/dkeye/Meet/internal/domain"
)

// Inbound event names.
const (
	EvJoinMeeting     = "join-meeting"
	EvLeaveMeeting    = "leave-meeting"
	EvSendMessage     = "send-message"
	EvTyping          = "typing"
	EvWebRTCSignal    = "webrtc-signal"
	EvMediaControl    = "media-control"
	EvGetParticipants = "get-participants"
	EvPing            = "ping"
	EvWhoAmI          = "whoami"
)

// Outbound event names.
const (
	EvUserJoined       = "user-joined"
	EvUserLeft         = "user-left"
	EvJoinedMeeting    = "joined-meeting"
	EvLeftMeeting      = "left-meeting"
	EvMeetingEnded     = "meeting-ended"
	EvChatMessage      = "chat-message"
	EvUserTyping       = "user-typing"
	EvUserMediaChanged = "user-media-changed"
	EvParticipantsList = "participants-list"
	EvPong             = "pong"
	EvError            = "error"
)

// Envelope is the shape of every frame in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type outEnvelope struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// Encode marshals an outbound event. Payloads are plain structs, so a
// failure here is a programming error.
func Encode(event string, data any) Frame {
	b, err := json.Marshal(outEnvelope{Event: event, Data: data})
	if err != nil {
		b, _ = json.Marshal(outEnvelope{Event: EvError, Data: ErrorPayload{Message: "internal error"}})
	}
	return b
}

type PresencePayload struct {
	UserID    domain.UserID `json:"userId"`
	UserName  string        `json:"userName"`
	Timestamp time.Time     `json:"timestamp"`
}

type MeetingEventPayload struct {
	MeetingID domain.MeetingID `json:"meetingId"`
	Timestamp time.Time        `json:"timestamp"`
}

type TypingPayload struct {
	UserID    domain.UserID    `json:"userId"`
	UserName  string           `json:"userName"`
	MeetingID domain.MeetingID `json:"meetingId"`
	IsTyping  bool             `json:"isTyping"`
}

type SignalPayload struct {
	Type      domain.SignalType `json:"type"`
	From      domain.UserID     `json:"from"`
	MeetingID domain.MeetingID  `json:"meetingId,omitempty"`
	Signal    json.RawMessage   `json:"signal"`
	MediaType domain.MediaType  `json:"mediaType,omitempty"`
}

type MediaChangedPayload struct {
	UserID  domain.UserID    `json:"userId"`
	Type    domain.MediaType `json:"type"`
	Enabled bool             `json:"enabled"`
}

type WhoAmIPayload struct {
	UserID    domain.UserID    `json:"userId"`
	Email     string           `json:"email"`
	MeetingID domain.MeetingID `json:"meetingId,omitempty"`
}

type ErrorPayload struct {
	Message   string `json:"message"`
	Code      string `json:"code,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}
