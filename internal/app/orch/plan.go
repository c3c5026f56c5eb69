package orch

import (
	"time"

	"github.com/dkeye/Meet/internal/app"
	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/rs/zerolog/log"
)

type Target int

const (
	ToSession Target = iota
	ToUser
	ToMeeting
)

// Delivery is one planned send. Planners are pure; deliver executes them.
type Delivery struct {
	Target    Target
	SID       core.SessionID
	UserID    domain.UserID
	MeetingID domain.MeetingID
	Except    core.SessionID
	Event     string
	Frame     core.Frame
}

func toSession(sid core.SessionID, event string, data any) Delivery {
	return Delivery{Target: ToSession, SID: sid, Event: event, Frame: core.Encode(event, data)}
}

func toUser(uid domain.UserID, event string, data any) Delivery {
	return Delivery{Target: ToUser, UserID: uid, Event: event, Frame: core.Encode(event, data)}
}

func toMeeting(mid domain.MeetingID, except core.SessionID, event string, data any) Delivery {
	return Delivery{Target: ToMeeting, MeetingID: mid, Except: except, Event: event, Frame: core.Encode(event, data)}
}

func planJoined(sid core.SessionID, who domain.Identity, mid domain.MeetingID, at time.Time) []Delivery {
	return []Delivery{
		toSession(sid, core.EvJoinedMeeting, core.MeetingEventPayload{MeetingID: mid, Timestamp: at}),
		toMeeting(mid, sid, core.EvUserJoined, core.PresencePayload{UserID: who.UserID, UserName: who.DisplayName(), Timestamp: at}),
	}
}

// planLeft notifies the remaining group; sid is already unsubscribed. A
// zero sid means there is nobody left to confirm to.
func planLeft(sid core.SessionID, who domain.Identity, mid domain.MeetingID, at time.Time) []Delivery {
	out := make([]Delivery, 0, 2)
	if sid != "" {
		out = append(out, toSession(sid, core.EvLeftMeeting, core.MeetingEventPayload{MeetingID: mid, Timestamp: at}))
	}
	return append(out,
		toMeeting(mid, "", core.EvUserLeft, core.PresencePayload{UserID: who.UserID, UserName: who.DisplayName(), Timestamp: at}))
}

// planChat includes the sender.
func planChat(msg *domain.ChatMessage) []Delivery {
	return []Delivery{toMeeting(msg.MeetingID, "", core.EvChatMessage, msg)}
}

func planTyping(sid core.SessionID, who domain.Identity, mid domain.MeetingID, typing bool) []Delivery {
	return []Delivery{toMeeting(mid, sid, core.EvUserTyping, core.TypingPayload{
		UserID: who.UserID, UserName: who.DisplayName(), MeetingID: mid, IsTyping: typing,
	})}
}

func planMedia(sid core.SessionID, who domain.Identity, mid domain.MeetingID, kind domain.MediaType, enabled bool) []Delivery {
	return []Delivery{toMeeting(mid, sid, core.EvUserMediaChanged, core.MediaChangedPayload{
		UserID: who.UserID, Type: kind, Enabled: enabled,
	})}
}

// planSignal goes to the recipient's user channel only. from is always the
// verified sender; whatever the client put there is ignored.
func planSignal(from domain.Identity, sig domain.Signal) []Delivery {
	return []Delivery{toUser(sig.To, core.EvWebRTCSignal, core.SignalPayload{
		Type: sig.Type, From: from.UserID, MeetingID: sig.MeetingID, Signal: sig.Payload, MediaType: sig.MediaType,
	})}
}

func planMeetingEnded(mid domain.MeetingID, at time.Time) []Delivery {
	return []Delivery{toMeeting(mid, "", core.EvMeetingEnded, core.MeetingEventPayload{MeetingID: mid, Timestamp: at})}
}

func planError(sid core.SessionID, err error) []Delivery {
	return []Delivery{toSession(sid, core.EvError, core.ErrorPayload{
		Message:   domain.PublicMessage(err),
		Code:      domain.KindOf(err).String(),
		Retryable: domain.Retryable(err),
	})}
}

// deliver is safe off the loop: it only reads the index.
func (o *Orchestrator) deliver(ds ...Delivery) {
	for _, d := range ds {
		switch d.Target {
		case ToSession:
			if sess, _, ok := o.Registry.Session(d.SID); ok {
				o.sendTo(sess, d.Frame)
			}
		case ToUser:
			targets := o.Registry.SessionsOfUser(d.UserID)
			if len(targets) == 0 {
				log.Debug().Str("module", "orch").Str("user", string(d.UserID)).Str("event", d.Event).Msg("recipient offline, dropped")
			}
			for _, s := range targets {
				o.sendTo(s, d.Frame)
			}
		case ToMeeting:
			room, ok := o.Rooms.Get(d.MeetingID)
			if !ok {
				continue
			}
			o.onBackpressure(room.Broadcast(d.Except, d.Frame))
		}
	}
}

func (o *Orchestrator) sendTo(s core.MemberSession, f core.Frame) {
	if err := s.Signal().TrySend(f); err != nil {
		o.onBackpressure(core.PublishResult{Dropped: []core.MemberSession{s}})
	}
}

func (o *Orchestrator) onBackpressure(res core.PublishResult) {
	for _, slow := range res.Dropped {
		switch o.Policy.OnBackPressure(slow) {
		case app.Disconnect:
			log.Warn().Str("module", "orch").Str("sid", string(slow.ID())).Msg("slow consumer disconnected")
			o.Registry.Cancel(slow.ID())
		case app.DropFrame:
			log.Debug().Str("module", "orch").Str("sid", string(slow.ID())).Msg("frame dropped")
		case app.NoAction:
		}
	}
}
