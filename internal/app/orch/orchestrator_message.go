package orch

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/dkeye/Meet/internal/app"
	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/rs/zerolog/log"
)

type meetingRequest struct {
	MeetingID domain.MeetingID `json:"meetingId"`
}

type sendMessageRequest struct {
	MeetingID domain.MeetingID `json:"meetingId"`
	Message   string           `json:"message"`
}

type typingRequest struct {
	MeetingID domain.MeetingID `json:"meetingId"`
	IsTyping  bool             `json:"isTyping"`
}

type mediaControlRequest struct {
	MeetingID domain.MeetingID `json:"meetingId"`
	Type      domain.MediaType `json:"type"`
	Enabled   bool             `json:"enabled"`
}

type pongPayload struct {
	Timestamp int64 `json:"timestamp"`
}

func decode(data json.RawMessage, v any) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return domain.Wrap(domain.KindInvalidArgument, err, "malformed payload")
	}
	return nil
}

func (o *Orchestrator) onInbound(e Inbound) {
	sess, st, ok := o.Registry.Session(e.SID)
	if !ok {
		return
	}
	who := sess.Meta().Identity

	var err error
	switch e.Env.Event {
	case core.EvJoinMeeting:
		var req meetingRequest
		if err = decode(e.Env.Data, &req); err == nil {
			o.Join(e.SID, req.MeetingID)
		}
	case core.EvLeaveMeeting:
		var req meetingRequest
		if err = decode(e.Env.Data, &req); err == nil {
			o.Leave(e.SID, req.MeetingID)
		}
	case core.EvSendMessage:
		var req sendMessageRequest
		if err = decode(e.Env.Data, &req); err == nil {
			err = o.sendMessage(e.SID, st, who, req)
		}
	case core.EvTyping:
		var req typingRequest
		if err = decode(e.Env.Data, &req); err == nil {
			if err = requireJoined(st, req.MeetingID); err == nil {
				o.deliver(planTyping(e.SID, who, req.MeetingID, req.IsTyping)...)
			}
		}
	case core.EvMediaControl:
		var req mediaControlRequest
		if err = decode(e.Env.Data, &req); err == nil {
			err = o.mediaControl(e.SID, st, who, req)
		}
	case core.EvWebRTCSignal:
		var sig domain.Signal
		if err = decode(e.Env.Data, &sig); err == nil {
			err = o.relaySignal(who, sig)
		}
	case core.EvGetParticipants:
		var req meetingRequest
		if err = decode(e.Env.Data, &req); err == nil {
			o.participants(e.SID, req.MeetingID)
		}
	case core.EvPing:
		o.deliver(toSession(e.SID, core.EvPong, pongPayload{Timestamp: o.now().UnixMilli()}))
	case core.EvWhoAmI:
		p := core.WhoAmIPayload{UserID: who.UserID, Email: who.Email}
		if st.In(st.MeetingID) {
			p.MeetingID = st.MeetingID
		}
		o.deliver(toSession(e.SID, core.EvWhoAmI, p))
	default:
		err = domain.Errorf(domain.KindInvalidArgument, "unknown event %q", e.Env.Event)
	}
	if err != nil {
		log.Debug().Str("module", "orch").Str("sid", string(e.SID)).Str("event", e.Env.Event).Err(err).Msg("request rejected")
		o.deliver(planError(e.SID, err)...)
	}
}

func requireJoined(st app.ConnState, mid domain.MeetingID) error {
	if mid == "" {
		return domain.Errorf(domain.KindInvalidArgument, "meetingId is required")
	}
	if !st.In(mid) {
		return domain.Errorf(domain.KindInvalidState, "not in meeting %s", mid)
	}
	return nil
}

// sendMessage persists first and broadcasts from inside the chat lock, so
// every member sees the meeting's messages in stored order.
func (o *Orchestrator) sendMessage(sid core.SessionID, st app.ConnState, who domain.Identity, req sendMessageRequest) error {
	text, ok := domain.NormalizeText(req.Message)
	if !ok {
		return nil
	}
	if err := requireJoined(st, req.MeetingID); err != nil {
		return err
	}
	msg, err := domain.NewTextMessage(req.MeetingID, who, text)
	if err != nil {
		return err
	}
	o.async(func(ctx context.Context) func() {
		err := o.Chat.Post(ctx, msg, func(m *domain.ChatMessage) { o.deliver(planChat(m)...) })
		if err != nil {
			return func() { o.deliver(planError(sid, err)...) }
		}
		return nil
	})
	return nil
}

func (o *Orchestrator) mediaControl(sid core.SessionID, st app.ConnState, who domain.Identity, req mediaControlRequest) error {
	if !req.Type.Valid() {
		return domain.Errorf(domain.KindInvalidArgument, "unknown media type %q", req.Type)
	}
	if err := requireJoined(st, req.MeetingID); err != nil {
		return err
	}
	o.deliver(planMedia(sid, who, req.MeetingID, req.Type, req.Enabled)...)
	return nil
}

// relaySignal forwards without looking at the payload and without checking
// that sender and recipient share a meeting.
func (o *Orchestrator) relaySignal(who domain.Identity, sig domain.Signal) error {
	sig.From = who.UserID
	if err := sig.Validate(); err != nil {
		return err
	}
	o.deliver(planSignal(who, sig)...)
	return nil
}

func (o *Orchestrator) participants(sid core.SessionID, mid domain.MeetingID) {
	if mid == "" {
		o.deliver(planError(sid, domain.Errorf(domain.KindInvalidArgument, "meetingId is required"))...)
		return
	}
	o.async(func(ctx context.Context) func() {
		view, err := o.Meetings.Get(ctx, mid)
		return func() {
			if err != nil {
				o.deliver(planError(sid, err)...)
				return
			}
			o.deliver(toSession(sid, core.EvParticipantsList, view))
		}
	})
}
