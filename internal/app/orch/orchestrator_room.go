package orch

import (
	"context"

	"github.com/dkeye/Meet/internal/app"
	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/rs/zerolog/log"
)

func (o *Orchestrator) onConnected(e Connected) {
	o.Registry.Bind(e.Session, e.Cancel)
}

func (o *Orchestrator) Join(sid core.SessionID, mid domain.MeetingID) {
	sess, st, ok := o.Registry.Session(sid)
	if !ok {
		return
	}
	next, outcome, err := st.RequestJoin(mid)
	if err != nil {
		o.deliver(planError(sid, err)...)
		return
	}
	o.Registry.SetState(sid, next)

	who := sess.Meta().Identity
	o.async(func(ctx context.Context) func() {
		_, changed, err := o.Meetings.Join(ctx, mid, who.UserID)
		if outcome == app.JoinAlready {
			return func() { o.rejoinDone(sess, mid, changed, err) }
		}
		return func() { o.joinDone(sess, mid, changed, err) }
	})
}

func (o *Orchestrator) joinDone(sess core.MemberSession, mid domain.MeetingID, changed bool, err error) {
	sid := sess.ID()
	who := sess.Meta().Identity
	st, ok := o.Registry.State(sid)
	if !ok {
		o.compensate(sid, who, mid, changed, err)
		return
	}
	o.Registry.SetState(sid, st.JoinDone(err))
	if err != nil {
		o.deliver(planError(sid, err)...)
		return
	}

	o.Rooms.GetOrCreate(mid).AddMember(sess)
	log.Info().Str("module", "orch").Str("sid", string(sid)).Str("meeting", string(mid)).
		Str("user", string(who.UserID)).Msg("joined meeting")
	o.deliver(planJoined(sid, who, mid, o.now().UTC())...)
	o.systemMessage(mid, who.DisplayName()+" joined the meeting")
}

// rejoinDone settles a join from a connection that was already subscribed.
// The store may have marked the user inactive behind its back (a leave from
// an older socket of the same user); a changed document means the user is
// back and the group hears about it again.
func (o *Orchestrator) rejoinDone(sess core.MemberSession, mid domain.MeetingID, changed bool, err error) {
	sid := sess.ID()
	who := sess.Meta().Identity
	st, ok := o.Registry.State(sid)
	if !ok {
		o.compensate(sid, who, mid, changed, err)
		return
	}
	next := st.RejoinDone(err)
	o.Registry.SetState(sid, next)
	if err != nil {
		if !next.In(mid) {
			o.unsubscribe(sid, mid)
			log.Info().Str("module", "orch").Str("sid", string(sid)).Str("meeting", string(mid)).
				Msg("rejoin refused, dropped from group")
		}
		o.deliver(planError(sid, err)...)
		return
	}

	room := o.Rooms.GetOrCreate(mid)
	if !room.Has(sid) {
		room.AddMember(sess)
	}
	if !changed {
		o.deliver(toSession(sid, core.EvJoinedMeeting, core.MeetingEventPayload{MeetingID: mid, Timestamp: o.now().UTC()}))
		return
	}
	log.Info().Str("module", "orch").Str("sid", string(sid)).Str("meeting", string(mid)).
		Str("user", string(who.UserID)).Msg("re-admitted to meeting")
	o.deliver(planJoined(sid, who, mid, o.now().UTC())...)
	o.systemMessage(mid, who.DisplayName()+" joined the meeting")
}

// compensate undoes an admission that landed after its connection was gone.
// Only a join that actually activated the user is undone; a no-op join means
// another socket of the same user holds the seat.
func (o *Orchestrator) compensate(sid core.SessionID, who domain.Identity, mid domain.MeetingID, changed bool, err error) {
	if err != nil || !changed {
		return
	}
	log.Info().Str("module", "orch").Str("sid", string(sid)).Str("meeting", string(mid)).Msg("compensating leave")
	o.async(func(ctx context.Context) func() {
		if _, err := o.Meetings.Leave(ctx, mid, who.UserID); err != nil {
			log.Error().Str("module", "orch").Str("meeting", string(mid)).Str("user", string(who.UserID)).
				Err(err).Msg("compensating leave failed")
		}
		return nil
	})
}

func (o *Orchestrator) Leave(sid core.SessionID, mid domain.MeetingID) {
	sess, st, ok := o.Registry.Session(sid)
	if !ok {
		return
	}
	next, ok, err := st.RequestLeave(mid)
	if err != nil {
		o.deliver(planError(sid, err)...)
		return
	}
	if !ok {
		return
	}
	o.Registry.SetState(sid, next)

	bound := next.MeetingID
	who := sess.Meta().Identity
	o.async(func(ctx context.Context) func() {
		_, err := o.Meetings.Leave(ctx, bound, who.UserID)
		return func() { o.leaveDone(sess, bound, err) }
	})
}

func (o *Orchestrator) leaveDone(sess core.MemberSession, mid domain.MeetingID, err error) {
	sid := sess.ID()
	who := sess.Meta().Identity
	st, ok := o.Registry.State(sid)
	if !ok {
		// Disconnected mid-leave; the group entry is already gone.
		if err != nil {
			o.persistDisconnect(who, mid)
			return
		}
		o.announceLeft("", who, mid, " left the meeting")
		return
	}
	o.Registry.SetState(sid, st.LeaveDone(err))
	if err != nil {
		o.deliver(planError(sid, err)...)
		return
	}
	o.unsubscribe(sid, mid)
	log.Info().Str("module", "orch").Str("sid", string(sid)).Str("meeting", string(mid)).
		Str("user", string(who.UserID)).Msg("left meeting")
	o.announceLeft(sid, who, mid, " left the meeting")
}

// onDisconnected drives the same cleanup as an explicit leave. The session
// is unbound at once; only the persisted leave waits for the store.
func (o *Orchestrator) onDisconnected(sid core.SessionID) {
	sess, _, ok := o.Registry.Session(sid)
	if !ok {
		return
	}
	st, _ := o.Registry.Unbind(sid)
	who := sess.Meta().Identity
	log.Info().Str("module", "orch").Str("sid", string(sid)).Str("phase", st.Phase.String()).
		Str("meeting", string(st.MeetingID)).Msg("disconnected")

	switch st.Phase {
	case app.Joined, app.Rejoining:
		o.unsubscribe(sid, st.MeetingID)
		o.persistDisconnect(who, st.MeetingID)
	case app.Leaving:
		o.unsubscribe(sid, st.MeetingID)
	case app.Joining, app.Unjoined:
		// joinDone compensates for Joining.
	}
}

func (o *Orchestrator) persistDisconnect(who domain.Identity, mid domain.MeetingID) {
	o.async(func(ctx context.Context) func() {
		if _, err := o.Meetings.Leave(ctx, mid, who.UserID); err != nil {
			log.Error().Str("module", "orch").Str("meeting", string(mid)).Str("user", string(who.UserID)).
				Err(err).Msg("disconnect leave failed")
			return nil
		}
		return func() { o.announceLeft("", who, mid, " disconnected") }
	})
}

func (o *Orchestrator) announceLeft(sid core.SessionID, who domain.Identity, mid domain.MeetingID, suffix string) {
	o.deliver(planLeft(sid, who, mid, o.now().UTC())...)
	o.systemMessage(mid, who.DisplayName()+suffix)
}

func (o *Orchestrator) unsubscribe(sid core.SessionID, mid domain.MeetingID) {
	room, ok := o.Rooms.Get(mid)
	if !ok {
		return
	}
	room.RemoveMember(sid)
	if o.Rooms.StopRoom(mid) {
		log.Debug().Str("module", "orch").Str("meeting", string(mid)).Msg("meeting group closed")
	}
}

// systemMessage is best effort: it is persisted and then published to the
// group, and failures are only logged.
func (o *Orchestrator) systemMessage(mid domain.MeetingID, text string) {
	o.async(func(ctx context.Context) func() {
		err := o.Chat.System(ctx, mid, text, func(m *domain.ChatMessage) { o.deliver(planChat(m)...) })
		if err != nil {
			log.Warn().Str("module", "orch").Str("meeting", string(mid)).Err(err).Msg("system message not stored")
		}
		return nil
	})
}

func (o *Orchestrator) onMeetingEnded(mid domain.MeetingID) {
	log.Info().Str("module", "orch").Str("meeting", string(mid)).Msg("meeting ended, notifying group")
	o.deliver(planMeetingEnded(mid, o.now().UTC())...)
}
