package app

import (
	"context"
	"sort"
	"sync"

	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/rs/zerolog/log"
)

type sessionEntry struct {
	Session core.MemberSession
	State   ConnState
	Cancel  context.CancelFunc
}

// Registry is the connection index: session id to session and state, plus a
// reverse index from user id to every live session of that user.
// Writes come from the orchestrator loop only; adapters read concurrently.
type Registry struct {
	mu       sync.RWMutex
	sessions map[core.SessionID]*sessionEntry
	users    map[domain.UserID]map[core.SessionID]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[core.SessionID]*sessionEntry),
		users:    make(map[domain.UserID]map[core.SessionID]struct{}),
	}
}

func (r *Registry) Bind(sess core.MemberSession, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sid := sess.ID()
	uid := sess.Meta().Identity.UserID
	r.sessions[sid] = &sessionEntry{Session: sess, Cancel: cancel}
	set, ok := r.users[uid]
	if !ok {
		set = make(map[core.SessionID]struct{})
		r.users[uid] = set
	}
	set[sid] = struct{}{}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("user", string(uid)).Msg("bound session")
}

// Unbind drops the session and returns its last state.
func (r *Registry) Unbind(sid core.SessionID) (ConnState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sid]
	if !ok {
		return ConnState{}, false
	}
	delete(r.sessions, sid)
	uid := e.Session.Meta().Identity.UserID
	if set, ok := r.users[uid]; ok {
		delete(set, sid)
		if len(set) == 0 {
			delete(r.users, uid)
		}
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("unbind session")
	return e.State, true
}

func (r *Registry) Session(sid core.SessionID) (core.MemberSession, ConnState, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.sessions[sid]; ok {
		return e.Session, e.State, true
	}
	return nil, ConnState{}, false
}

func (r *Registry) State(sid core.SessionID) (ConnState, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.sessions[sid]; ok {
		return e.State, true
	}
	return ConnState{}, false
}

func (r *Registry) SetState(sid core.SessionID, st ConnState) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sid]
	if !ok {
		return false
	}
	e.State = st
	log.Debug().Str("module", "app.registry").Str("sid", string(sid)).Str("phase", st.Phase.String()).
		Str("meeting", string(st.MeetingID)).Msg("state changed")
	return true
}

// SessionsOfUser is sorted by session id so fan-out order is stable.
func (r *Registry) SessionsOfUser(uid domain.UserID) []core.MemberSession {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.users[uid]
	out := make([]core.MemberSession, 0, len(set))
	for sid := range set {
		out = append(out, r.sessions[sid].Session)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

func (r *Registry) All() []core.MemberSession {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.MemberSession, 0, len(r.sessions))
	for _, e := range r.sessions {
		out = append(out, e.Session)
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Cancel stops the session's pumps. The adapter then reports the disconnect.
func (r *Registry) Cancel(sid core.SessionID) bool {
	r.mu.RLock()
	e, ok := r.sessions[sid]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if e.Cancel != nil {
		e.Cancel()
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("canceled session")
	return true
}
