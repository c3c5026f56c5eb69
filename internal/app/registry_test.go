package app

import (
	"testing"

	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
)

type nopConn struct{ closed bool }

func (c *nopConn) TrySend(core.Frame) error { return nil }
func (c *nopConn) Close()                   { c.closed = true }

func session(sid, uid string) core.MemberSession {
	meta := domain.NewMember(domain.Identity{UserID: domain.UserID(uid)})
	return core.NewMemberSession(core.SessionID(sid), meta, &nopConn{})
}

func TestRegistryUserIndex(t *testing.T) {
	r := NewRegistry()
	r.Bind(session("s2", "u1"), nil)
	r.Bind(session("s1", "u1"), nil)
	r.Bind(session("s3", "u2"), nil)

	got := r.SessionsOfUser("u1")
	if len(got) != 2 || got[0].ID() != "s1" || got[1].ID() != "s2" {
		t.Fatalf("unexpected sessions %v", got)
	}
	if !r.SetState("s1", ConnState{Phase: Joined, MeetingID: "m1"}) {
		t.Fatalf("set state failed")
	}
	st, ok := r.Unbind("s1")
	if !ok || !st.In("m1") {
		t.Fatalf("unbind returned %+v %v", st, ok)
	}
	if len(r.SessionsOfUser("u1")) != 1 || r.Len() != 2 {
		t.Fatalf("index not updated")
	}
	r.Unbind("s2")
	if len(r.SessionsOfUser("u1")) != 0 {
		t.Fatalf("user entry left behind")
	}
	if _, ok := r.Unbind("s2"); ok {
		t.Fatalf("double unbind reported success")
	}
}

func TestRegistryCancel(t *testing.T) {
	r := NewRegistry()
	canceled := false
	r.Bind(session("s1", "u1"), func() { canceled = true })
	if !r.Cancel("s1") || !canceled {
		t.Fatalf("cancel not invoked")
	}
	if r.Cancel("missing") {
		t.Fatalf("cancel of unknown session")
	}
}

func TestStopRoomOnlyWhenEmpty(t *testing.T) {
	rm := NewRoomManager()
	room := rm.GetOrCreate("m1")
	room.AddMember(session("s1", "u1"))
	if rm.StopRoom("m1") {
		t.Fatalf("stopped a room with members")
	}
	room.RemoveMember("s1")
	if !rm.StopRoom("m1") {
		t.Fatalf("empty room not stopped")
	}
	if _, ok := rm.Get("m1"); ok {
		t.Fatalf("room still listed")
	}
}

func TestPolicyByName(t *testing.T) {
	p, err := PolicyByName("drop")
	if err != nil || p.OnBackPressure(nil) != DropFrame {
		t.Fatalf("drop policy: %v", err)
	}
	p, _ = PolicyByName("")
	if p.OnBackPressure(nil) != Disconnect {
		t.Fatalf("default policy should disconnect")
	}
	if _, err := PolicyByName("ignore"); err == nil {
		t.Fatalf("unknown policy accepted")
	}
}
