package app

import (
	"errors"
	"testing"

	"github.com/dkeye/Meet/internal/domain"
)

func TestJoinLeaveCycle(t *testing.T) {
	s := ConnState{}
	s, out, err := s.RequestJoin("m1")
	if err != nil || out != JoinStart || s.Phase != Joining {
		t.Fatalf("state=%+v out=%v err=%v", s, out, err)
	}
	if _, _, err := s.RequestJoin("m1"); domain.KindOf(err) != domain.KindInvalidState {
		t.Fatalf("join during join: err=%v", err)
	}
	s = s.JoinDone(nil)
	if !s.In("m1") {
		t.Fatalf("state=%+v", s)
	}

	re, out, err := s.RequestJoin("m1")
	if err != nil || out != JoinAlready || re.Phase != Rejoining || !re.In("m1") {
		t.Fatalf("same meeting join: state=%+v out=%v err=%v", re, out, err)
	}
	if _, _, err := re.RequestLeave(""); domain.KindOf(err) != domain.KindInvalidState {
		t.Fatalf("leave during rejoin: err=%v", err)
	}
	if got := re.RejoinDone(nil); got.Phase != Joined || got.MeetingID != "m1" {
		t.Fatalf("rejoin done: %+v", got)
	}
	if _, _, err := s.RequestJoin("m2"); domain.KindOf(err) != domain.KindInvalidState {
		t.Fatalf("other meeting join: err=%v", err)
	}

	s, ok, err := s.RequestLeave("")
	if err != nil || !ok || s.Phase != Leaving {
		t.Fatalf("leave: state=%+v ok=%v err=%v", s, ok, err)
	}
	s = s.LeaveDone(nil)
	if s.Phase != Unjoined || s.MeetingID != "" {
		t.Fatalf("state=%+v", s)
	}
	if _, ok, err := s.RequestLeave(""); ok || err != nil {
		t.Fatalf("leave while unjoined: ok=%v err=%v", ok, err)
	}
}

func TestFailedTransitionsRestorePreviousState(t *testing.T) {
	s, _, _ := ConnState{}.RequestJoin("m1")
	if got := s.JoinDone(errors.New("timeout")); got.Phase != Unjoined {
		t.Fatalf("failed join: %+v", got)
	}

	s = ConnState{Phase: Joined, MeetingID: "m1"}
	s, _, _ = s.RequestLeave("m1")
	if got := s.LeaveDone(errors.New("timeout")); !got.In("m1") {
		t.Fatalf("failed leave: %+v", got)
	}
	if _, _, err := (ConnState{Phase: Joined, MeetingID: "m1"}).RequestLeave("m2"); domain.KindOf(err) != domain.KindInvalidState {
		t.Fatalf("leave of another meeting: err=%v", err)
	}
}

func TestRejoinOutcomes(t *testing.T) {
	re := ConnState{Phase: Rejoining, MeetingID: "m1"}
	if got := re.RejoinDone(domain.Errorf(domain.KindMeetingFull, "full")); got.Phase != Unjoined || got.In("m1") {
		t.Fatalf("full rejoin should leave the group: %+v", got)
	}
	if got := re.RejoinDone(errors.New("timeout")); !got.In("m1") || got.Phase != Joined {
		t.Fatalf("failed rejoin should keep the subscription: %+v", got)
	}
	if got := (ConnState{Phase: Joined, MeetingID: "m1"}).RejoinDone(nil); got.Phase != Joined {
		t.Fatalf("rejoin done outside rejoining changed state: %+v", got)
	}
}
