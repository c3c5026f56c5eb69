package orch

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
)

func TestPlanSignalStampsSender(t *testing.T) {
	sender := domain.Identity{UserID: "u1", Email: "u1@example.com"}
	sig := domain.Signal{Type: domain.SignalAnswer, From: "spoofed", To: "u2", MeetingID: "m1", Payload: json.RawMessage(`{"sdp":"x"}`)}

	ds := planSignal(sender, sig)
	if len(ds) != 1 || ds[0].Target != ToUser || ds[0].UserID != "u2" {
		t.Fatalf("unexpected plan %+v", ds)
	}
	var env struct {
		Event string             `json:"event"`
		Data  core.SignalPayload `json:"data"`
	}
	if err := json.Unmarshal(ds[0].Frame, &env); err != nil {
		t.Fatalf("frame: %v", err)
	}
	if env.Event != core.EvWebRTCSignal || env.Data.From != "u1" || env.Data.MeetingID != "m1" {
		t.Fatalf("unexpected frame %s", ds[0].Frame)
	}
}

func TestPlanTargets(t *testing.T) {
	who := domain.Identity{UserID: "u1"}
	at := time.Unix(0, 0).UTC()

	joined := planJoined("s1", who, "m1", at)
	if joined[0].Target != ToSession || joined[0].SID != "s1" {
		t.Fatalf("confirmation goes to the joiner: %+v", joined[0])
	}
	if joined[1].Target != ToMeeting || joined[1].Except != "s1" {
		t.Fatalf("presence skips the joiner: %+v", joined[1])
	}

	if typing := planTyping("s1", who, "m1", true); typing[0].Except != "s1" {
		t.Fatalf("typing must exclude the sender")
	}
	if media := planMedia("s1", who, "m1", domain.MediaVideo, true); media[0].Except != "s1" {
		t.Fatalf("media must exclude the sender")
	}
	msg := domain.NewSystemMessage("m1", "hello")
	if chat := planChat(msg); chat[0].Except != "" || chat[0].MeetingID != "m1" {
		t.Fatalf("chat must include the sender")
	}

	if left := planLeft("", who, "m1", at); len(left) != 1 || left[0].Event != core.EvUserLeft {
		t.Fatalf("disconnect plan %+v", left)
	}
	if left := planLeft("s1", who, "m1", at); len(left) != 2 || left[0].Event != core.EvLeftMeeting {
		t.Fatalf("leave plan %+v", left)
	}
}

func TestPlanErrorHidesInternals(t *testing.T) {
	ds := planError("s1", domain.Wrap(domain.KindInternal, errSecret, "boom"))
	var env struct {
		Data core.ErrorPayload `json:"data"`
	}
	_ = json.Unmarshal(ds[0].Frame, &env)
	if env.Data.Message != "internal error" || env.Data.Code != "internal" || env.Data.Retryable {
		t.Fatalf("leaked error %+v", env.Data)
	}
}

func TestPlanErrorMarksRetryable(t *testing.T) {
	for _, tc := range []struct {
		err  error
		want bool
	}{
		{domain.Wrap(domain.KindUnavailable, errSecret, "store timeout"), true},
		{domain.Errorf(domain.KindMeetingFull, "meeting is full"), false},
		{domain.Errorf(domain.KindInvalidArgument, "bad"), false},
	} {
		var env struct {
			Data core.ErrorPayload `json:"data"`
		}
		_ = json.Unmarshal(planError("s1", tc.err)[0].Frame, &env)
		if env.Data.Retryable != tc.want {
			t.Fatalf("%v: retryable=%v", tc.err, env.Data.Retryable)
		}
	}
}

type secretErr struct{}

func (secretErr) Error() string { return "password=hunter2" }

var errSecret = secretErr{}
