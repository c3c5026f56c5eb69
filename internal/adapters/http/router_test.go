package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dkeye/Meet/internal/app"
	"github.com/dkeye/Meet/internal/app/orch"
	"github.com/dkeye/Meet/internal/auth"
	"github.com/dkeye/Meet/internal/config"
	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/dkeye/Meet/internal/store/memory"
	"github.com/gin-gonic/gin"
)

var secret = []byte("http-test")

type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   *errorBody      `json:"error"`
}

type testAPI struct {
	t    *testing.T
	r    *gin.Engine
	o    *orch.Orchestrator
	chat *memory.ChatStore
}

func newAPI(t *testing.T) *testAPI {
	t.Helper()
	cfg := &config.Config{
		Mode:         "test",
		StoreTimeout: time.Second,
		ICEServers:   []config.ICEServer{{URLs: []string{"stun:stun.example.org:3478"}}},
	}
	chat := memory.NewChatStore()
	o := orch.New(orch.Options{
		Meetings: app.NewMeetingService(memory.NewMeetingStore()),
		Chat:     app.NewChatService(chat, 100),
	})
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = o.Run(ctx) }()

	mw, err := auth.NewMiddleware(auth.MiddlewareConfig{Realm: "meet", Secret: secret, TTL: time.Hour})
	if err != nil {
		t.Fatalf("middleware: %v", err)
	}
	return &testAPI{t: t, r: SetupRouter(ctx, cfg, o, mw), o: o, chat: chat}
}

func (a *testAPI) do(method, path, uid, body string) (int, apiResponse) {
	a.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if uid != "" {
		tok, err := auth.Issue(domain.Identity{UserID: domain.UserID(uid), Email: uid + "@example.com"}, secret, time.Hour, time.Now())
		if err != nil {
			a.t.Fatalf("issue: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	a.r.ServeHTTP(w, req)
	var resp apiResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return w.Code, resp
}

func (a *testAPI) create(uid string, capacity int) domain.MeetingView {
	a.t.Helper()
	code, resp := a.do(http.MethodPost, "/api/meetings", uid, `{"maxParticipants":`+itoa(capacity)+`}`)
	if code != http.StatusCreated {
		a.t.Fatalf("create: %d %+v", code, resp.Error)
	}
	var v domain.MeetingView
	_ = json.Unmarshal(resp.Data, &v)
	return v
}

func itoa(n int) string {
	b, _ := json.Marshal(n)
	return string(b)
}

func TestHealthIsPublic(t *testing.T) {
	a := newAPI(t)
	code, resp := a.do(http.MethodGet, "/health", "", "")
	if code != http.StatusOK || !resp.Success || resp.Message != "ok" {
		t.Fatalf("health: %d %+v", code, resp)
	}
	if code, _ := a.do(http.MethodGet, "/api/meetings", "", ""); code != http.StatusUnauthorized {
		t.Fatalf("meetings without token: %d", code)
	}
}

func TestMeetingLifecycle(t *testing.T) {
	a := newAPI(t)
	v := a.create("u1", 2)
	if v.MaxParticipants != 2 || !v.CanJoin || v.CreatedBy != "u1" {
		t.Fatalf("created %+v", v)
	}
	base := "/api/meetings/" + string(v.ID)

	for _, uid := range []string{"u1", "u2"} {
		if code, resp := a.do(http.MethodPost, base+"/join", uid, ""); code != http.StatusOK {
			t.Fatalf("join %s: %d %+v", uid, code, resp.Error)
		}
	}
	code, resp := a.do(http.MethodPost, base+"/join", "u3", "")
	if code != http.StatusConflict || resp.Error.Code != "meeting_full" {
		t.Fatalf("full: %d %+v", code, resp.Error)
	}
	if code, _ := a.do(http.MethodPost, base+"/leave", "u2", ""); code != http.StatusOK {
		t.Fatalf("leave: %d", code)
	}

	if code, resp := a.do(http.MethodPost, base+"/end", "u2", ""); code != http.StatusForbidden {
		t.Fatalf("end by non-creator: %d %+v", code, resp.Error)
	}
	code, resp = a.do(http.MethodPost, base+"/end", "u1", "")
	if code != http.StatusOK {
		t.Fatalf("end: %d %+v", code, resp.Error)
	}
	var ended domain.MeetingView
	_ = json.Unmarshal(resp.Data, &ended)
	if ended.CanJoin || ended.Status != domain.MeetingEnded {
		t.Fatalf("ended view %+v", ended)
	}
	if code, resp := a.do(http.MethodPost, base+"/join", "u2", ""); code != http.StatusGone {
		t.Fatalf("join ended: %d %+v", code, resp.Error)
	}

	code, resp = a.do(http.MethodGet, "/api/meetings", "u1", "")
	var mine []domain.MeetingView
	_ = json.Unmarshal(resp.Data, &mine)
	if code != http.StatusOK || len(mine) != 1 || mine[0].ID != v.ID {
		t.Fatalf("list: %d %+v", code, mine)
	}
}

func TestMeetingValidation(t *testing.T) {
	a := newAPI(t)
	code, resp := a.do(http.MethodPost, "/api/meetings", "u1", `{"maxParticipants":11}`)
	if code != http.StatusBadRequest || resp.Error.Code != "invalid_argument" {
		t.Fatalf("max=11: %d %+v", code, resp.Error)
	}
	if code, _ := a.do(http.MethodPost, "/api/meetings", "u1", ""); code != http.StatusCreated {
		t.Fatalf("default capacity: %d", code)
	}
	if code, _ := a.do(http.MethodGet, "/api/meetings/nope", "u1", ""); code != http.StatusNotFound {
		t.Fatalf("unknown meeting: %d", code)
	}
}

func TestChatHistoryAndDelete(t *testing.T) {
	a := newAPI(t)
	v := a.create("u1", 4)
	ctx := context.Background()
	for _, text := range []string{"one", "two", "three"} {
		msg, _ := domain.NewTextMessage(v.ID, domain.Identity{UserID: "u2"}, text)
		if err := a.o.Chat.Post(ctx, msg, nil); err != nil {
			t.Fatalf("post: %v", err)
		}
	}
	path := "/api/chat/" + string(v.ID)

	code, resp := a.do(http.MethodGet, path+"?limit=2", "u2", "")
	var h historyResponse
	_ = json.Unmarshal(resp.Data, &h)
	if code != http.StatusOK || len(h.Messages) != 2 || h.Total != 3 || h.Messages[0].Message != "one" {
		t.Fatalf("history: %d %+v", code, h)
	}
	if code, _ := a.do(http.MethodGet, path+"?limit=x", "u2", ""); code != http.StatusBadRequest {
		t.Fatalf("bad limit: %d", code)
	}

	if code, _ := a.do(http.MethodDelete, path, "u2", ""); code != http.StatusForbidden {
		t.Fatalf("delete by non-creator: %d", code)
	}
	if code, _ := a.do(http.MethodDelete, path, "u1", ""); code != http.StatusOK {
		t.Fatalf("delete: %d", code)
	}
	if n, _ := a.chat.CountByMeeting(ctx, v.ID); n != 0 {
		t.Fatalf("count after delete %d", n)
	}
}

func TestICEServers(t *testing.T) {
	a := newAPI(t)
	code, resp := a.do(http.MethodGet, "/api/rtc/ice-servers", "u1", "")
	if code != http.StatusOK {
		t.Fatalf("ice servers: %d", code)
	}
	var body struct {
		ICEServers []struct {
			URLs []string `json:"urls"`
		} `json:"iceServers"`
	}
	_ = json.Unmarshal(resp.Data, &body)
	if len(body.ICEServers) != 1 || body.ICEServers[0].URLs[0] != "stun:stun.example.org:3478" {
		t.Fatalf("ice servers %+v", body)
	}
}

type nopConn struct{}

func (nopConn) TrySend(core.Frame) error { return nil }
func (nopConn) Close()                   {}

func TestRoomMembers(t *testing.T) {
	a := newAPI(t)
	v := a.create("u1", 4)

	if code, resp := a.do(http.MethodGet, "/api/rooms/"+string(v.ID), "u1", ""); code != http.StatusNotFound || resp.Error.Code != "not_found" {
		t.Fatalf("no live group: %d %+v", code, resp.Error)
	}

	meta := domain.NewMember(domain.Identity{UserID: "u1", Email: "u1@example.com"})
	a.o.Rooms.GetOrCreate(v.ID).AddMember(core.NewMemberSession("s1", meta, nopConn{}))

	code, resp := a.do(http.MethodGet, "/api/rooms/"+string(v.ID), "u1", "")
	if code != http.StatusOK {
		t.Fatalf("room members: %d", code)
	}
	var body struct {
		MemberCount int              `json:"memberCount"`
		Members     []core.MemberDTO `json:"members"`
	}
	_ = json.Unmarshal(resp.Data, &body)
	if body.MemberCount != 1 || len(body.Members) != 1 || body.Members[0].SessionID != "s1" || body.Members[0].UserName != "u1@example.com" {
		t.Fatalf("room members %+v", body)
	}
}
