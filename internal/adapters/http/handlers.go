package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/dkeye/Meet/internal/app/orch"
	"github.com/dkeye/Meet/internal/auth"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

type handlers struct {
	orch       *orch.Orchestrator
	timeout    time.Duration
	iceServers []webrtc.ICEServer
}

func (h *handlers) ctx(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), h.timeout)
}

func caller(c *gin.Context) (domain.Identity, bool) {
	id, ok := auth.IdentityFrom(c)
	if !ok {
		fail(c, domain.Errorf(domain.KindUnauthenticated, "authentication required"))
	}
	return id, ok
}

type createMeetingRequest struct {
	MaxParticipants int `json:"maxParticipants"`
}

func (h *handlers) createMeeting(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	var req createMeetingRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, domain.Wrap(domain.KindInvalidArgument, err, "invalid request body"))
			return
		}
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	view, err := h.orch.Meetings.Create(ctx, id.UserID, req.MaxParticipants)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusCreated, view)
}

func (h *handlers) listMeetings(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	views, err := h.orch.Meetings.ListByCreator(ctx, id.UserID)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, views)
}

func (h *handlers) getMeeting(c *gin.Context) {
	ctx, cancel := h.ctx(c)
	defer cancel()
	view, err := h.orch.Meetings.Get(ctx, domain.MeetingID(c.Param("id")))
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, view)
}

func (h *handlers) joinMeeting(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	view, _, err := h.orch.Meetings.Join(ctx, domain.MeetingID(c.Param("id")), id.UserID)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, view)
}

func (h *handlers) leaveMeeting(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	view, err := h.orch.Meetings.Leave(ctx, domain.MeetingID(c.Param("id")), id.UserID)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, view)
}

func (h *handlers) endMeeting(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	mid := domain.MeetingID(c.Param("id"))
	view, err := h.orch.Meetings.End(ctx, mid, id.UserID)
	if err != nil {
		fail(c, err)
		return
	}
	if err := h.orch.NotifyMeetingEnded(ctx, mid); err != nil {
		log.Warn().Str("module", "adapters.http").Str("meeting", string(mid)).Err(err).Msg("meeting-ended not broadcast")
	}
	respond(c, http.StatusOK, view)
}

type historyResponse struct {
	Messages []domain.ChatMessage `json:"messages"`
	Total    int                  `json:"total"`
}

func (h *handlers) chatHistory(c *gin.Context) {
	limit := 0
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			fail(c, domain.Errorf(domain.KindInvalidArgument, "limit must be a number"))
			return
		}
		limit = n
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	mid := domain.MeetingID(c.Param("meetingId"))
	if _, err := h.orch.Meetings.Get(ctx, mid); err != nil {
		fail(c, err)
		return
	}
	msgs, err := h.orch.Chat.History(ctx, mid, limit)
	if err != nil {
		fail(c, err)
		return
	}
	total, err := h.orch.Chat.Count(ctx, mid)
	if err != nil {
		fail(c, err)
		return
	}
	if msgs == nil {
		msgs = []domain.ChatMessage{}
	}
	respond(c, http.StatusOK, historyResponse{Messages: msgs, Total: total})
}

func (h *handlers) deleteChat(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	mid := domain.MeetingID(c.Param("meetingId"))
	if err := h.orch.Meetings.IsCreator(ctx, mid, id.UserID); err != nil {
		fail(c, err)
		return
	}
	if err := h.orch.Chat.Delete(ctx, mid); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, envelope{Success: true, Message: "chat history deleted"})
}

func (h *handlers) listRooms(c *gin.Context) {
	respond(c, http.StatusOK, h.orch.Rooms.List())
}

// roomMembers lists the sockets subscribed to one meeting's live group.
func (h *handlers) roomMembers(c *gin.Context) {
	mid := domain.MeetingID(c.Param("meetingId"))
	room, ok := h.orch.Rooms.Get(mid)
	if !ok {
		fail(c, domain.Errorf(domain.KindNotFound, "no live group for meeting %s", mid))
		return
	}
	respond(c, http.StatusOK, gin.H{
		"meetingId":   mid,
		"memberCount": room.MemberCount(),
		"members":     room.MembersSnapshot(),
	})
}

func (h *handlers) listICEServers(c *gin.Context) {
	respond(c, http.StatusOK, gin.H{"iceServers": h.iceServers})
}
