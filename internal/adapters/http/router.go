package http

import (
	"context"

	ginjwt "github.com/appleboy/gin-jwt/v2"
	"github.com/dkeye/Meet/internal/adapters/signal"
	"github.com/dkeye/Meet/internal/app/orch"
	"github.com/dkeye/Meet/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

// ICEServers converts configured STUN/TURN entries to what browsers expect
// in RTCPeerConnection's iceServers.
func ICEServers(in []config.ICEServer) []webrtc.ICEServer {
	out := make([]webrtc.ICEServer, 0, len(in))
	for _, s := range in {
		out = append(out, webrtc.ICEServer{
			URLs:       append([]string(nil), s.URLs...),
			Username:   s.Username,
			Credential: s.Credential,
		})
	}
	return out
}

func SetupRouter(ctx context.Context, cfg *config.Config, o *orch.Orchestrator, authMW *ginjwt.GinJWTMiddleware) *gin.Engine {
	switch cfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery(), cors(cfg.CORSOrigin))

	h := &handlers{orch: o, timeout: cfg.StoreTimeout, iceServers: ICEServers(cfg.ICEServers)}
	ws := signal.NewSignalWSController(o, signal.Options{
		ReadLimit:       cfg.ReadLimit,
		PingPeriod:      cfg.PingPeriod,
		SendBuffer:      cfg.SendBuffer,
		EventsPerSecond: cfg.Rate.EventsPerSecond,
		Burst:           cfg.Rate.Burst,
		AllowedOrigin:   cfg.CORSOrigin,
	})

	r.GET("/health", health)

	api := r.Group("/api")
	api.GET("/ws", func(c *gin.Context) { ws.HandleSignal(ctx, c) })
	api.POST("/auth/login", authMW.LoginHandler)
	api.GET("/auth/refresh", authMW.RefreshHandler)

	secured := api.Group("", authMW.MiddlewareFunc())
	secured.POST("/meetings", h.createMeeting)
	secured.GET("/meetings", h.listMeetings)
	secured.GET("/meetings/:id", h.getMeeting)
	secured.POST("/meetings/:id/join", h.joinMeeting)
	secured.POST("/meetings/:id/leave", h.leaveMeeting)
	secured.POST("/meetings/:id/end", h.endMeeting)
	secured.GET("/chat/:meetingId", h.chatHistory)
	secured.DELETE("/chat/:meetingId", h.deleteChat)
	secured.GET("/rooms", h.listRooms)
	secured.GET("/rooms/:meetingId", h.roomMembers)
	secured.GET("/rtc/ice-servers", h.listICEServers)

	log.Info().Str("module", "adapters.http").Str("mode", cfg.Mode).Msg("router setup")
	return r
}
