package http

import (
	"context"

	"github.com/dkeye/Soundroom/internal/adapters/rtc"
	"github.com/dkeye/Soundroom/internal/adapters/signal"
	"github.com/dkeye/Soundroom/internal/app/orch"
	"github.com/dkeye/Soundroom/internal/config"
	"github.com/dkeye/Soundroom/internal/core"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const sessionName = "SoundroomSessions"

func genClientToken() string {
	return uuid.NewString()
}

// ClientTokenMiddleware labels every browser with a long-lived cookie so
// its connections can be told apart in the logs.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = genClientToken()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, o *orch.Orchestrator, store core.RoomStore) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	secret := cfg.Secret
	if secret == "" {
		secret = uuid.NewString()
		log.Warn().Str("module", "adapters.http").Msg("no session secret configured, using a random one")
	}
	r.Use(sessions.Sessions(sessionName, cookie.NewStore([]byte(secret))))
	r.Use(ClientTokenMiddleware())

	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})
	r.GET("/health", health)

	h := &handlers{
		orch:  o,
		store: store,
		rtc:   rtc.Configuration(rtc.ICEServers(cfg.ICEServers)),
	}
	ctrl := signal.NewSignalWSController(o, cfg.ReadLimit, cfg.PingPeriod)

	api := r.Group("/api")
	api.GET("/ws/signal", func(c *gin.Context) {
		ctrl.HandleSignal(ctx, c)
	})
	api.GET("/rtc/config", h.rtcConfig)
	api.GET("/stats", h.stats)
	api.GET("/codes/:code", h.roomByCode)

	rooms := api.Group("/rooms")
	rooms.POST("", h.createRoom)
	rooms.GET("", h.listRooms)
	rooms.GET("/:id", h.getRoom)
	rooms.GET("/:id/participants", h.listParticipants)
	rooms.POST("/:id/participants", h.createParticipant)
	rooms.GET("/:id/me", h.me)
	rooms.GET("/:id/sounds", h.listSounds)
	rooms.POST("/:id/sounds", h.createSound)
	rooms.GET("/:id/presence", h.presence)

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")
	return r
}
