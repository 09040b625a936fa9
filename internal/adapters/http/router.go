package http

import (
	"context"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/quentinlc/lobbychat/internal/adapters/realtime"
	"github.com/quentinlc/lobbychat/internal/app"
	"github.com/quentinlc/lobbychat/internal/auth"
	"github.com/quentinlc/lobbychat/internal/config"
	"github.com/quentinlc/lobbychat/internal/store"
)

type Handlers struct {
	Users    *store.UserStore
	Members  *app.Membership
	Pipeline *app.Pipeline
	Verifier *auth.Verifier
	BaseURL  string
	TokenTTL time.Duration
}

func SetupRouter(ctx context.Context, cfg *config.Config, h *Handlers, rt *realtime.Controller) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	cookieStore := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("LobbychatSessions", cookieStore))

	r.POST("/register", h.handleRegister)
	r.POST("/login", h.handleLogin)

	api := r.Group("/api")
	api.Use(auth.Middleware(h.Verifier))

	api.GET("/users/me", h.handleMe)

	api.POST("/lobbies", h.handleCreateLobby)
	api.GET("/lobbies", h.handleListLobbies)
	api.GET("/lobbies/:id", h.handleGetLobby)
	api.PUT("/lobbies/:id", h.handleRenameLobby)
	api.DELETE("/lobbies/:id", h.handleDeleteLobby)
	api.PUT("/lobbies/:id/join", h.handleJoinLobby)
	api.PUT("/lobbies/:id/leave", h.handleLeaveLobby)
	api.POST("/lobbies/:id/invite", h.handleInviteLink)
	api.POST("/lobbies/:id/messages", h.handleSendMessage)
	api.GET("/lobbies/:id/messages", h.handleListMessages)

	api.GET("/ws", func(c *gin.Context) {
		rt.HandleWS(ctx, c)
	})

	log.Info().Str("module", "adapters.http").Msg("router setup")
	return r
}
