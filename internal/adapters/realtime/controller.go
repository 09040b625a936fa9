package realtime

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/quentinlc/lobbychat/internal/app"
	"github.com/quentinlc/lobbychat/internal/auth"
	"github.com/quentinlc/lobbychat/internal/core"
)

type Controller struct {
	Registry *app.Registry
	Router   core.Router
	Members  *app.Membership
	Pipeline *app.Pipeline
	Limiter  *SendRateLimiter

	ReadLimit  int64
	PingPeriod time.Duration
	SendBuffer int
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleWS upgrades the request and runs the session until the client
// disconnects. Identity comes from the verified token on the
// handshake; the session id is transport-assigned and fresh on every
// reconnect, so the subscription table rebuilds from scratch.
func (ctl *Controller) HandleWS(ctx context.Context, c *gin.Context) {
	ident, ok := auth.IdentityFrom(c)
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "realtime").Msg("ws upgrade")
		return
	}

	sid := core.SessionID(uuid.NewString())
	log.Info().Str("module", "realtime").Str("sid", string(sid)).Str("user", string(ident.UserID)).Msg("new WS connection")

	conn := newWSConn(ws, ctl.SendBuffer)
	if ctl.ReadLimit > 0 {
		ws.SetReadLimit(ctl.ReadLimit)
	}

	ctx, cancel := context.WithCancel(ctx)
	ctl.Registry.Bind(sid, ident.UserID, cancel)
	ctl.Router.Attach(sid, conn)

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, sid, conn)
}
