package websocket

import (
	"bufio"
	"context"
	"net"
	"net/http"
	"time"

	"github.com/archivesocial/archive/backend/internal/errors"
	"github.com/archivesocial/archive/backend/internal/logger"
	"github.com/archivesocial/archive/backend/internal/models"
	"github.com/archivesocial/archive/backend/internal/util"
	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Authenticator resolves a bearer token to its user
type Authenticator interface {
	ValidateToken(ctx context.Context, token string) (*models.User, error)
}

// Handler upgrades authenticated HTTP requests to websocket connections
type Handler struct {
	hub            *Hub
	auth           Authenticator
	tokenFrom      func(c *gin.Context) string
	originPatterns []string
}

// NewHandler creates a websocket handler. tokenFrom extracts the token from
// the upgrade request; originPatterns are passed to websocket.Accept.
func NewHandler(hub *Hub, auth Authenticator, tokenFrom func(c *gin.Context) string, originPatterns []string) *Handler {
	return &Handler{
		hub:            hub,
		auth:           auth,
		tokenFrom:      tokenFrom,
		originPatterns: originPatterns,
	}
}

// HandleWebSocket authenticates via ?token= or a Bearer header, upgrades,
// and blocks until the client disconnects
func (h *Handler) HandleWebSocket(c *gin.Context) {
	if h.hub.Closed() {
		util.RespondWithAPIError(c, errors.ServiceUnavailable("websocket"))
		return
	}
	token := h.tokenFrom(c)
	if token == "" {
		util.RespondUnauthorized(c, "no token provided")
		return
	}
	user, err := h.auth.ValidateToken(c.Request.Context(), token)
	if err != nil {
		util.RespondUnauthorized(c, "invalid token")
		return
	}

	opts := &websocket.AcceptOptions{OriginPatterns: h.originPatterns}
	if len(h.originPatterns) == 0 {
		opts.InsecureSkipVerify = true
	}
	conn, err := websocket.Accept(newUpgradeWriter(c.Writer), c.Request, opts)
	if err != nil {
		logger.Log.Warn("Websocket upgrade failed", logger.WithUserID(user.ID), zap.Error(err))
		return
	}

	client := NewClient(h.hub, conn, user.ID)
	client.RemoteAddr = c.ClientIP()
	h.hub.Register(client)

	_ = client.Send(NewMessage(MessageTypeSystem, SystemPayload{
		Event: "connected",
		Data: map[string]interface{}{
			"user_id":     user.ID,
			"username":    user.Username,
			"server_time": time.Now().UTC().UnixMilli(),
		},
	}))

	go client.WritePump()
	client.ReadPump()
}

// upgradeWriter hands websocket.Accept the underlying net/http writer so the
// 101 status is buffered there and sent when the connection is hijacked.
// gin's writer only records WriteHeader and refuses to hijack once it has
// flushed, so Accept must not see its Flush or WriteHeaderNow. Hijacking
// still goes through gin so it knows the response is taken.
type upgradeWriter struct {
	http.ResponseWriter
	gw gin.ResponseWriter
}

func newUpgradeWriter(gw gin.ResponseWriter) *upgradeWriter {
	raw := http.ResponseWriter(gw)
	if u, ok := gw.(interface{ Unwrap() http.ResponseWriter }); ok {
		raw = u.Unwrap()
	}
	return &upgradeWriter{ResponseWriter: raw, gw: gw}
}

func (w *upgradeWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	// Recorded for access logs and metrics; gin never writes it
	w.gw.WriteHeader(http.StatusSwitchingProtocols)
	return w.gw.Hijack()
}
