package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	ws "github.com/stemsi/gradcafe-backend/internal/websocket"
	"github.com/stemsi/gradcafe-backend/internal/worker"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams job status changes.
type WSHandler struct {
	slot     *worker.JobSlot
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(slot *worker.JobSlot, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		slot:     slot,
		log:      log.With().Str("component", "ws_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// StatusStream godoc
// WS /ws/status
// Sends the current status on connect and again on every change. Clients
// may send {"action":"ping"} and get {"event":"pong"} back.
func (h *WSHandler) StatusStream(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	updates, unsubscribe := h.slot.Subscribe()
	defer unsubscribe()

	if err := ws.WriteStatus(conn, h.slot.Status()); err != nil {
		return
	}

	// gorilla allows one concurrent writer, so the reader only signals.
	pings := make(chan struct{}, 1)
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			var msg ws.RequestEnvelope
			if err := ws.ReadJSON(conn, &msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					h.log.Warn().Err(err).Msg("Unexpected close")
				}
				return
			}
			if msg.Action != ws.ActionPing {
				h.log.Debug().Str("action", string(msg.Action)).Msg("Unknown action")
				continue
			}
			select {
			case pings <- struct{}{}:
			default:
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case <-pings:
			if err := ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong}); err != nil {
				return
			}
		case st, ok := <-updates:
			if !ok {
				return
			}
			if err := ws.WriteStatus(conn, st); err != nil {
				return
			}
		}
	}
}
