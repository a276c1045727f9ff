package controllers

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/yeremiapane/restroflow/hub"
	"github.com/yeremiapane/restroflow/utils"
)

const (
	keepAliveInterval = 25 * time.Second
	writeWait         = 10 * time.Second
	pongWait          = 60 * time.Second
)

// LiveController pushes "refetch" signals to open dashboards over SSE or
// WebSocket.
type LiveController struct {
	Hub      *hub.Hub
	upgrader websocket.Upgrader
}

func NewLiveController(h *hub.Hub, allowedOrigins []string) *LiveController {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &LiveController{
		Hub: h,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowed["*"] || allowed[origin]
			},
		},
	}
}

type liveMessage struct {
	Event hub.Event `json:"event,omitempty"`
}

// Stream is the Server-Sent Events endpoint.
func (lc *LiveController) Stream(c *gin.Context) {
	sub := lc.Hub.Subscribe()
	defer lc.Hub.Unsubscribe(sub)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	c.SSEvent("connected", liveMessage{})
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-sub.C:
			if !ok {
				return false
			}
			c.SSEvent("update", liveMessage{Event: ev})
			return true
		case <-keepAlive.C:
			c.SSEvent("ping", liveMessage{})
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

// WebSocket upgrades the connection and forwards hub events as JSON.
func (lc *LiveController) WebSocket(c *gin.Context) {
	ws, err := lc.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		utils.ErrorLogger.Warnf("WebSocket upgrade failed: %v", err)
		return
	}
	defer ws.Close()

	sub := lc.Hub.Subscribe()
	defer lc.Hub.Unsubscribe(sub)

	// Reader: clients only send pongs and close frames.
	done := make(chan struct{})
	go func() {
		defer close(done)
		ws.SetReadDeadline(time.Now().Add(pongWait))
		ws.SetPongHandler(func(string) error {
			return ws.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case ev, ok := <-sub.C:
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
				return
			}
			if err := ws.WriteJSON(liveMessage{Event: ev}); err != nil {
				return
			}
		case <-keepAlive.C:
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		case <-c.Request.Context().Done():
			return
		}
	}
}
