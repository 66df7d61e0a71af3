package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/lisahq/lisaflow/internal/util"
	"github.com/lisahq/lisaflow/pkg/api"
	"github.com/lisahq/lisaflow/pkg/log"
)

type (
	// Client represents a WebSocket client connection for event streaming
	Client struct {
		conn   *websocket.Conn
		events chan api.NodeEvent
		filter eventFilter
		server *Server
	}

	// eventFilter reports whether a node event should reach the client
	eventFilter func(*api.NodeEvent) bool
)

const (
	writeWait          = 10 * time.Second
	pongWait           = 60 * time.Second
	pingPeriod         = (pongWait * 9) / 10
	maxMessageSize     = 512
	wsBufferSize       = 1024
	eventBufferSize    = 64
	incomingBufferSize = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  wsBufferSize,
	WriteBufferSize: wsBufferSize,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// handleWebSocket upgrades an HTTP connection to WebSocket and starts
// streaming node events. Clients receive everything until they narrow the
// stream with a subscribe message
func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Error("WebSocket upgrade failed",
			log.Error(err))
		return
	}

	client := &Client{
		conn:   conn,
		events: make(chan api.NodeEvent, eventBufferSize),
		filter: func(*api.NodeEvent) bool { return true },
		server: s,
	}
	s.addClient(client)

	go client.run()
}

// enqueue hands an event to the client's write loop. Slow clients drop
// events rather than stall the run that produced them
func (c *Client) enqueue(event api.NodeEvent) {
	select {
	case c.events <- event:
	default:
	}
}

func (c *Client) run() {
	defer func() {
		c.server.removeClient(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	incoming := make(chan []byte, incomingBufferSize)
	go c.readMessages(incoming)

	for {
		select {
		case message, ok := <-incoming:
			if !ok {
				return
			}
			c.handleSubscribe(message)

		case event := <-c.events:
			if !c.sendEventIfMatched(&event) {
				return
			}

		case <-ticker.C:
			if !c.sendPing() {
				return
			}
		}
	}
}

func (c *Client) readMessages(incoming chan []byte) {
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			close(incoming)
			return
		}
		incoming <- message
	}
}

func (c *Client) handleSubscribe(message []byte) {
	var sub api.SubscribeRequest
	if err := json.Unmarshal(message, &sub); err != nil {
		slog.Error("Failed to parse WebSocket message",
			log.Error(err))
		return
	}

	if sub.Type != "subscribe" {
		return
	}
	c.filter = buildFilter(&sub.Data)
}

func (c *Client) sendEventIfMatched(event *api.NodeEvent) bool {
	if !c.filter(event) {
		return true
	}

	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(event); err != nil {
		slog.Error("WebSocket write failed",
			log.Error(err))
		return false
	}
	return true
}

func (c *Client) close() {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
	_ = c.conn.Close()
}

func (c *Client) sendPing() bool {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	err := c.conn.WriteMessage(websocket.PingMessage, nil)
	return err == nil
}

// buildFilter creates an event filter based on a client's subscription
// preferences for run ID and node statuses
func buildFilter(sub *api.ClientSubscription) eventFilter {
	var statuses util.Set[api.NodeStatus]
	if len(sub.Statuses) > 0 {
		statuses = util.SetOf(sub.Statuses...)
	}
	runID := sub.RunID

	return func(event *api.NodeEvent) bool {
		if runID != "" && event.RunID != runID {
			return false
		}
		if statuses != nil && !statuses.Contains(event.Status) {
			return false
		}
		return true
	}
}
