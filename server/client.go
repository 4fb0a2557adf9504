package server

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/teranos/dialogue/asset"
	"github.com/teranos/dialogue/driver"
	"github.com/teranos/dialogue/logger"
	"github.com/teranos/dialogue/metrics"
)

// WebSocket timeouts following the gorilla chat example
const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Commands are small; anything larger is a misbehaving client
	maxMessageSize = 64 * 1024

	sendBuffer = 64
)

// client is one websocket connection. Each connection is its own owner.
type client struct {
	server    *Server
	conn      *websocket.Conn
	owner     driver.Owner
	send      chan OutboundMessage
	done      chan struct{}
	closeOnce sync.Once

	mu    sync.Mutex
	asset asset.Handle
}

func newClient(s *Server, conn *websocket.Conn, owner driver.Owner) *client {
	return &client{
		server: s,
		conn:   conn,
		owner:  owner,
		send:   make(chan OutboundMessage, sendBuffer),
		done:   make(chan struct{}),
	}
}

func (c *client) assetHandle() asset.Handle {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.asset
}

func (c *client) setAsset(h asset.Handle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.asset = h
}

// enqueue hands msg to the write pump. Messages to a full or closed client are dropped.
func (c *client) enqueue(msg OutboundMessage) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- msg:
		metrics.WebsocketMessages.WithLabelValues(metrics.DirectionOut, msg.Type).Inc()
		return true
	case <-c.done:
		return false
	default:
		c.server.logger.Warnw("Client send buffer full, dropping message",
			logger.FieldOwner, c.owner,
			"type", msg.Type)
		return false
	}
}

func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// readPump reads commands until the connection fails
func (c *client) readPump() {
	defer c.server.wg.Done()
	defer c.server.unregister(c)

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.handleReadError(err)
			return
		}

		var msg InboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.enqueue(errorMessage("invalid message: " + err.Error()))
			continue
		}
		metrics.WebsocketMessages.WithLabelValues(metrics.DirectionIn, msg.Type).Inc()
		c.route(&msg)
	}
}

// handleReadError logs unexpected close errors. Normal closures are silent.
func (c *client) handleReadError(err error) {
	if websocket.IsUnexpectedCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure,
		websocket.CloseNoStatusReceived,
	) {
		c.server.logger.Warnw("WebSocket read error",
			logger.FieldOwner, c.owner,
			logger.FieldError, err)
	}
}

// route turns an inbound message into a driver command
func (c *client) route(msg *InboundMessage) {
	var cmd driver.Command

	switch msg.Type {
	case TypeStart:
		h := asset.Handle(msg.Asset)
		if h == "" {
			c.enqueue(errorMessage("start requires an asset"))
			return
		}
		if _, ok := c.server.store.Get(h); !ok {
			c.enqueue(errorMessage("asset " + string(h) + " not found"))
			return
		}
		cmd = driver.Start{Owner: c.owner, Asset: h}

	case TypeAdvance:
		cmd = driver.Advance{Owner: c.owner}

	case TypeSelect:
		if msg.Index == nil {
			c.enqueue(errorMessage("select requires an index"))
			return
		}
		cmd = driver.Select{Owner: c.owner, Index: *msg.Index}

	case TypeStop:
		cmd = driver.Stop{Owner: c.owner}

	default:
		c.enqueue(errorMessage("unknown message type " + msg.Type))
		return
	}

	ctx, cancel := context.WithTimeout(c.server.ctx, writeWait)
	defer cancel()
	if err := c.server.loop.Send(ctx, cmd); err != nil {
		c.server.logger.Warnw("Failed to send command to dialogue loop",
			logger.FieldOwner, c.owner,
			logger.FieldAction, cmd.CommandName(),
			logger.FieldError, err)
		c.enqueue(errorMessage("server is shutting down"))
	}
}

// writePump is the only writer on the connection
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
		c.server.wg.Done()
	}()

	for {
		select {
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				c.server.logger.Debugw("WebSocket write failed",
					logger.FieldOwner, c.owner,
					logger.FieldError, err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			return
		}
	}
}
