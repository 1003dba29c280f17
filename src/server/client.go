package server

import (
	"encoding/json"
	"time"

	"tradewatch/src/models"

	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Constants
// -----------------------------------------------------------------------------

const (
	writeWait      = 2 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 256
)

// -----------------------------------------------------------------------------
// Client Structure
// -----------------------------------------------------------------------------

// Client is one websocket connection, i.e. one session.
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	sessionID string
	send      chan interface{}
}

// -----------------------------------------------------------------------------
// readPump - handles incoming frames from the client
// Acts as a watchdog for the connection
// -----------------------------------------------------------------------------

func (c *Client) readPump() {
	defer func() {
		c.hub.unregisterClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.Logger.Info("session %s websocket error: %v", c.sessionID, err)
			}
			break
		}
		c.handleCommand(message)
	}
}

// -----------------------------------------------------------------------------

func (c *Client) handleCommand(message []byte) {
	var cmd models.MClientCommand
	if err := json.Unmarshal(message, &cmd); err != nil {
		c.hub.Logger.Warning("session %s sent malformed command: %v", c.sessionID, err)
		return
	}

	switch cmd.Command {
	case "subscribe":
		if cmd.Destination != "" {
			c.hub.bind(cmd.Destination, c)
		}
	case "unsubscribe":
		if cmd.Destination != "" {
			c.hub.unbind(cmd.Destination, c)
		}
	default:
		c.hub.Logger.Debug("session %s sent unknown command %q", c.sessionID, cmd.Command)
	}
}

// -----------------------------------------------------------------------------
// writePump - sends messages to the client
// -----------------------------------------------------------------------------

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
