package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/grocerly/backend/internal/model"
	"github.com/grocerly/backend/internal/service"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// Item payloads may carry base64 images.
	maxMessageSize = 1 << 20

	sendBufferSize = 32
)

// Client is one live connection and its session state. The token and
// authorized flag are guarded by the hub mutex; entries are removed exactly
// once, when the read pump exits.
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	items      ItemMutator
	send       chan []byte
	remoteAddr string

	token      string
	authorized bool
}

// Authorized reports whether the connection may mutate the list. Checked at
// action time, not only at connect, since revocation can clear it later.
func (c *Client) Authorized() bool {
	c.hub.mu.Lock()
	defer c.hub.mu.Unlock()
	return c.authorized
}

// Emit queues one event for this connection only. Full buffers drop the
// frame rather than block the caller.
func (c *Client) Emit(event string, data any) {
	payload, err := encodeFrame(event, data)
	if err != nil {
		log.Printf("[WS] Emit encode failed for '%s': %v", event, err)
		return
	}
	select {
	case c.send <- payload:
	default:
	}
}

func (c *Client) emitError(message string) {
	c.Emit(model.EventError, ErrorPayload{Message: message})
}

func (c *Client) readPump() {
	defer func() {
		c.hub.remove(c)
		c.conn.Close()
		log.Printf("[WS] Client '%s' disconnected", c.remoteAddr)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[WS] Read error from '%s': %v", c.remoteAddr, err)
			}
			return
		}

		var frame Frame
		if err := json.Unmarshal(raw, &frame); err != nil {
			c.emitError("malformed frame")
			continue
		}
		c.dispatch(frame)
	}
}

func (c *Client) dispatch(frame Frame) {
	switch frame.Event {
	case model.EventItemAdd, model.EventItemUpdate, model.EventItemDel:
		c.handleMutation(frame.Event, frame.Data)
	default:
		log.Printf("[WS] Unknown event '%s' from '%s'", frame.Event, c.remoteAddr)
	}
}

// handleMutation guards an inbound mutation event. Unauthorized connections
// get the action dropped with an error event to the originator only; it is
// never broadcast.
func (c *Client) handleMutation(event string, data json.RawMessage) {
	if !c.Authorized() {
		log.Printf("[WS] Unauthorized %s from '%s'", event, c.remoteAddr)
		c.emitError("unauthorized connection")
		return
	}

	var item model.Item
	if err := json.Unmarshal(data, &item); err != nil {
		c.emitError("malformed item payload")
		return
	}

	ctx := context.Background()
	var err error
	switch event {
	case model.EventItemAdd:
		_, err = c.items.Add(ctx, item)
	case model.EventItemUpdate:
		_, err = c.items.Update(ctx, item)
	case model.EventItemDel:
		_, err = c.items.Delete(ctx, item)
	}
	if err != nil {
		log.Printf("[WS] %s from '%s' failed: %v", event, c.remoteAddr, err)
		c.emitError(mutationErrorMessage(err))
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
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

// mutationErrorMessage keeps store failures opaque; only validation results
// carry field detail back to the client.
func mutationErrorMessage(err error) string {
	var vErr *service.ValidationError
	if errors.As(err, &vErr) {
		return strings.Join(vErr.Fields, "; ")
	}
	return "item mutation failed"
}
