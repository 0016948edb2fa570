// Package ws carries the realtime transport: one hub per process tracking
// every live connection, its extracted session token and whether it is
// authorized to mutate the list.
package ws

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"

	"github.com/grocerly/backend/internal/model"
	"github.com/grocerly/backend/internal/service"
)

// RevocationChecker answers whether a token has been revoked before its
// natural expiry.
type RevocationChecker interface {
	IsRevoked(token string) bool
}

// ItemMutator is the mutation pipeline guarded inbound events run through.
type ItemMutator interface {
	Add(ctx context.Context, item model.Item) (model.Item, error)
	Update(ctx context.Context, item model.Item) (model.Item, error)
	Delete(ctx context.Context, item model.Item) (model.Item, error)
}

type Hub struct {
	mu      sync.Mutex
	clients map[*Client]struct{}

	secret   []byte
	revoked  RevocationChecker
	upgrader websocket.Upgrader
}

func NewHub(secret []byte, revoked RevocationChecker, allowedOrigins []string) *Hub {
	originSet := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		originSet[origin] = struct{}{}
	}

	return &Hub{
		clients: make(map[*Client]struct{}),
		secret:  secret,
		revoked: revoked,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if len(originSet) == 0 {
					return true
				}
				_, ok := originSet[r.Header.Get("Origin")]
				return ok
			},
		},
	}
}

// HandleUpgrade establishes a connection, verifies its cookie token once at
// handshake time and starts the read/write pumps. Authorization can still be
// cleared later by DeauthorizeToken, so guarded actions re-check the flag.
func (h *Hub) HandleUpgrade(w http.ResponseWriter, r *http.Request, items ItemMutator) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WS] Upgrade failed for '%s': %v", r.RemoteAddr, err)
		return
	}

	client := &Client{
		hub:        h,
		conn:       conn,
		items:      items,
		send:       make(chan []byte, sendBufferSize),
		remoteAddr: r.RemoteAddr,
	}
	if cookie, err := r.Cookie(service.CookieName); err == nil {
		client.token = cookie.Value
	}

	h.mu.Lock()
	h.clients[client] = struct{}{}
	if client.token != "" && !h.revoked.IsRevoked(client.token) && h.verifyToken(client.token) {
		client.authorized = true
	}
	authorized := client.authorized
	h.mu.Unlock()

	log.Printf("[WS] Client '%s' connected", client.remoteAddr)
	if authorized {
		client.Emit(model.EventAuthorized, true)
		log.Printf("[WS] Authorized connection '%s'", client.remoteAddr)
	} else if client.token != "" {
		log.Printf("[WS] Session '%s': invalid token", client.remoteAddr)
	}

	go client.writePump()
	go client.readPump()
}

// Broadcast sends one event to every live connection, the originator
// included. Clients that cannot keep up are dropped.
func (h *Hub) Broadcast(event string, data any) {
	payload, err := encodeFrame(event, data)
	if err != nil {
		log.Printf("[WS] Broadcast encode failed for '%s': %v", event, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		select {
		case client.send <- payload:
		default:
			// Deregister and tear the connection down; the pumps exit on
			// their next read/write. remove is the only closer of send, so
			// a late Emit from the dropped client's read loop cannot panic.
			delete(h.clients, client)
			if client.conn != nil {
				client.conn.Close()
			}
		}
	}
}

// DeauthorizeToken clears the authorized flag of every live connection whose
// session token matches. The connections stay open; their next guarded
// action is rejected.
func (h *Hub) DeauthorizeToken(token string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		if client.token == token {
			client.authorized = false
		}
	}
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) verifyToken(token string) bool {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return h.secret, nil
	})
	return err == nil && parsed.Valid
}
