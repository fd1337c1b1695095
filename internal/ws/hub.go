package ws

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/JDEditz/Messaging-Web-App/internal/models"
)

// Hub is the source of truth for live connections: it maps users to their
// connections (session registry), connections to conversation rooms
// (channel membership), and fans events out to rooms or to every session
// (presence). All maps support concurrent mutation from arbitrary
// connection goroutines.
type Hub struct {
	mu       sync.RWMutex
	rooms    map[int]map[*Client]bool
	sessions map[int]map[*Client]bool
	subs     map[*Client]map[int]bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		rooms:    make(map[int]map[*Client]bool),
		sessions: make(map[int]map[*Client]bool),
		subs:     make(map[*Client]map[int]bool),
	}
}

// Register records a live connection for its user. Reports whether this is
// the user's first connection, i.e. an offline-to-online transition.
func (h *Hub) Register(client *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	userID := client.info.UserID
	conns, ok := h.sessions[userID]
	if !ok {
		conns = make(map[*Client]bool)
		h.sessions[userID] = conns
	}
	first := len(conns) == 0
	conns[client] = true
	h.subs[client] = make(map[int]bool)
	return first
}

// Deregister removes a connection from every room and from its user's
// session set. Reports whether the user has no connection left, i.e. an
// online-to-offline transition. Safe to call more than once.
func (h *Hub) Deregister(client *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.subs[client]
	if !ok {
		return false
	}
	delete(h.subs, client)
	client.close()

	for conversationID := range subs {
		h.removeFromRoom(client, conversationID)
	}

	userID := client.info.UserID
	if conns, ok := h.sessions[userID]; ok {
		delete(conns, client)
		if len(conns) == 0 {
			delete(h.sessions, userID)
			return true
		}
	}
	return false
}

// Join subscribes a registered connection to a conversation room.
func (h *Hub) Join(client *Client, conversationID int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.subs[client]
	if !ok {
		return
	}
	subs[conversationID] = true

	room, ok := h.rooms[conversationID]
	if !ok {
		room = make(map[*Client]bool)
		h.rooms[conversationID] = room
	}
	room[client] = true
}

// Leave unsubscribes a connection from a conversation room.
func (h *Hub) Leave(client *Client, conversationID int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if subs, ok := h.subs[client]; ok {
		delete(subs, conversationID)
	}
	h.removeFromRoom(client, conversationID)
}

// Publish delivers an event to every connection subscribed to the
// conversation's room, at most once each.
func (h *Hub) Publish(conversationID int, event models.ServerEvent) {
	h.fanOut(h.roomClients(conversationID), event, nil)
}

// PublishExcept delivers an event to the room excluding one connection,
// used for the typing relay so the originator does not hear itself.
func (h *Hub) PublishExcept(conversationID int, event models.ServerEvent, except *Client) {
	h.fanOut(h.roomClients(conversationID), event, except)
}

// BroadcastGlobal delivers an event to every connected session except the
// originating connection. Presence transitions go through here.
func (h *Hub) BroadcastGlobal(event models.ServerEvent, except *Client) {
	h.mu.RLock()
	clients := make([]*Client, 0)
	for _, conns := range h.sessions {
		for client := range conns {
			clients = append(clients, client)
		}
	}
	h.mu.RUnlock()

	h.fanOut(clients, event, except)
}

func (h *Hub) roomClients(conversationID int) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	room := h.rooms[conversationID]
	clients := make([]*Client, 0, len(room))
	for client := range room {
		clients = append(clients, client)
	}
	return clients
}

func (h *Hub) fanOut(clients []*Client, event models.ServerEvent, except *Client) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("marshal event: %v", err)
		return
	}

	for _, client := range clients {
		if client == except {
			continue
		}
		if !client.enqueue(payload) {
			// Stuck writer: close the socket and let the connection's read
			// loop run the usual deregistration and presence transition.
			log.Printf("websocket send buffer full, closing conn_id=%s", client.info.ConnID)
			client.close()
			if client.conn != nil {
				client.conn.Close()
			}
		}
	}
}

// caller must hold h.mu.
func (h *Hub) removeFromRoom(client *Client, conversationID int) {
	if room, ok := h.rooms[conversationID]; ok {
		delete(room, client)
		if len(room) == 0 {
			delete(h.rooms, conversationID)
		}
	}
}
