package ws

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/JDEditz/Messaging-Web-App/internal/models"
)

const sendBufferSize = 256

// Client is one live websocket connection for an authenticated user.
// All outbound frames go through the buffered send channel so a single
// writer goroutine owns the connection; broadcasts from other connections'
// goroutines never write to the socket directly.
type Client struct {
	conn *websocket.Conn
	info ConnInfo

	mu     sync.Mutex
	closed bool
	send   chan []byte
}

func newClient(conn *websocket.Conn, info ConnInfo) *Client {
	return &Client{
		conn: conn,
		info: info,
		send: make(chan []byte, sendBufferSize),
	}
}

// Info returns the connection metadata captured at handshake time.
func (c *Client) Info() ConnInfo {
	return c.info
}

// enqueue hands a marshaled event to the writer. Delivery is best-effort:
// a client whose buffer is full is considered stuck and reports false so
// the hub can drop it. Frames enqueued after close are discarded.
func (c *Client) enqueue(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return true
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// close stops the writer exactly once; later enqueues become no-ops.
func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// Send marshals and enqueues a single event for this connection only.
func (c *Client) Send(event models.ServerEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("marshal event: %v", err)
		return
	}
	c.enqueue(payload)
}

// writePump drains the send channel onto the socket.
func (c *Client) writePump() {
	defer c.conn.Close()

	for payload := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
