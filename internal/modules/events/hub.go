package events

import (
	"log"
	"sync"
	"time"

	"realestate/internal/domain"

	"github.com/gorilla/websocket"
)

const (
	writeWait    = 10 * time.Second
	pingInterval = 30 * time.Second

	// sendBuffer events may queue per connection before it counts as stalled
	sendBuffer = 16
)

type ApplicationSummary struct {
	ID       int64  `json:"id"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Status   string `json:"status"`
}

type Event struct {
	Type        string             `json:"type"`
	Application ApplicationSummary `json:"application"`
	At          time.Time          `json:"at"`
}

// Client is one admin connection. Only its writer goroutine writes to conn.
type Client struct {
	adminID int64
	conn    *websocket.Conn
	send    chan Event
}

func newClient(adminID int64, conn *websocket.Conn) *Client {
	return &Client{adminID: adminID, conn: conn, send: make(chan Event, sendBuffer)}
}

// writePump drains the send queue and keeps the connection alive with pings.
func (c *Client) writePump(h *Hub) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		h.Unregister(c)
	}()

	for {
		select {
		case event, ok := <-c.send:
			if !ok {
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(event); err != nil {
				log.Printf("events action=write admin_id=%d type=%s error=%q", c.adminID, event.Type, err.Error())
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Hub fans application events out to connected admins.
type Hub struct {
	clients map[*Client]struct{}
	mutex   sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
	}
}

// Register adds the connection and starts its writer.
func (h *Hub) Register(adminID int64, conn *websocket.Conn) *Client {
	c := newClient(adminID, conn)
	h.add(c)
	go c.writePump(h)
	return c
}

func (h *Hub) add(c *Client) {
	h.mutex.Lock()
	h.clients[c] = struct{}{}
	h.mutex.Unlock()
}

// Unregister closes the connection and its queue. Safe to call twice.
func (h *Hub) Unregister(c *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

// Publish queues the event for every connection without waiting on the
// network. Connections whose queue is full are dropped. It returns the
// number of connections the event was queued for.
func (h *Hub) Publish(event Event) int {
	var stalled []*Client
	queued := 0

	h.mutex.RLock()
	for c := range h.clients {
		select {
		case c.send <- event:
			queued++
		default:
			stalled = append(stalled, c)
		}
	}
	h.mutex.RUnlock()

	for _, c := range stalled {
		log.Printf("events action=publish admin_id=%d type=%s dropped=true reason=queue_full", c.adminID, event.Type)
		h.Unregister(c)
	}
	return queued
}

// PublishApplicationEvent adapts workflow notifications to the feed.
func (h *Hub) PublishApplicationEvent(kind string, app *domain.BrokerApplication) {
	if app == nil {
		return
	}
	h.Publish(Event{
		Type: kind,
		Application: ApplicationSummary{
			ID:       app.ID,
			FullName: app.FullName,
			Email:    app.Email,
			Status:   string(app.Status),
		},
		At: time.Now().UTC(),
	})
}

func (h *Hub) ConnectedCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	return len(h.clients)
}

func (h *Hub) Close() {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for c := range h.clients {
		h.removeLocked(c)
	}
}
