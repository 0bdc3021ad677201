package server

import (
	"context"

	"github.com/sirupsen/logrus"
)

// ClientConn is the part of a WebSocket connection the hub writes to.
type ClientConn interface {
	WriteJSON(v any) error
	Close() error
}

type directMessage struct {
	client ClientConn
	msg    Message
}

// Hub owns the connected clients and serializes writes to them.
type Hub struct {
	clients    map[ClientConn]bool
	broadcast  chan Message
	direct     chan directMessage
	register   chan ClientConn
	unregister chan ClientConn
	done       chan struct{}
	log        *logrus.Entry
}

func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		clients:    make(map[ClientConn]bool),
		broadcast:  make(chan Message, 64),
		direct:     make(chan directMessage, 16),
		register:   make(chan ClientConn),
		unregister: make(chan ClientConn),
		done:       make(chan struct{}),
		log:        logger.WithField("component", "hub"),
	}
}

// Run is the hub's event loop. It closes every client when ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		close(h.done)
		for client := range h.clients {
			client.Close()
			delete(h.clients, client)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case client := <-h.register:
			h.clients[client] = true
			h.log.WithField("clients", len(h.clients)).Info("WebSocket client connected")
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
				h.log.WithField("clients", len(h.clients)).Info("WebSocket client disconnected")
			}
		case d := <-h.direct:
			if _, ok := h.clients[d.client]; !ok {
				continue
			}
			if err := d.client.WriteJSON(d.msg); err != nil {
				h.log.WithError(err).Warn("Send failed, dropping client")
				d.client.Close()
				delete(h.clients, d.client)
			}
		case message := <-h.broadcast:
			for client := range h.clients {
				if err := client.WriteJSON(message); err != nil {
					h.log.WithError(err).Warn("Broadcast failed, dropping client")
					client.Close()
					delete(h.clients, client)
				}
			}
		}
	}
}

// Broadcast queues a message for every client. It drops the message when
// the queue is full.
func (h *Hub) Broadcast(msg Message) {
	select {
	case h.broadcast <- msg:
	default:
		h.log.WithField("type", msg.Type).Warn("Broadcast queue full, message dropped")
	}
}

// Send queues a message for one client. It reports false once the hub stopped.
func (h *Hub) Send(c ClientConn, msg Message) bool {
	select {
	case h.direct <- directMessage{client: c, msg: msg}:
		return true
	case <-h.done:
		return false
	}
}

// Add hands a connection to the hub. It reports false once the hub stopped.
func (h *Hub) Add(c ClientConn) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// Remove drops and closes a connection.
func (h *Hub) Remove(c ClientConn) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}
