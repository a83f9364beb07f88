package ws

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	EventAttendanceVerified = "attendance.verified"
)

// StudentMessage is pushed to one siswa.
type StudentMessage struct {
	Type    string    `json:"type"`
	Date    string    `json:"date,omitempty"`
	Status  string    `json:"status,omitempty"`
	Message string    `json:"message,omitempty"`
	Data    any       `json:"data,omitempty"`
	At      time.Time `json:"at"`
}

type studentNotification struct {
	userID  string
	payload []byte
}

// StudentHub keeps at most one connection per siswa user.
type StudentHub struct {
	log        *zap.Logger
	register   chan *studentClient
	unregister chan *studentClient
	notify     chan studentNotification
	stopped    chan struct{}
	clients    map[string]*studentClient
}

func NewStudentHub(log *zap.Logger) *StudentHub {
	return &StudentHub{
		log:        log,
		register:   make(chan *studentClient),
		unregister: make(chan *studentClient),
		notify:     make(chan studentNotification, sendBufferSize),
		stopped:    make(chan struct{}),
		clients:    make(map[string]*studentClient),
	}
}

func (h *StudentHub) Run(done <-chan struct{}) {
	defer close(h.stopped)
	for {
		select {
		case <-done:
			for id, client := range h.clients {
				delete(h.clients, id)
				close(client.send)
			}
			return
		case client := <-h.register:
			if existing, ok := h.clients[client.userID]; ok {
				close(existing.send)
			}
			h.clients[client.userID] = client
		case client := <-h.unregister:
			if stored, ok := h.clients[client.userID]; ok && stored == client {
				delete(h.clients, client.userID)
				close(client.send)
			}
		case msg := <-h.notify:
			if client, ok := h.clients[msg.userID]; ok {
				select {
				case client.send <- msg.payload:
				default:
					delete(h.clients, msg.userID)
					close(client.send)
				}
			}
		}
	}
}

// Notify queues message for the siswa user; offline users miss it.
func (h *StudentHub) Notify(userID string, message StudentMessage) {
	if h == nil || userID == "" {
		return
	}
	if message.At.IsZero() {
		message.At = time.Now().UTC()
	}
	data, err := json.Marshal(message)
	if err != nil {
		h.log.Warn("ws: marshal student message", zap.Error(err))
		return
	}
	select {
	case h.notify <- studentNotification{userID: userID, payload: data}:
	default:
		h.log.Warn("ws: student queue full", zap.String("type", message.Type))
	}
}

type studentClient struct {
	hub    *StudentHub
	conn   *websocket.Conn
	send   chan []byte
	userID string
}

func newStudentClient(hub *StudentHub, conn *websocket.Conn, userID string) *studentClient {
	return &studentClient{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, 64),
		userID: userID,
	}
}

func (c *studentClient) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.stopped:
		}
	}()
	readLoop(c.conn)
}

func (c *studentClient) writePump() {
	writeLoop(c.conn, c.send)
}
