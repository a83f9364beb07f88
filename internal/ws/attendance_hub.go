package ws

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	EventAttendanceUpdated = "attendance.updated"
	EventLeaveSubmitted    = "leave.submitted"
	EventLeaveDecided      = "leave.decided"
	EventDayClosed         = "attendance.day_closed"
)

// Event is pushed to guru/admin dashboards.
type Event struct {
	Type      string    `json:"type"`
	ClassID   *string   `json:"class_id,omitempty"`
	StudentID string    `json:"student_id"`
	Date      string    `json:"date,omitempty"`
	Status    string    `json:"status,omitempty"`
	Data      any       `json:"data,omitempty"`
	At        time.Time `json:"at"`
}

type classMessage struct {
	classID *string
	payload []byte
}

// AttendanceHub fans attendance events out to dashboard clients. Clients
// that are not allowAll only receive events of their classes.
type AttendanceHub struct {
	log        *zap.Logger
	register   chan *dashboardClient
	unregister chan *dashboardClient
	broadcast  chan classMessage
	stopped    chan struct{}
	clients    map[*dashboardClient]struct{}
}

func NewAttendanceHub(log *zap.Logger) *AttendanceHub {
	return &AttendanceHub{
		log:        log,
		register:   make(chan *dashboardClient),
		unregister: make(chan *dashboardClient),
		broadcast:  make(chan classMessage, sendBufferSize),
		stopped:    make(chan struct{}),
		clients:    make(map[*dashboardClient]struct{}),
	}
}

func (h *AttendanceHub) Run(done <-chan struct{}) {
	defer close(h.stopped)
	for {
		select {
		case <-done:
			for client := range h.clients {
				h.drop(client)
			}
			return
		case client := <-h.register:
			h.clients[client] = struct{}{}
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.drop(client)
			}
		case msg := <-h.broadcast:
			for client := range h.clients {
				if !client.allowAll {
					if msg.classID == nil {
						continue
					}
					if _, ok := client.allowedClasses[*msg.classID]; !ok {
						continue
					}
				}
				select {
				case client.send <- msg.payload:
				default:
					h.drop(client)
				}
			}
		}
	}
}

func (h *AttendanceHub) drop(client *dashboardClient) {
	delete(h.clients, client)
	close(client.send)
}

// Broadcast queues ev for every client allowed to see its class. It never
// blocks the caller: when the queue is full the event is dropped.
func (h *AttendanceHub) Broadcast(ev Event) {
	if h == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		h.log.Warn("ws: marshal event", zap.Error(err))
		return
	}
	select {
	case h.broadcast <- classMessage{classID: ev.ClassID, payload: data}:
	default:
		h.log.Warn("ws: attendance queue full", zap.String("type", ev.Type))
	}
}

type dashboardClient struct {
	hub            *AttendanceHub
	conn           *websocket.Conn
	send           chan []byte
	allowedClasses map[string]struct{}
	allowAll       bool
}

func newDashboardClient(hub *AttendanceHub, conn *websocket.Conn, allowed map[string]struct{}, allowAll bool) *dashboardClient {
	return &dashboardClient{
		hub:            hub,
		conn:           conn,
		send:           make(chan []byte, sendBufferSize),
		allowedClasses: allowed,
		allowAll:       allowAll,
	}
}

func (c *dashboardClient) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.stopped:
		}
	}()
	readLoop(c.conn)
}

func (c *dashboardClient) writePump() {
	writeLoop(c.conn, c.send)
}

// readLoop discards client messages and keeps the read deadline alive.
func readLoop(conn *websocket.Conn) {
	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func writeLoop(conn *websocket.Conn, send <-chan []byte) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()
	for {
		select {
		case msg, ok := <-send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			w, err := conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			if _, err := w.Write(msg); err != nil {
				return
			}
			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
