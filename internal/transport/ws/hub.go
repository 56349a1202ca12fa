package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"examsim/internal/model"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	MsgConnected MessageType = "connected"
	MsgProgress  MessageType = "simulation_progress"
	MsgFinalized MessageType = "simulation_finalized"
	MsgReset     MessageType = "simulation_reset"
)

// Message is the WebSocket envelope format
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Hub fans session events out to every open connection of a student
type Hub struct {
	// studentID -> connID -> conn
	conns map[string]map[string]*Connection

	mu sync.RWMutex

	register   chan *Connection
	unregister chan *Connection
	broadcast  chan *BroadcastMessage
}

// Connection represents a WebSocket connection
type Connection struct {
	ID        string
	StudentID string
	Send      chan []byte
	Hub       *Hub
}

// BroadcastMessage is a message for all connections of one student
type BroadcastMessage struct {
	StudentID string
	Message   *Message
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	h := &Hub{
		conns:      make(map[string]map[string]*Connection),
		register:   make(chan *Connection),
		unregister: make(chan *Connection),
		broadcast:  make(chan *BroadcastMessage, 256),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			if h.conns[conn.StudentID] == nil {
				h.conns[conn.StudentID] = make(map[string]*Connection)
			}
			h.conns[conn.StudentID][conn.ID] = conn
			h.mu.Unlock()
			log.Printf("[WS Hub] student %s connected (%s)", conn.StudentID, conn.ID)

		case conn := <-h.unregister:
			h.mu.Lock()
			if student, ok := h.conns[conn.StudentID]; ok {
				if existing, ok := student[conn.ID]; ok && existing == conn {
					delete(student, conn.ID)
					close(conn.Send)
					if len(student) == 0 {
						delete(h.conns, conn.StudentID)
					}
					log.Printf("[WS Hub] student %s disconnected (%s)", conn.StudentID, conn.ID)
				}
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			data, err := json.Marshal(msg.Message)
			if err != nil {
				log.Printf("[WS Hub] ERROR: marshal %s: %v", msg.Message.Type, err)
				continue
			}
			h.mu.RLock()
			for _, conn := range h.conns[msg.StudentID] {
				select {
				case conn.Send <- data:
				default:
					// Drop message if buffer full
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Register adds a connection
func (h *Hub) Register(conn *Connection) {
	h.register <- conn
}

// Unregister removes a connection
func (h *Hub) Unregister(conn *Connection) {
	h.unregister <- conn
}

// Connections returns the number of open connections of a student
func (h *Hub) Connections(studentID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[studentID])
}

// SendToStudent queues a message for all connections of a student
func (h *Hub) SendToStudent(studentID string, msgType MessageType, payload interface{}) {
	data, _ := json.Marshal(payload)
	h.broadcast <- &BroadcastMessage{
		StudentID: studentID,
		Message: &Message{
			Type:    msgType,
			Payload: data,
		},
	}
}

// HandleEvent pushes a session event to its student; used as an event bus handler
func (h *Hub) HandleEvent(ctx context.Context, event *model.SessionEvent) {
	if event.StudentID == "" || h.Connections(event.StudentID) == 0 {
		return
	}
	h.SendToStudent(event.StudentID, messageTypeFor(event.Type), event)
}

func messageTypeFor(t model.EventType) MessageType {
	switch t {
	case model.EventFinalized:
		return MsgFinalized
	case model.EventReset:
		return MsgReset
	default:
		return MsgProgress
	}
}
