package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"crashengine/config"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  config.WSReadBufferSize,
	WriteBufferSize: config.WSWriteBufferSize,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ClientConnection is one subscribed renderer/observer.
type ClientConnection struct {
	ID   int64
	Conn *websocket.Conn
	Send chan []byte
}

// Event is the envelope for everything broadcast to clients.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

var (
	clients          = make(map[*ClientConnection]bool)
	broadcast        = make(chan []byte, 256)
	clientRegister   = make(chan *ClientConnection)
	clientUnregister = make(chan *ClientConnection)

	clientIDCounter int64
	hubStarted      atomic.Bool
)

// StartHub launches the event hub goroutine. Safe to call once from main.
func StartHub() {
	if !hubStarted.CompareAndSwap(false, true) {
		return
	}
	go runEventHub()
	log.Println("📡 WebSocket hub started")
}

func runEventHub() {
	for {
		select {
		case client := <-clientRegister:
			clients[client] = true
			log.Printf("✅ Client %d connected! Total clients: %d", client.ID, len(clients))

		case client := <-clientUnregister:
			if _, ok := clients[client]; ok {
				delete(clients, client)
				close(client.Send)
			}
			log.Printf("👋 Client %d disconnected. Total clients: %d", client.ID, len(clients))

		case msg := <-broadcast:
			for client := range clients {
				select {
				case client.Send <- msg:
				default:
					// Slow consumer: drop it rather than stall the feed.
					delete(clients, client)
					close(client.Send)
				}
			}
		}
	}
}

// Broadcast fans an event out to every connected client.
func Broadcast(eventType string, data interface{}) {
	payload, err := json.Marshal(Event{Type: eventType, Data: data})
	if err != nil {
		log.Printf("⚠️  Failed to marshal %s event: %v", eventType, err)
		return
	}

	select {
	case broadcast <- payload:
	default:
		log.Printf("⚠️  Broadcast buffer full, dropping %s event", eventType)
	}
}

// HandleWS upgrades the connection and streams round events to the client.
// The feed is one-way; bets and cashouts go through the HTTP API.
func HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("❌ WebSocket upgrade failed:", err)
		return
	}

	client := &ClientConnection{
		ID:   atomic.AddInt64(&clientIDCounter, 1),
		Conn: conn,
		Send: make(chan []byte, config.WSSendBuffer),
	}
	clientRegister <- client

	go writePump(client)
	readPump(client)
}

func writePump(c *ClientConnection) {
	defer c.Conn.Close()

	for msg := range c.Send {
		c.Conn.SetWriteDeadline(time.Now().Add(config.WSWriteDeadline))
		if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

func readPump(c *ClientConnection) {
	defer func() {
		clientUnregister <- c
		c.Conn.Close()
	}()

	for {
		// Inbound messages are ignored; the read keeps pongs and close
		// frames flowing.
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			return
		}
	}
}
