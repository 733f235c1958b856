package chattest

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/gorilla/websocket"

	"chat-client/internal/models"
)

// hub tracks the live connections per room and fans messages out to
// every one of them, the sender included. The echo-to-sender is the
// behavior the client's reconciliation logic exists to absorb.
type hub struct {
	mu    sync.Mutex
	rooms map[string]map[*websocket.Conn]bool
}

func newHub() *hub {
	return &hub{rooms: make(map[string]map[*websocket.Conn]bool)}
}

func (h *hub) add(roomID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[roomID]; !ok {
		h.rooms[roomID] = make(map[*websocket.Conn]bool)
	}
	h.rooms[roomID][conn] = true
}

func (h *hub) remove(roomID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.rooms[roomID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

func (h *hub) broadcast(roomID string, msg models.Message) {
	payload, _ := json.Marshal(msg)
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.rooms[roomID] {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			log.Printf("chattest: websocket write error: %v", err)
			conn.Close()
			delete(h.rooms[roomID], conn)
		}
	}
}

// dropRoom force-closes every connection in a room without a close
// handshake, so clients observe an abnormal drop.
func (h *hub) dropRoom(roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.rooms[roomID] {
		conn.Close()
	}
	delete(h.rooms, roomID)
}

func (h *hub) roomSize(roomID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[roomID])
}
