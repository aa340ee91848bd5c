package notify

import (
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
)

// Hub fans events out to the websocket connections of a game room. One
// connection per (game, player); a reconnect replaces the previous socket.
type Hub struct {
	logger *slog.Logger

	mu    sync.Mutex
	rooms map[int64]map[int64]*websocket.Conn
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		logger: logger,
		rooms:  make(map[int64]map[int64]*websocket.Conn),
	}
}

func (h *Hub) Register(gameID int64, playerID int64, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[gameID]
	if !ok {
		room = make(map[int64]*websocket.Conn)
		h.rooms[gameID] = room
	}
	if previous, ok := room[playerID]; ok {
		_ = previous.Close()
	}
	room[playerID] = conn
}

// Unregister drops the player's connection. The conn must match what is
// registered so a stale reader goroutine cannot evict a fresh reconnect.
func (h *Hub) Unregister(gameID int64, playerID int64, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[gameID]
	if !ok {
		return
	}
	if current, ok := room[playerID]; !ok || current != conn {
		return
	}
	delete(room, playerID)
	if len(room) == 0 {
		delete(h.rooms, gameID)
	}
}

// Publish sends the event to every player in the room, or only to the
// addressed player when the event is private. Connections that fail to write
// are dropped; the client is expected to reconnect and re-request state.
func (h *Hub) Publish(event Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[event.GameID]
	if !ok {
		return
	}
	for playerID, conn := range room {
		if event.Private && playerID != event.PlayerID {
			continue
		}
		if err := conn.WriteJSON(event); err != nil {
			h.logger.Warn("dropping stale game connection",
				"game_id", event.GameID,
				"player_id", playerID,
				"error", err,
			)
			_ = conn.Close()
			delete(room, playerID)
		}
	}
	if len(room) == 0 {
		delete(h.rooms, event.GameID)
	}
}
