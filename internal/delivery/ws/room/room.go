package ws_room

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/humanbelnik/boardmate/internal/model"
	"github.com/rs/zerolog"
)

const sendBuffer = 256

type Client struct {
	Hub    *Hub
	Conn   *websocket.Conn
	Send   chan []byte
	RoomID uuid.UUID
	UserID uuid.UUID
}

func NewClient(hub *Hub, conn *websocket.Conn, roomID, userID uuid.UUID) *Client {
	return &Client{
		Hub:    hub,
		Conn:   conn,
		Send:   make(chan []byte, sendBuffer),
		RoomID: roomID,
		UserID: userID,
	}
}

// Hub fans committed room events out to the websocket subscribers of that room.
type Hub struct {
	mu sync.Mutex

	// Keep track of sets of Clients within each room
	rooms map[uuid.UUID]map[*Client]bool

	logger zerolog.Logger
}

func New(logger zerolog.Logger) *Hub {
	return &Hub{
		rooms:  make(map[uuid.UUID]map[*Client]bool),
		logger: logger,
	}
}

func (h *Hub) RegisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.rooms[client.RoomID]; !ok {
		h.rooms[client.RoomID] = make(map[*Client]bool)
	}
	h.rooms[client.RoomID][client] = true

	h.logger.Info().Str("room_id", client.RoomID.String()).Msg("client registered")
}

func (h *Hub) RemoveClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.drop(client)
	h.logger.Info().Str("room_id", client.RoomID.String()).Msg("client unregistered")
}

// drop must be called with mu held. Send is closed exactly once.
func (h *Hub) drop(client *Client) {
	room, ok := h.rooms[client.RoomID]
	if !ok {
		return
	}
	if _, ok := room[client]; !ok {
		return
	}
	delete(room, client)
	close(client.Send)
	if len(room) == 0 {
		delete(h.rooms, client.RoomID)
	}
}

func (h *Hub) Subscribers(roomID uuid.UUID) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[roomID])
}

// Notify never blocks on a slow client: a client whose buffer is full is dropped.
func (h *Hub) Notify(ctx context.Context, event model.RoomEvent) error {
	message, err := json.Marshal(event)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.rooms[event.RoomID] {
		select {
		case client.Send <- message:
		default:
			h.logger.Warn().
				Str("room_id", event.RoomID.String()).
				Str("user_id", client.UserID.String()).
				Msg("dropping slow client")
			h.drop(client)
		}
	}
	return nil
}

func (h *Hub) StartClientReading(client *Client) {
	defer func() {
		h.RemoveClient(client)
		client.Conn.Close()
	}()

	for {
		if _, _, err := client.Conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (h *Hub) StartClientWriting(client *Client) {
	defer client.Conn.Close()

	for message := range client.Send {
		if err := client.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
			break
		}
	}
	_ = client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
}
