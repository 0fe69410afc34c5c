package ws

import (
	"chat-relay/domain"
	"chat-relay/services"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
)

// RoomHandler serves one live connection per request: the client is joined to
// its room, every inbound frame is relayed, and the room is left on exit.
type RoomHandler struct {
	log      *slog.Logger
	chat     services.IChatService
	upgrader *websocket.Upgrader
	roomID   func(r *http.Request) domain.RoomID
}

func NewRoomHandler(log *slog.Logger, chat services.IChatService, upgrader *websocket.Upgrader,
	roomID func(r *http.Request) domain.RoomID) *RoomHandler {
	return &RoomHandler{log: log, chat: chat, upgrader: upgrader, roomID: roomID}
}

func (h *RoomHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	roomID := h.roomID(r)
	if roomID.IsZero() {
		http.Error(w, "room_id is required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	conn := NewConnection(h.upgrader, w, r)
	if err := h.chat.JoinRoom(ctx, roomID, conn); err != nil {
		h.log.Warn("Join failed", "room", roomID, "error", err)
		return
	}
	defer func() {
		h.chat.LeaveRoom(roomID, conn)
		_ = conn.Close()
	}()

	for {
		text, err := conn.Receive(ctx)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.Debug("Connection read failed", "room", roomID, "error", err)
			}
			return
		}
		if err = h.chat.PostMessage(ctx, roomID, text); err != nil {
			h.log.Error("Relay failed", "room", roomID, "error", err)
		}
	}
}
