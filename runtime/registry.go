package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"context"
	"log/slog"
	"sync"
)

// session owns the single live connection of a room.
// mu serializes writes on that connection.
type session struct {
	mu   sync.Mutex
	conn contract.Connection
}

type Registry struct {
	mu       sync.RWMutex
	log      *slog.Logger
	sessions map[domain.RoomID]*session // map room -> live connection
}

var _ contract.IRegistry = (*Registry)(nil)

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		log:      log,
		sessions: make(map[domain.RoomID]*session),
	}
}

// Connect completes the handshake then registers conn for the room.
// A previous connection for the same room is replaced but not closed;
// its own reader ends it.
func (r *Registry) Connect(ctx context.Context, roomID domain.RoomID, conn contract.Connection) error {
	if err := conn.Accept(ctx); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[roomID]; ok {
		r.log.Info("Room connection replaced", "room", roomID)
	}
	r.sessions[roomID] = &session{conn: conn}
	return nil
}

// Disconnect removes the room mapping. Unknown rooms are ignored.
func (r *Registry) Disconnect(roomID domain.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, roomID)
}

// Leave removes the mapping only while conn is still the room's connection,
// so a replaced connection closing late can't evict its successor.
func (r *Registry) Leave(roomID domain.RoomID, conn contract.Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[roomID]; ok && s.conn == conn {
		delete(r.sessions, roomID)
	}
}

// Send delivers text to the room's connection. A room without connection is
// a silent drop. A transport failure evicts the session and is returned.
func (r *Registry) Send(ctx context.Context, roomID domain.RoomID, text string) error {
	r.mu.RLock()
	s, ok := r.sessions[roomID]
	r.mu.RUnlock()
	if !ok {
		r.log.Debug("No live connection for room, dropping", "room", roomID)
		return nil
	}

	s.mu.Lock()
	err := s.conn.Send(ctx, text)
	s.mu.Unlock()
	if err == nil {
		return nil
	}

	r.mu.Lock()
	if r.sessions[roomID] == s {
		delete(r.sessions, roomID)
	}
	r.mu.Unlock()
	return err
}

// Rooms returns the number of rooms with a live connection.
func (r *Registry) Rooms() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
