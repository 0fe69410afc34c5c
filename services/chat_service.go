package services

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"context"
	"time"
)

type IChatService interface {
	JoinRoom(ctx context.Context, roomID domain.RoomID, conn contract.Connection) error
	LeaveRoom(roomID domain.RoomID, conn contract.Connection)
	PostMessage(ctx context.Context, roomID domain.RoomID, text string) error
}

type ChatService struct {
	orchestrator   contract.IOrchestrator
	publishTimeout time.Duration
}

// NewChatService relays through o. A zero publishTimeout means no deadline
// beyond the caller's context.
func NewChatService(o contract.IOrchestrator, publishTimeout time.Duration) *ChatService {
	return &ChatService{orchestrator: o, publishTimeout: publishTimeout}
}

func (s *ChatService) JoinRoom(ctx context.Context, roomID domain.RoomID, conn contract.Connection) error {
	return s.orchestrator.Join(ctx, roomID, conn)
}

func (s *ChatService) LeaveRoom(roomID domain.RoomID, conn contract.Connection) {
	s.orchestrator.Leave(roomID, conn)
}

func (s *ChatService) PostMessage(ctx context.Context, roomID domain.RoomID, text string) error {
	if s.publishTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.publishTimeout)
		defer cancel()
	}
	return s.orchestrator.Relay(ctx, roomID, text)
}
