package services

import (
	"chat-relay/domain"
	"context"
	"log/slog"
)

type IModerationService interface {
	Moderate(ctx context.Context, request domain.ModerationRequest) (domain.Verdict, error)
}

// Moderator is the decision engine seen from the service.
type Moderator interface {
	Moderate(ctx context.Context, request domain.ModerationRequest) (domain.Verdict, error)
}

type ModerationService struct {
	log       *slog.Logger
	moderator Moderator
}

func NewModerationService(log *slog.Logger, moderator Moderator) *ModerationService {
	return &ModerationService{log: log, moderator: moderator}
}

func (s *ModerationService) Moderate(ctx context.Context, request domain.ModerationRequest) (domain.Verdict, error) {
	verdict, err := s.moderator.Moderate(ctx, request)
	if err != nil {
		return domain.Verdict{}, err
	}
	if verdict.Flagged {
		s.log.Info("Content flagged",
			"room", request.RoomID,
			"user", request.UserID,
			"user_type", request.UserType,
			"allowed", verdict.Allowed,
			"severity", verdict.Severity,
			"reason", verdict.Reason)
	}
	return verdict, nil
}
