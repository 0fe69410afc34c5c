package ai

import (
	"chat-relay/contract"
	"context"
	"log/slog"
	"strings"
)

const (
	propertyKeyword  = "property"
	noPropertyAccess = "I can't access property information right now."
)

// Assistant decides how a user message is answered: property questions go to
// the datastore, everything else to the conversational responder.
type Assistant struct {
	log        *slog.Logger
	responder  contract.Responder
	properties contract.PropertyLookup
}

var _ contract.Assistant = (*Assistant)(nil)

// NewAssistant builds an assistant. properties may be nil when no datastore is configured.
func NewAssistant(log *slog.Logger, responder contract.Responder, properties contract.PropertyLookup) *Assistant {
	return &Assistant{log: log, responder: responder, properties: properties}
}

func (a *Assistant) Reply(ctx context.Context, text string) (string, error) {
	if IsPropertyQuestion(text) {
		if a.properties == nil {
			return noPropertyAccess, nil
		}
		answer, err := a.properties.Describe(ctx, text)
		if err != nil {
			a.log.Warn("Property lookup failed", "error", err)
			return noPropertyAccess, nil
		}
		return answer, nil
	}
	return a.responder.Respond(ctx, text)
}

func IsPropertyQuestion(text string) bool {
	return strings.Contains(strings.ToLower(text), propertyKeyword)
}
