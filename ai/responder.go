package ai

import (
	"chat-relay/contract"
	"context"
	"fmt"
)

const responderPrompt = "You are a friendly assistant in a real estate chat. " +
	"Answer the user's message in one or two short sentences."

type Responder struct {
	client *Client
}

var _ contract.Responder = (*Responder)(nil)

func NewResponder(client *Client) *Responder {
	return &Responder{client: client}
}

func (r *Responder) Respond(ctx context.Context, text string) (string, error) {
	return r.client.complete(ctx, responderPrompt, text, defaultMaxTokens)
}

// EchoResponder answers without any model, used when no API key is configured.
type EchoResponder struct{}

var _ contract.Responder = EchoResponder{}

func (EchoResponder) Respond(_ context.Context, text string) (string, error) {
	return fmt.Sprintf("You said: %s", text), nil
}
