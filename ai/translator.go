package ai

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/errors"
	"context"
	"fmt"
)

// SupportedPairs lists the pairs a model handle can be created for.
// Anything else falls back to the echo form.
var SupportedPairs = map[domain.LanguagePair]struct{}{
	{Source: domain.English, Target: domain.Arabic}:  {},
	{Source: domain.English, Target: domain.French}:  {},
	{Source: domain.English, Target: domain.German}:  {},
	{Source: domain.English, Target: domain.Russian}: {},
	{Source: domain.English, Target: domain.Hindi}:   {},
}

type TranslatorFactory struct {
	client *Client
}

var _ contract.TranslatorFactory = (*TranslatorFactory)(nil)

// NewTranslatorFactory returns a factory that refuses every pair when client is nil.
func NewTranslatorFactory(client *Client) *TranslatorFactory {
	return &TranslatorFactory{client: client}
}

func (f *TranslatorFactory) New(_ context.Context, pair domain.LanguagePair) (contract.Translator, error) {
	if _, ok := SupportedPairs[pair]; !ok || f.client == nil {
		return nil, fmt.Errorf("%w: %s->%s", errors.ErrUnsupportedPair, pair.Source, pair.Target)
	}
	return &translator{
		client: f.client,
		prompt: fmt.Sprintf("Translate the user's message from %s to %s. Reply with the translation only.",
			pair.Source.Name(), pair.Target.Name()),
	}, nil
}

type translator struct {
	client *Client
	prompt string
}

func (t *translator) Translate(ctx context.Context, text string) (string, error) {
	return t.client.complete(ctx, t.prompt, text, 1024)
}
