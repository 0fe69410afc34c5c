package ai

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/errors"
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

const classifierPrompt = `You are a content moderation classifier. ` +
	`Classify the user's message into exactly one label among ` +
	`toxic, severe_toxic, obscene, threat, insult, identity_hate, none. ` +
	`Reply with JSON only: {"label": "<label>", "confidence": <number between 0 and 1>}.`

const noneLabel = "none"

type Classifier struct {
	client *Client
}

var _ contract.Classifier = (*Classifier)(nil)

func NewClassifier(client *Client) *Classifier {
	return &Classifier{client: client}
}

// Classify returns the top label. A "none" label always carries a zero confidence.
func (c *Classifier) Classify(ctx context.Context, text string) (domain.Classification, error) {
	answer, err := c.client.complete(ctx, classifierPrompt, text, 64)
	if err != nil {
		return domain.Classification{}, fmt.Errorf("%w: %v", errors.ErrClassifier, err)
	}
	return parseClassification(answer)
}

func parseClassification(answer string) (domain.Classification, error) {
	answer = strings.TrimSpace(answer)
	answer = strings.TrimPrefix(answer, "```json")
	answer = strings.TrimPrefix(answer, "```")
	answer = strings.TrimSuffix(answer, "```")

	var raw struct {
		Label      string  `json:"label"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(answer)), &raw); err != nil {
		return domain.Classification{}, fmt.Errorf("%w: unreadable answer %q", errors.ErrClassifier, answer)
	}
	label := strings.ToLower(strings.TrimSpace(raw.Label))
	if label == "" || label == noneLabel {
		return domain.Classification{Label: noneLabel}, nil
	}
	if raw.Confidence < 0 || raw.Confidence > 1 {
		return domain.Classification{}, fmt.Errorf("%w: confidence out of range %v", errors.ErrClassifier, raw.Confidence)
	}
	return domain.Classification{Label: label, Confidence: raw.Confidence}, nil
}
