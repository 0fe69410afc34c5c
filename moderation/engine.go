// Package moderation evaluates user content and decides whether it may be relayed.
package moderation

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Engine runs the text and image paths and combines their verdicts.
type Engine struct {
	log   *slog.Logger
	text  *TextModerator
	image *ImageModerator
}

func NewEngine(log *slog.Logger, text *TextModerator, image *ImageModerator) *Engine {
	return &Engine{log: log, text: text, image: image}
}

// NewDefaultEngine loads the embedded dictionaries and builds an engine around
// the given collaborators. classifier and resolver may be nil.
func NewDefaultEngine(log *slog.Logger, classifier contract.Classifier, resolver contract.ImageResolver) (*Engine, error) {
	data, err := NewDefaultCensoredLoader().LoadAll("censored")
	if err != nil {
		return nil, err
	}
	log.Info(fmt.Sprintf("%d censored files loaded [%s]",
		len(data.Languages), strings.Join(data.Languages, ",")))
	log.Info(fmt.Sprintf("%d unique censored words loaded", len(data.Words)))

	terms, err := NewTermMatcher(data.Words)
	if err != nil {
		return nil, err
	}
	return NewEngine(log,
		NewTextModerator(log, terms, classifier, DefaultClassifierThreshold),
		NewImageModerator(log, resolver),
	), nil
}

// Moderate evaluates both paths. The image is always evaluated, even when the
// text verdict alone already decides the outcome.
func (e *Engine) Moderate(ctx context.Context, req domain.ModerationRequest) (domain.Verdict, error) {
	if err := ctx.Err(); err != nil {
		return domain.Verdict{}, err
	}
	textVerdict := e.text.Moderate(ctx, req.Content)
	imageVerdict := e.image.Moderate(ctx, req.ImageRef)
	verdict := Combine(textVerdict, imageVerdict)

	if !verdict.Allowed {
		e.log.Info("Content denied",
			"room", req.RoomID, "user", req.UserID, "reason", verdict.Reason, "severity", verdict.Severity)
	}
	return verdict, nil
}

// Combine picks the final verdict: a denied text wins, then a denied image,
// then the flagged verdict with the higher severity (text on ties).
func Combine(text, image domain.Verdict) domain.Verdict {
	switch {
	case !text.Allowed:
		return text
	case !image.Allowed:
		return image
	case text.Flagged || image.Flagged:
		if text.Severity.Rank() >= image.Severity.Rank() {
			return text
		}
		return image
	default:
		return domain.Allow("Content approved")
	}
}
