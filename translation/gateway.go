// Package translation fans a text out to several target languages through
// lazily created, process-wide translator handles.
package translation

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/errors"
	"context"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/abadojack/whatlanggo"
)

// handle is created at most once per pair. A nil translator with a nil err
// means the pair is unsupported.
type handle struct {
	once       sync.Once
	translator contract.Translator
	err        error
}

type Gateway struct {
	log     *slog.Logger
	factory contract.TranslatorFactory

	mu      sync.Mutex
	handles map[domain.LanguagePair]*handle
}

func NewGateway(log *slog.Logger, factory contract.TranslatorFactory) *Gateway {
	return &Gateway{
		log:     log,
		factory: factory,
		handles: make(map[domain.LanguagePair]*handle),
	}
}

// Translate returns one entry per requested target language. Failures are
// reported inline for the failing language only.
func (g *Gateway) Translate(ctx context.Context, req domain.TranslationRequest) map[domain.Language]string {
	source := g.resolveSource(req.Source, req.Text)
	results := make(map[domain.Language]string, len(req.Targets))

	for _, target := range req.Targets {
		if target == source {
			results[target] = req.Text
			continue
		}

		translator, err := g.translator(ctx, domain.LanguagePair{Source: source, Target: target})
		if err != nil {
			results[target] = fmt.Sprintf("[Translation error: %v]", err)
			continue
		}
		if translator == nil {
			results[target] = fmt.Sprintf("%s [%s]", req.Text, target)
			continue
		}

		text, err := translator.Translate(ctx, req.Text)
		if err != nil {
			g.log.Warn("Translation failed", "source", source, "target", target, "error", err)
			results[target] = fmt.Sprintf("[Translation error: %v]", err)
			continue
		}
		results[target] = text
	}
	return results
}

// translator looks up or lazily creates the handle for pair. Concurrent
// callers asking for the same pair wait for a single creation.
func (g *Gateway) translator(ctx context.Context, pair domain.LanguagePair) (contract.Translator, error) {
	g.mu.Lock()
	h, ok := g.handles[pair]
	if !ok {
		h = &handle{}
		g.handles[pair] = h
	}
	g.mu.Unlock()

	h.once.Do(func() {
		h.translator, h.err = g.factory.New(ctx, pair)
		if stdErrors.Is(h.err, errors.ErrUnsupportedPair) {
			h.translator, h.err = nil, nil
			return
		}
		if h.err == nil {
			g.log.Info("Translator handle created", "source", pair.Source, "target", pair.Target)
		}
	})

	if h.err != nil {
		// Don't keep failed creations, the next request retries.
		err := h.err
		g.mu.Lock()
		if g.handles[pair] == h {
			delete(g.handles, pair)
		}
		g.mu.Unlock()
		return nil, err
	}
	return h.translator, nil
}

// resolveSource detects the language when the caller didn't set one.
func (g *Gateway) resolveSource(source domain.Language, text string) domain.Language {
	source = domain.Language(strings.ToLower(strings.TrimSpace(string(source))))
	if source != "" && source != domain.AutoDetect {
		return source
	}
	info := whatlanggo.Detect(text)
	if code := info.Lang.Iso6391(); code != "" {
		return domain.Language(code)
	}
	return domain.English
}
