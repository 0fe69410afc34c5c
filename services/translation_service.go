package services

import (
	"chat-relay/domain"
	"context"
	"strings"

	"github.com/samber/lo"
)

type ITranslationService interface {
	Translate(ctx context.Context, text, source string, targets []string) map[string]string
}

// Translator is the translation gateway seen from the service.
type Translator interface {
	Translate(ctx context.Context, request domain.TranslationRequest) map[domain.Language]string
}

type TranslationService struct {
	translator Translator
}

func NewTranslationService(translator Translator) *TranslationService {
	return &TranslationService{translator: translator}
}

// Translate returns one entry per requested target, keyed by the code exactly
// as the caller wrote it. Codes are normalized only to pick the translator,
// so "FR" and "fr" share one translation.
func (s *TranslationService) Translate(ctx context.Context, text, source string, targets []string) map[string]string {
	if len(targets) == 0 {
		return map[string]string{}
	}
	languages := lo.Uniq(lo.Map(targets, func(code string, _ int) domain.Language {
		return normalizeLanguage(code)
	}))

	translated := s.translator.Translate(ctx, domain.TranslationRequest{
		Text:    text,
		Source:  normalizeLanguage(source),
		Targets: languages,
	})
	return lo.SliceToMap(targets, func(code string) (string, string) {
		return code, translated[normalizeLanguage(code)]
	})
}

func normalizeLanguage(code string) domain.Language {
	return domain.Language(strings.ToLower(strings.TrimSpace(code)))
}
