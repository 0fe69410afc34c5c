package moderation

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// DefaultClassifierThreshold is the confidence above which a classifier label denies content.
	DefaultClassifierThreshold = 0.7

	minShoutingLength = 10
	maxRepeatedRunes  = 5
)

// defaultSpamWords are matched as whole words, where a word boundary is any
// character that is not a Unicode letter, digit or underscore.
var defaultSpamWords = []string{
	`buy|sell|discount|offer|limited|urgent|act now`,
	`click here|visit|subscribe|join now`,
	`free|money|cash|earn|profit|investment`,
	`lottery|winner|prize|jackpot`,
	`viagra|cialis|medication|prescription`,
	`casino|poker|betting|gambling`,
}

func wholeWords(alternatives string) *regexp.Regexp {
	return regexp.MustCompile(`(?:^|[^\p{L}\p{N}_])(?:` + alternatives + `)(?:$|[^\p{L}\p{N}_])`)
}

// TextModerator applies the rule chain to text content, first match wins:
// empty, toxic terms, spam, shouting, repetition, classifier.
type TextModerator struct {
	log        *slog.Logger
	terms      *TermMatcher
	spam       []*regexp.Regexp
	classifier contract.Classifier
	threshold  float64
}

// NewTextModerator compiles the spam patterns. classifier may be nil, in which
// case the model step is skipped.
func NewTextModerator(log *slog.Logger, terms *TermMatcher, classifier contract.Classifier, threshold float64) *TextModerator {
	spam := make([]*regexp.Regexp, 0, len(defaultSpamWords))
	for _, words := range defaultSpamWords {
		spam = append(spam, wholeWords(words))
	}
	return &TextModerator{
		log:        log,
		terms:      terms,
		spam:       spam,
		classifier: classifier,
		threshold:  threshold,
	}
}

func (m *TextModerator) Moderate(ctx context.Context, content string) domain.Verdict {
	if strings.TrimSpace(content) == "" {
		return domain.Allow("Empty content")
	}

	if found := m.terms.Find(content); len(found) > 0 {
		return domain.Deny(
			fmt.Sprintf("Contains inappropriate language: %s", strings.Join(found, ", ")),
			domain.SeverityHigh,
		)
	}

	lower := strings.ToLower(content)
	for _, re := range m.spam {
		if re.MatchString(lower) {
			return domain.Deny("Detected spam content", domain.SeverityMedium)
		}
	}

	if isShouting(content) {
		return domain.Deny("Excessive use of capital letters", domain.SeverityLow)
	}

	if hasRepeatedRun(content, maxRepeatedRunes) {
		return domain.Deny("Excessive character repetition", domain.SeverityLow)
	}

	if m.classifier != nil {
		label, err := m.classifier.Classify(ctx, content)
		switch {
		case err != nil:
			m.log.Error("Text classification failed, skipping model check", "error", err)
		case label.Confidence > m.threshold:
			return domain.Deny(
				fmt.Sprintf("AI detected %s content (confidence: %.2f)", label.Label, label.Confidence),
				domain.SeverityHigh,
			)
		}
	}

	return domain.Allow("Content approved")
}

// isShouting is true when the text has cased letters, none of them lowercase,
// and is longer than minShoutingLength characters.
func isShouting(s string) bool {
	if utf8.RuneCountInString(s) <= minShoutingLength {
		return false
	}
	cased := false
	for _, r := range s {
		switch {
		case unicode.IsLower(r), unicode.IsTitle(r):
			return false
		case unicode.IsUpper(r):
			cased = true
		}
	}
	return cased
}

// hasRepeatedRun reports whether any character other than a newline occurs n times in a row.
func hasRepeatedRun(s string, n int) bool {
	var prev rune
	run := 0
	for _, r := range s {
		if r == '\n' {
			run = 0
			continue
		}
		if run > 0 && r == prev {
			run++
		} else {
			prev = r
			run = 1
		}
		if run >= n {
			return true
		}
	}
	return false
}
