// ABOUTME: Summarizer boundary and the default local extractive implementation
// ABOUTME: Model-backed summarizers plug in behind the same interface
package summarize

import (
	"context"
	"strings"
)

// Summarizer turns message text into a short summary. Implementations are
// pure request/response transforms with no state of their own.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

const (
	defaultMaxSentences = 3
	defaultMaxChars     = 280
)

// Extractive is the built-in summarizer: the leading sentences of the text,
// bounded in count and length. It keeps the repo useful without a model
// backend configured.
type Extractive struct {
	MaxSentences int
	MaxChars     int
}

func NewExtractive() *Extractive {
	return &Extractive{
		MaxSentences: defaultMaxSentences,
		MaxChars:     defaultMaxChars,
	}
}

func (e *Extractive) Summarize(_ context.Context, text string) (string, error) {
	text = strings.TrimSpace(collapseWhitespace(text))
	if text == "" {
		return "", nil
	}

	sentences := splitSentences(text)
	if len(sentences) > e.MaxSentences {
		sentences = sentences[:e.MaxSentences]
	}

	summary := strings.Join(sentences, " ")
	if len(summary) > e.MaxChars {
		cut := strings.LastIndex(summary[:e.MaxChars], " ")
		if cut <= 0 {
			cut = e.MaxChars
		}
		summary = strings.TrimRight(summary[:cut], " ,;:") + "…"
	}

	return summary, nil
}

func collapseWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// splitSentences breaks on terminal punctuation followed by a space. Good
// enough for email prose; abbreviations over-split harmlessly.
func splitSentences(text string) []string {
	var sentences []string
	start := 0
	for i := 0; i < len(text)-1; i++ {
		switch text[i] {
		case '.', '!', '?':
			if text[i+1] == ' ' {
				sentences = append(sentences, strings.TrimSpace(text[start:i+1]))
				start = i + 2
			}
		}
	}
	if start < len(text) {
		sentences = append(sentences, strings.TrimSpace(text[start:]))
	}
	return sentences
}
