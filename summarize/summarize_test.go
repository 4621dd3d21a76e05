package summarize

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractiveLeadingSentences(t *testing.T) {
	e := NewExtractive()
	text := "First sentence. Second sentence! Third sentence? Fourth sentence."

	got, err := e.Summarize(context.Background(), text)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(got, "First sentence."), "leading sentence should be kept: %q", got)
	assert.NotContains(t, got, "Fourth", "sentence bound should drop later sentences")
}

func TestExtractiveCollapsesWhitespace(t *testing.T) {
	e := NewExtractive()
	got, err := e.Summarize(context.Background(), "Line one.\n\n\n   Line   two.")
	require.NoError(t, err)
	assert.NotContains(t, got, "\n")
	assert.NotContains(t, got, "  ")
}

func TestExtractiveLengthBound(t *testing.T) {
	e := &Extractive{MaxSentences: 10, MaxChars: 40}
	long := strings.Repeat("word ", 50) + "."

	got, err := e.Summarize(context.Background(), long)
	require.NoError(t, err)
	// allow the ellipsis rune on top of the cut point
	assert.LessOrEqual(t, len(got), 45, "summary too long: %q", got)
	assert.True(t, strings.HasSuffix(got, "…"), "expected truncation marker, got %q", got)
}

func TestExtractiveEmptyInput(t *testing.T) {
	e := NewExtractive()
	got, err := e.Summarize(context.Background(), "   \n  ")
	require.NoError(t, err)
	assert.Empty(t, got)
}
