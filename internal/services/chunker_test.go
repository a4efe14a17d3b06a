package services

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkText_shortTextIsOneChunk(t *testing.T) {
	chunks := NewTextChunker().ChunkText("History of asthma.\n\nNo surgery.", 100, 10)
	assert.Equal(t, []string{"History of asthma.\n\nNo surgery."}, chunks)
}

func TestChunkText_emptyText(t *testing.T) {
	assert.Empty(t, NewTextChunker().ChunkText("  \n\n ", 100, 10))
}

func TestChunkText_respectsMaxSize(t *testing.T) {
	var paras []string
	for i := 0; i < 30; i++ {
		paras = append(paras, strings.Repeat("Patient reports mild wheeze. ", 5))
	}
	paras = append(paras, strings.Repeat("x", 500))
	text := strings.Join(paras, "\n\n")

	const max = 200
	chunks := NewTextChunker().ChunkText(text, max, 40)
	require.Greater(t, len(chunks), 1)

	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), max)
		assert.NotEmpty(t, strings.TrimSpace(c))
	}
}

func TestChunkText_overlapCarriesTail(t *testing.T) {
	text := strings.Repeat("a", 60) + "\n\n" + strings.Repeat("b", 60)
	chunks := NewTextChunker().ChunkText(text, 80, 10)

	require.Len(t, chunks, 2)
	assert.True(t, strings.HasPrefix(chunks[1], strings.Repeat("a", 10)))
}

func TestSplitIntoSentences(t *testing.T) {
	got := splitIntoSentences("One. Two! Three? four")
	assert.Equal(t, []string{"One.", "Two!", "Three?", "four"}, got)
}

func TestGetLastNChars(t *testing.T) {
	assert.Equal(t, "ëf", getLastNChars("abcdëf", 2))
	assert.Equal(t, "ab", getLastNChars("ab", 5))
	assert.Equal(t, "", getLastNChars("ab", 0))
}
