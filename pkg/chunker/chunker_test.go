package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunk_ShortTextIsOneChunk(t *testing.T) {
	chunks := Chunk("  a short page  ", ChunkOptions{ChunkSize: 100})

	require.Len(t, chunks, 1)
	assert.Equal(t, "a short page", chunks[0].Content)
	assert.Equal(t, 0, chunks[0].Index)
}

func TestChunk_PrefersParagraphBoundaries(t *testing.T) {
	text := strings.Repeat("a", 30) + "\n\n" + strings.Repeat("b", 30) + "\n\n" + strings.Repeat("c", 30)

	chunks := Chunk(text, ChunkOptions{ChunkSize: 70})

	require.Len(t, chunks, 2)
	assert.Equal(t, strings.Repeat("a", 30)+"\n\n"+strings.Repeat("b", 30), chunks[0].Content)
	assert.Equal(t, strings.Repeat("c", 30), chunks[1].Content)
}

func TestChunk_RespectsSizeAndCoversText(t *testing.T) {
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 200)

	chunks := Chunk(text, ChunkOptions{ChunkSize: 300})

	require.Greater(t, len(chunks), 1)
	var rebuilt strings.Builder
	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
		assert.LessOrEqual(t, utf8.RuneCountInString(c.Content), 300)
		assert.Equal(t, strings.TrimSpace(text[c.Start:c.End]), c.Content)
		rebuilt.WriteString(text[c.Start:c.End])
	}
	assert.Equal(t, text, rebuilt.String())
}

func TestChunk_UnbrokenTextFallsBackToFixedSplit(t *testing.T) {
	text := strings.Repeat("é", 25)

	chunks := Chunk(text, ChunkOptions{ChunkSize: 10})

	require.Len(t, chunks, 3)
	assert.Equal(t, strings.Repeat("é", 10), chunks[0].Content)
	assert.Equal(t, strings.Repeat("é", 5), chunks[2].Content)
}

func TestChunk_Overlap(t *testing.T) {
	text := "one two three four five six"

	chunks := Chunk(text, ChunkOptions{ChunkSize: 10, ChunkOverlap: 4})

	require.Greater(t, len(chunks), 1)
	prev := chunks[0]
	next := chunks[1]
	assert.Less(t, next.Start, prev.End)
}

func TestChunk_BlankInput(t *testing.T) {
	assert.Empty(t, Chunk(" \n\n ", DefaultOptions()))
}
