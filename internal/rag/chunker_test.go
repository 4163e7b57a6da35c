package rag

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewChunker_InvalidConfig(t *testing.T) {
	cases := []struct {
		name    string
		maxSize int
		overlap int
	}{
		{"zero max size", 0, 0},
		{"negative max size", -1, 0},
		{"negative overlap", 100, -1},
		{"overlap equals max size", 100, 100},
		{"overlap exceeds max size", 100, 150},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewChunker(tc.maxSize, tc.overlap)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestChunker_SplitEmpty(t *testing.T) {
	chunker, err := NewChunker(500, 50)
	require.NoError(t, err)

	assert.Empty(t, chunker.Split(""))
}

func TestChunker_SplitShortText(t *testing.T) {
	chunker, err := NewChunker(500, 50)
	require.NoError(t, err)

	chunks := chunker.Split("hello world")
	require.Len(t, chunks, 1)
	assert.Equal(t, "hello world", chunks[0].Text)
	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, 0, chunks[0].Start)
	assert.Equal(t, 11, chunks[0].End)
}

func TestChunker_SplitLongText(t *testing.T) {
	chunker, err := NewChunker(500, 50)
	require.NoError(t, err)

	text := strings.Repeat("a", 1200)
	chunks := chunker.Split(text)

	require.Len(t, chunks, 3)
	assert.Equal(t, 0, chunks[0].Start)
	assert.Equal(t, 450, chunks[1].Start)
	assert.Equal(t, 900, chunks[2].Start)
	assert.Len(t, chunks[0].Text, 500)
	assert.Len(t, chunks[1].Text, 500)
	assert.Len(t, chunks[2].Text, 300)
}

func TestChunker_SplitCoversAllText(t *testing.T) {
	chunker, err := NewChunker(100, 20)
	require.NoError(t, err)

	text := strings.Repeat("x", 950)
	chunks := chunker.Split(text)

	// Every rune must be covered and consecutive chunks must overlap
	// by exactly the configured amount.
	covered := make([]bool, len(text))
	for _, chunk := range chunks {
		for i := chunk.Start; i < chunk.End; i++ {
			covered[i] = true
		}
	}
	for i, ok := range covered {
		require.True(t, ok, "rune %d not covered", i)
	}

	for i := 1; i < len(chunks); i++ {
		assert.Equal(t, 20, chunks[i-1].End-chunks[i].Start)
	}
}

func TestChunker_SplitZeroOverlap(t *testing.T) {
	chunker, err := NewChunker(10, 0)
	require.NoError(t, err)

	chunks := chunker.Split(strings.Repeat("b", 25))
	require.Len(t, chunks, 3)
	assert.Equal(t, 10, chunks[1].Start)
	assert.Equal(t, 20, chunks[2].Start)
	assert.Len(t, chunks[2].Text, 5)
}

func TestChunker_SplitUnicode(t *testing.T) {
	chunker, err := NewChunker(4, 1)
	require.NoError(t, err)

	chunks := chunker.Split("héllo wörld")
	require.NotEmpty(t, chunks)

	// Offsets are rune positions; no chunk may split a rune.
	for _, chunk := range chunks {
		assert.True(t, len([]rune(chunk.Text)) <= 4)
	}
	var rebuilt strings.Builder
	rebuilt.WriteString(chunks[0].Text)
	for i := 1; i < len(chunks); i++ {
		runes := []rune(chunks[i].Text)
		overlap := chunks[i-1].End - chunks[i].Start
		rebuilt.WriteString(string(runes[overlap:]))
	}
	assert.Equal(t, "héllo wörld", rebuilt.String())
}

func TestChunker_IndexesAreSequential(t *testing.T) {
	chunker, err := NewChunker(50, 10)
	require.NoError(t, err)

	chunks := chunker.Split(strings.Repeat("c", 400))
	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.Index)
	}
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "a b c", CleanText("  a\n\nb\t c  "))
	assert.Equal(t, "", CleanText("   \n\t  "))
	assert.Equal(t, "hello world", CleanText("hello world"))
}
