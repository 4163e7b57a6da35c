package rag

import (
	"fmt"
	"regexp"
	"strings"

	"rag-chatbot-platform/models"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// Chunker splits cleaned text into fixed-size windows with overlap.
//
// Units are Unicode code points. Chunk i starts at i*(maxSize-overlap) and
// spans at most maxSize runes, so consecutive chunks share exactly overlap
// runes except possibly the last. Offsets are relative to the cleaned text.
type Chunker struct {
	maxSize int
	overlap int
}

// NewChunker validates the chunking parameters.
// Requires maxSize > 0 and 0 <= overlap < maxSize.
func NewChunker(maxSize, overlap int) (*Chunker, error) {
	if maxSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidConfig, maxSize)
	}
	if overlap < 0 || overlap >= maxSize {
		return nil, fmt.Errorf("%w: overlap must be in [0, %d), got %d", ErrInvalidConfig, maxSize, overlap)
	}
	return &Chunker{maxSize: maxSize, overlap: overlap}, nil
}

// CleanText normalizes whitespace: runs collapse to a single space and the
// result is trimmed.
func CleanText(text string) string {
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(text, " "))
}

// Split chunks text into ordered windows. Text at most maxSize runes long
// yields exactly one chunk; empty text yields none. Sequence indexes increase
// strictly from 0.
func (c *Chunker) Split(text string) []models.Chunk {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	stride := c.maxSize - c.overlap
	chunks := make([]models.Chunk, 0, (len(runes)+stride-1)/stride)

	for start, idx := 0, 0; start < len(runes); start, idx = start+stride, idx+1 {
		end := start + c.maxSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, models.Chunk{
			Index: idx,
			Text:  string(runes[start:end]),
			Start: start,
			End:   end,
		})
		if end == len(runes) {
			break
		}
	}

	return chunks
}

// MaxSize reports the configured chunk size.
func (c *Chunker) MaxSize() int { return c.maxSize }

// Overlap reports the configured overlap.
func (c *Chunker) Overlap() int { return c.overlap }
