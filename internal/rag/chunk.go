package rag

import (
	"strings"
	"unicode"
)

const (
	// DefaultChunkSize is the target chunk length in characters.
	DefaultChunkSize = 500
	// boundaryLookback is how far back from the target length a chunk may
	// end to land on a natural boundary.
	boundaryLookback = 100
)

// ChunkText splits text into segments of roughly size characters, preferring
// to break at paragraph, sentence, or word boundaries within the lookback
// window. Whitespace at chunk edges is trimmed; no other content is lost.
// A non-positive size falls back to DefaultChunkSize.
func ChunkText(text string, size int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}

	runes := []rune(text)
	var chunks []string
	pos := 0
	for pos < len(runes) {
		for pos < len(runes) && unicode.IsSpace(runes[pos]) {
			pos++
		}
		if pos >= len(runes) {
			break
		}

		end := pos + size
		if end >= len(runes) {
			if chunk := strings.TrimSpace(string(runes[pos:])); chunk != "" {
				chunks = append(chunks, chunk)
			}
			break
		}

		cut := breakPoint(runes, pos, end)
		if chunk := strings.TrimSpace(string(runes[pos:cut])); chunk != "" {
			chunks = append(chunks, chunk)
		}
		pos = cut
	}
	return chunks
}

// breakPoint picks where to end the chunk starting at start with target end.
// It scans backwards through the lookback window for, in order of preference,
// a paragraph break, a sentence end, a line break, then a word break. With no
// boundary in the window it cuts hard at end.
func breakPoint(runes []rune, start, end int) int {
	windowStart := end - boundaryLookback
	if windowStart <= start {
		windowStart = start + 1
	}

	for i := end - 1; i >= windowStart; i-- {
		if runes[i] == '\n' && runes[i-1] == '\n' {
			return i + 1
		}
	}
	for i := end - 1; i >= windowStart; i-- {
		c := runes[i]
		if (c == '.' || c == '!' || c == '?') && unicode.IsSpace(runes[i+1]) {
			return i + 1
		}
	}
	for i := end - 1; i >= windowStart; i-- {
		if runes[i] == '\n' {
			return i + 1
		}
	}
	for i := end - 1; i >= windowStart; i-- {
		if runes[i] == ' ' {
			return i + 1
		}
	}
	return end
}
