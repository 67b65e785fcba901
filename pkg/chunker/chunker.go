package chunker

import (
	"strings"
	"unicode/utf8"
)

type ChunkOptions struct {
	ChunkSize    int // target chunk size in characters
	ChunkOverlap int // characters repeated from the end of the previous chunk
}

type TextChunk struct {
	Content string
	Index   int
	Start   int // byte offset into the source text
	End     int
}

func DefaultOptions() ChunkOptions {
	return ChunkOptions{
		ChunkSize:    4000,
		ChunkOverlap: 200,
	}
}

// separators are tried in order: paragraphs (and page breaks), lines,
// sentences, words.
var separators = []string{"\n\n", "\n", ". ", " "}

// Chunk splits text into pieces of at most opts.ChunkSize characters,
// preferring the coarsest separator that fits. Blank pieces are dropped.
func Chunk(text string, opts ChunkOptions) []TextChunk {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultOptions().ChunkSize
	}
	if opts.ChunkOverlap < 0 || opts.ChunkOverlap >= opts.ChunkSize {
		opts.ChunkOverlap = 0
	}

	var chunks []TextChunk
	for _, sp := range splitRecursive(text, 0, separators, opts.ChunkSize) {
		start, end := sp.start, sp.end
		if opts.ChunkOverlap > 0 && len(chunks) > 0 {
			start = backRunes(text, start, opts.ChunkOverlap)
		}
		content := strings.TrimSpace(text[start:end])
		if content == "" {
			continue
		}
		chunks = append(chunks, TextChunk{
			Content: content,
			Index:   len(chunks),
			Start:   start,
			End:     end,
		})
	}
	return chunks
}

type span struct{ start, end int }

func splitRecursive(text string, offset int, seps []string, size int) []span {
	if utf8.RuneCountInString(text) <= size {
		return []span{{offset, offset + len(text)}}
	}
	if len(seps) == 0 {
		return splitFixed(text, offset, size)
	}

	sep := seps[0]
	var out []span
	curStart, curEnd := 0, 0
	pos := 0
	for _, part := range strings.SplitAfter(text, sep) {
		partEnd := pos + len(part)
		if curEnd > curStart && utf8.RuneCountInString(text[curStart:partEnd]) > size {
			out = append(out, splitRecursive(text[curStart:curEnd], offset+curStart, seps[1:], size)...)
			curStart = pos
		}
		curEnd = partEnd
		pos = partEnd
	}
	if curEnd > curStart {
		out = append(out, splitRecursive(text[curStart:curEnd], offset+curStart, seps[1:], size)...)
	}
	return out
}

func splitFixed(text string, offset, size int) []span {
	var out []span
	start, n := 0, 0
	for i := range text {
		if n == size {
			out = append(out, span{offset + start, offset + i})
			start, n = i, 0
		}
		n++
	}
	if start < len(text) {
		out = append(out, span{offset + start, offset + len(text)})
	}
	return out
}

// backRunes moves pos back by up to n runes within text.
func backRunes(text string, pos, n int) int {
	for ; n > 0 && pos > 0; n-- {
		_, w := utf8.DecodeLastRuneInString(text[:pos])
		pos -= w
	}
	return pos
}
