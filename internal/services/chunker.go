package services

import (
	"strings"
	"unicode/utf8"
)

// TextChunker splits document text into windows small enough for a single
// condition extraction call.
type TextChunker interface {
	ChunkText(text string, maxChunkSize int, overlap int) []string
}

type textChunker struct{}

func NewTextChunker() TextChunker {
	return &textChunker{}
}

// ChunkText packs paragraphs into chunks of at most maxChunkSize runes.
// Paragraphs that are too long are packed sentence by sentence, and a
// sentence that is still too long is cut at the rune limit. Each new chunk
// starts with the last overlap runes of the previous one so terms that
// straddle a boundary are seen whole at least once.
func (tc *textChunker) ChunkText(text string, maxChunkSize int, overlap int) []string {
	if maxChunkSize <= 0 {
		maxChunkSize = 4000
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= maxChunkSize {
		overlap = maxChunkSize / 4
	}

	p := &chunkPacker{max: maxChunkSize, overlap: overlap}

	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}

		if utf8.RuneCountInString(para) <= maxChunkSize {
			p.add(para, "\n\n")
			continue
		}

		for _, sentence := range splitIntoSentences(para) {
			for _, piece := range splitByRunes(sentence, maxChunkSize-overlap-1) {
				p.add(piece, " ")
			}
		}
	}

	return p.finish()
}

type chunkPacker struct {
	max     int
	overlap int
	chunks  []string
	current strings.Builder
	size    int
}

func (p *chunkPacker) add(piece, sep string) {
	n := utf8.RuneCountInString(piece)
	if p.size > 0 && p.size+len(sep)+n > p.max {
		p.flush()
		if p.size > 0 && p.size+len(sep)+n > p.max {
			p.current.Reset()
			p.size = 0
		}
	}
	if p.size > 0 {
		p.current.WriteString(sep)
		p.size += len(sep)
	}
	p.current.WriteString(piece)
	p.size += n
}

func (p *chunkPacker) flush() {
	prev := p.current.String()
	p.chunks = append(p.chunks, prev)
	p.current.Reset()
	p.size = 0

	if p.overlap > 0 {
		tail := strings.TrimSpace(getLastNChars(prev, p.overlap))
		if tail != "" {
			p.current.WriteString(tail)
			p.size = utf8.RuneCountInString(tail)
		}
	}
}

func (p *chunkPacker) finish() []string {
	if p.size > 0 {
		p.chunks = append(p.chunks, p.current.String())
	}
	return p.chunks
}

// splitIntoSentences keeps terminal punctuation attached to its sentence.
func splitIntoSentences(text string) []string {
	var result []string
	start := 0
	for i, r := range text {
		if r == '.' || r == '!' || r == '?' {
			s := strings.TrimSpace(text[start : i+1])
			if s != "" {
				result = append(result, s)
			}
			start = i + 1
		}
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		result = append(result, s)
	}
	return result
}

func splitByRunes(text string, size int) []string {
	if size <= 0 {
		size = 1
	}
	runes := []rune(text)
	if len(runes) <= size {
		return []string{text}
	}
	var out []string
	for len(runes) > 0 {
		n := size
		if len(runes) < n {
			n = len(runes)
		}
		out = append(out, string(runes[:n]))
		runes = runes[n:]
	}
	return out
}

func getLastNChars(text string, n int) string {
	if n <= 0 {
		return ""
	}

	runes := []rune(text)
	if len(runes) <= n {
		return text
	}

	return string(runes[len(runes)-n:])
}
