// Package chunker splits extracted document text into overlapping chunks for
// embedding. Cuts prefer natural boundaries so chunks stay readable: a
// paragraph break beats a line break, a line break beats a sentence end, a
// sentence end beats a word boundary, and only as a last resort does a chunk
// end mid-word.
package chunker

import (
	"errors"
	"strings"
)

// Defaults chosen for embedding models with ~8k token context: large enough
// to keep a topic together, small enough that retrieval stays precise.
const (
	DefaultChunkSize = 1000
	DefaultOverlap   = 200
)

var (
	ErrInvalidChunkSize = errors.New("chunker: chunk size must be positive")
	ErrInvalidOverlap   = errors.New("chunker: overlap must be non-negative and smaller than chunk size")
)

// Splitter splits text into chunks of at most chunkSize runes, with
// consecutive chunks sharing overlap runes.
type Splitter struct {
	chunkSize int
	overlap   int
}

// New creates a Splitter with explicit sizes, both measured in runes.
func New(chunkSize, overlap int) (*Splitter, error) {
	if chunkSize <= 0 {
		return nil, ErrInvalidChunkSize
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, ErrInvalidOverlap
	}
	return &Splitter{chunkSize: chunkSize, overlap: overlap}, nil
}

// Default returns a Splitter with DefaultChunkSize and DefaultOverlap.
func Default() *Splitter {
	return &Splitter{chunkSize: DefaultChunkSize, overlap: DefaultOverlap}
}

// Split breaks text into chunks. Every chunk except the last has at most
// chunkSize runes, and each chunk starts overlap runes before the previous
// chunk's end, so no boundary-spanning content is lost. Whitespace-only input
// yields no chunks.
func (s *Splitter) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	runes := []rune(text)
	var chunks []string

	start := 0
	for start < len(runes) {
		end := start + s.chunkSize
		if end >= len(runes) {
			chunks = append(chunks, string(runes[start:]))
			break
		}

		end = s.findBreak(runes, start, end)
		chunks = append(chunks, string(runes[start:end]))

		next := end - s.overlap
		if next <= start {
			// Guard against a boundary cut so early that overlap would
			// walk the window backwards.
			next = start + 1
		}
		start = next
	}

	return chunks
}

// findBreak picks the cut position for the window runes[start:limit].
// It scans backwards from the window end for the strongest boundary, but
// never accepts one in the first half of the window; a cut that early would
// produce fragment chunks.
func (s *Splitter) findBreak(runes []rune, start, limit int) int {
	window := string(runes[start:limit])
	minBreak := s.chunkSize / 2

	for _, boundary := range []string{"\n\n", "\n", ". ", "! ", "? ", " "} {
		if idx := strings.LastIndex(window, boundary); idx >= 0 {
			// Cut after the boundary so the separator stays with the
			// preceding chunk.
			cut := len([]rune(window[:idx])) + len([]rune(boundary))
			if cut > minBreak {
				return start + cut
			}
		}
	}

	return limit
}
