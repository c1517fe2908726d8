// Copyright 2026 Rui Dias
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package chunk splits long text into bounded, overlapping segments at
// semantic boundaries so each segment fits a model's context window.
package chunk

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// DefaultMaxChars is sized for a typical model context window with
	// headroom for the prompt scaffolding.
	DefaultMaxChars = 60000

	// DefaultOverlap is how many characters a chunk repeats from the end of
	// the previous one to preserve cross-boundary context.
	DefaultOverlap = 200

	// boundaryWindow is the fraction of the chunk window, measured from its
	// end, inside which a semantic boundary is acceptable. A boundary any
	// earlier would waste too much of the window.
	boundaryWindow = 0.3
)

// Chunk is one bounded segment of a larger input. Start and End are byte
// offsets into the original text; Total is the number of chunks the input
// produced. Chunks are transient and never persisted.
type Chunk struct {
	Index int
	Text  string
	Start int
	End   int
	Total int
}

// Chunker splits text into chunks of at most maxChars bytes, preferring
// paragraph breaks, then sentence endings, and hard-splitting only when no
// acceptable boundary exists in the tail of the window.
type Chunker struct {
	maxChars int
	overlap  int
}

// Option configures a Chunker.
type Option func(*Chunker)

// WithOverlap sets the overlap carried into each subsequent chunk.
// Hard-split chunks are always produced contiguous regardless of this
// setting, to avoid duplicating sentence fragments.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		if overlap < 0 {
			overlap = 0
		}
		c.overlap = overlap
	}
}

// New creates a Chunker. A maxChars of zero or less selects
// DefaultMaxChars. The overlap is clamped to a quarter of maxChars so a
// chunk can never consist mostly of repeated text.
func New(maxChars int, opts ...Option) *Chunker {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}

	c := &Chunker{
		maxChars: maxChars,
		overlap:  DefaultOverlap,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.overlap > c.maxChars/4 {
		c.overlap = c.maxChars / 4
	}
	return c
}

// MaxChars returns the configured chunk size ceiling.
func (c *Chunker) MaxChars() int {
	return c.maxChars
}

// Split divides text into chunks. When the text already fits, it returns a
// single chunk equal to the input. The union of [Start,End) ranges always
// covers the whole input, and no chunk exceeds maxChars.
func (c *Chunker) Split(text string) []Chunk {
	if len(text) <= c.maxChars {
		return []Chunk{{
			Index: 0,
			Text:  text,
			Start: 0,
			End:   len(text),
			Total: 1,
		}}
	}

	var chunks []Chunk
	start := 0
	for start < len(text) {
		remaining := len(text) - start
		if remaining <= c.maxChars {
			chunks = append(chunks, Chunk{
				Index: len(chunks),
				Text:  text[start:],
				Start: start,
				End:   len(text),
			})
			break
		}

		end, hard := c.findBoundary(text, start)
		chunks = append(chunks, Chunk{
			Index: len(chunks),
			Text:  text[start:end],
			Start: start,
			End:   end,
		})

		next := end
		if !hard && c.overlap > 0 {
			next = end - c.overlap
			// Overlap must still make forward progress.
			if next <= start {
				next = end
			}
			// Keep the overlap on a rune boundary.
			for next > start && !utf8.RuneStart(text[next]) {
				next--
			}
			if next <= start {
				next = end
			}
		}
		start = next
	}

	for i := range chunks {
		chunks[i].Total = len(chunks)
	}
	return chunks
}

// findBoundary picks the end offset for the chunk starting at start.
// It searches backward from the window end for a blank-line break, then for
// sentence-ending punctuation followed by whitespace. If neither exists
// inside the tail of the window, it hard-splits at the window end (aligned
// to a rune boundary) and reports hard=true.
func (c *Chunker) findBoundary(text string, start int) (end int, hard bool) {
	windowEnd := start + c.maxChars
	earliest := windowEnd - int(float64(c.maxChars)*boundaryWindow)
	if earliest < start {
		earliest = start
	}

	// Paragraph break: split after the blank line.
	if idx := strings.LastIndex(text[earliest:windowEnd], "\n\n"); idx >= 0 {
		return earliest + idx + 2, false
	}

	// Sentence ending followed by whitespace: split after the punctuation.
	for i := windowEnd - 1; i > earliest; i-- {
		b := text[i-1]
		if (b == '.' || b == '!' || b == '?') && isSpaceAt(text, i) {
			return i, false
		}
	}

	// No acceptable boundary; hard-split at the window end.
	end = windowEnd
	for end > start && !utf8.RuneStart(text[end]) {
		end--
	}
	if end == start {
		end = windowEnd
	}
	return end, true
}

func isSpaceAt(text string, i int) bool {
	r, _ := utf8.DecodeRuneInString(text[i:])
	return unicode.IsSpace(r)
}
