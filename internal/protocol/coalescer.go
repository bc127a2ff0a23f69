package protocol

import "unicode/utf8"

// Coalescer batches raw completion deltas into phrase-sized chunks so the
// websocket does not carry one frame per token. Segments are cut at
// punctuation or whitespace boundaries and concatenating every emitted chunk
// reproduces the full text exactly.
type Coalescer struct {
	buffer          string
	emittedAnyChunk bool
}

const (
	coalesceFirstChunkMin = 24
	coalesceNextChunkMin  = 42
	coalesceCutWindow     = 44
)

func NewCoalescer() *Coalescer {
	return &Coalescer{}
}

// Push appends a delta and returns any chunks ready for emission.
func (c *Coalescer) Push(delta string) []string {
	if delta == "" {
		return nil
	}
	c.buffer += delta
	return c.flush(false)
}

// Finalize drains whatever is buffered, regardless of size.
func (c *Coalescer) Finalize() []string {
	return c.flush(true)
}

func (c *Coalescer) flush(force bool) []string {
	var out []string
	for {
		minChars := coalesceNextChunkMin
		if !c.emittedAnyChunk {
			minChars = coalesceFirstChunkMin
		}
		segment, rest, ok := nextSegment(c.buffer, minChars, force)
		if !ok {
			break
		}
		c.buffer = rest
		c.emittedAnyChunk = true
		out = append(out, segment)
	}
	return out
}

func nextSegment(input string, minChars int, force bool) (segment, rest string, ok bool) {
	if input == "" {
		return "", "", false
	}
	if force {
		return input, "", true
	}
	if len(input) < minChars {
		return "", input, false
	}

	if idx := punctuationBoundary(input, minChars); idx >= 0 {
		return input[:idx+1], input[idx+1:], true
	}

	cut := whitespaceBoundary(input, minChars, coalesceCutWindow)
	if cut <= 0 {
		return "", input, false
	}
	return input[:cut], input[cut:], true
}

func punctuationBoundary(input string, minChars int) int {
	for i := minChars - 1; i < len(input); i++ {
		switch input[i] {
		case '.', '!', '?', ';', ':', ',', '\n':
			return i
		}
	}
	return -1
}

func whitespaceBoundary(input string, minChars int, window int) int {
	if len(input) <= minChars {
		return len(input)
	}
	limit := minChars + window
	if limit > len(input) {
		limit = len(input)
	}
	for i := minChars; i < limit; i++ {
		switch input[i] {
		case ' ', '\t', '\n', '\r':
			return i
		}
	}
	// No whitespace in the window; cut at the size floor, backed off so a
	// multibyte rune is never split across chunks.
	cut := minChars
	for cut > 0 && !utf8.RuneStart(input[cut]) {
		cut--
	}
	return cut
}
