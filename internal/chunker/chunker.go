// Package chunker splits oversized OCR documents into pieces small enough for
// a single model call, preferring markdown-friendly boundaries so each piece
// stays coherent for the editor prompt.
package chunker

import (
	"strings"
	"unicode"
)

// Split divides text into pieces each no longer than maxRunes code points.
// Splits are attempted (in order of preference) at:
//  1. Markdown heading lines ("\n#")
//  2. Paragraph boundaries (\n\n or \r\n\r\n)
//  3. Sentence-ending punctuation (. ! ?)
//  4. Whitespace (word boundary)
//  5. Hard cut at maxRunes if no suitable boundary is found
//
// If text fits within maxRunes, or maxRunes ≤ 0, a single-element slice is
// returned.
func Split(text string, maxRunes int) []string {
	if maxRunes <= 0 || len([]rune(text)) <= maxRunes {
		return []string{text}
	}

	var chunks []string
	remaining := text

	for len([]rune(remaining)) > maxRunes {
		split := findSplit(remaining, maxRunes)
		chunk := strings.TrimSpace(remaining[:split])
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		remaining = strings.TrimSpace(remaining[split:])
	}

	if strings.TrimSpace(remaining) != "" {
		chunks = append(chunks, strings.TrimSpace(remaining))
	}

	return chunks
}

// Join reassembles cleaned chunks into one document. Chunks were cut at
// heading or paragraph boundaries, so a blank line restores the structure.
func Join(chunks []string) string {
	if len(chunks) == 1 {
		return chunks[0]
	}
	return strings.Join(chunks, "\n\n")
}

// findSplit returns the byte index within text at which to split, aiming for
// at most maxRunes runes. It searches backwards from maxRunes for the best
// boundary. Byte offsets into the candidate prefix are valid offsets into
// text because the prefix is byte-aligned.
func findSplit(text string, maxRunes int) int {
	runes := []rune(text)
	if len(runes) <= maxRunes {
		return len(text)
	}

	candidate := string(runes[:maxRunes])

	// 1. Heading boundary: split just before the "#" so the heading leads the
	// next chunk.
	if idx := strings.LastIndex(candidate, "\n#"); idx > 0 {
		return idx + 1
	}

	// 2. Paragraph boundary.
	if idx := strings.LastIndex(candidate, "\n\n"); idx > 0 {
		return idx + 2
	}
	if idx := strings.LastIndex(candidate, "\r\n\r\n"); idx > 0 {
		return idx + 4
	}

	// 3. Sentence-ending punctuation followed by a space.
	cr := []rune(candidate)
	for i := len(cr) - 1; i > 0; i-- {
		if (cr[i] == '.' || cr[i] == '!' || cr[i] == '?') && i+1 < len(cr) && unicode.IsSpace(cr[i+1]) {
			return len(string(cr[:i+1]))
		}
	}

	// 4. Whitespace word boundary.
	for i := len(cr) - 1; i > 0; i-- {
		if unicode.IsSpace(cr[i]) {
			return len(string(cr[:i]))
		}
	}

	// 5. Hard cut.
	return len(candidate)
}
