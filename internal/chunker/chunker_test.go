package chunker

import (
	"strings"
	"testing"
)

func TestSplitSmallTextReturnsSingleChunk(t *testing.T) {
	chunks := Split("short text", 100)
	if len(chunks) != 1 || chunks[0] != "short text" {
		t.Errorf("chunks = %q", chunks)
	}
}

func TestSplitDisabledWhenMaxZero(t *testing.T) {
	long := strings.Repeat("word ", 1000)
	chunks := Split(long, 0)
	if len(chunks) != 1 || chunks[0] != long {
		t.Errorf("maxRunes 0 must not split, got %d chunks", len(chunks))
	}
}

func TestSplitRespectsMaxRunes(t *testing.T) {
	text := strings.Repeat("word ", 200)
	chunks := Split(text, 100)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if n := len([]rune(c)); n > 100 {
			t.Errorf("chunk %d is %d runes, max 100", i, n)
		}
	}
}

func TestSplitPrefersHeadingBoundary(t *testing.T) {
	text := "intro paragraph\n\nmore intro\n# Chapter Two\nchapter body " + strings.Repeat("x", 60)
	chunks := Split(text, 50)
	if len(chunks) < 2 {
		t.Fatalf("expected a split, got %q", chunks)
	}
	if !strings.HasPrefix(chunks[1], "# Chapter Two") {
		t.Errorf("heading should lead the next chunk, got %q", chunks[1])
	}
}

func TestSplitPrefersParagraphBoundary(t *testing.T) {
	para1 := strings.Repeat("aa ", 20)
	para2 := strings.Repeat("bb ", 20)
	text := strings.TrimSpace(para1) + "\n\n" + strings.TrimSpace(para2)

	chunks := Split(text, 80)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d: %q", len(chunks), chunks)
	}
	if chunks[0] != strings.TrimSpace(para1) || chunks[1] != strings.TrimSpace(para2) {
		t.Errorf("chunks = %q", chunks)
	}
}

func TestSplitSentenceBoundary(t *testing.T) {
	text := "First sentence here. Second sentence continues on and on without any paragraph break at all"
	chunks := Split(text, 40)
	if len(chunks) < 2 {
		t.Fatalf("expected a split, got %q", chunks)
	}
	if !strings.HasSuffix(chunks[0], ".") {
		t.Errorf("first chunk should end at sentence boundary, got %q", chunks[0])
	}
}

func TestSplitHardCut(t *testing.T) {
	text := strings.Repeat("x", 250)
	chunks := Split(text, 100)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if chunks[0] != strings.Repeat("x", 100) {
		t.Errorf("chunk 0 = %d runes", len([]rune(chunks[0])))
	}
}

func TestSplitMultibyte(t *testing.T) {
	// 3 bytes per rune; rune-based limits must not cut mid-character.
	text := strings.Repeat("é ", 100)
	chunks := Split(text, 30)
	for i, c := range chunks {
		if !strings.HasPrefix(c, "é") {
			t.Errorf("chunk %d broken: %q", i, c)
		}
		if len([]rune(c)) > 30 {
			t.Errorf("chunk %d exceeds limit", i)
		}
	}
}

func TestSplitLosesNoContent(t *testing.T) {
	text := "Une phrase. Deux phrases! Trois phrases? " + strings.Repeat("encore des mots ", 30)
	chunks := Split(text, 64)

	joined := strings.Join(chunks, " ")
	for _, word := range strings.Fields(text) {
		if !strings.Contains(joined, word) {
			t.Errorf("word %q lost in split", word)
		}
	}
}

func TestJoin(t *testing.T) {
	if got := Join([]string{"only"}); got != "only" {
		t.Errorf("Join single = %q", got)
	}
	if got := Join([]string{"one", "two"}); got != "one\n\ntwo" {
		t.Errorf("Join = %q", got)
	}
}
