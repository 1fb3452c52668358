// Package postprocess removes common LLM artifacts from corrected output.
//
// The corrector contract returns model output verbatim; this pass is opt-in
// (--strip-artifacts) and runs in the batch layer, never inside a backend.
package postprocess

import (
	"regexp"
	"strings"
)

// Clean removes LLM artifacts from text in four phases and returns the
// trimmed result:
//  1. Thinking / reasoning block removal
//  2. Instruction echo removal (prompt leakage)
//  3. Markdown code-fence unwrapping
//  4. Quote wrapping removal
func Clean(text string) string {
	text = removeThinkingBlocks(text)
	text = removeInstructionEchoes(text)
	text = removeFenceWrapping(text)
	text = removeQuoteWrapping(text)
	return strings.TrimSpace(text)
}

// --- Phase 1: thinking blocks ---

// thinkingBlockRe matches complete <thinking>…</thinking> style blocks.
// Each tag variant is listed explicitly because Go's RE2 engine does not
// support backreferences.
var thinkingBlockRe = regexp.MustCompile(
	`(?is)<thinking>.*?</thinking>|<think>.*?</think>|<reasoning>.*?</reasoning>|<reflection>.*?</reflection>`,
)

// truncatedThinkingRe matches an opened thinking tag whose closing tag is
// missing (the model was cut off mid-thought).
var truncatedThinkingRe = regexp.MustCompile(
	`(?is)(?:<thinking>|<think>|<reasoning>|<reflection>).*$`,
)

func removeThinkingBlocks(text string) string {
	text = thinkingBlockRe.ReplaceAllString(text, "")
	text = truncatedThinkingRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// --- Phase 2: instruction echoes ---

// echoPatterns match introductory phrases that LLMs sometimes prepend even
// when instructed to respond with only the corrected text. Each pattern is
// anchored to the start of the string and requires a colon to reduce false
// positives on legitimate content.
var echoPatterns = []*regexp.Regexp{
	// "Here is / Here's [the] [corrected|cleaned|fixed] text:"
	regexp.MustCompile(`(?i)^here(?:'s| is)(?: the)? (?:corrected |cleaned |fixed )?(?:text|markdown|version|document)\s*:`),
	// "[The] [corrected|cleaned] [text|markdown|version]:"
	regexp.MustCompile(`(?i)^(?:the )?(?:corrected|cleaned|fixed) (?:text|markdown|version|document)\s*:`),
	// "Certainly / Sure / Of course[,] here is [the] corrected text:"
	regexp.MustCompile(`(?i)^(?:certainly|sure|of course)[,.]? here(?:'s| is)(?: the)? (?:corrected |cleaned |fixed )?(?:text|markdown|version|document)\s*:`),
}

func removeInstructionEchoes(text string) string {
	for _, re := range echoPatterns {
		if loc := re.FindStringIndex(text); loc != nil && loc[0] == 0 {
			text = strings.TrimSpace(text[loc[1]:])
		}
	}
	return text
}

// --- Phase 3: code-fence wrapping ---

// fenceWrapRe matches an entire output wrapped in a single ``` fence, with or
// without a language tag. Models asked for markdown frequently wrap the whole
// document this way.
var fenceWrapRe = regexp.MustCompile("(?s)^```(?:markdown|md)?\\s*\\n(.*?)\\n?```\\s*$")

func removeFenceWrapping(text string) string {
	if m := fenceWrapRe.FindStringSubmatch(text); m != nil {
		inner := m[1]
		// A fence inside the body means the wrapper pair is not the only one;
		// leave the text alone rather than corrupt a legitimate code block.
		if !strings.Contains(inner, "```") {
			return strings.TrimSpace(inner)
		}
	}
	return text
}

// --- Phase 4: quote wrapping ---

// removeQuoteWrapping strips a matching pair of outer quotes when the entire
// text is wrapped in them (a common LLM artifact). Supported pairs:
//
//	"…"  '…'  «…»  "…"  '…'
func removeQuoteWrapping(text string) string {
	runes := []rune(text)
	n := len(runes)
	if n < 2 {
		return text
	}
	first, last := runes[0], runes[n-1]
	if (first == '"' && last == '"') ||
		(first == '\'' && last == '\'') ||
		(first == '«' && last == '»') ||
		(first == '“' && last == '”') ||
		(first == '‘' && last == '’') {
		return strings.TrimSpace(string(runes[1 : n-1]))
	}
	return text
}
