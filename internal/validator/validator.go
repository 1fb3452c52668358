// Package validator checks that a corrected document is still written in the
// source document's language. OCR cleanup must fix characters, not translate;
// a language change means the model rewrote the document.
package validator

import (
	"fmt"
	"strings"

	"github.com/greg-randall/ocr-translation/internal/detector"
	"github.com/greg-randall/ocr-translation/internal/markdown"
)

// minValidationLength is the minimum rune count required to attempt language
// detection. Shorter texts produce unreliable results and pass unvalidated.
const minValidationLength = 20

// Validator compares the language of source and corrected text. The
// underlying detector is expensive to build; reuse the instance.
type Validator struct {
	det *detector.Detector
}

func New() *Validator {
	return &Validator{det: detector.New()}
}

// SameLanguage reports whether the corrected text appears to be in the same
// language as the source. Markdown formatting is stripped before detection.
//
// Short texts and texts whose language cannot be determined pass without
// error. When the languages differ the returned error names both codes.
func (v *Validator) SameLanguage(source, corrected string) (bool, error) {
	src := strings.TrimSpace(markdown.ToPlainText([]byte(source)))
	out := strings.TrimSpace(markdown.ToPlainText([]byte(corrected)))

	if out == "" {
		return false, fmt.Errorf("corrected text is empty")
	}

	// Detector is unreliable for very short texts; skip validation.
	if len([]rune(src)) < minValidationLength || len([]rune(out)) < minValidationLength {
		return true, nil
	}

	srcLang, ok := v.det.DetectISO(src)
	if !ok {
		return true, nil
	}
	outLang, ok := v.det.DetectISO(out)
	if !ok {
		return true, nil
	}

	if !strings.EqualFold(srcLang, outLang) {
		return false, fmt.Errorf("source is %s but corrected text is %s", srcLang, outLang)
	}

	return true, nil
}
