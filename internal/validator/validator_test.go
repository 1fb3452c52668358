package validator

import (
	"strings"
	"testing"
)

const frenchSource = `# Chronique

Le roi de France est arrivé dans la ville avec toute sa cour, et les
habitants sont venus nombreux pour le voir passer dans les rues.`

const frenchCorrected = `# Chronique

Le roi de France est arrivé dans la ville avec toute sa cour, et les
habitants sont venus très nombreux pour le voir passer dans les rues.`

const englishText = `# Chronicle

The king of France arrived in the city with his whole court, and the
inhabitants came in great numbers to watch him pass through the streets.`

func TestSameLanguageMatch(t *testing.T) {
	v := New()
	ok, err := v.SameLanguage(frenchSource, frenchCorrected)
	if !ok || err != nil {
		t.Errorf("same-language pair rejected: ok=%v err=%v", ok, err)
	}
}

func TestSameLanguageMismatch(t *testing.T) {
	v := New()
	ok, err := v.SameLanguage(frenchSource, englishText)
	if ok {
		t.Fatal("translated output should be rejected")
	}
	if err == nil || !strings.Contains(err.Error(), "FR") || !strings.Contains(err.Error(), "EN") {
		t.Errorf("error should name both language codes, got %v", err)
	}
}

func TestSameLanguageEmptyCorrected(t *testing.T) {
	v := New()
	ok, err := v.SameLanguage(frenchSource, "")
	if ok || err == nil {
		t.Errorf("empty corrected text must fail: ok=%v err=%v", ok, err)
	}
}

func TestSameLanguageShortTextSkipsValidation(t *testing.T) {
	v := New()
	ok, err := v.SameLanguage("Oui.", "Yes.")
	if !ok || err != nil {
		t.Errorf("short texts should pass unvalidated: ok=%v err=%v", ok, err)
	}
}

func TestSameLanguageStripsMarkdown(t *testing.T) {
	v := New()
	// Heavy formatting around the same French prose must not change the verdict.
	src := "# Titre\n\n**" + frenchSource + "**"
	ok, err := v.SameLanguage(src, frenchCorrected)
	if !ok || err != nil {
		t.Errorf("markdown formatting changed the verdict: ok=%v err=%v", ok, err)
	}
}
