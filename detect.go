package codeloop

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// languageHint lists the words that select a language. Substrings match
// anywhere in the text; tokens must match a whole word.
type languageHint struct {
	lang       Language
	substrings []string
	tokens     []string
}

// defaultHints are checked in order; the first match wins.
var defaultHints = []languageHint{
	{lang: LangJavaScript, substrings: []string{"javascript", "nodejs", "node.js"}, tokens: []string{"js", "node"}},
	{lang: LangPython, substrings: []string{"python"}, tokens: []string{"py"}},
	{lang: LangSQL, substrings: []string{"sql"}},
}

// KeywordDetector picks a language from keywords in the text and falls back
// to Python when none is present.
type KeywordDetector struct {
	hints []languageHint
}

// NewKeywordDetector returns a detector using the built-in keyword table.
func NewKeywordDetector() *KeywordDetector {
	return &KeywordDetector{hints: defaultHints}
}

// Detect implements Detector.
func (d *KeywordDetector) Detect(text string) Language {
	if lang, ok := d.Hint(text); ok {
		return lang
	}
	return LangPython
}

// Hint reports the language named in text, if any.
func (d *KeywordDetector) Hint(text string) (Language, bool) {
	// NFKC folds full-width and compatibility forms so "ＳＱＬ" reads as "sql".
	lower := strings.ToLower(norm.NFKC.String(text))
	tokens := make(map[string]struct{})
	for _, f := range strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		tokens[f] = struct{}{}
	}

	for _, h := range d.hints {
		for _, s := range h.substrings {
			if strings.Contains(lower, s) {
				return h.lang, true
			}
		}
		for _, t := range h.tokens {
			if _, ok := tokens[t]; ok {
				return h.lang, true
			}
		}
	}
	return LangUnknown, false
}

var _ Detector = (*KeywordDetector)(nil)
