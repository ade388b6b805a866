// Package keywords extracts significant words from free text by removing
// stop words of a natural language.
package keywords

import (
	"embed"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

//go:embed stopwords/*.txt
var stopwordFiles embed.FS

var languages = map[string]language.Tag{
	"german":  language.German,
	"english": language.English,
}

// Sentence punctuation trimmed from both ends of a token
const trimSet = `.,;:!?"'()„“”‚‘’«»…`

// Extractor splits text into lowercased words that are not stop words.
// Digits are removed before tokenizing.
type Extractor struct {
	lang      language.Tag
	stopwords map[string]struct{}
}

// New creates an Extractor for "german" or "english"
func New(lang string) (*Extractor, error) {
	tag, ok := languages[strings.ToLower(lang)]
	if !ok {
		return nil, fmt.Errorf("unsupported language: %s", lang)
	}

	data, err := stopwordFiles.ReadFile("stopwords/" + strings.ToLower(lang) + ".txt")
	if err != nil {
		return nil, fmt.Errorf("read stop words: %w", err)
	}

	stop := make(map[string]struct{})
	for _, w := range strings.Fields(string(data)) {
		stop[w] = struct{}{}
	}

	return &Extractor{lang: tag, stopwords: stop}, nil
}

// Extract returns the significant words of text in order of appearance.
// Duplicates are kept so callers can count frequencies.
func (e *Extractor) Extract(text string) []string {
	text = cases.Lower(e.lang).String(text)
	text = strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return -1
		}
		return r
	}, text)

	var words []string
	for _, tok := range strings.Fields(text) {
		tok = strings.Trim(tok, trimSet)
		if tok == "" {
			continue
		}
		if _, ok := e.stopwords[tok]; ok {
			continue
		}
		words = append(words, tok)
	}
	return words
}
