package facade

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"unicode"
)

const translationPrompt = "Translate this medical term to English. Reply with the English term only, one word if possible: %s"

// Translator turns non-English medical terms into English search terms
type Translator struct {
	generator Generator
	logger    *log.Logger
}

// NewTranslator creates a Translator backed by generator
func NewTranslator(generator Generator, logger *log.Logger) *Translator {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Translator{generator: generator, logger: logger}
}

// Translate returns text unchanged when it is basic Latin, otherwise asks the generator
// for an English equivalent. Failures fall back to the original text.
func (t *Translator) Translate(ctx context.Context, text string) string {
	if IsBasicLatin(text) || t.generator == nil {
		return text
	}

	reply, err := t.generator.GenerateText(ctx, fmt.Sprintf(translationPrompt, text))
	if err != nil {
		t.logger.Printf("%v", &Error{
			Kind:    ErrorKindTranslationFailed,
			Message: fmt.Sprintf("translation of %q failed, using original text", text),
			Cause:   err,
		})
		return text
	}

	translated := cleanTranslation(reply)
	if translated == "" {
		t.logger.Printf("%v", &Error{
			Kind:    ErrorKindTranslationFailed,
			Message: fmt.Sprintf("translation of %q was empty, using original text", text),
		})
		return text
	}

	t.logger.Printf("Translated %q to %q", text, translated)
	return translated
}

// cleanTranslation keeps the first non-empty line of reply without a leading label, quotes or trailing punctuation
func cleanTranslation(reply string) string {
	for _, line := range strings.Split(reply, "\n") {
		line = trimQuotes(line)
		if label, rest, ok := strings.Cut(line, ":"); ok && isLabel(label) && strings.TrimSpace(rest) != "" {
			line = trimQuotes(rest)
		}
		line = strings.TrimRight(line, ".。!")
		line = strings.TrimSpace(line)
		if line != "" {
			return line
		}
	}
	return ""
}

func trimQuotes(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "\"'`“”‘’*")
	return strings.TrimSpace(s)
}

// isLabel reports whether s is a single word such as "English" or "Translation"
func isLabel(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}
