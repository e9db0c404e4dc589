package transcribe

import (
	"strings"
	"unicode"
)

// germanNumbers covers the words with dedicated forms; larger numbers
// are spelled digit by digit.
var germanNumbers = map[string]string{
	"0":  "null",
	"1":  "eins",
	"2":  "zwei",
	"3":  "drei",
	"4":  "vier",
	"5":  "fünf",
	"6":  "sechs",
	"7":  "sieben",
	"8":  "acht",
	"9":  "neun",
	"10": "zehn",
	"11": "elf",
	"12": "zwölf",
}

// CleanTranscript normalizes raw STT output into TTS training form:
// lowercased, punctuation stripped, whitespace collapsed, and digit
// runs replaced with German number words ("1" becomes "eins").
// Apostrophes are dropped without a space so contractions stay joined.
func CleanTranscript(raw string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(raw) {
		switch {
		case r == '\'' || r == '’':
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}

	fields := strings.Fields(b.String())
	out := make([]string, 0, len(fields))
	for _, field := range fields {
		if isDigits(field) {
			out = append(out, spellNumber(field)...)
			continue
		}
		out = append(out, field)
	}
	return strings.Join(out, " ")
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

func spellNumber(s string) []string {
	if word, ok := germanNumbers[s]; ok {
		return []string{word}
	}
	words := make([]string, 0, len(s))
	for _, r := range s {
		words = append(words, germanNumbers[string(r)])
	}
	return words
}
