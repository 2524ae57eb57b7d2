package sanitizer

import (
	"regexp"
	"strings"
	"unicode"
)

type Strategy func(string) string

type Pipeline []Strategy

func (p Pipeline) Apply(s string) string {
	for _, fn := range p {
		s = fn(s)
	}
	return s
}

var reDocumentSeparators = regexp.MustCompile(`[\s.\-_/]+`)

func collapseWhitespace(s string) string {
	var b strings.Builder
	lastWasSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !lastWasSpace {
				b.WriteRune(' ')
				lastWasSpace = true
			}
			continue
		}
		b.WriteRune(r)
		lastWasSpace = false
	}
	return b.String()
}

func NormalizeName(name string) string {
	return Pipeline{strings.TrimSpace, collapseWhitespace}.Apply(name)
}

func NormalizeEmail(email string) string {
	return Pipeline{strings.TrimSpace, strings.ToLower}.Apply(email)
}

func NormalizeDocument(number string) string {
	return Pipeline{
		strings.TrimSpace,
		func(s string) string { return reDocumentSeparators.ReplaceAllString(s, "") },
		strings.ToUpper,
	}.Apply(number)
}

func NormalizeDocumentType(docType string) string {
	return Pipeline{strings.TrimSpace, strings.ToLower}.Apply(docType)
}
