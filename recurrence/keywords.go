package recurrence

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
)

// shortTermLen is the longest term that must start a word. Abbreviations
// like "aedo" and "d/o" otherwise hit inside "maedor" or "and/or".
const shortTermLen = 4

// keywordMatcher flags debit-order vocabulary in free text. Both the terms
// and the text are case-folded before matching. Longer terms match anywhere,
// so "NETFLIXSUBSCRIPTION" is flagged.
type keywordMatcher struct {
	re *regexp.Regexp
}

func newKeywordMatcher(terms []string) *keywordMatcher {
	fold := cases.Fold()
	alts := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.TrimSpace(fold.String(t))
		if t == "" {
			continue
		}
		alt := regexp.QuoteMeta(t)
		if utf8.RuneCountInString(t) <= shortTermLen {
			alt = `\b` + alt
		}
		alts = append(alts, alt)
	}
	if len(alts) == 0 {
		return &keywordMatcher{}
	}
	return &keywordMatcher{re: regexp.MustCompile(`(?:` + strings.Join(alts, "|") + `)`)}
}

func (m *keywordMatcher) Match(texts ...string) bool {
	if m.re == nil {
		return false
	}
	fold := cases.Fold()
	for _, s := range texts {
		if s != "" && m.re.MatchString(fold.String(s)) {
			return true
		}
	}
	return false
}

// normalizeKey case-folds a label and keeps only letters and digits, so
// "NETFLIX.COM" and "Netflix com" group together.
func normalizeKey(label string) string {
	folded := cases.Fold().String(label)
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
