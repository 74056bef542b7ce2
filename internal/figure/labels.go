package figure

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// RowLabel title-cases an agglomeration slug: "new-york" becomes "New-York".
// Every run of letters starts a new word, so "st.gallen" becomes "St.Gallen"
// and "zurich_2nd" becomes "Zurich_2Nd".
func RowLabel(slug string) string {
	caser := cases.Title(language.Und)
	var b strings.Builder
	b.Grow(len(slug))
	for len(slug) > 0 {
		i := strings.IndexFunc(slug, func(r rune) bool { return !unicode.IsLetter(r) })
		if i < 0 {
			i = len(slug)
		}
		if i > 0 {
			b.WriteString(caser.String(slug[:i]))
			slug = slug[i:]
			continue
		}
		j := strings.IndexFunc(slug, unicode.IsLetter)
		if j < 0 {
			j = len(slug)
		}
		b.WriteString(slug[:j])
		slug = slug[j:]
	}
	return b.String()
}

// ExtractDates slices the date code out of each basename, e.g. "00" at
// offset 8 of "g100_clc00_V18_5".
func ExtractDates(basenames []string, offset, length int) ([]string, error) {
	dates := make([]string, len(basenames))
	for i, b := range basenames {
		if offset < 0 || length < 1 || offset+length > len(b) {
			return nil, fmt.Errorf("basename %q has no %d-character date code at offset %d", b, length, offset)
		}
		dates[i] = b[offset : offset+length]
	}
	return dates, nil
}
