package parse

import (
	"regexp"
	"strings"
)

// Junior faculty titles. Matching is case-sensitive.
var (
	titleRe   = regexp.MustCompile(`\b(?:Assistant\s+(?:Teaching\s+)?Professor|Associate\s+Professor)\b`)
	adjunctRe = regexp.MustCompile(`Adjunct\s+$`)
	peopleRe  = regexp.MustCompile(`(?i)\bpeople\b`)
)

// MatchTitle reports whether s names an assistant or associate professor.
// "Adjunct Associate Professor" is excluded.
func MatchTitle(s string) bool {
	for _, loc := range titleRe.FindAllStringIndex(s, -1) {
		if strings.HasPrefix(s[loc[0]:], "Associate") && adjunctRe.MatchString(s[:loc[0]]) {
			continue
		}
		return true
	}
	return false
}

// startsWithTitle reports whether s opens with a junior faculty title.
func startsWithTitle(s string) bool {
	loc := titleRe.FindStringIndex(s)
	return loc != nil && loc[0] == 0
}

// normalize collapses runs of whitespace and trims the result.
func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// validName filters known false positives such as "People" navigation links.
// Only the whole word counts, so surnames like "Peoples" pass.
func validName(name string) bool {
	return name != "" && !peopleRe.MatchString(name)
}
