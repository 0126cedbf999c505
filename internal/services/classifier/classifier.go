// Package classifier identifies WEN occurrences in message text.
//
// The shape is "one or more w, one or more e, one or more n, optionally
// followed by more letters", case-insensitive. A regex engine's non-overlap
// semantics would miss immediately-adjacent repeats ("wenwen" is two
// occurrences), so this is an explicit scanner with an index variable: after
// a match starting at position p the scan resumes at p+1.
package classifier

// FindMatches returns every matched substring in left-to-right order,
// preserving original case. An empty input yields an empty result.
//
// A match may not begin in the middle of a word: the preceding byte must be
// a non-letter, unless it was consumed by the previous match ("wenwen" is
// two occurrences, "owen" is none).
func FindMatches(text string) []string {
	var matches []string
	lastEnd := 0
	for p := 0; p < len(text); p++ {
		if p > lastEnd && isLetter(text[p-1]) {
			continue
		}
		end := coreEnd(text, p)
		if end < 0 {
			continue
		}
		// Greedy letter suffix ("WENing", "wened"), stopping where a fresh
		// occurrence begins so adjacent repeats stay separate matches.
		for end < len(text) && isLetter(text[end]) {
			if coreEnd(text, end) != -1 {
				break
			}
			end++
		}
		matches = append(matches, text[p:end])
		lastEnd = end
	}
	return matches
}

// Count reports the number of occurrences alongside the matched substrings
func Count(text string) (int, []string) {
	matches := FindMatches(text)
	return len(matches), matches
}

// coreEnd consumes a w+e+n+ run starting at i and returns the index just
// past it, or -1 when no run starts there. Quantifiers are greedy, so a
// single stretch like "weeen" is one run.
func coreEnd(s string, i int) int {
	j := i
	for j < len(s) && isLetterFold(s[j], 'w') {
		j++
	}
	if j == i {
		return -1
	}

	k := j
	for k < len(s) && isLetterFold(s[k], 'e') {
		k++
	}
	if k == j {
		return -1
	}

	l := k
	for l < len(s) && isLetterFold(s[l], 'n') {
		l++
	}
	if l == k {
		return -1
	}

	return l
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// isLetterFold matches c against the lowercase letter want, case-insensitively
func isLetterFold(c, want byte) bool {
	return c == want || c == want-('a'-'A')
}
