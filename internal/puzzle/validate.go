package puzzle

import (
	"regexp"
	"strings"
)

// prefixLen is how much of the normalized canonical solution a submission
// may quote verbatim instead of naming the key terms.
const prefixLen = 100

var functionName = regexp.MustCompile(`function\s+(\w+)`)

// conceptKeywords are the ideas a paraphrased answer has to mention when the
// canonical solution mentions them.
var conceptKeywords = []string{"depth", "base case", "compression", "decay", "lock", "timeout"}

// Validate reports whether submission is an acceptable answer for the
// canonical solution. It accepts a submission that mentions every function
// name and concept keyword found in the canonical text, or one that contains
// the first 100 normalized characters of it. The check is deliberately
// lenient: it is a keyword heuristic, not a grader.
func Validate(canonical, submission string) bool {
	want := normalize(canonical)
	got := normalize(submission)
	if want == "" || got == "" {
		return false
	}

	terms := KeyTerms(canonical)
	if len(terms) > 0 && containsAll(got, terms) {
		return true
	}

	prefix := want
	if r := []rune(want); len(r) > prefixLen {
		prefix = string(r[:prefixLen])
	}
	return strings.Contains(got, prefix)
}

// KeyTerms extracts the function names and concept keywords from a
// canonical solution, normalized and without duplicates.
func KeyTerms(canonical string) []string {
	text := normalize(canonical)
	var terms []string
	seen := make(map[string]bool)
	add := func(t string) {
		if !seen[t] {
			seen[t] = true
			terms = append(terms, t)
		}
	}
	for _, m := range functionName.FindAllStringSubmatch(text, -1) {
		add(m[1])
	}
	for _, kw := range conceptKeywords {
		if strings.Contains(text, kw) {
			add(kw)
		}
	}
	return terms
}

func containsAll(text string, terms []string) bool {
	for _, t := range terms {
		if !strings.Contains(text, t) {
			return false
		}
	}
	return true
}

// normalize lowercases s and collapses runs of whitespace to one space.
func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
