package transcript

import (
	"strings"

	"github.com/antzucaro/matchr"
)

const (
	correctorPhoneticThreshold = 0.70
	correctorFuzzyThreshold    = 0.88
)

// DefaultVocabulary covers the fixed domain terms the transcriber most
// often mishears: menu nouns and the handoff keywords the classifier keys
// on. "Pepperoni" heard as "pepper only" must still classify as pepperoni,
// and "transfer" heard as "transfur" must still end the session.
var DefaultVocabulary = []string{
	"pizza", "pepperoni", "margherita", "hawaiian", "mushroom",
	"garlic knots", "wings", "breadsticks", "delivery", "pickup",
	"transfer", "payment",
}

// Corrector repairs misheard fixed vocabulary in transcriptions before
// classification. Candidate words are filtered by Double Metaphone code
// overlap and ranked by Jaro-Winkler similarity; a Levenshtein guard
// rejects repairs that rewrite more than half the word.
//
// A Corrector is read-only after construction and safe for concurrent use.
type Corrector struct {
	vocabulary []string
}

// NewCorrector creates a Corrector for the given vocabulary. An empty
// vocabulary falls back to [DefaultVocabulary].
func NewCorrector(vocabulary []string) *Corrector {
	if len(vocabulary) == 0 {
		vocabulary = DefaultVocabulary
	}
	return &Corrector{vocabulary: vocabulary}
}

// Correct returns text with near-miss vocabulary words replaced by their
// canonical spelling. Clean text passes through unchanged; words that match
// a vocabulary term exactly (case-insensitive) are never rewritten.
func (c *Corrector) Correct(text string) string {
	words := strings.Fields(text)
	changed := false
	for i, w := range words {
		core, prefix, suffix := trimPunct(w)
		if core == "" || c.isVocabulary(core) {
			continue
		}
		if repl, ok := c.match(core); ok {
			words[i] = prefix + repl + suffix
			changed = true
		}
	}
	if !changed {
		return text
	}
	return strings.Join(words, " ")
}

func (c *Corrector) isVocabulary(word string) bool {
	lower := strings.ToLower(word)
	for _, v := range c.vocabulary {
		if lower == v {
			return true
		}
	}
	return false
}

// match finds the best vocabulary repair for one word, if any.
func (c *Corrector) match(word string) (string, bool) {
	lower := strings.ToLower(word)
	p1, s1 := matchr.DoubleMetaphone(lower)

	var (
		best      string
		bestScore float64
	)
	for _, v := range c.vocabulary {
		// Multi-word vocabulary entries cannot replace a single token.
		if strings.ContainsRune(v, ' ') {
			continue
		}
		p2, s2 := matchr.DoubleMetaphone(v)
		phonetic := codesMatch(p1, s1, p2, s2)

		score := matchr.JaroWinkler(lower, v, false)
		threshold := correctorFuzzyThreshold
		if phonetic {
			threshold = correctorPhoneticThreshold
		}
		if score < threshold || score <= bestScore {
			continue
		}
		// Levenshtein guard: never rewrite more than half the word.
		if matchr.Levenshtein(lower, v) > len(v)/2 {
			continue
		}
		best, bestScore = v, score
	}
	if best == "" {
		return word, false
	}
	return best, true
}

func codesMatch(p1, s1, p2, s2 string) bool {
	if p1 != "" && (p1 == p2 || p1 == s2) {
		return true
	}
	if s1 != "" && (s1 == p2 || s1 == s2) {
		return true
	}
	return false
}

// trimPunct splits leading and trailing punctuation off a word so repairs
// preserve it ("transfur," stays comma-terminated).
func trimPunct(w string) (core, prefix, suffix string) {
	start := 0
	for start < len(w) && !isWordChar(w[start]) {
		start++
	}
	end := len(w)
	for end > start && !isWordChar(w[end-1]) {
		end--
	}
	return w[start:end], w[:start], w[end:]
}

func isWordChar(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9' || b == '\''
}
