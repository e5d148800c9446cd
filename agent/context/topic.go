package context

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// MinTokenLength is the shortest token, in runes, that carries topic
// content. Three keeps clinical abbreviations such as "hrv" or "ldl".
const MinTokenLength = 3

// TokenSet is an unordered set of normalized tokens.
type TokenSet map[string]struct{}

// Len returns the number of tokens.
func (s TokenSet) Len() int { return len(s) }

// Has reports whether tok is in the set.
func (s TokenSet) Has(tok string) bool {
	_, ok := s[tok]
	return ok
}

// Sorted returns the tokens in lexical order.
func (s TokenSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for tok := range s {
		out = append(out, tok)
	}
	sort.Strings(out)
	return out
}

// Intersect counts the tokens of s also present in other.
func (s TokenSet) Intersect(other TokenSet) int {
	n := 0
	for tok := range s {
		if other.Has(tok) {
			n++
		}
	}
	return n
}

// stopwords are function words dropped regardless of length. Entries are
// in folded form with apostrophes removed, matching Tokenize output.
var stopwords = makeSet(
	// pronouns
	"you", "your", "yours", "yourself", "she", "her", "hers", "him", "his",
	"its", "our", "ours", "they", "them", "their", "theirs", "mine", "myself",
	"this", "that", "these", "those", "who", "whom", "whose", "which", "what",
	"anyone", "someone", "something", "anything", "everything",
	// auxiliaries and modals
	"have", "has", "had", "having", "are", "was", "were", "been", "being",
	"does", "did", "doing", "done", "can", "could", "will", "would", "shall",
	"should", "may", "might", "must", "lets", "let", "dont", "doesnt", "didnt",
	"isnt", "arent", "wasnt", "werent", "cant", "wont", "ive", "youre",
	"thats", "whats", "theres",
	// articles and determiners
	"the", "any", "some", "all", "each", "every", "both", "either", "neither",
	"such", "own", "same", "other", "another",
	// prepositions
	"about", "above", "across", "after", "against", "along", "among", "around",
	"before", "behind", "below", "beneath", "beside", "between", "beyond",
	"but", "despite", "down", "during", "except", "for", "from", "inside",
	"into", "like", "near", "off", "onto", "out", "outside", "over", "past",
	"since", "than", "through", "throughout", "till", "toward", "towards",
	"under", "until", "upon", "with", "within", "without", "via",
	// conjunctions and adverbs
	"and", "nor", "yet", "also", "because", "while", "where", "when", "why",
	"how", "then", "there", "here", "just", "very", "too", "not", "only",
	"again", "once", "more", "most", "much", "many",
)

func makeSet(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

// acknowledgements are affirmations and politeness words. They stay in the
// token set but do not count as content when deciding whether a message is
// a short acknowledgement ("yes please, go ahead").
var acknowledgements = makeSet(
	"yes", "yeah", "yep", "yup", "okay", "sure", "please", "thanks", "thank",
	"thx", "ahead", "great", "cool", "fine", "alright", "perfect", "sounds",
	"good", "nice", "thing", "awesome", "agreed",
)

// IsAcknowledgement reports whether tok (already normalized) is an
// affirmation or politeness word.
func IsAcknowledgement(tok string) bool {
	_, ok := acknowledgements[tok]
	return ok
}

// ContentCount returns the number of tokens in s that are not
// acknowledgements.
func (s TokenSet) ContentCount() int {
	n := 0
	for tok := range s {
		if !IsAcknowledgement(tok) {
			n++
		}
	}
	return n
}

// IsStopword reports whether tok (already normalized) is a stopword.
func IsStopword(tok string) bool {
	_, ok := stopwords[tok]
	return ok
}

// Tokenize returns the content tokens of text: NFKC-normalized, case
// folded, apostrophes removed, other punctuation and symbols treated as
// separators, tokens shorter than MinTokenLength and stopwords dropped.
func Tokenize(text string) TokenSet {
	set := make(TokenSet)
	if strings.TrimSpace(text) == "" {
		return set
	}

	// cases.Caser is stateful, one per call.
	folded := cases.Fold().String(norm.NFKC.String(text))

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		switch {
		case isApostrophe(r):
		case unicode.IsLetter(r), unicode.IsNumber(r), unicode.IsMark(r):
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}

	for _, tok := range strings.Fields(b.String()) {
		if utf8.RuneCountInString(tok) < MinTokenLength || IsStopword(tok) {
			continue
		}
		set[tok] = struct{}{}
	}
	return set
}

func isApostrophe(r rune) bool {
	switch r {
	case '\'', '‘', '’', 'ʼ', '＇':
		return true
	}
	return false
}
