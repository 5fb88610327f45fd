// Package wordbank holds the dictionary every game is played against:
// word validity and prefix lookups.
package wordbank

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"lukechampine.com/frand"
)

// Normalize returns the canonical (trimmed, upper-cased) form of a word.
// All comparisons in the game are made on normalized words.
func Normalize(word string) string {
	word = strings.TrimSpace(word)
	if word == "" {
		return ""
	}
	// A Caser is stateful, so one is built per call; callers validate from
	// many goroutines at once.
	return cases.Upper(language.Und).String(word)
}

// WordSet is a set of normalized words.
type WordSet map[string]struct{}

func NewWordSet(words ...string) WordSet {
	s := make(WordSet, len(words))
	for _, w := range words {
		s.Add(w)
	}
	return s
}

func (s WordSet) Add(word string) {
	if w := Normalize(word); w != "" {
		s[w] = struct{}{}
	}
}

func (s WordSet) Has(word string) bool {
	_, ok := s[Normalize(word)]
	return ok
}

func (s WordSet) Clone() WordSet {
	c := make(WordSet, len(s)+1)
	for w := range s {
		c[w] = struct{}{}
	}
	return c
}

// Bank is an immutable dictionary with a prefix index. It is safe for
// concurrent use once built.
type Bank struct {
	id    string
	words []string
	valid WordSet
	// every prefix of every word maps to the sorted words carrying it.
	index map[string][]string
	pick  func(n int) int
}

type Option func(*Bank)

// WithPicker replaces the uniform random index source used by RandomMatch.
func WithPicker(pick func(n int) int) Option {
	return func(b *Bank) {
		b.pick = pick
	}
}

// New builds a bank from a word list. Duplicates (after normalization)
// and blank entries are dropped.
func New(id string, words []string, opts ...Option) *Bank {
	b := &Bank{
		id:    id,
		valid: make(WordSet, len(words)),
		index: make(map[string][]string),
		pick:  frand.Intn,
	}
	for _, opt := range opts {
		opt(b)
	}
	for _, w := range words {
		w = Normalize(w)
		if w == "" || b.valid.Has(w) {
			continue
		}
		b.valid[w] = struct{}{}
		b.words = append(b.words, w)
	}
	sort.Strings(b.words)
	for _, w := range b.words {
		runes := []rune(w)
		for i := 1; i <= len(runes); i++ {
			p := string(runes[:i])
			b.index[p] = append(b.index[p], w)
		}
	}
	return b
}

// ID is the dictionary identifier recorded in game configs.
func (b *Bank) ID() string {
	return b.id
}

func (b *Bank) Len() int {
	return len(b.words)
}

// Words returns the sorted dictionary.
func (b *Bank) Words() []string {
	return append([]string(nil), b.words...)
}

// Validate reports whether the word is in the dictionary, ignoring case.
func (b *Bank) Validate(word string) bool {
	return b.valid.Has(word)
}

// Matches returns the sorted dictionary words starting with prefix that
// are not in exclude.
func (b *Bank) Matches(prefix string, exclude WordSet) []string {
	candidates := b.index[Normalize(prefix)]
	if len(exclude) == 0 {
		return append([]string(nil), candidates...)
	}
	out := make([]string, 0, len(candidates))
	for _, w := range candidates {
		if _, skip := exclude[w]; !skip {
			out = append(out, w)
		}
	}
	return out
}

// RandomMatch picks a uniformly random word from Matches. The second
// return value is false when nothing matches.
func (b *Bank) RandomMatch(prefix string, exclude WordSet) (string, bool) {
	matches := b.Matches(prefix, exclude)
	if len(matches) == 0 {
		return "", false
	}
	return matches[b.pick(len(matches))], true
}
