package game

import (
	"math"
	"sort"
	"unicode/utf8"

	"github.com/samber/lo"

	"github.com/contacteval/contact/wordbank"
)

// DetectContacts groups the round's prefix words and returns one Contact
// for every word that two or more attackers chose. The secret word is
// never a contact. The output is sorted by word, and each contact's
// attacker ids are sorted, so the order of subs does not matter.
func DetectContacts(subs []Submission, secret string) []Contact {
	secret = wordbank.Normalize(secret)
	byWord := make(map[string][]string)
	for _, s := range subs {
		w := wordbank.Normalize(s.PrefixWord)
		if w == "" || w == secret {
			continue
		}
		byWord[w] = append(byWord[w], s.PlayerID)
	}
	contacts := []Contact{}
	for w, ids := range byWord {
		ids = lo.Uniq(ids)
		if len(ids) < 2 {
			continue
		}
		sort.Strings(ids)
		contacts = append(contacts, Contact{Word: w, AttackerIDs: ids})
	}
	sort.Slice(contacts, func(i, j int) bool {
		return contacts[i].Word < contacts[j].Word
	})
	return contacts
}

// ResolveRound builds the Round record once the holder has defended every
// contact.
//
// An attacker wins by playing the secret word as either the full-word
// guess or the prefix word. Simultaneous winners are broken by ascending
// player id. Without a winner, a letter is revealed iff at least one
// contact went unblocked. A reveal that would expose the whole word ends
// the game in favour of the lowest-id attacker behind an unblocked
// contact, preferring ones whose word was not auto-assigned.
func ResolveRound(number int, prefix, secret string, subs []Submission, contacts []Contact) Round {
	secret = wordbank.Normalize(secret)
	subs = sortedSubmissions(subs)
	rd := Round{
		Number:      number,
		Prefix:      prefix,
		Submissions: subs,
		Contacts:    contacts,
	}
	for _, s := range subs {
		if wordbank.Normalize(s.FullWordGuess) == secret || wordbank.Normalize(s.PrefixWord) == secret {
			rd.Winner = s.PlayerID
			rd.Reason = ReasonGuess
			return rd
		}
	}
	unblocked := lo.Filter(contacts, func(c Contact, _ int) bool { return !c.Blocked })
	if len(unblocked) == 0 {
		return rd
	}
	rd.LetterRevealed = true
	if utf8.RuneCountInString(prefix)+1 < utf8.RuneCountInString(secret) {
		return rd
	}
	rd.Winner = revealWinner(subs, unblocked)
	rd.Reason = ReasonReveal
	return rd
}

func revealWinner(subs []Submission, unblocked []Contact) string {
	auto := make(map[string]bool, len(subs))
	for _, s := range subs {
		auto[s.PlayerID] = s.AutoAssigned
	}
	var all, earned []string
	for _, c := range unblocked {
		for _, id := range c.AttackerIDs {
			all = append(all, id)
			if !auto[id] {
				earned = append(earned, id)
			}
		}
	}
	if len(earned) > 0 {
		return lo.Min(earned)
	}
	return lo.Min(all)
}

// IsFailedRound reports whether a round counts for the holder: nothing
// was revealed and no attacker won.
func IsFailedRound(rd Round) bool {
	if rd.LetterRevealed {
		return false
	}
	return rd.Reason != ReasonGuess && rd.Reason != ReasonReveal
}

// CalculateScores scores a finished game. Every configured attacker gets
// an entry. The holder score is the share of failed rounds over the word
// length, capped at 1 for games that hit the stall limit.
func CalculateScores(cfg Config, rounds []Round) (float64, map[string]float64) {
	wordLen := utf8.RuneCountInString(wordbank.Normalize(cfg.Word))
	scores := make(map[string]float64, len(cfg.AttackerIDs))
	for _, id := range cfg.AttackerIDs {
		scores[id] = 0
	}
	if wordLen == 0 {
		return 0, scores
	}
	failed := 0
	for _, rd := range rounds {
		if IsFailedRound(rd) {
			failed++
		}
		if rd.Reason == ReasonGuess || rd.Reason == ReasonReveal {
			if _, ok := scores[rd.Winner]; ok {
				k := utf8.RuneCountInString(rd.Prefix)
				scores[rd.Winner] += math.Max(1, float64(wordLen-k))
			}
		}
		if !rd.LetterRevealed {
			continue
		}
		auto := make(map[string]bool, len(rd.Submissions))
		for _, s := range rd.Submissions {
			auto[s.PlayerID] = s.AutoAssigned
		}
		for _, c := range rd.Contacts {
			if c.Blocked {
				continue
			}
			for _, id := range c.AttackerIDs {
				if _, ok := scores[id]; ok && !auto[id] {
					scores[id]++
				}
			}
		}
	}
	return math.Min(1, float64(failed)/float64(wordLen)), scores
}

func sortedSubmissions(subs []Submission) []Submission {
	out := append([]Submission(nil), subs...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PlayerID < out[j].PlayerID
	})
	return out
}
