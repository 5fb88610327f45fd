package player

import (
	"context"
	"fmt"

	"lukechampine.com/frand"

	"github.com/contacteval/contact/game"
	"github.com/contacteval/contact/wordbank"
)

// Random is a dictionary bot. As attacker it plays a random unused word
// with the current prefix; as holder it guesses one.
type Random struct {
	name string
	bank *wordbank.Bank
}

func NewRandom(name string, bank *wordbank.Bank) *Random {
	return &Random{name: name, bank: bank}
}

func (r *Random) ID() string { return r.name }

func (r *Random) AttackerMove(ctx context.Context, req game.AttackerRequest) (game.Move, error) {
	exclude := UsedWords(req.History)
	if req.LastError != nil && req.LastError.Word != "" {
		exclude.Add(req.LastError.Word)
	}
	matches := r.bank.Matches(req.Prefix, exclude)
	if len(matches) == 0 {
		return game.Move{}, fmt.Errorf("no unused word starts with %q", req.Prefix)
	}
	w := matches[frand.Intn(len(matches))]
	mv := game.Move{PrefixWord: w}
	if len(matches) == 1 {
		mv.FullWordGuess = w
	}
	return mv, nil
}

func (r *Random) HolderMove(ctx context.Context, req game.HolderRequest) (string, error) {
	exclude := UsedWords(req.History)
	exclude.Add(req.SecretWord)
	w, ok := r.bank.RandomMatch(req.Prefix, exclude)
	if !ok {
		return "", nil
	}
	return w, nil
}

// UsedWords collects every prefix word played in the rounds.
func UsedWords(history []game.Round) wordbank.WordSet {
	used := wordbank.NewWordSet()
	for _, rd := range history {
		for _, s := range rd.Submissions {
			used.Add(s.PrefixWord)
		}
	}
	return used
}
