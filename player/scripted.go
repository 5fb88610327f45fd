// Package player holds the concrete game.Player variants: scripted and
// random bots, LLM-backed players and players reached over NATS.
package player

import (
	"context"
	"sync"

	"github.com/contacteval/contact/game"
)

// Scripted plays fixed moves. Rounds[i] holds the moves for round i+1,
// one per attempt; running out of moves yields an empty move. Guesses are
// used by the holder in call order, cycling.
type Scripted struct {
	Name    string
	Rounds  [][]game.Move
	Guesses []string

	mu           sync.Mutex
	attackerCall int
	holderCall   int
}

func NewScripted(name string, rounds [][]game.Move, guesses []string) *Scripted {
	return &Scripted{Name: name, Rounds: rounds, Guesses: guesses}
}

func (s *Scripted) ID() string { return s.Name }

func (s *Scripted) AttackerMove(ctx context.Context, req game.AttackerRequest) (game.Move, error) {
	s.mu.Lock()
	s.attackerCall++
	s.mu.Unlock()
	round := len(req.History)
	if round >= len(s.Rounds) {
		return game.Move{}, nil
	}
	moves := s.Rounds[round]
	if req.Attempt < 1 || req.Attempt > len(moves) {
		return game.Move{}, nil
	}
	return moves[req.Attempt-1], nil
}

func (s *Scripted) HolderMove(ctx context.Context, req game.HolderRequest) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.holderCall
	s.holderCall++
	if len(s.Guesses) == 0 {
		return "", nil
	}
	return s.Guesses[n%len(s.Guesses)], nil
}

// Calls returns how many attacker and holder calls were made.
func (s *Scripted) Calls() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attackerCall, s.holderCall
}
