package game

import "context"

// Move is an attacker's raw answer for one attempt.
type Move struct {
	PrefixWord    string `json:"prefix_word,omitempty" yaml:"prefix_word,omitempty"`
	FullWordGuess string `json:"full_word_guess,omitempty" yaml:"full_word_guess,omitempty"`
}

type AttackerRequest struct {
	PlayerID string
	Prefix   string
	// Rounds already played in this game, oldest first. Read-only.
	History []Round
	// Attempt is 1-based.
	Attempt int
	// LastError explains why the previous attempt was rejected; nil on
	// the first attempt.
	LastError *Diagnostic
}

type HolderRequest struct {
	PlayerID     string
	SecretWord   string
	Prefix       string
	History      []Round
	ContactCount int
	// ContactIndex is the 0-based position of the contact being defended.
	ContactIndex int
}

// Player is anything that can sit at the table. Implementations must be
// safe for concurrent use by different games, and AttackerMove may be
// called up to three times per round for the same player.
type Player interface {
	ID() string
	AttackerMove(ctx context.Context, req AttackerRequest) (Move, error)
	HolderMove(ctx context.Context, req HolderRequest) (string, error)
}
