// Package game contains the rules and the round protocol of Contact, a
// word-deduction game where one holder defends a secret word against a
// group of attackers who only ever see a growing prefix of it.
package game

import (
	"errors"
	"fmt"
	"time"

	"github.com/contacteval/contact/wordbank"
)

// StandardAttackers is the number of attackers in the standard variant.
const StandardAttackers = 3

var ErrInvalidConfig = errors.New("invalid game config")

// Config describes one game before it is played.
type Config struct {
	Word         string   `json:"word" yaml:"word"`
	HolderID     string   `json:"holder_id" yaml:"holder_id"`
	AttackerIDs  []string `json:"attacker_ids" yaml:"attacker_ids"`
	DictionaryID string   `json:"dictionary_id" yaml:"dictionary_id"`
}

// Validate checks the structural invariants of a config. Dictionary
// membership of the word is checked by whoever owns the dictionary.
func (c Config) Validate() error {
	if wordbank.Normalize(c.Word) == "" {
		return fmt.Errorf("%w: empty secret word", ErrInvalidConfig)
	}
	if c.HolderID == "" {
		return fmt.Errorf("%w: empty holder id", ErrInvalidConfig)
	}
	if len(c.AttackerIDs) < 2 {
		return fmt.Errorf("%w: need at least 2 attackers, got %d", ErrInvalidConfig, len(c.AttackerIDs))
	}
	seen := make(map[string]bool, len(c.AttackerIDs))
	for _, id := range c.AttackerIDs {
		switch {
		case id == "":
			return fmt.Errorf("%w: empty attacker id", ErrInvalidConfig)
		case id == c.HolderID:
			return fmt.Errorf("%w: %s is both holder and attacker", ErrInvalidConfig, id)
		case seen[id]:
			return fmt.Errorf("%w: duplicate attacker %s", ErrInvalidConfig, id)
		}
		seen[id] = true
	}
	return nil
}

// Submission is what one attacker ends up playing in a round.
// Both words may be empty, which counts as not submitting.
type Submission struct {
	PlayerID      string `json:"player_id" yaml:"player_id"`
	PrefixWord    string `json:"prefix_word,omitempty" yaml:"prefix_word,omitempty"`
	FullWordGuess string `json:"full_word_guess,omitempty" yaml:"full_word_guess,omitempty"`
	AutoAssigned  bool   `json:"auto_assigned,omitempty" yaml:"auto_assigned,omitempty"`
	Attempts      int    `json:"attempts" yaml:"attempts"`
}

func (s Submission) Empty() bool {
	return s.PrefixWord == "" && s.FullWordGuess == ""
}

// Contact is a word chosen independently by two or more attackers in the
// same round.
type Contact struct {
	Word        string   `json:"word" yaml:"word"`
	AttackerIDs []string `json:"attacker_ids" yaml:"attacker_ids"`
	HolderGuess string   `json:"holder_guess,omitempty" yaml:"holder_guess,omitempty"`
	Blocked     bool     `json:"blocked" yaml:"blocked"`
}

// EndReason says why a round ended the game.
type EndReason string

const (
	ReasonNone EndReason = ""
	// An attacker played the secret word.
	ReasonGuess EndReason = "guess"
	// The last hidden letter was revealed by a contact.
	ReasonReveal EndReason = "reveal"
	// The round limit was hit; the holder wins.
	ReasonStall EndReason = "stall"
)

type Round struct {
	Number         int          `json:"number" yaml:"number"`
	Prefix         string       `json:"prefix" yaml:"prefix"`
	Submissions    []Submission `json:"submissions" yaml:"submissions"`
	Contacts       []Contact    `json:"contacts" yaml:"contacts"`
	LetterRevealed bool         `json:"letter_revealed" yaml:"letter_revealed"`
	Winner         string       `json:"winner,omitempty" yaml:"winner,omitempty"`
	Reason         EndReason    `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// Result is the immutable record of a finished game. Seq is stamped
// once, by the tournament runner, when the game is committed.
type Result struct {
	ID             string             `json:"id" yaml:"id"`
	Seq            int64              `json:"seq,omitempty" yaml:"seq,omitempty"`
	Config         Config             `json:"config" yaml:"config"`
	Rounds         []Round            `json:"rounds" yaml:"rounds"`
	Winner         string             `json:"winner" yaml:"winner"`
	HolderWon      bool               `json:"holder_won,omitempty" yaml:"holder_won,omitempty"`
	HolderScore    float64            `json:"holder_score" yaml:"holder_score"`
	AttackerScores map[string]float64 `json:"attacker_scores" yaml:"attacker_scores"`
	Duration       time.Duration      `json:"duration" yaml:"duration"`
	Timestamp      time.Time          `json:"timestamp" yaml:"timestamp"`
}

// LastRound returns the round that ended the game.
func (r *Result) LastRound() Round {
	if len(r.Rounds) == 0 {
		return Round{}
	}
	return r.Rounds[len(r.Rounds)-1]
}
