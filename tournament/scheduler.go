// Package tournament schedules batches of games and plays them, folding
// every result into the ratings as it goes.
package tournament

import (
	"errors"
	"fmt"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/stat/combin"
	"lukechampine.com/frand"

	"github.com/contacteval/contact/game"
)

// ErrConfiguration is returned for setups that must be fixed before any
// game can start.
var ErrConfiguration = errors.New("tournament configuration error")

// seatsPerGame is one holder plus the standard attackers.
const seatsPerGame = 1 + game.StandardAttackers

type Scheduler struct {
	participants []string
	dictionaryID string
	shuffle      func(n int, swap func(i, j int))
}

type SchedulerOption func(*Scheduler)

// WithShuffle replaces the random shuffle of the seatings.
func WithShuffle(shuffle func(n int, swap func(i, j int))) SchedulerOption {
	return func(s *Scheduler) { s.shuffle = shuffle }
}

func NewScheduler(participants []string, dictionaryID string, opts ...SchedulerOption) (*Scheduler, error) {
	uniq := lo.Uniq(lo.Compact(participants))
	if len(uniq) < seatsPerGame {
		return nil, fmt.Errorf("%w: need at least %d distinct participants, got %d",
			ErrConfiguration, seatsPerGame, len(uniq))
	}
	s := &Scheduler{
		participants: uniq,
		dictionaryID: dictionaryID,
		shuffle:      frand.Shuffle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Generate returns floor(N * gamesPerAttacker / 3) configs. Every ordered
// seating (holder, attacker, attacker, attacker) is enumerated, shuffled
// once, then cycled alongside the word list.
func (s *Scheduler) Generate(words []string, gamesPerAttacker int) ([]game.Config, error) {
	if len(words) == 0 {
		return nil, fmt.Errorf("%w: empty word list", ErrConfiguration)
	}
	if gamesPerAttacker < 0 {
		return nil, fmt.Errorf("%w: negative games per attacker", ErrConfiguration)
	}
	seatings := combin.Permutations(len(s.participants), seatsPerGame)
	s.shuffle(len(seatings), func(i, j int) {
		seatings[i], seatings[j] = seatings[j], seatings[i]
	})

	total := len(s.participants) * gamesPerAttacker / game.StandardAttackers
	configs := make([]game.Config, 0, total)
	for i := 0; i < total; i++ {
		seat := seatings[i%len(seatings)]
		attackers := make([]string, 0, game.StandardAttackers)
		for _, idx := range seat[1:] {
			attackers = append(attackers, s.participants[idx])
		}
		configs = append(configs, game.Config{
			Word:         words[i%len(words)],
			HolderID:     s.participants[seat[0]],
			AttackerIDs:  attackers,
			DictionaryID: s.dictionaryID,
		})
	}
	return configs, nil
}

// Exposure counts how often each participant sits in each role.
type Exposure struct {
	Holder   map[string]int
	Attacker map[string]int
}

func CountExposure(configs []game.Config) Exposure {
	e := Exposure{Holder: map[string]int{}, Attacker: map[string]int{}}
	for _, c := range configs {
		e.Holder[c.HolderID]++
		for _, a := range c.AttackerIDs {
			e.Attacker[a]++
		}
	}
	return e
}
