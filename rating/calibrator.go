package rating

import (
	"sort"

	"github.com/contacteval/contact/stats"
	"github.com/contacteval/contact/wordbank"
)

const DefaultMinDifficultyGames = 10

type DifficultyKey struct {
	Word string
	Role Role
}

// Calibrator learns how much easier or harder a word is for a role than
// the players' ratings predict. It tracks the residual observed - mu,
// taken before the rating update.
type Calibrator struct {
	minGames int
	stats    map[DifficultyKey]*stats.Statistic
}

func NewCalibrator(minGames int) *Calibrator {
	return &Calibrator{
		minGames: minGames,
		stats:    make(map[DifficultyKey]*stats.Statistic),
	}
}

// Difficulty returns the mean residual for (word, role), or 0 while
// fewer than the minimum number of games have been seen.
func (c *Calibrator) Difficulty(word string, role Role) float64 {
	st, ok := c.stats[DifficultyKey{Word: wordbank.Normalize(word), Role: role}]
	if !ok || st.Count() < c.minGames {
		return 0
	}
	return st.Mean()
}

func (c *Calibrator) Observe(word string, role Role, residual float64) {
	k := DifficultyKey{Word: wordbank.Normalize(word), Role: role}
	st, ok := c.stats[k]
	if !ok {
		st = &stats.Statistic{}
		c.stats[k] = st
	}
	st.Push(residual)
}

// DifficultyStat is the persisted form of one calibrator entry.
type DifficultyStat struct {
	Word    string        `json:"word" yaml:"word"`
	Role    Role          `json:"role" yaml:"role"`
	Moments stats.Moments `json:"moments" yaml:"moments"`
}

func (c *Calibrator) export() []DifficultyStat {
	out := make([]DifficultyStat, 0, len(c.stats))
	for k, st := range c.stats {
		out = append(out, DifficultyStat{Word: k.Word, Role: k.Role, Moments: st.Moments()})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Word != out[j].Word {
			return out[i].Word < out[j].Word
		}
		return out[i].Role < out[j].Role
	})
	return out
}

func (c *Calibrator) load(entries []DifficultyStat) {
	c.stats = make(map[DifficultyKey]*stats.Statistic, len(entries))
	for _, e := range entries {
		c.stats[DifficultyKey{Word: wordbank.Normalize(e.Word), Role: e.Role}] = stats.FromMoments(e.Moments)
	}
}
