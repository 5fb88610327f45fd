package rating

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/contacteval/contact/game"
	"github.com/contacteval/contact/stats"
)

// Manager owns the rating table and the difficulty calibrator. All
// mutation goes through ProcessGame.
type Manager struct {
	mu         sync.RWMutex
	table      *Table
	calibrator *Calibrator
	updater    Updater
	applied    map[string]bool
}

type ManagerOption func(*Manager)

func WithNoiseVariance(v float64) ManagerOption {
	return func(m *Manager) { m.updater.NoiseVariance = v }
}

func WithMinDifficultyGames(n int) ManagerOption {
	return func(m *Manager) { m.calibrator.minGames = n }
}

func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		table:      NewTable(),
		calibrator: NewCalibrator(DefaultMinDifficultyGames),
		updater:    Updater{NoiseVariance: DefaultNoiseVariance},
		applied:    make(map[string]bool),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ProcessGame applies one game's rating updates. It returns false if the
// game was already applied. Difficulty offsets for the word are read
// before any update so the game cannot influence its own offsets; the
// game's residuals are recorded afterwards.
func (m *Manager) ProcessGame(res *game.Result) (bool, error) {
	if res == nil {
		return false, errors.New("nil game result")
	}
	if res.ID == "" {
		return false, fmt.Errorf("game %s has no id", res.Config.Word)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.applied[res.ID] {
		return false, nil
	}
	word := res.Config.Word
	holderD := m.calibrator.Difficulty(word, RoleHolder)
	attackerD := m.calibrator.Difficulty(word, RoleAttacker)

	type residual struct {
		role  Role
		value float64
	}
	var residuals []residual

	h := m.table.Lookup(res.Config.HolderID, RoleHolder)
	residuals = append(residuals, residual{RoleHolder, res.HolderScore - h.Mu})
	m.updater.Update(h, res.HolderScore, holderD)

	ids := lo.Keys(res.AttackerScores)
	sort.Strings(ids)
	for _, id := range ids {
		score := res.AttackerScores[id]
		a := m.table.Lookup(id, RoleAttacker)
		residuals = append(residuals, residual{RoleAttacker, score - a.Mu})
		m.updater.Update(a, score, attackerD)
	}
	for _, r := range residuals {
		m.calibrator.Observe(word, r.role, r.value)
	}
	m.applied[res.ID] = true
	log.Debug().Str("game", res.ID).Str("word", word).
		Float64("holder-difficulty", holderD).Float64("attacker-difficulty", attackerD).
		Msg("ratings-updated")
	return true, nil
}

func (m *Manager) Applied(gameID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.applied[gameID]
}

func (m *Manager) Rating(playerID string, role Role) (Rating, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.table.Get(playerID, role)
}

func (m *Manager) Difficulty(word string, role Role) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calibrator.Difficulty(word, role)
}

// Top returns every rating for the role, best conservative rating first.
// Ties go to the lower player id.
func (m *Manager) Top(role Role) []Rating {
	m.mu.RLock()
	ratings := m.table.Ratings(role)
	m.mu.RUnlock()
	sort.SliceStable(ratings, func(i, j int) bool {
		ci, cj := ratings[i].Conservative(), ratings[j].Conservative()
		if ci != cj {
			return ci > cj
		}
		return ratings[i].PlayerID < ratings[j].PlayerID
	})
	return ratings
}

// Interval returns the confidence interval (in percent) of a rating's
// skill estimate.
func Interval(r Rating, confidence float64) (float64, float64) {
	return stats.Interval(r.Mu, r.Sigma, confidence)
}

func StatusLabel(r Rating) string {
	if r.Provisional {
		return "Provisional"
	}
	return "Official"
}

// Markdown renders the role's leaderboard as a markdown table.
func (m *Manager) Markdown(role Role) string {
	var b strings.Builder
	title := strings.ToUpper(string(role[:1])) + string(role[1:])
	fmt.Fprintf(&b, "### %s Leaderboard\n\n", title)
	b.WriteString("| Rank | Model | Rating (μ-2σ) | Skill (μ) | Uncertainty (σ) | Games | Status |\n")
	b.WriteString("|:---|:---|:---|:---|:---|:---|:---|\n")
	for i, r := range m.Top(role) {
		fmt.Fprintf(&b, "| %d | %s | **%.2f** | %.2f | %.2f | %d | %s |\n",
			i+1, r.PlayerID, r.Conservative(), r.Mu, r.Sigma, r.GamesPlayed, StatusLabel(r))
	}
	return b.String()
}
