package rating

import (
	"fmt"
	"sort"

	"github.com/samber/lo"
)

// Snapshot is the whole persisted rating state: the table, the
// calibrator and the ids of the games already folded in.
type Snapshot struct {
	Ratings    []Rating         `json:"ratings" yaml:"ratings"`
	Difficulty []DifficultyStat `json:"difficulty" yaml:"difficulty"`
	Applied    []string         `json:"applied" yaml:"applied"`
}

func (m *Manager) Snapshot() *Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	applied := lo.Keys(m.applied)
	sort.Strings(applied)
	return &Snapshot{
		Ratings:    m.table.All(),
		Difficulty: m.calibrator.export(),
		Applied:    applied,
	}
}

// Restore replaces the manager's state with the snapshot. A nil snapshot
// resets it.
func (m *Manager) Restore(s *Snapshot) error {
	table := NewTable()
	applied := make(map[string]bool)
	var difficulty []DifficultyStat
	if s != nil {
		for _, r := range s.Ratings {
			if _, err := ParseRole(string(r.Role)); err != nil {
				return fmt.Errorf("restoring rating for %s: %w", r.PlayerID, err)
			}
			if _, dup := table.Get(r.PlayerID, r.Role); dup {
				return fmt.Errorf("duplicate rating for %s as %s", r.PlayerID, r.Role)
			}
			table.Set(r)
		}
		for _, id := range s.Applied {
			applied[id] = true
		}
		difficulty = s.Difficulty
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.table = table
	m.applied = applied
	m.calibrator.load(difficulty)
	return nil
}
