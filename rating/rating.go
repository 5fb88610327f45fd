// Package rating keeps a Gaussian skill belief per player and role and
// turns finished games into rating updates.
package rating

import (
	"fmt"
	"sort"
	"strings"
)

type Role string

const (
	RoleHolder   Role = "holder"
	RoleAttacker Role = "attacker"
)

var Roles = []Role{RoleHolder, RoleAttacker}

func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleHolder:
		return RoleHolder, nil
	case RoleAttacker:
		return RoleAttacker, nil
	}
	return "", fmt.Errorf("unknown role %q (want holder or attacker)", s)
}

const (
	DefaultMu    = 0.0
	DefaultSigma = 5.0
	// Ratings built on fewer games than this are provisional.
	ProvisionalGames = 30
)

type Rating struct {
	PlayerID    string  `json:"player_id" yaml:"player_id"`
	Role        Role    `json:"role" yaml:"role"`
	Mu          float64 `json:"mu" yaml:"mu"`
	Sigma       float64 `json:"sigma" yaml:"sigma"`
	GamesPlayed int     `json:"games_played" yaml:"games_played"`
	Provisional bool    `json:"provisional" yaml:"provisional"`
}

func NewRating(playerID string, role Role) Rating {
	return Rating{
		PlayerID:    playerID,
		Role:        role,
		Mu:          DefaultMu,
		Sigma:       DefaultSigma,
		Provisional: true,
	}
}

// Conservative is the lower bound mu - 2 sigma used for ranking.
func (r Rating) Conservative() float64 {
	return r.Mu - 2*r.Sigma
}

type Key struct {
	PlayerID string
	Role     Role
}

func (r Rating) Key() Key {
	return Key{PlayerID: r.PlayerID, Role: r.Role}
}

// Table is the rating table, keyed by (player, role). It is not safe for
// concurrent use; Manager serializes access.
type Table struct {
	ratings map[Key]*Rating
}

func NewTable() *Table {
	return &Table{ratings: make(map[Key]*Rating)}
}

// Lookup returns the rating for the key, inserting a default one first if
// the player has never played the role.
func (t *Table) Lookup(playerID string, role Role) *Rating {
	k := Key{PlayerID: playerID, Role: role}
	r, ok := t.ratings[k]
	if !ok {
		nr := NewRating(playerID, role)
		r = &nr
		t.ratings[k] = r
	}
	return r
}

func (t *Table) Get(playerID string, role Role) (Rating, bool) {
	r, ok := t.ratings[Key{PlayerID: playerID, Role: role}]
	if !ok {
		return Rating{}, false
	}
	return *r, true
}

func (t *Table) Set(r Rating) {
	t.ratings[r.Key()] = &r
}

func (t *Table) Len() int {
	return len(t.ratings)
}

// Ratings returns copies of every rating for the role, sorted by player id.
func (t *Table) Ratings(role Role) []Rating {
	var out []Rating
	for k, r := range t.ratings {
		if k.Role == role {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].PlayerID < out[j].PlayerID
	})
	return out
}

// All returns every rating, holders first.
func (t *Table) All() []Rating {
	var out []Rating
	for _, role := range Roles {
		out = append(out, t.Ratings(role)...)
	}
	return out
}
