package store

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/samber/lo"

	"github.com/contacteval/contact/game"
	"github.com/contacteval/contact/tournament"
	"github.com/contacteval/contact/wordbank"
)

const (
	DriverSQLite = "sqlite"
	DriverYAML   = "yaml"
)

// Store is a tournament store that owns resources.
type Store interface {
	tournament.Store
	io.Closer
}

// WordQuerier is implemented by stores that can select games by word
// without loading every game.
type WordQuerier interface {
	GamesForWord(ctx context.Context, word string) ([]*game.Result, error)
}

func (d *Dir) Close() error { return nil }

// GamesForWord returns the games played on word in commit order, using
// the store's own query when it has one.
func GamesForWord(ctx context.Context, st tournament.Store, word string) ([]*game.Result, error) {
	word = wordbank.Normalize(word)
	if q, ok := st.(WordQuerier); ok {
		return q.GamesForWord(ctx, word)
	}
	games, err := st.LoadAllGames(ctx)
	if err != nil {
		return nil, err
	}
	return lo.Filter(games, func(g *game.Result, _ int) bool {
		return strings.EqualFold(g.Config.Word, word)
	}), nil
}

// Open opens the store for driver under the results path. SQLite uses
// <path>/contact.db.
func Open(driver, path string) (Store, error) {
	switch driver {
	case DriverSQLite, "":
		s, err := OpenSQLite(filepath.Join(path, "contact.db"))
		if err != nil {
			return nil, err
		}
		return s, nil
	case DriverYAML:
		d, err := OpenDir(path)
		if err != nil {
			return nil, err
		}
		return d, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", driver)
}
