package tournament

import (
	"context"

	"github.com/contacteval/contact/game"
	"github.com/contacteval/contact/rating"
)

// Store persists game results and rating snapshots. Saved games are
// never rewritten. LoadRatings returns a nil snapshot when nothing has
// been saved yet.
type Store interface {
	SaveGame(ctx context.Context, res *game.Result) error
	LoadAllGames(ctx context.Context) ([]*game.Result, error)
	SaveRatings(ctx context.Context, snap *rating.Snapshot) error
	LoadRatings(ctx context.Context) (*rating.Snapshot, error)
}
