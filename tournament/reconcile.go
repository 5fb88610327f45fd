package tournament

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/contacteval/contact/game"
	"github.com/contacteval/contact/rating"
)

// Reconcile loads the saved rating snapshot into manager and replays any
// saved game it does not reflect yet, oldest first. This closes the gap
// left by a crash between saving a game and saving the ratings. It
// returns the number of games replayed.
func Reconcile(ctx context.Context, store Store, manager *rating.Manager) (int, error) {
	snap, err := store.LoadRatings(ctx)
	if err != nil {
		return 0, fmt.Errorf("loading ratings: %w", err)
	}
	if err := manager.Restore(snap); err != nil {
		return 0, err
	}
	return replay(ctx, store, manager)
}

// Rebuild discards the saved ratings and recomputes them from every
// saved game.
func Rebuild(ctx context.Context, store Store, manager *rating.Manager) (int, error) {
	if err := manager.Restore(nil); err != nil {
		return 0, err
	}
	n, err := replay(ctx, store, manager)
	if err != nil || n > 0 {
		return n, err
	}
	if err := store.SaveRatings(ctx, manager.Snapshot()); err != nil {
		return 0, fmt.Errorf("saving ratings: %w", err)
	}
	return 0, nil
}

func replay(ctx context.Context, store Store, manager *rating.Manager) (int, error) {
	games, err := store.LoadAllGames(ctx)
	if err != nil {
		return 0, fmt.Errorf("loading games: %w", err)
	}
	SortResults(games)
	n := 0
	for _, g := range games {
		applied, err := manager.ProcessGame(g)
		if err != nil {
			return n, fmt.Errorf("replaying game %s: %w", g.ID, err)
		}
		if applied {
			n++
			log.Debug().Str("game", g.ID).Str("word", g.Config.Word).Msg("replayed")
		}
	}
	if n == 0 {
		return 0, nil
	}
	if err := store.SaveRatings(ctx, manager.Snapshot()); err != nil {
		return n, fmt.Errorf("saving ratings: %w", err)
	}
	log.Info().Int("games", n).Msg("ratings-reconciled")
	return n, nil
}

// SortResults orders results by commit sequence, then finish time, then
// id. Games saved without a sequence number come first.
func SortResults(games []*game.Result) {
	sort.SliceStable(games, func(i, j int) bool {
		if si, sj := games[i].Seq, games[j].Seq; si != sj {
			return si < sj
		}
		ti, tj := games[i].Timestamp, games[j].Timestamp
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return games[i].ID < games[j].ID
	})
}
