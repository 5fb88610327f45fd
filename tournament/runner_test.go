package tournament

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contacteval/contact/game"
	"github.com/contacteval/contact/rating"
	"github.com/contacteval/contact/wordbank"
)

// guesser plays the same full-word guess every round. It stalls its
// opening move in games whose prefix starts with slowOn.
type guesser struct {
	id     string
	guess  string
	slowOn string
	delay  time.Duration
}

func (g guesser) ID() string { return g.id }

func (g guesser) AttackerMove(ctx context.Context, req game.AttackerRequest) (game.Move, error) {
	if g.delay > 0 && len(req.History) == 0 && strings.HasPrefix(req.Prefix, g.slowOn) {
		select {
		case <-time.After(g.delay):
		case <-ctx.Done():
			return game.Move{}, ctx.Err()
		}
	}
	return game.Move{FullWordGuess: g.guess}, nil
}

func (g guesser) HolderMove(ctx context.Context, req game.HolderRequest) (string, error) {
	return "", nil
}

type memStore struct {
	sync.Mutex
	games          []*game.Result
	snap           *rating.Snapshot
	failSaveGame   map[string]bool
	failSaveRating bool
}

func (s *memStore) SaveGame(ctx context.Context, res *game.Result) error {
	s.Lock()
	defer s.Unlock()
	if s.failSaveGame[res.Config.Word] {
		return errors.New("disk full")
	}
	s.games = append(s.games, res)
	return nil
}

func (s *memStore) LoadAllGames(ctx context.Context) ([]*game.Result, error) {
	s.Lock()
	defer s.Unlock()
	return append([]*game.Result(nil), s.games...), nil
}

func (s *memStore) SaveRatings(ctx context.Context, snap *rating.Snapshot) error {
	s.Lock()
	defer s.Unlock()
	if s.failSaveRating {
		return errors.New("disk full")
	}
	s.snap = snap
	return nil
}

func (s *memStore) LoadRatings(ctx context.Context) (*rating.Snapshot, error) {
	s.Lock()
	defer s.Unlock()
	return s.snap, nil
}

var runnerWords = []string{"CAT", "DOG", "EMU", "FOX", "GNU", "HEN", "OWL", "YAK"}

func newTestRunner(store Store, opts ...RunnerOption) (*Runner, *rating.Manager) {
	m := rating.NewManager()
	return newSlowRunner(store, m, "", 0, opts...), m
}

// newSlowRunner stalls every player's opening move in games on words
// starting with slowOn.
func newSlowRunner(store Store, m *rating.Manager, slowOn string, delay time.Duration, opts ...RunnerOption) *Runner {
	bank := wordbank.New("zoo", runnerWords)
	players := make([]game.Player, 0, 5)
	for i, w := range []string{"CAT", "DOG", "EMU", "FOX", "GNU"} {
		players = append(players, guesser{id: string(rune('a' + i)), guess: w, slowOn: slowOn, delay: delay})
	}
	return NewRunner(game.NewEngine(bank), players, m, store, opts...)
}

func schedule(t *testing.T, words []string) []game.Config {
	s, err := NewScheduler([]string{"a", "b", "c", "d", "e"}, "zoo", WithShuffle(noShuffle))
	require.NoError(t, err)
	configs, err := s.Generate(words, 3)
	require.NoError(t, err)
	return configs
}

func TestRunCommitsInScheduleOrder(t *testing.T) {
	store := &memStore{}
	r, m := newTestRunner(store, WithThreads(3))
	configs := schedule(t, []string{"CAT", "DOG", "EMU", "FOX", "GNU"})

	summary, err := r.Run(context.Background(), configs)
	require.NoError(t, err)
	require.NoError(t, summary.Err())
	assert.Equal(t, len(configs), summary.Played)
	require.Len(t, store.games, len(configs))
	for i, res := range store.games {
		assert.Equal(t, configs[i], res.Config)
		assert.True(t, m.Applied(res.ID))
	}
	assert.Equal(t, m.Snapshot(), store.snap)
}

func TestRunMatchesSequentialRun(t *testing.T) {
	configs := schedule(t, []string{"CAT", "HEN", "DOG", "OWL", "EMU"})
	sequential, ms := newTestRunner(&memStore{})
	parallel, mp := newTestRunner(&memStore{}, WithThreads(4))
	_, err := sequential.Run(context.Background(), configs)
	require.NoError(t, err)
	_, err = parallel.Run(context.Background(), configs)
	require.NoError(t, err)
	assert.Equal(t, ms.Top(rating.RoleAttacker), mp.Top(rating.RoleAttacker))
	assert.Equal(t, ms.Top(rating.RoleHolder), mp.Top(rating.RoleHolder))
}

func TestRunIsolatesFailedGames(t *testing.T) {
	store := &memStore{failSaveGame: map[string]bool{"DOG": true}}
	r, m := newTestRunner(store)
	configs := schedule(t, []string{"CAT", "DOG"})

	summary, err := r.Run(context.Background(), configs)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Played)
	require.Len(t, summary.Failed, 2)
	assert.Equal(t, 1, summary.Failed[0].Index)
	assert.Error(t, summary.Err())
	// Unsaved games are not rated either.
	assert.Len(t, m.Snapshot().Applied, 3)
}

func TestValidateRejectsUnknownPlayersAndWords(t *testing.T) {
	r, _ := newTestRunner(&memStore{})
	_, err := r.Run(context.Background(), []game.Config{
		{Word: "CAT", HolderID: "a", AttackerIDs: []string{"b", "c", "zz"}},
	})
	assert.ErrorIs(t, err, ErrConfiguration)

	err = r.Validate([]game.Config{{Word: "LION", HolderID: "a", AttackerIDs: []string{"b", "c", "d"}}})
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestRatingsSaveFailureIsRecoveredByReconcile(t *testing.T) {
	store := &memStore{failSaveRating: true}
	r, m := newTestRunner(store)
	configs := schedule(t, []string{"CAT", "DOG", "EMU"})

	summary, err := r.Run(context.Background(), configs)
	require.NoError(t, err)
	assert.Equal(t, len(configs), summary.Played)
	assert.Len(t, summary.Failed, len(configs))
	assert.Nil(t, store.snap)
	want := m.Snapshot()

	store.failSaveRating = false
	fresh := rating.NewManager()
	n, err := Reconcile(context.Background(), store, fresh)
	require.NoError(t, err)
	assert.Equal(t, len(configs), n)
	assert.Equal(t, want, fresh.Snapshot())
	assert.Equal(t, want, store.snap)

	// Nothing left to replay.
	n, err = Reconcile(context.Background(), store, rating.NewManager())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestRebuildStartsFromScratch(t *testing.T) {
	store := &memStore{}
	r, m := newTestRunner(store)
	_, err := r.Run(context.Background(), schedule(t, []string{"CAT"}))
	require.NoError(t, err)

	other := rating.NewManager()
	_, err = other.ProcessGame(&game.Result{
		ID: "stray", Config: game.Config{Word: "YAK", HolderID: "z"}, AttackerScores: map[string]float64{},
	})
	require.NoError(t, err)
	n, err := Rebuild(context.Background(), store, other)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.False(t, other.Applied("stray"))
	assert.Equal(t, m.Snapshot(), other.Snapshot())
}

func TestRoundLog(t *testing.T) {
	var buf bytes.Buffer
	r, _ := newTestRunner(&memStore{}, WithRoundLog(&buf), WithThreads(2))
	configs := schedule(t, []string{"CAT"})
	_, err := r.Run(context.Background(), configs)
	require.NoError(t, err)

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, roundLogHeader, records[0])
	// One row per attacker per round.
	assert.Equal(t, 0, (len(records)-1)%3)
	assert.Greater(t, len(records), 1)
}

func TestRunStopsOnCancel(t *testing.T) {
	r, _ := newTestRunner(&memStore{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	summary, err := r.Run(ctx, schedule(t, []string{"CAT"}))
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, summary)
	assert.Equal(t, 5, summary.Skipped+summary.Played+len(summary.Failed))
}

func TestRebuildMatchesParallelRun(t *testing.T) {
	store := &memStore{}
	live := rating.NewManager(rating.WithMinDifficultyGames(1))
	r := newSlowRunner(store, live, "D", 80*time.Millisecond, WithThreads(4))
	configs := schedule(t, []string{"DOG", "CAT", "CAT", "CAT", "CAT"})

	summary, err := r.Run(context.Background(), configs)
	require.NoError(t, err)
	require.NoError(t, summary.Err())
	require.Len(t, store.games, 5)
	for i, res := range store.games {
		assert.Equal(t, configs[i], res.Config)
		assert.Equal(t, int64(i+1), res.Seq)
	}
	// The first game finished last.
	assert.True(t, store.games[0].Timestamp.After(store.games[1].Timestamp))

	rebuilt := rating.NewManager(rating.WithMinDifficultyGames(1))
	n, err := Rebuild(context.Background(), store, rebuilt)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, live.Snapshot(), rebuilt.Snapshot())
	assert.Equal(t, live.Top(rating.RoleAttacker), rebuilt.Top(rating.RoleAttacker))
	assert.Equal(t, live.Top(rating.RoleHolder), rebuilt.Top(rating.RoleHolder))
}

func TestReconcileReplaysParallelGamesInCommitOrder(t *testing.T) {
	store := &memStore{failSaveRating: true}
	live := rating.NewManager(rating.WithMinDifficultyGames(1))
	r := newSlowRunner(store, live, "D", 80*time.Millisecond, WithThreads(4))
	configs := schedule(t, []string{"DOG", "CAT", "DOG", "CAT", "CAT"})

	summary, err := r.Run(context.Background(), configs)
	require.NoError(t, err)
	assert.Equal(t, 5, summary.Played)
	assert.Nil(t, store.snap)

	store.failSaveRating = false
	fresh := rating.NewManager(rating.WithMinDifficultyGames(1))
	n, err := Reconcile(context.Background(), store, fresh)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, live.Snapshot(), fresh.Snapshot())
}

func TestRunContinuesSequenceAcrossRuns(t *testing.T) {
	store := &memStore{}
	configs := schedule(t, []string{"CAT"})
	first, _ := newTestRunner(store, WithThreads(2))
	_, err := first.Run(context.Background(), configs)
	require.NoError(t, err)
	second, _ := newTestRunner(store, WithThreads(2))
	_, err = second.Run(context.Background(), configs)
	require.NoError(t, err)

	require.Len(t, store.games, 10)
	for i, res := range store.games {
		assert.Equal(t, int64(i+1), res.Seq)
	}
}
