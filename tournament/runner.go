package tournament

import (
	"context"
	"encoding/csv"
	"errors"
	"expvar"
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/contacteval/contact/game"
	"github.com/contacteval/contact/rating"
)

var (
	GamesPlayed   *expvar.Int
	GamesInFlight *expvar.Int
)

func init() {
	GamesPlayed = expvar.NewInt("gamesPlayed")
	GamesInFlight = expvar.NewInt("gamesInFlight")
}

var roundLogHeader = []string{
	"gameID", "word", "holder", "round", "prefix", "playerID", "prefixWord",
	"fullWordGuess", "autoAssigned", "attempts", "contact", "blocked", "revealed", "winner",
}

// Runner plays scheduled games and commits each result: save the game,
// update the ratings, save the ratings. Games may be played on several
// goroutines but results are committed one at a time, in schedule order,
// so the ratings only ever have a single writer.
type Runner struct {
	engine   *game.Engine
	players  map[string]game.Player
	manager  *rating.Manager
	store    Store
	threads  int
	roundLog io.Writer
	// seq is the commit sequence number of the next saved game.
	seq int64
}

type RunnerOption func(*Runner)

func WithThreads(n int) RunnerOption {
	return func(r *Runner) {
		if n > 0 {
			r.threads = n
		}
	}
}

// WithRoundLog writes one CSV row per attacker submission to w.
func WithRoundLog(w io.Writer) RunnerOption {
	return func(r *Runner) { r.roundLog = w }
}

func NewRunner(engine *game.Engine, players []game.Player, manager *rating.Manager, store Store, opts ...RunnerOption) *Runner {
	r := &Runner{
		engine:  engine,
		players: lo.KeyBy(players, func(p game.Player) string { return p.ID() }),
		manager: manager,
		store:   store,
		threads: 1,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Failure is a game that could not be played or committed.
type Failure struct {
	Index int
	Word  string
	Err   error
}

type Summary struct {
	Played  int
	Skipped int
	Failed  []Failure
	Results []*game.Result
}

// Err joins every per-game failure, or returns nil.
func (s *Summary) Err() error {
	errs := make([]error, 0, len(s.Failed))
	for _, f := range s.Failed {
		errs = append(errs, fmt.Errorf("game %d (%s): %w", f.Index, f.Word, f.Err))
	}
	return errors.Join(errs...)
}

// Validate checks a batch before anything is played.
func (r *Runner) Validate(configs []game.Config) error {
	bank := r.engine.Bank()
	for i, cfg := range configs {
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("%w: game %d: %w", ErrConfiguration, i, err)
		}
		if !bank.Validate(cfg.Word) {
			return fmt.Errorf("%w: game %d: %q is not in dictionary %s", ErrConfiguration, i, cfg.Word, bank.ID())
		}
		for _, id := range append([]string{cfg.HolderID}, cfg.AttackerIDs...) {
			if _, ok := r.players[id]; !ok {
				return fmt.Errorf("%w: game %d: no player registered as %s", ErrConfiguration, i, id)
			}
		}
	}
	return nil
}

type job struct {
	index int
	cfg   game.Config
}

type outcome struct {
	index int
	cfg   game.Config
	res   *game.Result
	err   error
}

// Run plays every config. A game that fails is logged, recorded in the
// summary and skipped. Cancelling ctx stops new games from starting;
// games already committed stay committed.
func (r *Runner) Run(ctx context.Context, configs []game.Config) (*Summary, error) {
	if err := r.Validate(configs); err != nil {
		return nil, err
	}
	if err := r.loadSeq(ctx); err != nil {
		return nil, err
	}
	log.Info().Int("games", len(configs)).Int("threads", r.threads).Msg("starting-tournament")

	jobs := make(chan job, r.threads)
	outcomes := make(chan outcome, r.threads)
	var fed int
	var wg sync.WaitGroup
	wg.Add(r.threads)
	for t := 0; t < r.threads; t++ {
		go func() {
			defer wg.Done()
			for j := range jobs {
				GamesInFlight.Add(1)
				res, err := r.play(ctx, j)
				GamesInFlight.Add(-1)
				outcomes <- outcome{index: j.index, cfg: j.cfg, res: res, err: err}
			}
		}()
	}

	go func() {
	feedLoop:
		for i, cfg := range configs {
			select {
			case jobs <- job{index: i, cfg: cfg}:
				fed++
			case <-ctx.Done():
				log.Info().Msg("got stop signal, not starting any more games")
				break feedLoop
			}
		}
		close(jobs)
		wg.Wait()
		close(outcomes)
	}()

	var rows chan [][]string
	logDone := make(chan error, 1)
	if r.roundLog != nil {
		rows = make(chan [][]string, 16)
		go writeRoundLog(r.roundLog, rows, logDone)
	}

	summary := &Summary{}
	pending := make(map[int]outcome)
	next := 0
	for o := range outcomes {
		pending[o.index] = o
		for {
			p, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			next++
			r.commit(ctx, p, summary)
			if rows != nil && p.err == nil {
				rows <- roundRows(p.res)
			}
		}
	}
	// fed is safe to read once outcomes is closed.
	summary.Skipped = len(configs) - fed

	if rows != nil {
		close(rows)
		if err := <-logDone; err != nil {
			log.Err(err).Msg("round-log")
		}
	}
	log.Info().Int("played", summary.Played).Int("failed", len(summary.Failed)).
		Int("skipped", summary.Skipped).Msg("tournament-finished")
	if err := ctx.Err(); err != nil {
		return summary, err
	}
	return summary, nil
}

// loadSeq continues the commit sequence after the last saved game.
func (r *Runner) loadSeq(ctx context.Context) error {
	games, err := r.store.LoadAllGames(ctx)
	if err != nil {
		return fmt.Errorf("loading games: %w", err)
	}
	r.seq = 1
	if len(games) > 0 {
		r.seq = lo.MaxBy(games, func(a, b *game.Result) bool { return a.Seq > b.Seq }).Seq + 1
	}
	return nil
}

func (r *Runner) play(ctx context.Context, j job) (*game.Result, error) {
	logger := log.With().Int("game", j.index).Logger()
	ctx = logger.WithContext(ctx)
	holder := r.players[j.cfg.HolderID]
	attackers := make([]game.Player, 0, len(j.cfg.AttackerIDs))
	for _, id := range j.cfg.AttackerIDs {
		attackers = append(attackers, r.players[id])
	}
	return r.engine.RunGame(ctx, j.cfg, holder, attackers)
}

// commit persists a played game and folds it into the ratings. Writes
// are not cancelled with the run so a finished game is never half saved.
func (r *Runner) commit(ctx context.Context, o outcome, summary *Summary) {
	fail := func(err error) {
		log.Error().Err(err).Int("game", o.index).Str("word", o.cfg.Word).Msg("game-failed")
		summary.Failed = append(summary.Failed, Failure{Index: o.index, Word: o.cfg.Word, Err: err})
	}
	if o.err != nil {
		fail(o.err)
		return
	}
	ctx = context.WithoutCancel(ctx)
	o.res.Seq = r.seq
	if err := r.store.SaveGame(ctx, o.res); err != nil {
		o.res.Seq = 0
		fail(fmt.Errorf("saving game: %w", err))
		return
	}
	r.seq++
	if _, err := r.manager.ProcessGame(o.res); err != nil {
		fail(fmt.Errorf("rating game: %w", err))
		return
	}
	summary.Played++
	summary.Results = append(summary.Results, o.res)
	GamesPlayed.Add(1)
	if err := r.store.SaveRatings(ctx, r.manager.Snapshot()); err != nil {
		// The game is saved and rated in memory; Reconcile recovers the
		// persisted table on the next start.
		fail(fmt.Errorf("saving ratings: %w", err))
	}
}

func roundRows(res *game.Result) [][]string {
	var rows [][]string
	for _, rd := range res.Rounds {
		contactOf := make(map[string]game.Contact)
		for _, c := range rd.Contacts {
			for _, id := range c.AttackerIDs {
				contactOf[id] = c
			}
		}
		for _, s := range rd.Submissions {
			c, inContact := contactOf[s.PlayerID]
			rows = append(rows, []string{
				res.ID, res.Config.Word, res.Config.HolderID,
				strconv.Itoa(rd.Number), rd.Prefix, s.PlayerID, s.PrefixWord, s.FullWordGuess,
				strconv.FormatBool(s.AutoAssigned), strconv.Itoa(s.Attempts),
				c.Word, strconv.FormatBool(inContact && c.Blocked),
				strconv.FormatBool(rd.LetterRevealed), rd.Winner,
			})
		}
	}
	return rows
}

func writeRoundLog(w io.Writer, rows <-chan [][]string, done chan<- error) {
	cw := csv.NewWriter(w)
	var err error
	if err = cw.Write(roundLogHeader); err != nil {
		// Keep draining so the committer never blocks.
		for range rows {
		}
		done <- err
		return
	}
	for batch := range rows {
		if err == nil {
			err = cw.WriteAll(batch)
		}
	}
	cw.Flush()
	if err == nil {
		err = cw.Error()
	}
	done <- err
}
