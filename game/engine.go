package game

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/contacteval/contact/wordbank"
)

const (
	DefaultMaxAttempts    = 3
	DefaultAttemptTimeout = 60 * time.Second
	DefaultHolderTimeout  = 60 * time.Second
	DefaultMaxRounds      = 50
)

var errTimeout = errors.New("player timed out")

// Engine runs the round protocol of single games. An Engine holds no
// per-game state and may run many games at once.
type Engine struct {
	bank           *wordbank.Bank
	attemptTimeout time.Duration
	holderTimeout  time.Duration
	maxRounds      int
	now            func() time.Time
}

type EngineOption func(*Engine)

// WithAttemptTimeout bounds each AttackerMove call.
func WithAttemptTimeout(d time.Duration) EngineOption {
	return func(e *Engine) { e.attemptTimeout = d }
}

// WithHolderTimeout bounds each HolderMove call.
func WithHolderTimeout(d time.Duration) EngineOption {
	return func(e *Engine) { e.holderTimeout = d }
}

// WithMaxRounds sets the stall limit. The effective limit is never below
// the secret word's length.
func WithMaxRounds(n int) EngineOption {
	return func(e *Engine) { e.maxRounds = n }
}

func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

func NewEngine(bank *wordbank.Bank, opts ...EngineOption) *Engine {
	e := &Engine{
		bank:           bank,
		attemptTimeout: DefaultAttemptTimeout,
		holderTimeout:  DefaultHolderTimeout,
		maxRounds:      DefaultMaxRounds,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Bank() *wordbank.Bank {
	return e.bank
}

// gameState is owned by the goroutine running RunGame.
type gameState struct {
	cfg    Config
	secret string
	prefix string
	used   wordbank.WordSet
	rounds []Round
}

// RunGame plays one game to completion. Player faults never fail a game;
// an error is returned only for an invalid setup or a cancelled context.
func (e *Engine) RunGame(ctx context.Context, cfg Config, holder Player, attackers []Player) (*Result, error) {
	if err := e.checkSetup(cfg, holder, attackers); err != nil {
		return nil, err
	}
	log := zerolog.Ctx(ctx).With().Str("word", cfg.Word).Str("holder", cfg.HolderID).Logger()
	start := e.now()

	secret := wordbank.Normalize(cfg.Word)
	st := &gameState{
		cfg:    cfg,
		secret: secret,
		prefix: string([]rune(secret)[:1]),
		used:   wordbank.NewWordSet(),
	}
	limit := max(e.maxRounds, utf8.RuneCountInString(secret))

	for n := 1; ; n++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("game %s: %w", cfg.Word, err)
		}
		subs, err := e.collect(ctx, st, attackers)
		if err != nil {
			return nil, err
		}
		for _, s := range subs {
			st.used.Add(s.PrefixWord)
		}
		contacts := DetectContacts(subs, secret)
		e.defend(ctx, st, holder, contacts)

		rd := ResolveRound(n, st.prefix, secret, subs, contacts)
		if rd.Winner == "" && n >= limit {
			rd.Winner = cfg.HolderID
			rd.Reason = ReasonStall
		}
		st.rounds = append(st.rounds, rd)
		log.Debug().Int("round", n).Str("prefix", st.prefix).
			Int("contacts", len(contacts)).Bool("revealed", rd.LetterRevealed).
			Str("winner", rd.Winner).Msg("round-resolved")

		if rd.Winner != "" {
			break
		}
		if rd.LetterRevealed {
			st.prefix = string([]rune(secret)[:utf8.RuneCountInString(st.prefix)+1])
		}
	}

	finished := e.now()
	last := st.rounds[len(st.rounds)-1]
	holderScore, attackerScores := CalculateScores(cfg, st.rounds)
	res := &Result{
		ID:             NewResultID(cfg, finished),
		Config:         cfg,
		Rounds:         st.rounds,
		Winner:         last.Winner,
		HolderWon:      last.Reason == ReasonStall,
		HolderScore:    holderScore,
		AttackerScores: attackerScores,
		Duration:       finished.Sub(start),
		Timestamp:      finished,
	}
	log.Info().Str("winner", res.Winner).Int("rounds", len(res.Rounds)).
		Str("reason", string(last.Reason)).Float64("holder-score", holderScore).Msg("game-over")
	return res, nil
}

func (e *Engine) checkSetup(cfg Config, holder Player, attackers []Player) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if !e.bank.Validate(cfg.Word) {
		return fmt.Errorf("%w: %q is not in dictionary %s", ErrInvalidConfig, cfg.Word, e.bank.ID())
	}
	if holder == nil || holder.ID() != cfg.HolderID {
		return fmt.Errorf("%w: holder player does not match %s", ErrInvalidConfig, cfg.HolderID)
	}
	if len(attackers) != len(cfg.AttackerIDs) {
		return fmt.Errorf("%w: %d attacker players for %d attacker ids", ErrInvalidConfig, len(attackers), len(cfg.AttackerIDs))
	}
	for i, a := range attackers {
		if a == nil || a.ID() != cfg.AttackerIDs[i] {
			return fmt.Errorf("%w: attacker %d does not match %s", ErrInvalidConfig, i, cfg.AttackerIDs[i])
		}
	}
	return nil
}

// collect asks every attacker for its move concurrently and waits for all
// of them. Each goroutine writes only its own slot; the used set is only
// read here. Player faults are absorbed by attackerTurn, so the only
// error is a cancelled game.
func (e *Engine) collect(ctx context.Context, st *gameState, attackers []Player) ([]Submission, error) {
	history := append([]Round(nil), st.rounds...)
	subs := make([]Submission, len(attackers))
	g := errgroup.Group{}
	for i, a := range attackers {
		g.Go(func() error {
			subs[i] = e.attackerTurn(ctx, st, a, history)
			return ctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("game %s: %w", st.cfg.Word, err)
	}
	return subs, nil
}

func (e *Engine) attackerTurn(ctx context.Context, st *gameState, a Player, history []Round) Submission {
	log := zerolog.Ctx(ctx)
	req := AttackerRequest{
		PlayerID: a.ID(),
		Prefix:   st.prefix,
		History:  history,
	}
	for attempt := 1; attempt <= DefaultMaxAttempts; attempt++ {
		req.Attempt = attempt
		mv, err := call(ctx, e.attemptTimeout, func(ctx context.Context) (Move, error) {
			return a.AttackerMove(ctx, req)
		})
		if err != nil {
			req.LastError = &Diagnostic{Kind: DiagPlayerFault, Prefix: st.prefix, Cause: err.Error()}
			log.Debug().Str("player", a.ID()).Int("attempt", attempt).Err(err).Msg("attacker-fault")
			if ctx.Err() != nil {
				break
			}
			continue
		}
		sub, diag := e.check(st, a.ID(), mv)
		if diag == nil {
			sub.Attempts = attempt
			return sub
		}
		log.Debug().Str("player", a.ID()).Int("attempt", attempt).Str("rejected", string(diag.Kind)).
			Str("word", diag.Word).Msg("attacker-move-rejected")
		req.LastError = diag
	}
	sub := Submission{PlayerID: a.ID(), AutoAssigned: true, Attempts: DefaultMaxAttempts}
	// Only used words are excluded; the secret itself can be assigned.
	if w, ok := e.bank.RandomMatch(st.prefix, st.used); ok {
		sub.PrefixWord = w
	}
	log.Debug().Str("player", a.ID()).Str("word", sub.PrefixWord).Msg("auto-assigned")
	return sub
}

// check validates one attempt. A full-word guess is taken as is; a prefix
// word that accompanies it is kept only if it passes.
func (e *Engine) check(st *gameState, playerID string, mv Move) (Submission, *Diagnostic) {
	sub := Submission{
		PlayerID:      playerID,
		FullWordGuess: wordbank.Normalize(mv.FullWordGuess),
	}
	word := wordbank.Normalize(mv.PrefixWord)
	diag := e.checkPrefixWord(st, word)
	if diag == nil {
		sub.PrefixWord = word
		return sub, nil
	}
	if sub.FullWordGuess != "" {
		return sub, nil
	}
	return sub, diag
}

func (e *Engine) checkPrefixWord(st *gameState, word string) *Diagnostic {
	switch {
	case word == "":
		return &Diagnostic{Kind: DiagEmpty, Prefix: st.prefix}
	case !strings.HasPrefix(word, st.prefix):
		return &Diagnostic{Kind: DiagPrefixMismatch, Word: word, Prefix: st.prefix}
	case st.used.Has(word):
		return &Diagnostic{Kind: DiagUsed, Word: word, Prefix: st.prefix}
	case !e.bank.Validate(word):
		return &Diagnostic{Kind: DiagUnknownWord, Word: word, Prefix: st.prefix}
	}
	return nil
}

// defend asks the holder about each contact in turn.
func (e *Engine) defend(ctx context.Context, st *gameState, holder Player, contacts []Contact) {
	history := append([]Round(nil), st.rounds...)
	for i := range contacts {
		req := HolderRequest{
			PlayerID:     holder.ID(),
			SecretWord:   st.secret,
			Prefix:       st.prefix,
			History:      history,
			ContactCount: len(contacts),
			ContactIndex: i,
		}
		guess, err := call(ctx, e.holderTimeout, func(ctx context.Context) (string, error) {
			return holder.HolderMove(ctx, req)
		})
		if err != nil {
			zerolog.Ctx(ctx).Debug().Str("player", holder.ID()).Err(err).Msg("holder-fault")
			guess = ""
		}
		contacts[i].HolderGuess = wordbank.Normalize(guess)
		contacts[i].Blocked = contacts[i].HolderGuess != "" && contacts[i].HolderGuess == contacts[i].Word
	}
}

type callResult[T any] struct {
	v   T
	err error
}

// call runs fn under a deadline. A player that ignores its context is
// abandoned when the deadline passes; its goroutine finishes into a
// buffered channel nobody reads. Panics are turned into errors.
func call[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ch := make(chan callResult[T], 1)
	go func() {
		var r callResult[T]
		defer func() {
			if p := recover(); p != nil {
				r.err = fmt.Errorf("player panicked: %v", p)
			}
			ch <- r
		}()
		r.v, r.err = fn(ctx)
	}()
	select {
	case r := <-ch:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return zero, errTimeout
		}
		return zero, ctx.Err()
	}
}
