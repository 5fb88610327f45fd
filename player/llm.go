package player

import (
	"context"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog"

	"github.com/contacteval/contact/game"
)

// Generator turns a system prompt and a user prompt into model text.
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// LLM is a player whose moves come from a language model. Transport
// errors are retried with backoff; an unparsable answer is returned as
// an error so the engine charges the attempt and tells the model why.
type LLM struct {
	name    string
	gen     Generator
	retries uint
	delay   time.Duration
}

type LLMOption func(*LLM)

// WithRetries sets how many times a failed generation is tried in total.
func WithRetries(n uint) LLMOption {
	return func(l *LLM) {
		if n > 0 {
			l.retries = n
		}
	}
}

func WithRetryDelay(d time.Duration) LLMOption {
	return func(l *LLM) { l.delay = d }
}

func NewLLM(name string, gen Generator, opts ...LLMOption) *LLM {
	l := &LLM{name: name, gen: gen, retries: 3, delay: 500 * time.Millisecond}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *LLM) ID() string { return l.name }

func (l *LLM) generate(ctx context.Context, system, prompt string) (string, error) {
	logger := zerolog.Ctx(ctx)
	return retry.DoWithData(
		func() (string, error) {
			return l.gen.Generate(ctx, system, prompt)
		},
		retry.Context(ctx),
		retry.Attempts(l.retries),
		retry.Delay(l.delay),
		retry.LastErrorOnly(true),
		retry.DelayType(func(n uint, err error, config *retry.Config) time.Duration {
			logger.Warn().Err(err).Str("player", l.name).Uint("n", n).Msg("generate-failed-try-again")
			return retry.BackOffDelay(n, err, config)
		}),
	)
}

func (l *LLM) AttackerMove(ctx context.Context, req game.AttackerRequest) (game.Move, error) {
	prompt, err := RenderAttackerPrompt(req)
	if err != nil {
		return game.Move{}, err
	}
	text, err := l.generate(ctx, AttackerSystemPrompt, prompt)
	if err != nil {
		return game.Move{}, fmt.Errorf("%s: %w", l.name, err)
	}
	zerolog.Ctx(ctx).Debug().Str("player", l.name).Str("response", text).Msg("attacker-response")
	return ParseAttackerMove(text)
}

func (l *LLM) HolderMove(ctx context.Context, req game.HolderRequest) (string, error) {
	prompt, err := RenderHolderPrompt(req)
	if err != nil {
		return "", err
	}
	text, err := l.generate(ctx, HolderSystemPrompt, prompt)
	if err != nil {
		return "", fmt.Errorf("%s: %w", l.name, err)
	}
	zerolog.Ctx(ctx).Debug().Str("player", l.name).Str("response", text).Msg("holder-response")
	return ParseHolderGuess(text)
}
