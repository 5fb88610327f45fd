// contactbot serves players over NATS so a tournament can run them as
// remote participants.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/contacteval/contact/config"
	"github.com/contacteval/contact/player"
	"github.com/contacteval/contact/wordbank"
)

func main() {
	cfg := &config.Config{}
	if err := cfg.Load(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	output.FormatLevel = func(i interface{}) string {
		return strings.ToUpper(fmt.Sprintf("| %-6s|", i))
	}
	level := zerolog.InfoLevel
	if cfg.GetBool(config.ConfigDebug) {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	logger := zerolog.New(output).Level(level).With().Timestamp().Logger()
	zerolog.DefaultContextLogger = &logger
	log.Logger = logger
	log.Info().Msgf("Loaded config: %v", cfg.SanitizedSettings())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := serve(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("contactbot")
	}
	log.Info().Msg("server gracefully shutting down")
}

func serve(ctx context.Context, cfg *config.Config) error {
	bank, err := wordbank.Load(cfg.GetString(config.ConfigDictionaryID), cfg.GetString(config.ConfigDictionaryPath))
	if err != nil {
		return err
	}
	specs, err := player.LoadSpecs(cfg.GetString(config.ConfigPlayersPath))
	if err != nil {
		return err
	}
	if player.NeedsNATS(specs) {
		return fmt.Errorf("%s: a served player cannot itself be a nats player", cfg.GetString(config.ConfigPlayersPath))
	}
	players, err := player.Build(ctx, specs, player.Env{
		Bank:    bank,
		APIKeys: cfg.APIKeys(),
		Retries: cfg.GetUint(config.ConfigLLMRetries),
	})
	if err != nil {
		return err
	}

	nc, err := nats.Connect(cfg.GetString(config.ConfigNatsURL), nats.Name("contactbot"))
	if err != nil {
		return err
	}
	defer nc.Close()

	timeout := max(cfg.GetDuration(config.ConfigAttemptTimeout), cfg.GetDuration(config.ConfigHolderTimeout))
	g, gctx := errgroup.WithContext(ctx)
	for i, p := range players {
		subject := specs[i].NATSSubject()
		g.Go(func() error {
			return player.Serve(gctx, nc, subject, p, timeout)
		})
	}
	return g.Wait()
}
