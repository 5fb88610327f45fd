package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"lukechampine.com/frand"

	"github.com/contacteval/contact/cache"
	"github.com/contacteval/contact/config"
	"github.com/contacteval/contact/game"
	"github.com/contacteval/contact/player"
	"github.com/contacteval/contact/rating"
	"github.com/contacteval/contact/tournament"
	"github.com/contacteval/contact/wordbank"
)

func newRunCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Play a tournament and update the ratings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTournament(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	}
}

func loadBank(cfg *config.Config) (*wordbank.Bank, error) {
	id, path := cfg.GetString(config.ConfigDictionaryID), cfg.GetString(config.ConfigDictionaryPath)
	bank, err := cache.Load(id+":"+path, func() (*wordbank.Bank, error) {
		return wordbank.Load(id, path)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load dictionary: %w", err)
	}
	return bank, nil
}

func loadPlayers(ctx context.Context, cfg *config.Config, bank *wordbank.Bank) ([]game.Player, func(), error) {
	specs, err := player.LoadSpecs(cfg.GetString(config.ConfigPlayersPath))
	if err != nil {
		return nil, nil, err
	}
	env := player.Env{
		Bank:    bank,
		APIKeys: cfg.APIKeys(),
		Retries: cfg.GetUint(config.ConfigLLMRetries),
	}
	cleanup := func() {}
	if player.NeedsNATS(specs) {
		nc, err := nats.Connect(cfg.GetString(config.ConfigNatsURL), nats.Name("contact-runner"))
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to nats: %w", err)
		}
		env.NATS = nc
		cleanup = nc.Close
	}
	players, err := player.Build(ctx, specs, env)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return players, cleanup, nil
}

func newEngine(cfg *config.Config, bank *wordbank.Bank) *game.Engine {
	return game.NewEngine(bank,
		game.WithAttemptTimeout(cfg.GetDuration(config.ConfigAttemptTimeout)),
		game.WithHolderTimeout(cfg.GetDuration(config.ConfigHolderTimeout)),
		game.WithMaxRounds(cfg.GetInt(config.ConfigMaxRounds)),
	)
}

func runTournament(ctx context.Context, cfg *config.Config, out io.Writer) error {
	bank, err := loadBank(cfg)
	if err != nil {
		return err
	}
	players, cleanup, err := loadPlayers(ctx, cfg, bank)
	if err != nil {
		return err
	}
	defer cleanup()

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore(st)

	manager := newManager(cfg)
	if _, err := tournament.Reconcile(ctx, st, manager); err != nil {
		return err
	}

	ids := make([]string, len(players))
	for i, p := range players {
		ids[i] = p.ID()
	}
	sched, err := tournament.NewScheduler(ids, bank.ID())
	if err != nil {
		return err
	}
	words := bank.Words()
	frand.Shuffle(len(words), func(i, j int) { words[i], words[j] = words[j], words[i] })
	configs, err := sched.Generate(words, cfg.GetInt(config.ConfigGamesPerAttacker))
	if err != nil {
		return err
	}

	opts := []tournament.RunnerOption{tournament.WithThreads(cfg.GetInt(config.ConfigThreads))}
	if path := cfg.GetString(config.ConfigRoundLogPath); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create round log: %w", err)
		}
		defer f.Close()
		opts = append(opts, tournament.WithRoundLog(f))
	}

	runner := tournament.NewRunner(newEngine(cfg, bank), players, manager, st, opts...)
	summary, runErr := runner.Run(ctx, configs)
	if summary == nil {
		return runErr
	}
	fmt.Fprintf(out, "played %d, skipped %d, failed %d of %d games\n\n",
		summary.Played, summary.Skipped, len(summary.Failed), len(configs))
	for _, role := range rating.Roles {
		fmt.Fprintln(out, manager.Markdown(role))
	}
	if err := summary.Err(); err != nil {
		log.Warn().Err(err).Msg("some-games-failed")
	}
	return runErr
}

func loadSpecNames(cfg *config.Config) ([]string, error) {
	specs, err := player.LoadSpecs(cfg.GetString(config.ConfigPlayersPath))
	if err != nil {
		return nil, err
	}
	names := make([]string, len(specs))
	for i, s := range specs {
		names[i] = s.Name
	}
	return names, nil
}
