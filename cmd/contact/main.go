package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/contacteval/contact/config"
	"github.com/contacteval/contact/rating"
	"github.com/contacteval/contact/store"
)

var GitVersion string

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := &config.Config{}
	rootCmd := &cobra.Command{
		Use:           "contact",
		Short:         "Word-deduction tournament for language models",
		Version:       GitVersion,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := cfg.BindFlags(cmd.Flags()); err != nil {
				return err
			}
			setupLogger(cfg.GetBool(config.ConfigDebug))
			if file := cfg.GetString(config.ConfigConfigFile); file != "" {
				cfg.AdjustRelativePaths(filepath.Dir(file))
			}
			log.Debug().Interface("config", cfg.SanitizedSettings()).Msg("loaded-config")
			return nil
		},
	}
	config.AddFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(newRunCmd(cfg))
	rootCmd.AddCommand(newLeaderboardCmd(cfg))
	rootCmd.AddCommand(newReplayCmd(cfg))
	rootCmd.AddCommand(newScheduleCmd(cfg))
	rootCmd.AddCommand(newStatsCmd(cfg))
	return rootCmd
}

func setupLogger(debug bool) {
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	output.FormatLevel = func(i interface{}) string {
		return strings.ToUpper(fmt.Sprintf("| %-6s|", i))
	}
	output.FormatMessage = func(i interface{}) string {
		return fmt.Sprintf("%s", i)
	}
	output.FormatFieldName = func(i interface{}) string {
		return fmt.Sprintf("%s:", i)
	}

	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	logger := zerolog.New(output).Level(level).With().Timestamp().Logger()
	zerolog.DefaultContextLogger = &logger
	log.Logger = logger
	logger.Debug().Msg("Debug logging is on")
}

func newManager(cfg *config.Config) *rating.Manager {
	return rating.NewManager(
		rating.WithNoiseVariance(cfg.GetFloat64(config.ConfigNoiseVariance)),
		rating.WithMinDifficultyGames(cfg.GetInt(config.ConfigDifficultyMinGames)),
	)
}

func openStore(cfg *config.Config) (store.Store, error) {
	st, err := store.Open(cfg.GetString(config.ConfigStoreDriver), cfg.GetString(config.ConfigResultsPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	return st, nil
}

func closeStore(st store.Store) {
	if err := st.Close(); err != nil {
		log.Err(err).Msg("closing store")
	}
}
