package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/charmbracelet/lipgloss"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/contacteval/contact/config"
	"github.com/contacteval/contact/game"
	"github.com/contacteval/contact/rating"
	"github.com/contacteval/contact/stats"
	"github.com/contacteval/contact/store"
	"github.com/contacteval/contact/tournament"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#C89A3A"))
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#8C8C8C"))
	cellStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
)

var leaderboardColumns = []string{"Rank", "Model", "Rating", "Skill", "Sigma", "95% CI", "Games", "Status"}

func formatInterval(r rating.Rating) string {
	low, high := rating.Interval(r, 95)
	return fmt.Sprintf("[%.2f, %.2f]", low, high)
}

func newLeaderboardCmd(cfg *config.Config) *cobra.Command {
	var (
		format string
		role   string
	)
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Show the holder and attacker leaderboards",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			roles := rating.Roles
			if role != "" {
				r, err := rating.ParseRole(role)
				if err != nil {
					return err
				}
				roles = []rating.Role{r}
			}
			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer closeStore(st)
			manager := newManager(cfg)
			if _, err := tournament.Reconcile(cmd.Context(), st, manager); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, r := range roles {
				switch format {
				case "markdown", "md":
					fmt.Fprintln(out, manager.Markdown(r))
				case "table":
					fmt.Fprintln(out, renderLeaderboard(manager, r))
				default:
					return fmt.Errorf("unknown format %q", format)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "table", "output format: table or markdown")
	cmd.Flags().StringVar(&role, "role", "", "only show one role: holder or attacker")
	return cmd
}

func renderLeaderboard(m *rating.Manager, role rating.Role) string {
	top := m.Top(role)
	rows := make([][]string, 0, len(top))
	for i, r := range top {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			r.PlayerID,
			fmt.Sprintf("%.2f", r.Conservative()),
			fmt.Sprintf("%.2f", r.Mu),
			fmt.Sprintf("%.2f", r.Sigma),
			formatInterval(r),
			strconv.Itoa(r.GamesPlayed),
			rating.StatusLabel(r),
		})
	}
	widths := make([]int, len(leaderboardColumns))
	for i, h := range leaderboardColumns {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, c := range row {
			widths[i] = max(widths[i], lipgloss.Width(c))
		}
	}
	line := func(cells []string, style lipgloss.Style) string {
		parts := make([]string, len(cells))
		for i, c := range cells {
			parts[i] = style.Width(widths[i] + 2).Render(c)
		}
		return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(strings.ToUpper(string(role)) + " LEADERBOARD"))
	b.WriteString("\n")
	b.WriteString(line(leaderboardColumns, headerStyle))
	b.WriteString("\n")
	if len(rows) == 0 {
		b.WriteString(mutedStyle.Render("no rated games yet"))
		b.WriteString("\n")
	}
	for _, row := range rows {
		b.WriteString(line(row, cellStyle))
		b.WriteString("\n")
	}
	return b.String()
}

func newReplayCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "replay",
		Short: "Recompute every rating from the saved games",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer closeStore(st)
			manager := newManager(cfg)
			n, err := tournament.Rebuild(cmd.Context(), st, manager)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "replayed %d games\n\n", n)
			for _, r := range rating.Roles {
				fmt.Fprintln(cmd.OutOrStdout(), manager.Markdown(r))
			}
			return nil
		},
	}
}

func newScheduleCmd(cfg *config.Config) *cobra.Command {
	var exposureOnly bool
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Print the games a run would play, without playing them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			bank, err := loadBank(cfg)
			if err != nil {
				return err
			}
			specs, err := loadSpecNames(cfg)
			if err != nil {
				return err
			}
			sched, err := tournament.NewScheduler(specs, bank.ID())
			if err != nil {
				return err
			}
			configs, err := sched.Generate(bank.Words(), cfg.GetInt(config.ConfigGamesPerAttacker))
			if err != nil {
				return err
			}
			printSchedule(cmd.OutOrStdout(), configs, exposureOnly)
			return nil
		},
	}
	cmd.Flags().BoolVar(&exposureOnly, "exposure", false, "only print how often each player sits in each role")
	return cmd
}

func printSchedule(w io.Writer, configs []game.Config, exposureOnly bool) {
	if !exposureOnly {
		for i, c := range configs {
			fmt.Fprintf(w, "%4d  %-16s holder=%s attackers=%s\n",
				i, c.Word, c.HolderID, strings.Join(c.AttackerIDs, ","))
		}
		fmt.Fprintln(w)
	}
	e := tournament.CountExposure(configs)
	names := lo.Union(lo.Keys(e.Holder), lo.Keys(e.Attacker))
	sort.Strings(names)
	fmt.Fprintf(w, "%-20s %8s %8s\n", "player", "holder", "attacker")
	for _, n := range names {
		fmt.Fprintf(w, "%-20s %8d %8d\n", n, e.Holder[n], e.Attacker[n])
	}
}

func newStatsCmd(cfg *config.Config) *cobra.Command {
	var word string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize the score distribution of the saved games",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer closeStore(st)
			var games []*game.Result
			if word != "" {
				games, err = store.GamesForWord(cmd.Context(), st, word)
			} else {
				games, err = st.LoadAllGames(cmd.Context())
			}
			if err != nil {
				return err
			}
			return printStats(cmd.OutOrStdout(), games)
		},
	}
	cmd.Flags().StringVar(&word, "word", "", "only include games on this secret word")
	return cmd
}

func printStats(w io.Writer, games []*game.Result) error {
	if len(games) == 0 {
		fmt.Fprintln(w, "no games")
		return nil
	}
	var holder, attacker, rounds stats.Statistic
	var holderWins int
	holderScores := make([]float64, 0, len(games))
	attackerScores := make([]float64, 0, len(games)*game.StandardAttackers)
	for _, g := range games {
		holder.Push(g.HolderScore)
		holderScores = append(holderScores, g.HolderScore)
		rounds.Push(float64(len(g.Rounds)))
		if g.HolderWon {
			holderWins++
		}
		for _, id := range g.Config.AttackerIDs {
			s := g.AttackerScores[id]
			attacker.Push(s)
			attackerScores = append(attackerScores, s)
		}
	}
	fmt.Fprintf(w, "games: %d  holder wins: %d  rounds/game: %.2f\n\n", len(games), holderWins, rounds.Mean())
	for _, row := range []struct {
		name   string
		stat   *stats.Statistic
		scores []float64
	}{
		{"holder", &holder, holderScores},
		{"attacker", &attacker, attackerScores},
	} {
		lo95, hi95 := stats.Interval(row.stat.Mean(), row.stat.StandardError(), 95)
		fmt.Fprintf(w, "%s score: mean %.3f  stdev %.3f  95%% CI [%.3f, %.3f]\n",
			row.name, row.stat.Mean(), row.stat.Stdev(), lo95, hi95)
		if err := histogram.Fprint(w, histogram.Hist(15, row.scores), histogram.Linear(40)); err != nil {
			return err
		}
		fmt.Fprintln(w)
	}
	return nil
}
