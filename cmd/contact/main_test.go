package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contacteval/contact/game"
	"github.com/contacteval/contact/store"
)

const testWords = `# test list
EAGLE
EARTH
ELBOW
ELEPHANT
ENGINE
ELEVATOR
CABIN
CAMEL
CANDLE
ZEBRA
`

const testPlayers = `players:
  - name: alpha
    provider: random
  - name: bravo
    provider: random
  - name: charlie
    provider: random
  - name: delta
    provider: random
`

func testArgs(t *testing.T) []string {
	dir := t.TempDir()
	words := filepath.Join(dir, "words.txt")
	players := filepath.Join(dir, "players.yaml")
	require.NoError(t, os.WriteFile(words, []byte(testWords), 0o644))
	require.NoError(t, os.WriteFile(players, []byte(testPlayers), 0o644))
	return []string{
		"--dictionary-path", words,
		"--players-path", players,
		"--results-path", filepath.Join(dir, "results"),
		"--store-driver", "yaml",
		"--games-per-attacker", "3",
		"--attempt-timeout", "2s",
		"--holder-timeout", "2s",
		"--max-rounds", "20",
	}
}

func execute(t *testing.T, args ...string) string {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs(args)
	require.NoError(t, cmd.ExecuteContext(context.Background()))
	return out.String()
}

func TestRunThenReport(t *testing.T) {
	common := testArgs(t)

	out := execute(t, append([]string{"run"}, common...)...)
	assert.Contains(t, out, "played 4, skipped 0, failed 0 of 4 games")
	assert.Contains(t, out, "### Holder Leaderboard")
	assert.Contains(t, out, "### Attacker Leaderboard")

	out = execute(t, append([]string{"leaderboard", "--format", "markdown", "--role", "attacker"}, common...)...)
	assert.Contains(t, out, "| 1 |")
	assert.NotContains(t, out, "Holder Leaderboard")

	out = execute(t, append([]string{"leaderboard"}, common...)...)
	assert.Contains(t, out, "HOLDER LEADERBOARD")
	assert.Contains(t, out, "95% CI")
	assert.Contains(t, out, "alpha")

	out = execute(t, append([]string{"stats"}, common...)...)
	assert.Contains(t, out, "games: 4")
	assert.Contains(t, out, "attacker score: mean")

	out = execute(t, append([]string{"replay"}, common...)...)
	assert.Contains(t, out, "replayed 4 games")
}

func TestStatsForWordOnSQLite(t *testing.T) {
	common := append(testArgs(t), "--store-driver", "sqlite")
	execute(t, append([]string{"run"}, common...)...)

	results := common[slices.Index(common, "--results-path")+1]
	st, err := store.Open(store.DriverSQLite, results)
	require.NoError(t, err)
	games, err := st.LoadAllGames(context.Background())
	require.NoError(t, err)
	require.NoError(t, st.Close())
	require.Len(t, games, 4)
	word := games[0].Config.Word
	want := 0
	for _, g := range games {
		if g.Config.Word == word {
			want++
		}
	}

	out := execute(t, append([]string{"stats", "--word", strings.ToLower(word)}, common...)...)
	assert.Contains(t, out, "games: "+strconv.Itoa(want)+" ")

	out = execute(t, append([]string{"stats", "--word", "QUIXOTE"}, common...)...)
	assert.Equal(t, "no games\n", out)
}

func TestScheduleExposure(t *testing.T) {
	out := execute(t, append([]string{"schedule", "--exposure"}, testArgs(t)...)...)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 5)
	assert.Contains(t, lines[0], "holder")
	holders, attackers := 0, 0
	for _, l := range lines[1:] {
		f := strings.Fields(l)
		require.Len(t, f, 3)
		h, err := strconv.Atoi(f[1])
		require.NoError(t, err)
		a, err := strconv.Atoi(f[2])
		require.NoError(t, err)
		// Every player sits in each of the 4 games once.
		assert.Equal(t, 4, h+a)
		holders += h
		attackers += a
	}
	assert.Equal(t, 4, holders)
	assert.Equal(t, 12, attackers)
}

func TestPrintStatsWithoutGames(t *testing.T) {
	var b bytes.Buffer
	require.NoError(t, printStats(&b, nil))
	assert.Equal(t, "no games\n", b.String())
}

func TestPrintScheduleListsGames(t *testing.T) {
	var b bytes.Buffer
	printSchedule(&b, []game.Config{
		{Word: "EAGLE", HolderID: "a", AttackerIDs: []string{"b", "c", "d"}},
	}, false)
	assert.Contains(t, b.String(), "holder=a attackers=b,c,d")
}
