package player

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matryer/is"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/contacteval/contact/game"
	"github.com/contacteval/contact/wordbank"
)

func TestParseAttackerMove(t *testing.T) {
	is := is.New(t)
	mv, err := ParseAttackerMove("Sure!\n```json\n{\"prefix_word\": \" eagle \", \"full_word_guess\": null}\n```")
	is.NoErr(err)
	is.Equal(mv, game.Move{PrefixWord: "eagle"})

	mv, err = ParseAttackerMove(`{"prefix_word": "ELBOW", "full_word_guess": "ELEPHANT"}`)
	is.NoErr(err)
	is.Equal(mv.FullWordGuess, "ELEPHANT")

	_, err = ParseAttackerMove(`{"prefix_word": 3}`)
	is.True(errors.Is(err, ErrUnparsable))
	_, err = ParseAttackerMove("I think EAGLE")
	is.True(errors.Is(err, ErrUnparsable))
	_, err = ParseAttackerMove(`{"prefix_word": "EA`)
	is.True(errors.Is(err, ErrUnparsable))
}

func TestParseHolderGuess(t *testing.T) {
	is := is.New(t)
	g, err := ParseHolderGuess(`{"guess": "EAGLE"}`)
	is.NoErr(err)
	is.Equal(g, "EAGLE")
	_, err = ParseHolderGuess(`{"word": "EAGLE"}`)
	is.True(errors.Is(err, ErrUnparsable))
}

func TestFormatHistory(t *testing.T) {
	is := is.New(t)
	is.Equal(FormatHistory(nil), "No previous rounds.")
	out := FormatHistory([]game.Round{
		{Number: 1, Prefix: "E", LetterRevealed: true, Contacts: []game.Contact{{Word: "EAGLE"}}},
		{Number: 2, Prefix: "EL", Contacts: []game.Contact{{Word: "ELBOW", Blocked: true}}},
		{Number: 3, Prefix: "EL"},
	})
	is.Equal(out, strings.Join([]string{
		`Round 1 | Prefix "E" | Contact on "EAGLE": Failed to block -> Prefix extended`,
		`Round 2 | Prefix "EL" | Contact on "ELBOW": Blocked`,
		`Round 3 | Prefix "EL" | No contact`,
	}, "\n"))
}

func TestRenderPrompts(t *testing.T) {
	is := is.New(t)
	p, err := RenderAttackerPrompt(game.AttackerRequest{
		Prefix: "EL", Attempt: 2,
		LastError: &game.Diagnostic{Kind: game.DiagUsed, Word: "ELBOW", Prefix: "EL"},
	})
	is.NoErr(err)
	is.True(strings.Contains(p, `Prefix: "EL"`))
	is.True(strings.Contains(p, "already played"))
	is.True(strings.Contains(p, "Attempt 2 of 3"))

	p, err = RenderHolderPrompt(game.HolderRequest{SecretWord: "ELEPHANT", Prefix: "E", ContactCount: 2, ContactIndex: 1})
	is.NoErr(err)
	is.True(strings.Contains(p, "Your secret word: ELEPHANT"))
	is.True(strings.Contains(p, "this is contact 2"))
}

type fakeGenerator struct {
	calls   atomic.Int32
	fail    int32
	replies []string
}

func (g *fakeGenerator) Generate(ctx context.Context, system, prompt string) (string, error) {
	n := g.calls.Add(1)
	if n <= g.fail {
		return "", errors.New("503 overloaded")
	}
	return g.replies[int(n-1-g.fail)%len(g.replies)], nil
}

func TestLLMRetriesTransportErrors(t *testing.T) {
	is := is.New(t)
	gen := &fakeGenerator{fail: 2, replies: []string{`{"prefix_word": "EAGLE"}`}}
	l := NewLLM("gpt", gen, WithRetries(3), WithRetryDelay(time.Millisecond))
	mv, err := l.AttackerMove(context.Background(), game.AttackerRequest{Prefix: "E", Attempt: 1})
	is.NoErr(err)
	is.Equal(mv.PrefixWord, "EAGLE")
	is.Equal(gen.calls.Load(), int32(3))

	gen = &fakeGenerator{fail: 5, replies: []string{`{"guess": "EAGLE"}`}}
	l = NewLLM("gpt", gen, WithRetries(2), WithRetryDelay(time.Millisecond))
	_, err = l.HolderMove(context.Background(), game.HolderRequest{Prefix: "E"})
	is.True(err != nil)
	is.Equal(gen.calls.Load(), int32(2))
}

func TestRandomPlaysUnusedPrefixWords(t *testing.T) {
	is := is.New(t)
	bank := wordbank.New("t", []string{"EAGLE", "EARTH", "ELBOW", "ZEBRA"})
	r := NewRandom("bot", bank)
	history := []game.Round{{Submissions: []game.Submission{{PlayerID: "x", PrefixWord: "EAGLE"}}}}
	for i := 0; i < 20; i++ {
		mv, err := r.AttackerMove(context.Background(), game.AttackerRequest{Prefix: "EA", History: history})
		is.NoErr(err)
		// EARTH is the only candidate left, so it is also guessed outright.
		is.Equal(mv, game.Move{PrefixWord: "EARTH", FullWordGuess: "EARTH"})
	}
	_, err := r.AttackerMove(context.Background(), game.AttackerRequest{Prefix: "Q"})
	is.True(err != nil)

	g, err := r.HolderMove(context.Background(), game.HolderRequest{SecretWord: "ELBOW", Prefix: "EL"})
	is.NoErr(err)
	is.Equal(g, "")
	g, err = r.HolderMove(context.Background(), game.HolderRequest{SecretWord: "ELBOW", Prefix: "E", History: history})
	is.NoErr(err)
	is.Equal(g, "EARTH")
}

func TestScriptedPlaysThroughEngine(t *testing.T) {
	is := is.New(t)
	bank := wordbank.New("t", []string{"EAGLE", "EARTH", "ELBOW", "ELEPHANT", "ENGINE", "ELEVATOR"})
	a1 := NewScripted("A1", [][]game.Move{{{PrefixWord: "EAGLE"}}, {{PrefixWord: "ELBOW"}}, {{FullWordGuess: "ELEPHANT"}}}, nil)
	a2 := NewScripted("A2", [][]game.Move{{{PrefixWord: "EAGLE"}}, {{PrefixWord: "ELEVATOR"}}}, nil)
	a3 := NewScripted("A3", [][]game.Move{{{PrefixWord: "ENGINE"}}, {{PrefixWord: "ELBOW"}}}, nil)
	h := NewScripted("H", nil, []string{"EARTH"})
	cfg := game.Config{Word: "ELEPHANT", HolderID: "H", AttackerIDs: []string{"A1", "A2", "A3"}}

	res, err := game.NewEngine(bank).RunGame(context.Background(), cfg, h, []game.Player{a1, a2, a3})
	is.NoErr(err)
	is.Equal(res.Winner, "A1")
	is.Equal(len(res.Rounds), 3)
	attacker, holder := a1.Calls()
	is.Equal(attacker, 3)
	is.Equal(holder, 0)
	_, holder = h.Calls()
	is.Equal(holder, 2)
}

func TestLoadSpecsAndBuild(t *testing.T) {
	is := is.New(t)
	path := filepath.Join(t.TempDir(), "players.yaml")
	is.NoErr(os.WriteFile(path, []byte(`
players:
  - name: bot1
    provider: random
  - name: fixed
    provider: scripted
    rounds:
      - [{prefix_word: EAGLE}]
    guesses: [EARTH]
`), 0o644))
	specs, err := LoadSpecs(path)
	is.NoErr(err)
	is.Equal(len(specs), 2)
	is.Equal(specs[1].Rounds[0][0].PrefixWord, "EAGLE")
	is.True(!NeedsNATS(specs))

	bank := wordbank.New("t", []string{"EAGLE"})
	players, err := Build(context.Background(), specs, Env{Bank: bank})
	is.NoErr(err)
	is.Equal(players[0].ID(), "bot1")
	is.Equal(players[1].ID(), "fixed")

	_, err = Build(context.Background(), append(specs, Spec{Name: "bot1", Provider: "random"}), Env{Bank: bank})
	is.True(err != nil)
	_, err = Build(context.Background(), []Spec{{Name: "x", Provider: "openai"}}, Env{})
	is.True(err != nil)
	_, err = Build(context.Background(), []Spec{{Name: "x", Provider: "nats"}}, Env{})
	is.True(err != nil)
}

func TestHandleDecodesRequests(t *testing.T) {
	is := is.New(t)
	bank := wordbank.New("t", []string{"EAGLE", "EARTH"})
	history, err := historyField([]game.Round{{Number: 1, Prefix: "E", Submissions: []game.Submission{{PlayerID: "a", PrefixWord: "EAGLE"}}}})
	is.NoErr(err)

	req := mustStruct(t, map[string]any{"role": "attacker", "prefix": "E", "attempt": 1, "history": history})
	resp := handle(context.Background(), NewRandom("bot", bank), req)
	is.Equal(resp.GetFields()["prefix_word"].GetStringValue(), "EARTH")

	req = mustStruct(t, map[string]any{"role": "holder", "prefix": "E", "secret_word": "EARTH", "contact_count": 1, "history": history})
	resp = handle(context.Background(), NewRandom("bot", bank), req)
	is.Equal(resp.GetFields()["guess"].GetStringValue(), "")

	req = mustStruct(t, map[string]any{"role": "judge"})
	resp = handle(context.Background(), NewRandom("bot", bank), req)
	is.True(resp.GetFields()["error"].GetStringValue() != "")
}

func mustStruct(t *testing.T, fields map[string]any) []byte {
	t.Helper()
	msg, err := structpb.NewStruct(fields)
	if err != nil {
		t.Fatal(err)
	}
	data, err := proto.Marshal(msg)
	if err != nil {
		t.Fatal(err)
	}
	return data
}
