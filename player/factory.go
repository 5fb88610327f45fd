package player

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/nats-io/nats.go"
	"gopkg.in/yaml.v3"

	"github.com/contacteval/contact/game"
	"github.com/contacteval/contact/wordbank"
)

const (
	ProviderRandom   = "random"
	ProviderScripted = "scripted"
	ProviderNATS     = "nats"
)

// Spec describes one participant in a players file.
type Spec struct {
	Name     string        `yaml:"name"`
	Provider string        `yaml:"provider"`
	Model    string        `yaml:"model,omitempty"`
	Subject  string        `yaml:"subject,omitempty"`
	Rounds   [][]game.Move `yaml:"rounds,omitempty"`
	Guesses  []string      `yaml:"guesses,omitempty"`
}

// NATSSubject is the subject the player is served on.
func (s Spec) NATSSubject() string {
	if s.Subject != "" {
		return s.Subject
	}
	return "contact.player." + s.Name
}

type specFile struct {
	Players []Spec `yaml:"players"`
}

// LoadSpecs reads a YAML players file.
func LoadSpecs(path string) ([]Spec, error) {
	bts, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f specFile
	if err := yaml.Unmarshal(bts, &f); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	if len(f.Players) == 0 {
		return nil, fmt.Errorf("%s lists no players", path)
	}
	return f.Players, nil
}

// Env carries what the factory needs to build players.
type Env struct {
	Bank    *wordbank.Bank
	NATS    *nats.Conn
	APIKeys map[string]string
	Retries uint
}

// Build creates one player per spec. Names must be unique.
func Build(ctx context.Context, specs []Spec, env Env) ([]game.Player, error) {
	seen := make(map[string]bool, len(specs))
	players := make([]game.Player, 0, len(specs))
	for _, s := range specs {
		if s.Name == "" {
			return nil, fmt.Errorf("player with provider %q has no name", s.Provider)
		}
		if seen[s.Name] {
			return nil, fmt.Errorf("duplicate player name %s", s.Name)
		}
		seen[s.Name] = true
		p, err := build(ctx, s, env)
		if err != nil {
			return nil, fmt.Errorf("player %s: %w", s.Name, err)
		}
		players = append(players, p)
	}
	return players, nil
}

func build(ctx context.Context, s Spec, env Env) (game.Player, error) {
	switch provider := strings.ToLower(s.Provider); provider {
	case ProviderRandom:
		if env.Bank == nil {
			return nil, fmt.Errorf("random player needs a dictionary")
		}
		return NewRandom(s.Name, env.Bank), nil
	case ProviderScripted:
		return NewScripted(s.Name, s.Rounds, s.Guesses), nil
	case ProviderNATS:
		if env.NATS == nil {
			return nil, fmt.Errorf("nats player needs a nats connection")
		}
		return NewRemote(s.Name, env.NATS, s.NATSSubject()), nil
	case ProviderGemini, ProviderOpenAI, ProviderDeepSeek:
		gen, err := NewProviderGenerator(ctx, provider, env.APIKeys[provider], s.Model)
		if err != nil {
			return nil, err
		}
		return NewLLM(s.Name, gen, WithRetries(env.Retries)), nil
	}
	return nil, fmt.Errorf("unknown provider %q", s.Provider)
}

// NeedsNATS reports whether any spec plays over NATS.
func NeedsNATS(specs []Spec) bool {
	for _, s := range specs {
		if strings.EqualFold(s.Provider, ProviderNATS) {
			return true
		}
	}
	return false
}
