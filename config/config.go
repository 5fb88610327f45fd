package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	ConfigDebug              = "debug"
	ConfigConfigFile         = "config-file"
	ConfigDictionaryPath     = "dictionary-path"
	ConfigDictionaryID       = "dictionary-id"
	ConfigPlayersPath        = "players-path"
	ConfigResultsPath        = "results-path"
	ConfigStoreDriver        = "store-driver"
	ConfigGamesPerAttacker   = "games-per-attacker"
	ConfigThreads            = "threads"
	ConfigAttemptTimeout     = "attempt-timeout"
	ConfigHolderTimeout      = "holder-timeout"
	ConfigMaxRounds          = "max-rounds"
	ConfigNoiseVariance      = "noise-variance"
	ConfigDifficultyMinGames = "difficulty-min-games"
	ConfigRoundLogPath       = "round-log-path"
	ConfigNatsURL            = "nats-url"
	ConfigGeminiApiKey       = "gemini-api-key"
	ConfigOpenaiApiKey       = "openai-api-key"
	ConfigDeepseekApiKey     = "deepseek-api-key"
	ConfigLLMRetries         = "llm-retries"
)

// Config is the application configuration: flags, then CONTACT_*
// environment variables, then an optional config file, then defaults.
type Config struct {
	viper.Viper
}

var pathKeys = []string{ConfigDictionaryPath, ConfigPlayersPath, ConfigResultsPath, ConfigRoundLogPath}

var secretKeys = []string{ConfigGeminiApiKey, ConfigOpenaiApiKey, ConfigDeepseekApiKey}

func (c *Config) setDefaults() {
	c.SetDefault(ConfigDebug, false)
	c.SetDefault(ConfigDictionaryPath, "./data/words.txt")
	c.SetDefault(ConfigDictionaryID, "en")
	c.SetDefault(ConfigPlayersPath, "./players.yaml")
	c.SetDefault(ConfigResultsPath, "./results")
	c.SetDefault(ConfigStoreDriver, "sqlite")
	c.SetDefault(ConfigGamesPerAttacker, 30)
	c.SetDefault(ConfigThreads, 1)
	c.SetDefault(ConfigAttemptTimeout, 60*time.Second)
	c.SetDefault(ConfigHolderTimeout, 60*time.Second)
	c.SetDefault(ConfigMaxRounds, 50)
	c.SetDefault(ConfigNoiseVariance, 4.0)
	c.SetDefault(ConfigDifficultyMinGames, 10)
	c.SetDefault(ConfigRoundLogPath, "")
	c.SetDefault(ConfigNatsURL, "nats://127.0.0.1:4222")
	c.SetDefault(ConfigLLMRetries, 3)
}

// DefaultConfig returns a config holding only the defaults.
func DefaultConfig() *Config {
	c := &Config{Viper: *viper.New()}
	c.setDefaults()
	return c
}

func (c *Config) init() {
	c.Viper = *viper.New()
	c.setDefaults()
	c.SetEnvPrefix("contact")
	c.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.AutomaticEnv()
}

// Load parses command-line args into a fresh config.
func (c *Config) Load(args []string) error {
	fs := pflag.NewFlagSet("contact", pflag.ContinueOnError)
	AddFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	return c.BindFlags(fs)
}

// BindFlags builds the config from an already-parsed flag set.
func (c *Config) BindFlags(fs *pflag.FlagSet) error {
	c.init()
	if err := c.BindPFlags(fs); err != nil {
		return err
	}
	if file := c.GetString(ConfigConfigFile); file != "" {
		c.SetConfigFile(file)
		if err := c.ReadInConfig(); err != nil {
			return fmt.Errorf("reading %s: %w", file, err)
		}
	}
	return c.Validate()
}

// AddFlags registers every setting as a flag on fs.
func AddFlags(fs *pflag.FlagSet) {
	fs.Bool(ConfigDebug, false, "debug logging on")
	fs.String(ConfigConfigFile, "", "optional YAML or TOML config file")
	fs.String(ConfigDictionaryPath, "./data/words.txt", "word list: .json array or one word per line")
	fs.String(ConfigDictionaryID, "en", "dictionary id recorded with every game")
	fs.String(ConfigPlayersPath, "./players.yaml", "YAML file listing the participants")
	fs.String(ConfigResultsPath, "./results", "directory for saved games and ratings")
	fs.String(ConfigStoreDriver, "sqlite", "result store: sqlite or yaml")
	fs.Int(ConfigGamesPerAttacker, 30, "how many games each participant plays as attacker")
	fs.Int(ConfigThreads, 1, "number of games played at once")
	fs.Duration(ConfigAttemptTimeout, 60*time.Second, "time limit for each attacker answer")
	fs.Duration(ConfigHolderTimeout, 60*time.Second, "time limit for each holder answer")
	fs.Int(ConfigMaxRounds, 50, "rounds after which a stalled game goes to the holder")
	fs.Float64(ConfigNoiseVariance, 4.0, "observation noise of a single game score")
	fs.Int(ConfigDifficultyMinGames, 10, "games on a word before its difficulty offset is used")
	fs.String(ConfigRoundLogPath, "", "optional CSV file with one row per submission")
	fs.String(ConfigNatsURL, "nats://127.0.0.1:4222", "NATS server for remote players")
	fs.String(ConfigGeminiApiKey, "", "Gemini API key")
	fs.String(ConfigOpenaiApiKey, "", "OpenAI API key")
	fs.String(ConfigDeepseekApiKey, "", "DeepSeek API key")
	fs.Uint(ConfigLLMRetries, 3, "tries per model call before the attempt is charged")
}

func (c *Config) Validate() error {
	var errs []error
	if c.GetInt(ConfigThreads) < 1 {
		errs = append(errs, fmt.Errorf("%s must be at least 1", ConfigThreads))
	}
	if c.GetFloat64(ConfigNoiseVariance) <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", ConfigNoiseVariance))
	}
	if c.GetDuration(ConfigAttemptTimeout) <= 0 || c.GetDuration(ConfigHolderTimeout) <= 0 {
		errs = append(errs, errors.New("timeouts must be positive"))
	}
	switch c.GetString(ConfigStoreDriver) {
	case "sqlite", "yaml":
	default:
		errs = append(errs, fmt.Errorf("unknown %s %q", ConfigStoreDriver, c.GetString(ConfigStoreDriver)))
	}
	return errors.Join(errs...)
}

// AdjustRelativePaths resolves relative data paths against basepath.
func (c *Config) AdjustRelativePaths(basepath string) {
	for _, k := range pathKeys {
		p := c.GetString(k)
		if p == "" || filepath.IsAbs(p) {
			continue
		}
		c.Set(k, filepath.Join(basepath, p))
	}
}

// APIKeys returns the configured model provider keys.
func (c *Config) APIKeys() map[string]string {
	return map[string]string{
		"gemini":   c.GetString(ConfigGeminiApiKey),
		"openai":   c.GetString(ConfigOpenaiApiKey),
		"deepseek": c.GetString(ConfigDeepseekApiKey),
	}
}

// SanitizedSettings is AllSettings with secrets masked, for logging.
func (c *Config) SanitizedSettings() map[string]any {
	all := c.AllSettings()
	for _, k := range secretKeys {
		if v, ok := all[k].(string); ok && v != "" {
			all[k] = "********"
		}
	}
	return all
}
