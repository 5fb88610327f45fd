package player

import (
	"context"
	"fmt"

	"github.com/Ingenimax/agent-sdk-go/pkg/interfaces"
	"github.com/Ingenimax/agent-sdk-go/pkg/llm/deepseek"
	"github.com/Ingenimax/agent-sdk-go/pkg/llm/gemini"
	"github.com/Ingenimax/agent-sdk-go/pkg/llm/openai"
	"github.com/Ingenimax/agent-sdk-go/pkg/logging"
	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

const (
	ProviderGemini   = "gemini"
	ProviderOpenAI   = "openai"
	ProviderDeepSeek = "deepseek"
)

var defaultModels = map[string]string{
	ProviderGemini:   "gemini-2.5-flash",
	ProviderOpenAI:   "gpt-4.1",
	ProviderDeepSeek: "deepseek-chat",
}

// sdkGenerator adapts an agent-sdk client. The clients take a single
// prompt, so the system prompt is sent first in the same message.
type sdkGenerator struct {
	llm interfaces.LLM
}

func (g sdkGenerator) Generate(ctx context.Context, system, prompt string) (string, error) {
	return g.llm.Generate(ctx, system+"\n\n"+prompt)
}

// NewProviderGenerator builds a Generator for one of the supported model
// providers.
func NewProviderGenerator(ctx context.Context, provider, apiKey, model string) (Generator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("no api key configured for provider %s", provider)
	}
	if model == "" {
		model = defaultModels[provider]
	}
	var client interfaces.LLM
	switch provider {
	case ProviderGemini:
		c, err := gemini.NewClient(ctx,
			gemini.WithAPIKey(apiKey),
			gemini.WithBackend(genai.BackendGeminiAPI),
			gemini.WithModel(model))
		if err != nil {
			return nil, err
		}
		client = c
	case ProviderOpenAI:
		client = openai.NewClient(apiKey, openai.WithModel(model), openai.WithLogger(logging.New()))
	case ProviderDeepSeek:
		client = deepseek.NewClient(apiKey, deepseek.WithModel(model), deepseek.WithLogger(logging.New()))
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
	log.Info().Str("provider", provider).Str("model", model).Msg("using-model")
	return sdkGenerator{llm: client}, nil
}
