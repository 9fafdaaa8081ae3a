package cli

import (
	"fmt"
	"strings"

	"github.com/yubzen/hedgehog/internal/config"
	"github.com/yubzen/hedgehog/internal/providers"
)

type providerSpec struct {
	Kind           providers.Kind
	DisplayName    string
	Aliases        []string
	FallbackModels []string
}

func providerSpecs() []providerSpec {
	return []providerSpec{
		{
			Kind:        providers.KindReplicate,
			DisplayName: "Replicate",
			FallbackModels: []string{
				"anthropic/claude-3.7-sonnet",
				"anthropic/claude-4-sonnet",
				"meta/meta-llama-3-70b-instruct",
			},
		},
		{
			Kind:        providers.KindAnthropic,
			DisplayName: "Anthropic",
			Aliases:     []string{"claude"},
			FallbackModels: []string{
				"claude-3-5-sonnet-20241022",
				"claude-3-7-sonnet-latest",
			},
		},
		{
			Kind:        providers.KindOpenAI,
			DisplayName: "OpenAI",
			Aliases:     []string{"gpt"},
			FallbackModels: []string{
				"gpt-4o",
				"gpt-4.1",
				"gpt-4.1-mini",
			},
		},
		{
			Kind:        providers.KindOpenRouter,
			DisplayName: "OpenRouter",
			FallbackModels: []string{
				"anthropic/claude-3.7-sonnet",
				"openai/gpt-4o",
			},
		},
		{
			Kind:        providers.KindGoogle,
			DisplayName: "Google",
			Aliases:     []string{"gemini"},
			FallbackModels: []string{
				"gemini-2.5-pro",
				"gemini-2.5-flash",
			},
		},
	}
}

func resolveProvider(input string) (providerSpec, error) {
	name := strings.ToLower(strings.TrimSpace(input))
	for _, spec := range providerSpecs() {
		if name == string(spec.Kind) || name == strings.ToLower(spec.DisplayName) {
			return spec, nil
		}
		for _, alias := range spec.Aliases {
			if name == alias {
				return spec, nil
			}
		}
	}
	return providerSpec{}, fmt.Errorf("unknown provider %q", input)
}

// build constructs the provider, honoring the configured base URL only for
// the configured provider.
func (s providerSpec) build(cfg *config.Config, token string) (providers.Provider, error) {
	baseURL := ""
	if cfg != nil && strings.EqualFold(cfg.Model.Provider, string(s.Kind)) {
		baseURL = cfg.Model.BaseURL
	}
	return providers.New(providers.Options{Kind: s.Kind, BaseURL: baseURL, Token: token})
}
