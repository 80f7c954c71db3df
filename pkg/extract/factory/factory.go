// Package factory selects the extraction provider adapter from
// configuration at startup.
package factory

import (
	"fmt"

	"github.com/lfsouza/finzap/pkg/config"
	"github.com/lfsouza/finzap/pkg/extract"
	anthropicprovider "github.com/lfsouza/finzap/pkg/extract/anthropic"
	"github.com/lfsouza/finzap/pkg/extract/chatcompat"
)

// NewClient builds the extraction client for cfg.Extract.Provider. The
// config must already be validated, but a missing key is still rejected
// here so the factory is safe to call on its own.
func NewClient(cfg *config.Config) (extract.Client, error) {
	pc, err := cfg.SelectedProvider()
	if err != nil {
		return nil, err
	}
	if pc.APIKey == "" {
		return nil, fmt.Errorf("provider %q has no API key", cfg.Extract.Provider)
	}

	switch cfg.Extract.Provider {
	case config.ProviderOpenAI:
		return chatcompat.NewProvider(chatcompat.OpenAIPreset(), pc.APIKey, pc.APIBase, pc.Model), nil
	case config.ProviderOpenRouter:
		return chatcompat.NewProvider(chatcompat.OpenRouterPreset(), pc.APIKey, pc.APIBase, pc.Model), nil
	case config.ProviderGemini:
		return chatcompat.NewProvider(chatcompat.GeminiPreset(), pc.APIKey, pc.APIBase, pc.Model), nil
	case config.ProviderAnthropic:
		return anthropicprovider.NewProvider(pc.APIKey, pc.APIBase, pc.Model), nil
	default:
		return nil, fmt.Errorf("unknown extraction provider %q", cfg.Extract.Provider)
	}
}
