// Package chatcompat implements the extraction contract over the OpenAI
// chat-completions wire protocol. OpenAI, OpenRouter and Gemini (through its
// OpenAI-compatible endpoint) all speak this protocol, so a single adapter
// with per-provider presets replaces three near-identical clients.
package chatcompat

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/lfsouza/finzap/pkg/extract"
)

// Preset fixes the transport identity of one provider: endpoint plus any
// extra headers the provider requires.
type Preset struct {
	Name    string
	BaseURL string
	Headers map[string]string
}

func OpenAIPreset() Preset {
	return Preset{Name: "openai"}
}

func OpenRouterPreset() Preset {
	return Preset{
		Name:    "openrouter",
		BaseURL: "https://openrouter.ai/api/v1",
		Headers: map[string]string{
			"HTTP-Referer": "https://localhost",
			"X-Title":      "WhatsApp Finance Bot",
		},
	}
}

func GeminiPreset() Preset {
	return Preset{
		Name:    "gemini",
		BaseURL: "https://generativelanguage.googleapis.com/v1beta/openai/",
	}
}

type Provider struct {
	client openai.Client
	preset Preset
	model  string
}

// NewProvider builds a chat-completions extraction client. baseURL overrides
// the preset endpoint when non-empty.
func NewProvider(preset Preset, apiKey, baseURL, model string) *Provider {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL == "" {
		baseURL = preset.BaseURL
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	for k, v := range preset.Headers {
		opts = append(opts, option.WithHeader(k, v))
	}
	return &Provider{
		client: openai.NewClient(opts...),
		preset: preset,
		model:  model,
	}
}

func (p *Provider) Model() string { return p.model }

func (p *Provider) Extract(ctx context.Context, req extract.Request) (string, error) {
	dataURL := fmt.Sprintf("data:%s;base64,%s",
		req.MimeType, base64.StdEncoding.EncodeToString(req.ImageBytes))

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(p.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(extract.SystemPrompt),
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(extract.UserPrompt(req.SenderDisplayName)),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
					URL:    dataURL,
					Detail: "high",
				}),
			}),
		},
		MaxTokens:   openai.Int(1000),
		Temperature: openai.Float(0.1),
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", p.classify(err)
	}

	if len(resp.Choices) == 0 {
		return "", &extract.ProviderError{
			Kind:    extract.KindUnknown,
			Message: fmt.Sprintf("%s returned no choices", p.preset.Name),
		}
	}

	return resp.Choices[0].Message.Content, nil
}

func (p *Provider) classify(err error) *extract.ProviderError {
	var apierr *openai.Error
	if errors.As(err, &apierr) {
		return &extract.ProviderError{
			Kind:    extract.ClassifyStatus(apierr.StatusCode, apierr.Message),
			Message: apierr.Message,
			Err:     err,
		}
	}
	return &extract.ProviderError{
		Kind:    extract.ClassifyTransport(err),
		Message: err.Error(),
		Err:     err,
	}
}
