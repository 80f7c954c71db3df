// Package anthropicprovider implements the extraction contract over the
// Anthropic messages API. Claude takes the receipt as a base64 image block,
// or as a document block when the attachment is a PDF.
package anthropicprovider

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/lfsouza/finzap/pkg/extract"
)

type Provider struct {
	client anthropic.Client
	model  string
}

func NewProvider(apiKey, baseURL, model string) *Provider {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &Provider{
		client: anthropic.NewClient(opts...),
		model:  model,
	}
}

func (p *Provider) Model() string { return p.model }

func (p *Provider) Extract(ctx context.Context, req extract.Request) (string, error) {
	encoded := base64.StdEncoding.EncodeToString(req.ImageBytes)

	var attachment anthropic.ContentBlockParamUnion
	if req.MimeType == "application/pdf" {
		attachment = anthropic.NewDocumentBlock(anthropic.Base64PDFSourceParam{Data: encoded})
	} else {
		attachment = anthropic.NewImageBlockBase64(req.MimeType, encoded)
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(p.model),
		MaxTokens:   1000,
		Temperature: anthropic.Float(0.1),
		System:      []anthropic.TextBlockParam{{Text: extract.SystemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				attachment,
				anthropic.NewTextBlock(extract.UserPrompt(req.SenderDisplayName)),
			),
		},
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return "", classify(err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			tb := block.AsText()
			sb.WriteString(tb.Text)
		}
	}

	return sb.String(), nil
}

func classify(err error) *extract.ProviderError {
	var apierr *anthropic.Error
	if errors.As(err, &apierr) {
		kind := extract.ClassifyStatus(apierr.StatusCode, apierr.Error())
		// Anthropic signals overload with 529, outside the shared table.
		if apierr.StatusCode == 529 {
			kind = extract.KindModelUnavailable
		}
		return &extract.ProviderError{
			Kind:    kind,
			Message: apierr.Error(),
			Err:     err,
		}
	}
	return &extract.ProviderError{
		Kind:    extract.ClassifyTransport(err),
		Message: err.Error(),
		Err:     err,
	}
}
