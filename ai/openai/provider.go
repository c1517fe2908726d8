// Copyright 2026 Rui Dias
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package openai

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/rpad300/docpipe/ai"
)

// Provider implements ai.ModelProvider using OpenAI-compatible chat APIs.
// It holds a text client and, when configured, a separate vision client.
type Provider struct {
	config       *ai.Config
	client       llms.Model
	visionClient llms.Model
	logger       *slog.Logger
}

// NewProvider creates a model provider backed by an OpenAI-compatible
// service. The config is validated and normalized before use.
//
// Returns ai.ModelProvider interface (not *Provider) to enforce
// abstraction and prevent coupling to OpenAI-specific details.
func NewProvider(config *ai.Config) (ai.ModelProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.Host),
		openai.WithToken(config.Token),
		openai.WithModel(config.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("creating chat client: %w", err)
	}

	p := &Provider{
		config: config,
		client: client,
		logger: slog.Default().With("component", "openai-provider"),
	}

	if config.VisionEnabled() {
		visionClient, err := openai.New(
			openai.WithBaseURL(config.Host),
			openai.WithToken(config.Token),
			openai.WithModel(config.VisionModel),
		)
		if err != nil {
			return nil, fmt.Errorf("creating vision client: %w", err)
		}
		p.visionClient = visionClient
	}

	return p, nil
}

// Name returns "openai".
func (p *Provider) Name() string {
	return "openai"
}

// GenerateText sends the system and user prompts to the configured model
// and returns the raw response text. Responses are returned verbatim apart
// from whitespace trimming; any repair happens downstream.
func (p *Provider) GenerateText(ctx context.Context, system, user string) (string, error) {
	content := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(system)},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(user)},
		},
	}
	return p.generate(ctx, p.client, content)
}

// GenerateVision sends the system prompt plus an image to the vision model.
// Returns ai.ErrVisionNotSupported when no vision model is configured.
func (p *Provider) GenerateVision(ctx context.Context, system string, image []byte, mimeType string) (string, error) {
	if p.visionClient == nil {
		return "", ai.ErrVisionNotSupported
	}

	content := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(system)},
		},
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.BinaryPart(mimeType, image),
			},
		},
	}
	return p.generate(ctx, p.visionClient, content)
}

func (p *Provider) generate(ctx context.Context, client llms.Model, content []llms.MessageContent) (string, error) {
	response, err := client.GenerateContent(ctx, content,
		llms.WithTemperature(p.config.Temperature),
	)
	if err != nil {
		p.logger.Warn("model call failed", "err", err)
		return "", fmt.Errorf("%w: %w", ai.ErrProviderUnavailable, err)
	}

	if len(response.Choices) < 1 {
		p.logger.Debug("no choices returned from model")
		return "", nil
	}
	return trimResponse(response.Choices[0].Content), nil
}

// Close releases resources held by the provider.
// Currently a no-op as the underlying clients don't require explicit cleanup.
func (p *Provider) Close() error {
	p.logger.Debug("closing OpenAI provider")
	return nil
}
