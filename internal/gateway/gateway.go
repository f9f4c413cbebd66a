// Package gateway proxies chat questions to the configured AI providers
// with automatic failover from the primary to the secondary provider.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/istorica/mentorai/internal/gateway/prompts"
	"github.com/istorica/mentorai/internal/model"

	openai "github.com/sashabaranov/go-openai"
)

// Mode selects a provider/model route for a chat request.
type Mode string

const (
	// ModeStandard routes to the primary chat model.
	ModeStandard Mode = "standard"
	// ModeThinking routes to the primary reasoning model.
	ModeThinking Mode = "thinking"
	// ModeBackup bypasses the primary and calls the secondary provider directly.
	ModeBackup Mode = "backup"
)

const (
	providerDeepSeek = "deepseek"
	providerMistral  = "mistral"
)

// Answer is the normalized result of a chat request, regardless of
// which provider produced it. ThinkingProcess is set only when the
// provider ran a reasoning model and exposed a distinct trace.
type Answer struct {
	Provider        string `json:"provider"`
	Model           string `json:"model"`
	Response        string `json:"response"`
	ThinkingProcess string `json:"thinkingProcess,omitempty"`
}

// ErrEmptyQuestion is returned when the question is empty after trimming.
var ErrEmptyQuestion = errors.New("question is empty")

// ConfigError reports a provider that cannot be called because its
// credential is missing. It counts as a provider failure for failover.
type ConfigError struct {
	Provider string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("provider %s: API key missing", e.Provider)
}

// ProviderError reports a failed completion call against one provider.
type ProviderError struct {
	Provider string
	Model    string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s (%s): %v", e.Provider, e.Model, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Config holds provider endpoints and credentials. Zero-value model
// names and base URLs fall back to the public defaults.
type Config struct {
	DeepSeekBaseURL       string
	DeepSeekAPIKey        string
	DeepSeekChatModel     string
	DeepSeekReasonerModel string
	MistralBaseURL        string
	MistralAPIKey         string
	MistralModel          string
}

type provider struct {
	name   string
	api    *openai.Client
	keySet bool
}

// route is one resolved provider/model call target.
type route struct {
	p         *provider
	model     string
	maxTokens int
	// temperature is sent only when useTemp is set; the reasoning
	// model rejects a temperature parameter.
	temperature float32
	useTemp     bool
	reasoning   bool
}

// Gateway answers chat questions. It is stateless between calls; the
// mode routing table is resolved once at construction.
type Gateway struct {
	routes    map[Mode]route
	fallbacks map[Mode]*route
}

// New creates a Gateway from the provider configuration. Missing API
// keys are not an error here; the affected provider fails at call time
// so that failover can still engage.
func New(cfg Config) *Gateway {
	if cfg.DeepSeekBaseURL == "" {
		cfg.DeepSeekBaseURL = "https://api.deepseek.com"
	}
	if cfg.DeepSeekChatModel == "" {
		cfg.DeepSeekChatModel = "deepseek-chat"
	}
	if cfg.DeepSeekReasonerModel == "" {
		cfg.DeepSeekReasonerModel = "deepseek-reasoner"
	}
	if cfg.MistralBaseURL == "" {
		cfg.MistralBaseURL = "https://api.mistral.ai/v1"
	}
	if cfg.MistralModel == "" {
		cfg.MistralModel = "mistral-medium"
	}

	deepseek := newProvider(providerDeepSeek, cfg.DeepSeekBaseURL, cfg.DeepSeekAPIKey)
	mistral := newProvider(providerMistral, cfg.MistralBaseURL, cfg.MistralAPIKey)

	mistralRoute := route{
		p:           mistral,
		model:       cfg.MistralModel,
		maxTokens:   1500,
		temperature: 0.7,
		useTemp:     true,
	}

	g := &Gateway{
		routes: map[Mode]route{
			ModeStandard: {
				p:           deepseek,
				model:       cfg.DeepSeekChatModel,
				maxTokens:   2000,
				temperature: 0.7,
				useTemp:     true,
			},
			ModeThinking: {
				p:         deepseek,
				model:     cfg.DeepSeekReasonerModel,
				maxTokens: 2000,
				reasoning: true,
			},
			ModeBackup: mistralRoute,
		},
		fallbacks: map[Mode]*route{
			ModeStandard: &mistralRoute,
			ModeThinking: &mistralRoute,
		},
	}
	return g
}

func newProvider(name, baseURL, apiKey string) *provider {
	config := openai.DefaultConfig(apiKey)
	config.BaseURL = baseURL
	return &provider{
		name:   name,
		api:    openai.NewClientWithConfig(config),
		keySet: apiKey != "",
	}
}

// resolve maps a mode to its primary route and optional fallback.
// Unknown modes behave as standard.
func (g *Gateway) resolve(mode Mode) (route, *route) {
	r, ok := g.routes[mode]
	if !ok {
		mode = ModeStandard
		r = g.routes[mode]
	}
	return r, g.fallbacks[mode]
}

// Answer sends the question to the provider selected by mode and
// returns the normalized result. When the primary call fails, the
// secondary provider is tried once with the same question and an
// equivalent system prompt; when both fail, the returned error names
// both providers and their causes.
func (g *Gateway) Answer(ctx context.Context, question string, mode Mode, lang model.Language) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	systemPrompt := prompts.System(lang)
	primary, fallback := g.resolve(mode)

	ans, err := g.call(ctx, primary, systemPrompt, question)
	if err == nil {
		return ans, nil
	}
	if fallback == nil {
		return nil, err
	}

	slog.Warn("primary provider failed, falling back",
		"provider", primary.p.name, "model", primary.model, "error", err)

	ans, ferr := g.call(ctx, *fallback, systemPrompt, question)
	if ferr != nil {
		return nil, fmt.Errorf("all providers failed: %s: %v; %s: %w",
			primary.p.name, err, fallback.p.name, ferr)
	}
	return ans, nil
}

func (g *Gateway) call(ctx context.Context, r route, systemPrompt, question string) (*Answer, error) {
	if !r.p.keySet {
		return nil, &ConfigError{Provider: r.p.name}
	}

	req := openai.ChatCompletionRequest{
		Model: r.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: question},
		},
		MaxTokens: r.maxTokens,
	}
	if r.useTemp {
		req.Temperature = r.temperature
	}

	resp, err := r.p.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, &ProviderError{Provider: r.p.name, Model: r.model, Err: err}
	}
	if len(resp.Choices) == 0 {
		return nil, &ProviderError{Provider: r.p.name, Model: r.model, Err: errors.New("no choices in response")}
	}

	choice := resp.Choices[0]
	ans := &Answer{
		Provider: r.p.name,
		Model:    r.model,
		Response: choice.Message.Content,
	}
	if r.reasoning {
		ans.ThinkingProcess = choice.Message.ReasoningContent
	}
	return ans, nil
}
