// Package openai provides a model.CodeGenerator backed by the OpenAI Chat
// Completions API. Any OpenAI compatible endpoint works; the default base URL
// points at OpenRouter, whose responses carry the spend of each call in
// usage.cost and the model's reasoning in message.reasoning.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/tidwall/gjson"

	"github.com/hupe1980/rlmesh/core"
	"github.com/hupe1980/rlmesh/logging"
	"github.com/hupe1980/rlmesh/model"
)

// DefaultBaseURL is the OpenRouter API endpoint.
const DefaultBaseURL = "https://openrouter.ai/api/v1"

// ErrMissingAPIKey is returned by New when no API key is configured.
var ErrMissingAPIKey = errors.New("openai: API key is missing; set RLM_MODEL_API_KEY")

// Compile-time check that Generator satisfies model.CodeGenerator.
var _ model.CodeGenerator = (*Generator)(nil)

// Options configure the OpenAI generator.
// Fields mirror a subset of Chat Completion parameters intentionally kept
// minimal; extend via functional options without breaking callers.
type Options struct {
	APIKey  string
	BaseURL string
	// Temperature is sent only when > 0; providers use their default otherwise.
	Temperature float64
	// MaxCompletionTokens is sent only when > 0.
	MaxCompletionTokens int64
	HTTPClient          *http.Client
	Logger              logging.Logger
}

// Generator drives code generation through Chat Completions.
type Generator struct {
	client *openai.Client
	opts   Options
}

// New creates a generator with its own client.
func New(optFns ...func(o *Options)) (*Generator, error) {
	opts := Options{BaseURL: DefaultBaseURL}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	clientOpts := []option.RequestOption{option.WithAPIKey(opts.APIKey)}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(opts.BaseURL))
	}
	if opts.HTTPClient != nil {
		clientOpts = append(clientOpts, option.WithHTTPClient(opts.HTTPClient))
	}
	client := openai.NewClient(clientOpts...)

	return NewFromClient(&client, func(o *Options) { *o = opts }), nil
}

// NewFromClient creates a generator from an existing client.
func NewFromClient(client *openai.Client, optFns ...func(o *Options)) *Generator {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &Generator{client: client, opts: opts}
}

// Generate sends the system prompt plus transcript and extracts the code
// from the reply.
func (g *Generator) Generate(ctx context.Context, req model.Request) (model.Response, error) {
	params := g.buildParams(req)

	start := time.Now()
	resp, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		g.opts.Logger.Error("chat completion failed", "model", req.Model, "duration", time.Since(start), "error", err.Error())
		return model.Response{}, fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return model.Response{}, fmt.Errorf("openai api error: no choices returned")
	}

	usage := convertUsage(resp.Usage)
	msg := resp.Choices[0].Message
	reasoning := extractReasoning(msg.RawJSON())

	g.opts.Logger.Debug("chat completion",
		"model", req.Model,
		"prompt_tokens", usage.PromptTokens,
		"completion_tokens", usage.CompletionTokens,
		"duration", time.Since(start),
	)

	return model.NewResponse(msg.Content, reasoning, usage), nil
}

func (g *Generator) buildParams(req model.Request) openai.ChatCompletionNewParams {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Transcript)+1)
	messages = append(messages, openai.SystemMessage(model.SystemPrompt(req.Leaf, req.Depth)))
	for _, m := range req.Transcript {
		switch m.Role {
		case core.RoleSystem:
			messages = append(messages, openai.SystemMessage(m.Content))
		case core.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(m.Content))
		default:
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Messages: messages,
		Model:    req.Model,
	}
	if g.opts.Temperature > 0 {
		params.Temperature = openai.Float(g.opts.Temperature)
	}
	if g.opts.MaxCompletionTokens > 0 {
		params.MaxCompletionTokens = openai.Int(g.opts.MaxCompletionTokens)
	}
	return params
}

// convertUsage maps the typed usage and reads provider extensions (cost)
// from the raw JSON.
func convertUsage(u openai.CompletionUsage) core.Usage {
	out := core.Usage{
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		TotalTokens:      u.TotalTokens,
		CachedTokens:     u.PromptTokensDetails.CachedTokens,
		ReasoningTokens:  u.CompletionTokensDetails.ReasoningTokens,
	}
	out.Cost = extractCost(u.RawJSON())
	return out
}

// extractCost returns usage.cost when the provider reported one.
func extractCost(rawUsage string) *float64 {
	if rawUsage == "" {
		return nil
	}
	cost := gjson.Get(rawUsage, "cost")
	if !cost.Exists() || cost.Type == gjson.Null {
		return nil
	}
	return core.Float(cost.Float())
}

// extractReasoning returns the reasoning text of a message, if any.
func extractReasoning(rawMessage string) string {
	if rawMessage == "" {
		return ""
	}
	for _, path := range []string{"reasoning", "reasoning_content"} {
		if r := gjson.Get(rawMessage, path); r.Exists() && r.Type == gjson.String {
			return r.String()
		}
	}
	return ""
}

// Info returns metadata describing this generator.
func (g *Generator) Info() model.Info {
	return model.Info{Name: "chat-completions", Provider: "openai"}
}
