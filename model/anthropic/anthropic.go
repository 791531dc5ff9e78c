// Package anthropic provides a model.CodeGenerator backed by the Anthropic
// Messages API.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/hupe1980/rlmesh/core"
	"github.com/hupe1980/rlmesh/logging"
	"github.com/hupe1980/rlmesh/model"
)

// ErrMissingAPIKey is returned by New when no API key is configured.
var ErrMissingAPIKey = errors.New("anthropic: API key is missing; set RLM_MODEL_API_KEY")

// Compile-time check that Generator satisfies model.CodeGenerator.
var _ model.CodeGenerator = (*Generator)(nil)

// Options configures the Anthropic generator (API key, endpoint, max tokens).
// Extend via functional options to preserve stability.
type Options struct {
	APIKey  string
	BaseURL string
	// Temperature is sent only when > 0.
	Temperature float64
	MaxTokens   int64
	HTTPClient  *http.Client
	Logger      logging.Logger
}

// Generator drives code generation through the Messages API. The Messages
// API does not report spend, so Usage.Cost stays nil.
type Generator struct {
	client *anthropic.Client
	opts   Options
}

// New creates a generator with its own client.
func New(optFns ...func(o *Options)) (*Generator, error) {
	opts := Options{MaxTokens: 8192}
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
	client := anthropic.NewClient(clientOpts...)

	return NewFromClient(&client, func(o *Options) { *o = opts }), nil
}

// NewFromClient creates a generator from an existing client.
func NewFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Generator {
	opts := Options{MaxTokens: 8192}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 8192
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &Generator{client: client, opts: opts}
}

// Generate sends the transcript with the system prompt and extracts the code
// from the reply.
func (g *Generator) Generate(ctx context.Context, req model.Request) (model.Response, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		Messages:  buildMessages(req.Transcript),
		MaxTokens: g.opts.MaxTokens,
		System:    []anthropic.TextBlockParam{{Text: model.SystemPrompt(req.Leaf, req.Depth)}},
	}
	if g.opts.Temperature > 0 {
		params.Temperature = anthropic.Float(g.opts.Temperature)
	}

	start := time.Now()
	resp, err := g.client.Messages.New(ctx, params)
	if err != nil {
		g.opts.Logger.Error("messages call failed", "model", req.Model, "duration", time.Since(start), "error", err.Error())
		return model.Response{}, fmt.Errorf("anthropic api error: %w", err)
	}

	var text, thinking strings.Builder
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			text.WriteString(block.AsText().Text)
		case "thinking":
			thinking.WriteString(block.AsThinking().Thinking)
		}
	}

	usage := core.Usage{
		PromptTokens:     resp.Usage.InputTokens,
		CompletionTokens: resp.Usage.OutputTokens,
		TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		CachedTokens:     resp.Usage.CacheReadInputTokens,
	}

	g.opts.Logger.Debug("messages call",
		"model", req.Model,
		"prompt_tokens", usage.PromptTokens,
		"completion_tokens", usage.CompletionTokens,
		"duration", time.Since(start),
	)

	return model.NewResponse(text.String(), thinking.String(), usage), nil
}

// buildMessages converts the transcript. System turns are folded into user
// turns because the Messages API only accepts a top level system prompt.
// Consecutive turns of the same role are merged.
func buildMessages(transcript []core.Message) []anthropic.MessageParam {
	var (
		messages []anthropic.MessageParam
		lastRole core.Role
		buf      []string
	)
	flush := func() {
		if len(buf) == 0 {
			return
		}
		block := anthropic.NewTextBlock(strings.Join(buf, "\n\n"))
		if lastRole == core.RoleAssistant {
			messages = append(messages, anthropic.NewAssistantMessage(block))
		} else {
			messages = append(messages, anthropic.NewUserMessage(block))
		}
		buf = nil
	}
	for _, m := range transcript {
		role := m.Role
		if role != core.RoleAssistant {
			role = core.RoleUser
		}
		if role != lastRole {
			flush()
			lastRole = role
		}
		buf = append(buf, m.Content)
	}
	flush()
	return messages
}

// Info returns metadata describing this generator.
func (g *Generator) Info() model.Info {
	return model.Info{Name: "messages", Provider: "anthropic"}
}
