package model

import (
	"context"
	"regexp"
	"strings"

	"github.com/hupe1980/rlmesh/core"
)

// Request is the input of one generation step.
type Request struct {
	// Transcript is the invocation's conversation so far, without the
	// system prompt. Providers prepend SystemPrompt themselves.
	Transcript []core.Message
	// Model is the provider model id.
	Model string
	// Leaf selects the system prompt variant without recursion.
	Leaf bool
	// Depth is the depth of the requesting invocation.
	Depth int
}

// Response is the outcome of one generation step.
type Response struct {
	// Code is the extracted snippet, empty when the reply had no code block.
	Code string
	// Message is the raw assistant turn, appended to the transcript verbatim.
	Message core.Message
	// Usage is always populated, even when no code was extracted.
	Usage core.Usage
}

// HasCode reports whether a snippet was extracted.
func (r Response) HasCode() bool { return r.Code != "" }

// Info contains metadata about a generator implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"` // "openai", "anthropic", "mock", etc.
}

// CodeGenerator produces the next snippet of an invocation.
type CodeGenerator interface {
	Generate(ctx context.Context, req Request) (Response, error)

	// Info returns information about the generator implementation.
	Info() Info
}

var fencedBlock = regexp.MustCompile("(?s)```(?:repl|go)[ \t]*\n?(.*?)```")

// ExtractCode returns the contents of every ```repl or ```go block in text,
// trimmed and joined by newlines. It returns "" when there is none.
func ExtractCode(text string) string {
	matches := fencedBlock.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return ""
	}
	blocks := make([]string, 0, len(matches))
	for _, m := range matches {
		if code := strings.TrimSpace(m[1]); code != "" {
			blocks = append(blocks, code)
		}
	}
	return strings.Join(blocks, "\n")
}

// NewResponse builds a Response from the assistant text, extracting the code.
func NewResponse(content, reasoning string, usage core.Usage) Response {
	return Response{
		Code:    ExtractCode(content),
		Message: core.Message{Role: core.RoleAssistant, Content: content, Reasoning: reasoning},
		Usage:   usage,
	}
}
