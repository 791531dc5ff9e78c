package anthropic

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/rlmesh/core"
	"github.com/hupe1980/rlmesh/model"
)

const messageBody = `{
  "id": "msg_1",
  "type": "message",
  "role": "assistant",
  "model": "claude-sonnet-4-5",
  "stop_reason": "end_turn",
  "content": [
    {"type": "thinking", "thinking": "split the text", "signature": "sig"},
    {"type": "text", "text": "` + "```repl" + `\nrlm.Final(3)\n` + "```" + `"}
  ],
  "usage": {"input_tokens": 50, "output_tokens": 10, "cache_read_input_tokens": 20}
}`

func TestGenerator_Generate(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, messageBody)
	}))
	defer srv.Close()

	g, err := New(func(o *Options) {
		o.APIKey = "test-key"
		o.BaseURL = srv.URL
	})
	require.NoError(t, err)

	resp, err := g.Generate(context.Background(), model.Request{
		Model:      "claude-sonnet-4-5",
		Leaf:       true,
		Transcript: []core.Message{core.UserMessage("probe"), core.AssistantMessage("```repl\nx := 1\n```"), core.UserMessage("Output: \n")},
	})
	require.NoError(t, err)

	assert.Equal(t, "rlm.Final(3)", resp.Code)
	assert.Equal(t, "split the text", resp.Message.Reasoning)
	assert.Equal(t, int64(50), resp.Usage.PromptTokens)
	assert.Equal(t, int64(10), resp.Usage.CompletionTokens)
	assert.Equal(t, int64(60), resp.Usage.TotalTokens)
	assert.Equal(t, int64(20), resp.Usage.CachedTokens)
	assert.Nil(t, resp.Usage.Cost)

	require.NotNil(t, got)
	assert.NotEmpty(t, got["system"])
	msgs, ok := got["messages"].([]any)
	require.True(t, ok)
	assert.Len(t, msgs, 3)
}

func TestBuildMessages_MergesSameRole(t *testing.T) {
	msgs := buildMessages([]core.Message{
		core.UserMessage("a"),
		{Role: core.RoleSystem, Content: "b"},
		core.AssistantMessage("c"),
	})
	assert.Len(t, msgs, 2)
}

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := New()
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}
