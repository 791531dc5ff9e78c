package rlmesh

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/rlmesh/config"
	"github.com/hupe1980/rlmesh/core"
	"github.com/hupe1980/rlmesh/model"
	"github.com/hupe1980/rlmesh/model/anthropic"
	"github.com/hupe1980/rlmesh/model/openai"
	"github.com/hupe1980/rlmesh/runlog"
)

func TestRLMesh_RunWithInterpreter(t *testing.T) {
	cfg := config.Default()
	cfg.MaxDepth = 0

	gen := model.NewMockGenerator(model.MockReply{
		Content: "```repl\nwords := strings.Fields(context)\nrlm.Final(len(words))\n```",
		Usage:   core.Usage{PromptTokens: 3, CompletionTokens: 2, TotalTokens: 5},
	})
	journal := runlog.NewMemoryJournal()

	m, err := New(func(o *Options) {
		o.Config = cfg
		o.Generator = gen
		o.Journal = journal
	})
	require.NoError(t, err)

	res, err := m.Run(context.Background(), "one two three")
	require.NoError(t, err)
	assert.Equal(t, 3, res.Value)
	assert.Equal(t, int64(5), res.Usage.TotalTokens)

	roots, err := runlog.BuildTree(journal.Entries())
	require.NoError(t, err)
	require.Len(t, roots, 1)
	assert.True(t, roots[0].Final)
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.MaxCallsPerSubagent = 0

	_, err := New(func(o *Options) {
		o.Config = cfg
		o.Generator = model.NewMockGenerator()
	})
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestNewGenerator(t *testing.T) {
	cfg := config.Default()
	cfg.APIKey = "k"

	gen, err := NewGenerator(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &openai.Generator{}, gen)

	cfg.Provider = config.ProviderAnthropic
	gen, err = NewGenerator(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &anthropic.Generator{}, gen)

	cfg.APIKey = ""
	_, err = NewGenerator(cfg, nil)
	assert.ErrorIs(t, err, anthropic.ErrMissingAPIKey)

	cfg.Provider = "other"
	_, err = NewGenerator(cfg, nil)
	assert.ErrorIs(t, err, config.ErrInvalid)
}
