package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInvocationContext_TranscriptIsCopied(t *testing.T) {
	rc := NewRunContext(context.Background(), Settings{MaxDepth: 1}, nil, nil, nil)
	defer rc.Release()

	ic := rc.NewInvocationContext(0, "")
	ic.Append(UserMessage("hello"), AssistantMessage("world"))

	tr := ic.Transcript()
	assert.Len(t, tr, 2)
	tr[0].Content = "mutated"
	assert.Equal(t, "hello", ic.Transcript()[0].Content)
	assert.Equal(t, 1, ic.ChildDepth())
	assert.False(t, ic.IsLeaf())
}

func TestInvocationContext_TerminalStatusIsFinal(t *testing.T) {
	rc := NewRunContext(context.Background(), Settings{}, nil, nil, nil)
	defer rc.Release()

	ic := rc.NewInvocationContext(0, "")
	assert.True(t, ic.IsLeaf(), "max depth 0 makes the root a leaf")

	ic.SetStatus(StatusCompleted)
	ic.SetStatus(StatusFailed)
	assert.Equal(t, StatusCompleted, ic.Status())
}

func TestInvocationContext_RootSharesRunID(t *testing.T) {
	rc := NewRunContext(context.Background(), Settings{MaxDepth: 2}, nil, nil, nil)
	defer rc.Release()

	root := rc.NewInvocationContext(0, "")
	assert.Equal(t, rc.ID, root.Invocation.RunID)

	child := rc.NewInvocationContext(1, root.Invocation.RunID)
	assert.NotEqual(t, rc.ID, child.Invocation.RunID)
	assert.Equal(t, rc.ID, child.Invocation.ParentRunID)
}
