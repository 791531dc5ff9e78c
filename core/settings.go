package core

// Limits are the global ceilings enforced across a whole invocation tree.
// A value <= 0 disables the corresponding ceiling.
type Limits struct {
	MaxCost             float64 `json:"max_cost"`
	MaxCompletionTokens int64   `json:"max_completion_tokens"`
	MaxPromptTokens     int64   `json:"max_prompt_tokens"`
}

// Settings is the orchestration configuration shared by every invocation of a
// run. It is immutable once the run has started.
type Settings struct {
	// PrimaryModel drives the root invocation (depth 0).
	PrimaryModel string
	// SubModel drives every invocation below the root.
	SubModel string
	// MaxDepth is the depth at which invocations become leaves and lose the
	// recursive capability.
	MaxDepth int
	// MaxSteps bounds the generation attempts of a single invocation.
	MaxSteps int
	// TruncateLen bounds the execution output shown to the model.
	TruncateLen int
	// Limits are the tree-wide spend and token ceilings.
	Limits Limits
}

// ModelFor returns the model id used by an invocation at the given depth.
func (s Settings) ModelFor(depth int) string {
	if depth == 0 {
		return s.PrimaryModel
	}
	return s.SubModel
}

// IsLeaf reports whether an invocation at depth may no longer recurse.
func (s Settings) IsLeaf(depth int) bool { return depth >= s.MaxDepth }
