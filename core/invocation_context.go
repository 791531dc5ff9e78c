package core

import "sync"

// InvocationContext is the per-invocation scope handed through the step loop.
// It embeds the tree-wide RunContext and owns the invocation's transcript,
// which is never shared with siblings.
type InvocationContext struct {
	*RunContext
	Invocation Invocation

	mu         sync.Mutex
	transcript []Message
}

// Append adds turns to the transcript.
func (ic *InvocationContext) Append(msgs ...Message) {
	ic.mu.Lock()
	defer ic.mu.Unlock()

	ic.transcript = append(ic.transcript, msgs...)
}

// Transcript returns a copy of the turns recorded so far.
func (ic *InvocationContext) Transcript() []Message {
	ic.mu.Lock()
	defer ic.mu.Unlock()

	out := make([]Message, len(ic.transcript))
	copy(out, ic.transcript)

	return out
}

// SetStatus transitions the invocation. Terminal states are final.
func (ic *InvocationContext) SetStatus(s Status) {
	ic.mu.Lock()
	defer ic.mu.Unlock()

	if ic.Invocation.Status.Terminal() {
		return
	}
	ic.Invocation.Status = s
}

// Status returns the current lifecycle state.
func (ic *InvocationContext) Status() Status {
	ic.mu.Lock()
	defer ic.mu.Unlock()

	return ic.Invocation.Status
}

// IsLeaf reports whether the invocation lacks the recursive capability.
func (ic *InvocationContext) IsLeaf() bool { return ic.Invocation.Leaf }

// ChildDepth is the depth of invocations spawned from this one.
func (ic *InvocationContext) ChildDepth() int { return ic.Invocation.Depth + 1 }
