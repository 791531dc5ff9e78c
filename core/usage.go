package core

// Usage captures token and spend statistics reported for one model call, or
// the running total across many calls. Cost is nil until a provider reports
// one; summing preserves that distinction.
type Usage struct {
	PromptTokens     int64    `json:"prompt_tokens"`
	CompletionTokens int64    `json:"completion_tokens"`
	TotalTokens      int64    `json:"total_tokens"`
	CachedTokens     int64    `json:"cached_tokens"`
	ReasoningTokens  int64    `json:"reasoning_tokens"`
	Cost             *float64 `json:"cost"`
}

// Add returns the field-wise sum of u and o. The cost stays nil only when
// both operands have no cost.
func (u Usage) Add(o Usage) Usage {
	sum := Usage{
		PromptTokens:     u.PromptTokens + o.PromptTokens,
		CompletionTokens: u.CompletionTokens + o.CompletionTokens,
		TotalTokens:      u.TotalTokens + o.TotalTokens,
		CachedTokens:     u.CachedTokens + o.CachedTokens,
		ReasoningTokens:  u.ReasoningTokens + o.ReasoningTokens,
	}
	switch {
	case u.Cost != nil && o.Cost != nil:
		sum.Cost = Float(*u.Cost + *o.Cost)
	case u.Cost != nil:
		sum.Cost = Float(*u.Cost)
	case o.Cost != nil:
		sum.Cost = Float(*o.Cost)
	}
	return sum
}

// Clone returns a copy that shares no memory with u.
func (u Usage) Clone() Usage {
	c := u
	if u.Cost != nil {
		c.Cost = Float(*u.Cost)
	}
	return c
}

// CostValue returns the cost or 0 when none was reported.
func (u Usage) CostValue() float64 {
	if u.Cost == nil {
		return 0
	}
	return *u.Cost
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }
