package core

// Ledger is the tree-wide usage accumulator. Implementations must be safe
// for concurrent use by every branch of the tree.
type Ledger interface {
	// Charge adds u to the running total and checks the configured ceilings
	// in the same critical section. It returns the total after the charge
	// and a *BudgetError on breach. Usage is recorded even when the charge
	// breaches a ceiling since the call has already been paid for.
	Charge(u Usage) (Usage, error)

	// Check returns the breach latched by an earlier Charge, if any.
	Check() error

	// Total returns an immutable snapshot of the accumulated usage.
	Total() Usage
}
