package core

import (
	"errors"
	"fmt"
	"sync"
)

// ErrBudgetExhausted is returned by StepBudget.Next once every step has been used.
var ErrBudgetExhausted = errors.New("step budget exhausted")

// StepBudget enforces a maximum number of generation calls per run. The
// counter never exceeds the configured maximum: Next refuses to advance
// instead of overshooting.
type StepBudget struct {
	max   int
	count int
	mu    sync.Mutex
}

// NewStepBudget creates a budget allowing max steps. Values below one are
// raised to one so every run gets at least a single generation call.
func NewStepBudget(max int) *StepBudget {
	if max < 1 {
		max = 1
	}
	return &StepBudget{max: max}
}

// Next consumes one step and returns its 1-based number, or ErrBudgetExhausted
// when the budget is spent.
func (b *StepBudget) Next() (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count >= b.max {
		return b.count, fmt.Errorf("%w after %d steps", ErrBudgetExhausted, b.max)
	}

	b.count++

	return b.count, nil
}

// Count returns the number of steps consumed so far.
func (b *StepBudget) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.count
}

// Max returns the configured maximum.
func (b *StepBudget) Max() int { return b.max }

// Remaining returns how many steps are left.
func (b *StepBudget) Remaining() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.max - b.count
}
