package ingest

import (
	"fmt"
	"strings"
)

// Strategy selects how the run budget is split across entities.
type Strategy string

const (
	// StrategyEven gives every entity floor(budget/N). Allocation an entity
	// cannot use is not handed to later entities.
	StrategyEven Strategy = "even"

	// StrategySequential lets each entity take whatever budget is left,
	// in catalog order, until the budget is exhausted.
	StrategySequential Strategy = "sequential"
)

// ParseStrategy parses a strategy name. The empty string is StrategyEven.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", StrategyEven:
		return StrategyEven, nil
	case StrategySequential:
		return StrategySequential, nil
	default:
		return "", fmt.Errorf("unknown quota strategy %q (want %q or %q)", s, StrategyEven, StrategySequential)
	}
}

// Limiter caps the number of new records a single run may persist.
//
// One Limiter is created per run. The caller asks for an entity's allocation
// with Allocate, persists at most that many new records, and reports the
// number actually inserted with Consume.
type Limiter struct {
	budget    int
	ceiling   int // <= 0 means no per-entity ceiling
	perEntity int
	strategy  Strategy
	consumed  int
}

// NewLimiter creates a limiter for a run over n entities.
func NewLimiter(budget, ceiling, n int, strategy Strategy) *Limiter {
	if budget < 0 {
		budget = 0
	}
	perEntity := 0
	if n > 0 {
		perEntity = budget / n
	}
	if strategy == "" {
		strategy = StrategyEven
	}
	return &Limiter{
		budget:    budget,
		ceiling:   ceiling,
		perEntity: perEntity,
		strategy:  strategy,
	}
}

// Allocate returns how many new records an entity with the given progress
// may persist. A result of zero means skip the entity this run.
//
// The default allocation is reduced to ceiling-progress when a ceiling is
// set, and never exceeds the budget still unconsumed.
func (l *Limiter) Allocate(progress int) int {
	var alloc int
	switch l.strategy {
	case StrategySequential:
		alloc = l.Remaining()
	default:
		alloc = min(l.perEntity, l.Remaining())
	}

	if l.ceiling > 0 {
		alloc = min(alloc, l.ceiling-progress)
	}
	if alloc < 0 {
		return 0
	}
	return alloc
}

// Consume records n inserted records against the budget.
func (l *Limiter) Consume(n int) {
	if n > 0 {
		l.consumed += n
	}
}

// Remaining returns the unconsumed budget.
func (l *Limiter) Remaining() int {
	return max(l.budget-l.consumed, 0)
}

// Consumed returns the number of records consumed so far.
func (l *Limiter) Consumed() int {
	return l.consumed
}

// Ceiling returns the per-entity ceiling (<= 0 means none).
func (l *Limiter) Ceiling() int {
	return l.ceiling
}

// AtCeiling reports whether an entity with the given count has reached the
// ceiling. Always false when no ceiling is set.
func (l *Limiter) AtCeiling(count int) bool {
	return l.ceiling > 0 && count >= l.ceiling
}
