package iteration

import (
	"fmt"
	"strings"
)

// Strategy selects how the controller reacts to insufficient improvement.
type Strategy string

const (
	// StrategyBestOf keeps the best candidate and stops at the first revision
	// that does not clear the minimum delta.
	StrategyBestOf Strategy = "best_of"
	// StrategyFirstHit stops as soon as the target is reached. Otherwise it
	// behaves like StrategyBestOf.
	StrategyFirstHit Strategy = "first_hit"
	// StrategyPatience tolerates up to Patience revisions in a row without
	// improvement.
	StrategyPatience Strategy = "patience"
)

// Strategies lists every recognized strategy.
func Strategies() []Strategy {
	return []Strategy{StrategyBestOf, StrategyFirstHit, StrategyPatience}
}

// ParseStrategy normalizes s. Unknown or empty values map to StrategyBestOf.
func ParseStrategy(s string) Strategy {
	switch v := Strategy(strings.ToLower(strings.TrimSpace(s))); v {
	case StrategyBestOf, StrategyFirstHit, StrategyPatience:
		return v
	default:
		return StrategyBestOf
	}
}

// StopReason records why a run ended.
type StopReason string

const (
	StopTargetReached StopReason = "target_reached"
	StopRegression    StopReason = "regression"
	StopNoProgress    StopReason = "no_progress"
	StopMaxIterations StopReason = "max_iterations"
)

// Policy configures the stopping rules of a run.
type Policy struct {
	TargetScore      float64
	MaxIterations    int
	MinScoreDelta    float64
	Strategy         Strategy
	Patience         int
	StopOnRegression bool
	MaxRegressions   int
}

// DefaultPolicy returns the built-in stopping rules.
func DefaultPolicy() Policy {
	return Policy{
		TargetScore:      80,
		MaxIterations:    3,
		MinScoreDelta:    0.1,
		Strategy:         StrategyBestOf,
		Patience:         2,
		StopOnRegression: true,
		MaxRegressions:   2,
	}
}

// normalized clamps counters to be non-negative and resolves the strategy.
func (p Policy) normalized() Policy {
	p.Strategy = ParseStrategy(string(p.Strategy))
	p.MaxIterations = max(p.MaxIterations, 0)
	p.Patience = max(p.Patience, 0)
	p.MaxRegressions = max(p.MaxRegressions, 0)
	return p
}

func (p Policy) String() string {
	return fmt.Sprintf("target=%.1f max_iterations=%d min_delta=%.2f strategy=%s patience=%d stop_on_regression=%t max_regressions=%d",
		p.TargetScore, p.MaxIterations, p.MinScoreDelta, p.Strategy, p.Patience, p.StopOnRegression, p.MaxRegressions)
}
