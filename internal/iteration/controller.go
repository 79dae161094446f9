// Package iteration drives the bounded revise and re-score loop for a single
// resume.
package iteration

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/resume-refiner/internal/ai"
	"github.com/spigell/resume-refiner/internal/scoring"
)

// ScoreFunc scores structured resume JSON, optionally against a job description.
type ScoreFunc func(resumeJSON, jobDescription string) (float64, scoring.Details, error)

// Entry is one scored draft. Iteration 0 is the seed.
type Entry struct {
	Iteration int             `json:"iteration"`
	Score     float64         `json:"score"`
	Details   scoring.Details `json:"details"`
}

// Result is the outcome of a run. BestResumeJSON never scores below any other
// draft that was adopted during the run.
type Result struct {
	BestResumeJSON string          `json:"best_resume_json"`
	BestScore      float64         `json:"best_score"`
	History        []Entry         `json:"history"`
	StoppedReason  StopReason      `json:"stopped_reason"`
	Details        scoring.Details `json:"details"`
}

// Controller runs the loop. A Controller holds no per-run state and may be
// shared, but each Run is strictly sequential.
type Controller struct {
	reviser ai.Reviser
	score   ScoreFunc
	policy  Policy
	goals   []string
	logger  *zap.Logger
}

func New(reviser ai.Reviser, score ScoreFunc, policy Policy, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Controller{
		reviser: reviser,
		score:   score,
		policy:  policy.normalized(),
		goals:   ai.DefaultRevisionGoals(),
		logger:  logger,
	}
}

// Policy returns the effective policy.
func (c *Controller) Policy() Policy {
	return c.policy
}

// Run scores seedJSON and revises it until a stop condition holds.
//
// If a revision or a rescore fails, Run returns the result accumulated so far
// together with the error. The partial result's best is the last draft that
// was successfully scored and adopted.
func (c *Controller) Run(ctx context.Context, seedJSON, jobDescription string) (*Result, error) {
	if c.reviser == nil || c.score == nil {
		return nil, errors.New("iteration controller is not configured")
	}

	p := c.policy

	bestJSON := seedJSON
	bestScore, bestDetails, err := c.score(bestJSON, jobDescription)
	if err != nil {
		return nil, fmt.Errorf("score seed resume: %w", err)
	}

	history := []Entry{{Iteration: 0, Score: bestScore, Details: bestDetails}}
	c.logger.Info("scored seed resume", zap.Float64("score", bestScore), zap.Float64("target", p.TargetScore))

	if bestScore >= p.TargetScore {
		return &Result{
			BestResumeJSON: bestJSON,
			BestScore:      bestScore,
			History:        history,
			StoppedReason:  StopTargetReached,
			Details:        scoring.Details{"initial": bestDetails},
		}, nil
	}

	stopped := StopMaxIterations
	noImproveStreak := 0
	regressions := 0
	previous := bestScore

	result := func() *Result {
		return &Result{
			BestResumeJSON: bestJSON,
			BestScore:      bestScore,
			History:        history,
			StoppedReason:  stopped,
			Details: scoring.Details{
				"best":               bestDetails,
				"iteration_strategy": string(p.Strategy),
				"iteration_patience": p.Patience,
				"stop_on_regression": p.StopOnRegression,
				"max_regressions":    p.MaxRegressions,
				"regression_count":   regressions,
				"no_improve_streak":  noImproveStreak,
			},
		}
	}

	for i := 1; i <= p.MaxIterations; i++ {
		if err := ctx.Err(); err != nil {
			return result(), fmt.Errorf("iteration %d: %w", i, err)
		}

		candidateJSON, err := c.reviser.Revise(ctx, bestJSON, jobDescription, c.goals)
		if err != nil {
			return result(), fmt.Errorf("iteration %d: revise resume: %w", i, err)
		}

		candidateScore, candidateDetails, err := c.score(candidateJSON, jobDescription)
		if err != nil {
			return result(), fmt.Errorf("iteration %d: score candidate: %w", i, err)
		}
		history = append(history, Entry{Iteration: i, Score: candidateScore, Details: candidateDetails})

		if candidateScore < previous {
			regressions++
		}
		previous = candidateScore

		improvement := candidateScore - bestScore
		if improvement >= p.MinScoreDelta {
			bestJSON, bestScore, bestDetails = candidateJSON, candidateScore, candidateDetails
			noImproveStreak = 0
		} else {
			noImproveStreak++
		}

		c.logger.Info("scored revised resume",
			zap.Int("iteration", i),
			zap.Float64("score", candidateScore),
			zap.Float64("best", bestScore),
			zap.Float64("improvement", improvement),
			zap.Int("regressions", regressions),
			zap.Int("no_improve_streak", noImproveStreak),
		)

		if reason, stop := c.shouldStop(bestScore, improvement, regressions, noImproveStreak); stop {
			stopped = reason
			break
		}
	}

	c.logger.Info("iteration finished",
		zap.String("reason", string(stopped)),
		zap.Float64("best", bestScore),
		zap.Int("iterations", len(history)-1),
	)

	return result(), nil
}

// shouldStop applies the stop conditions in priority order.
func (c *Controller) shouldStop(best, improvement float64, regressions, streak int) (StopReason, bool) {
	p := c.policy

	if best >= p.TargetScore {
		return StopTargetReached, true
	}

	if p.StopOnRegression && regressions >= p.MaxRegressions {
		return StopRegression, true
	}

	if p.Strategy == StrategyPatience && p.Patience > 0 {
		if streak >= p.Patience {
			return StopNoProgress, true
		}
		return "", false
	}

	if improvement < p.MinScoreDelta {
		return StopNoProgress, true
	}
	return "", false
}
