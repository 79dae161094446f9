// Package processor runs every resume through enhance, optional schema repair,
// the score-driven revise loop, final scoring, recommendations and output.
// Resumes are processed concurrently with a bounded worker pool.
package processor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/resume-refiner/internal/ai"
	"github.com/spigell/resume-refiner/internal/input"
	"github.com/spigell/resume-refiner/internal/iteration"
	"github.com/spigell/resume-refiner/internal/logger"
	"github.com/spigell/resume-refiner/internal/output"
	"github.com/spigell/resume-refiner/internal/recommendations"
	"github.com/spigell/resume-refiner/internal/schema"
	"github.com/spigell/resume-refiner/internal/scoring"
	"github.com/spigell/resume-refiner/internal/scoring/cache"
)

// Config contains the processing settings.
type Config struct {
	Iterate                 bool
	Policy                  iteration.Policy
	MaxConcurrentRequests   int
	VersionsPerJob          int
	SchemaValidation        bool
	SchemaMaxRetries        int
	Recommendations         bool
	RecommendationsMaxItems int
}

// Deps aggregates dependencies shared across all stages. Cache, Validator and
// Writer may be nil; the stages that need them are then disabled.
type Deps struct {
	Tailor    ai.Tailor
	Scorer    *scoring.Scorer
	Cache     *cache.Cache
	Validator *schema.Validator
	Writer    *output.Writer
	Logger    *zap.Logger
}

// Task is the state of one resume version moving through the stages.
type Task struct {
	Resume         input.Resume
	JobDescription *input.JobDescription
	Version        int

	ResumeJSON      string
	Iteration       *iteration.Result
	Evaluation      *Evaluation
	Recommendations []recommendations.Recommendation
	Output          *output.Result

	logger *zap.Logger
}

// JobTitle is the sanitized job title used for output paths.
func (t *Task) JobTitle() string {
	if t.JobDescription == nil {
		return "generic"
	}
	return t.JobDescription.Title()
}

// Outcome describes a resume version that went through every stage.
type Outcome struct {
	Resume        string
	Version       int
	Score         float64
	StoppedReason string
	Dir           string
	Task          *Task
}

// Failure describes a resume version that stopped at a stage.
type Failure struct {
	Resume  string
	Version int
	Stage   string
	Err     error
}

// Summary is the result of a run. A failure of one resume never aborts others.
type Summary struct {
	RunID     string
	Succeeded []Outcome
	Failed    []Failure
	Cache     cache.Stats
	Duration  time.Duration
}

// Processor owns the stage list and the worker pool settings.
type Processor struct {
	cfg    Config
	deps   Deps
	stages []Stage
	runID  string
	logger *zap.Logger
}

// New builds the stage list, disables the optional stages that are switched
// off or lack dependencies and validates the rest.
func New(cfg Config, deps Deps) (*Processor, error) {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if cfg.MaxConcurrentRequests < 1 {
		cfg.MaxConcurrentRequests = 1
	}
	if cfg.VersionsPerJob < 1 {
		cfg.VersionsPerJob = 1
	}

	runID := uuid.NewString()
	stages := []Stage{
		&enhanceStage{},
		&schemaStage{maxRetries: max(0, cfg.SchemaMaxRetries)},
		&iterateStage{policy: cfg.Policy},
		&scoreStage{},
		&recommendStage{opts: recommendations.Options{MaxItems: cfg.RecommendationsMaxItems}},
		&writeStage{runID: runID},
	}

	if !cfg.SchemaValidation {
		DisableByName(stages, StageSchema, "schema validation is disabled")
	} else if deps.Validator == nil {
		DisableByName(stages, StageSchema, "no schema validator configured")
	}
	if !cfg.Iterate {
		DisableByName(stages, StageIterate, "iteration is disabled")
	}
	if !cfg.Recommendations {
		DisableByName(stages, StageRecommend, "recommendations are disabled")
	}
	if deps.Writer == nil {
		DisableByName(stages, StageWrite, "no output writer configured")
	}

	for _, s := range stages {
		if !s.IsEnabled() {
			deps.Logger.Info("stage disabled", zap.String("name", s.Name()))
			continue
		}
		if err := s.Validate(deps); err != nil {
			return nil, fmt.Errorf("%s: %w", s.Name(), err)
		}
	}

	deps.Logger = logger.WithRun(deps.Logger, runID)

	return &Processor{cfg: cfg, deps: deps, stages: stages, runID: runID, logger: deps.Logger}, nil
}

// RunID identifies this processor's run in logs and manifests.
func (p *Processor) RunID() string {
	return p.runID
}

// Stages describes the configured stages.
func (p *Processor) Stages() []Status {
	return Describe(p.stages)
}

// Run processes every resume VersionsPerJob times against jd, which may be
// nil. At most MaxConcurrentRequests resume versions are in flight.
func (p *Processor) Run(ctx context.Context, resumes []input.Resume, jd *input.JobDescription) *Summary {
	started := time.Now()
	summary := &Summary{RunID: p.runID}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(p.cfg.MaxConcurrentRequests)

	for _, r := range resumes {
		for version := 1; version <= p.cfg.VersionsPerJob; version++ {
			t := &Task{
				Resume:         r,
				JobDescription: jd,
				Version:        version,
			}
			t.logger = logger.WithResume(p.logger, r.Name, t.JobTitle(), version)

			g.Go(func() error {
				stage, err := p.process(ctx, t)

				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					t.logger.Error("processing resume failed", zap.String("stage", stage), zap.Error(err))
					summary.Failed = append(summary.Failed, Failure{Resume: r.Name, Version: version, Stage: stage, Err: err})
					return nil
				}

				outcome := Outcome{Resume: r.Name, Version: version, Task: t}
				if t.Evaluation != nil {
					outcome.Score = t.Evaluation.Score
				}
				if t.Iteration != nil {
					outcome.StoppedReason = string(t.Iteration.StoppedReason)
				}
				if t.Output != nil {
					outcome.Dir = t.Output.Dir
				}
				summary.Succeeded = append(summary.Succeeded, outcome)
				return nil
			})
		}
	}
	_ = g.Wait()

	sort.Slice(summary.Succeeded, func(i, j int) bool {
		a, b := summary.Succeeded[i], summary.Succeeded[j]
		if a.Resume != b.Resume {
			return a.Resume < b.Resume
		}
		return a.Version < b.Version
	})
	sort.Slice(summary.Failed, func(i, j int) bool {
		a, b := summary.Failed[i], summary.Failed[j]
		if a.Resume != b.Resume {
			return a.Resume < b.Resume
		}
		return a.Version < b.Version
	})

	summary.Cache = p.deps.Cache.Stats()
	summary.Duration = time.Since(started)

	p.logger.Info("processing finished",
		zap.Int("succeeded", len(summary.Succeeded)),
		zap.Int("failed", len(summary.Failed)),
		zap.Int("cache_hits", summary.Cache.Hits),
		zap.Int("cache_misses", summary.Cache.Misses),
		zap.Duration("duration", summary.Duration),
	)

	return summary
}

// process runs the enabled stages in order and returns the failing stage name.
func (p *Processor) process(ctx context.Context, t *Task) (string, error) {
	t.logger.Info("processing resume", zap.String("hash", t.Resume.Hash))

	for _, s := range p.stages {
		if !s.IsEnabled() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return s.Name(), err
		}

		if err := s.Apply(ctx, p.deps, t); err != nil {
			return s.Name(), err
		}
		t.logger.Debug("stage completed", zap.String("stage", s.Name()))
	}
	return "", nil
}

// Err joins the failures of a summary, or returns nil.
func (s *Summary) Err() error {
	errs := make([]error, 0, len(s.Failed))
	for _, f := range s.Failed {
		errs = append(errs, fmt.Errorf("%s (version %d) at %s: %w", f.Resume, f.Version, f.Stage, f.Err))
	}
	return errors.Join(errs...)
}
