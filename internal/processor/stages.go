package processor

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/resume-refiner/internal/ai"
	"github.com/spigell/resume-refiner/internal/iteration"
	"github.com/spigell/resume-refiner/internal/output"
	"github.com/spigell/resume-refiner/internal/recommendations"
	"github.com/spigell/resume-refiner/internal/schema"
)

// Stage names.
const (
	StageEnhance   = "enhance"
	StageSchema    = "schema"
	StageIterate   = "iterate"
	StageScore     = "score"
	StageRecommend = "recommend"
	StageWrite     = "write"
)

// Stage is a single step of the per-resume pipeline.
type Stage interface {
	Name() string
	Disable(reason string)
	IsEnabled() bool

	Validate(deps Deps) error
	Apply(ctx context.Context, deps Deps, t *Task) error
}

// Status represents runtime information about a stage.
type Status struct {
	Name    string
	Enabled bool
	Reason  string
	Details map[string]string
}

// base carries the enable/disable bookkeeping shared by all stages.
type base struct {
	disabled bool
	reason   string
}

func (b *base) Disable(reason string) {
	b.disabled = true
	b.reason = reason
}

func (b *base) IsEnabled() bool { return !b.disabled }

// DisableByName marks a stage with the provided name as disabled while keeping it in the list.
func DisableByName(stages []Stage, name, reason string) {
	for _, s := range stages {
		if s.Name() == name {
			s.Disable(reason)
		}
	}
}

// Describe returns status entries for the provided stages.
func Describe(stages []Stage) []Status {
	statuses := make([]Status, 0, len(stages))
	for _, s := range stages {
		if reporter, ok := s.(interface{ Status() Status }); ok {
			statuses = append(statuses, reporter.Status())
			continue
		}
		statuses = append(statuses, Status{Name: s.Name(), Enabled: s.IsEnabled()})
	}
	return statuses
}

type enhanceStage struct{ base }

func (s *enhanceStage) Name() string { return StageEnhance }

func (s *enhanceStage) Validate(deps Deps) error {
	if deps.Tailor == nil {
		return errors.New("tailor is required")
	}
	return nil
}

func (s *enhanceStage) Apply(ctx context.Context, deps Deps, t *Task) error {
	enhanced, err := deps.Tailor.Enhance(ctx, t.Resume.Content, t.jobDescription())
	if err != nil {
		return fmt.Errorf("enhance resume: %w", err)
	}
	t.ResumeJSON = enhanced
	return nil
}

type schemaStage struct {
	base
	maxRetries int
}

func (s *schemaStage) Name() string { return StageSchema }

func (s *schemaStage) Validate(deps Deps) error {
	if deps.Validator == nil {
		return errors.New("schema validator is required")
	}
	return nil
}

func (s *schemaStage) Apply(ctx context.Context, deps Deps, t *Task) error {
	for attempt := 0; ; attempt++ {
		err := deps.Validator.Validate(t.ResumeJSON)
		if err == nil {
			return nil
		}

		if attempt >= s.maxRetries {
			return fmt.Errorf("enhanced resume failed schema validation: %w", err)
		}

		fields := []zap.Field{
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", s.maxRetries),
		}
		var ve *schema.ValidationError
		if errors.As(err, &ve) {
			fields = append(fields, zap.Strings("violations", ve.Lines()))
		} else {
			fields = append(fields, zap.Error(err))
		}
		t.logger.Warn("schema validation failed, asking the model to correct it", fields...)

		fixed, err := deps.Tailor.Revise(ctx, t.ResumeJSON, t.jobDescription(), ai.SchemaFixGoals())
		if err != nil {
			return fmt.Errorf("revise resume for schema: %w", err)
		}
		t.ResumeJSON = fixed
	}
}

func (s *schemaStage) Status() Status {
	return Status{
		Name:    s.Name(),
		Enabled: s.IsEnabled(),
		Reason:  s.reason,
		Details: map[string]string{"max_retries": strconv.Itoa(s.maxRetries)},
	}
}

type iterateStage struct {
	base
	policy iteration.Policy
}

func (s *iterateStage) Name() string { return StageIterate }

func (s *iterateStage) Validate(deps Deps) error {
	if deps.Tailor == nil {
		return errors.New("tailor is required")
	}
	if deps.Scorer == nil {
		return errors.New("scorer is required")
	}
	return nil
}

func (s *iterateStage) Apply(ctx context.Context, deps Deps, t *Task) error {
	scorer := NewIterationScorer(deps.Scorer, deps.Cache, t.jobName())
	controller := iteration.New(deps.Tailor, scorer.Score, s.policy, t.logger)

	res, err := controller.Run(ctx, t.ResumeJSON, t.jobDescription())
	if res != nil {
		t.Iteration = res
		t.ResumeJSON = res.BestResumeJSON
	}
	if err != nil {
		return err
	}

	t.logger.Info("iteration complete",
		zap.Float64("best_score", res.BestScore),
		zap.String("stopped_reason", string(res.StoppedReason)),
	)
	return nil
}

func (s *iterateStage) Status() Status {
	return Status{
		Name:    s.Name(),
		Enabled: s.IsEnabled(),
		Reason:  s.reason,
		Details: map[string]string{"policy": s.policy.String()},
	}
}

type scoreStage struct{ base }

func (s *scoreStage) Name() string { return StageScore }

func (s *scoreStage) Validate(deps Deps) error {
	if deps.Scorer == nil {
		return errors.New("scorer is required")
	}
	return nil
}

func (s *scoreStage) Apply(_ context.Context, deps Deps, t *Task) error {
	ev, err := NewIterationScorer(deps.Scorer, deps.Cache, t.jobName()).CachedEvaluate(t.ResumeJSON, t.jobDescription())
	if err != nil {
		return err
	}
	t.Evaluation = ev

	fields := []zap.Field{
		zap.String("mode", ev.Mode),
		zap.Float64("score", ev.Score),
		zap.Float64("resume_total", ev.Resume.Total),
	}
	if ev.Match != nil {
		fields = append(fields, zap.Float64("match_total", ev.Match.Total))
	}
	t.logger.Info("scored enhanced resume", fields...)
	return nil
}

type recommendStage struct {
	base
	opts recommendations.Options
}

func (s *recommendStage) Name() string { return StageRecommend }

func (s *recommendStage) Validate(Deps) error { return nil }

func (s *recommendStage) Apply(_ context.Context, _ Deps, t *Task) error {
	in := recommendations.Input{}
	if t.Evaluation != nil {
		in.Mode = t.Evaluation.Mode
		in.Resume = &t.Evaluation.Resume
		in.Match = t.Evaluation.Match
	}
	t.Recommendations = recommendations.Generate(in, s.opts)
	return nil
}

func (s *recommendStage) Status() Status {
	return Status{
		Name:    s.Name(),
		Enabled: s.IsEnabled(),
		Reason:  s.reason,
		Details: map[string]string{"max_items": strconv.Itoa(s.opts.MaxItems)},
	}
}

type writeStage struct {
	base
	runID string
}

func (s *writeStage) Name() string { return StageWrite }

func (s *writeStage) Validate(deps Deps) error {
	if deps.Writer == nil {
		return errors.New("output writer is required")
	}
	return nil
}

func (s *writeStage) Apply(_ context.Context, deps Deps, t *Task) error {
	manifest := output.Manifest{
		RunID:         s.runID,
		ResumeHash:    t.Resume.Hash,
		Version:       t.Version,
		WeightsSource: deps.Scorer.Source(),
	}
	if deps.Tailor != nil {
		manifest.Model = deps.Tailor.Model()
	}
	if t.JobDescription != nil {
		manifest.JobDescription = t.JobDescription.Name
	}
	if t.Evaluation != nil {
		manifest.Mode = t.Evaluation.Mode
		manifest.BestScore = t.Evaluation.Score
	}
	if t.Iteration != nil {
		manifest.StoppedReason = string(t.Iteration.StoppedReason)
		manifest.Iterations = len(t.Iteration.History) - 1
	}

	res, err := deps.Writer.Write(output.Bundle{
		ResumeFile: t.Resume.Path,
		JobTitle:   t.JobTitle(),
		Version:    t.Version,
		ResumeJSON: t.ResumeJSON,
		Scoring:    t.scoringBlob(deps),
		Manifest:   manifest,
	})
	if err != nil {
		return fmt.Errorf("write outputs: %w", err)
	}
	t.Output = res
	return nil
}

// scoringBlob is the _scoring document embedded into structured outputs.
func (t *Task) scoringBlob(deps Deps) map[string]any {
	if t.Evaluation == nil {
		return nil
	}
	ev := t.Evaluation

	blob := map[string]any{
		"mode":            ev.Mode,
		"iteration_score": ev.Score,
		"resume":          ev.Resume.Table(),
	}
	if ev.Match != nil {
		blob["match"] = ev.Match.Table()
	}
	if ev.Job != nil {
		blob["job"] = ev.Job.Table()
	}
	for _, key := range []string{"combined", "keywords"} {
		if v, ok := ev.Details[key]; ok {
			blob[key] = v
		}
	}
	if deps.Scorer != nil && deps.Scorer.Source() != "" {
		blob["weights_source"] = deps.Scorer.Source()
	}

	if t.Iteration != nil {
		history := make([]map[string]any, 0, len(t.Iteration.History))
		for _, e := range t.Iteration.History {
			history = append(history, map[string]any{"iteration": e.Iteration, "score": e.Score})
		}
		blob["iteration"] = map[string]any{
			"best_score":     t.Iteration.BestScore,
			"stopped_reason": string(t.Iteration.StoppedReason),
			"history":        history,
		}
	}

	if len(t.Recommendations) > 0 {
		recs := make([]map[string]any, 0, len(t.Recommendations))
		for _, r := range t.Recommendations {
			entry := map[string]any{"message": r.Message, "severity": string(r.Severity)}
			if r.Reason != "" {
				entry["reason"] = r.Reason
			}
			recs = append(recs, entry)
		}
		blob["recommendations"] = recs
	}

	return blob
}

func (t *Task) jobDescription() string {
	if t.JobDescription == nil {
		return ""
	}
	return t.JobDescription.Content
}

func (t *Task) jobName() string {
	if t.JobDescription == nil {
		return ""
	}
	return strings.TrimSpace(t.JobDescription.Name)
}
