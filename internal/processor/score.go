package processor

import (
	"fmt"

	"github.com/spigell/resume-refiner/internal/input"
	"github.com/spigell/resume-refiner/internal/recommendations"
	"github.com/spigell/resume-refiner/internal/scoring"
	"github.com/spigell/resume-refiner/internal/scoring/cache"
)

const keywordSampleLimit = 20

// Evaluation is the full scoring of one resume draft.
type Evaluation struct {
	Mode    string
	Score   float64
	Details scoring.Details
	Resume  scoring.Report
	Match   *scoring.Report
	Job     *scoring.Report
}

// IterationScorer produces the single score that drives the revise loop.
// Without a job description it is the resume total; with one it blends
// resume quality and match.
type IterationScorer struct {
	scorer  *scoring.Scorer
	cache   *cache.Cache
	jobName string
}

// NewIterationScorer scores against the job description named jobName. The
// name only feeds the synthetic job title.
func NewIterationScorer(scorer *scoring.Scorer, c *cache.Cache, jobName string) *IterationScorer {
	return &IterationScorer{scorer: scorer, cache: c, jobName: jobName}
}

// Score has the iteration.ScoreFunc signature and is served from the cache
// when it is enabled.
func (s *IterationScorer) Score(resumeJSON, jobDescription string) (float64, scoring.Details, error) {
	e, err := s.cachedEntry(resumeJSON, jobDescription)
	if err != nil {
		return 0, nil, err
	}
	return e.Score, e.Details, nil
}

// CachedEvaluate is Evaluate served from the same cache entries as Score.
func (s *IterationScorer) CachedEvaluate(resumeJSON, jobDescription string) (*Evaluation, error) {
	e, err := s.cachedEntry(resumeJSON, jobDescription)
	if err != nil {
		return nil, err
	}

	ev, ok := e.Extra.(*Evaluation)
	if !ok {
		return s.Evaluate(resumeJSON, jobDescription)
	}
	out := *ev
	return &out, nil
}

func (s *IterationScorer) cachedEntry(resumeJSON, jobDescription string) (cache.Entry, error) {
	return s.cache.GetOrComputeEntry(resumeJSON, jobDescription, func() (cache.Entry, error) {
		ev, err := s.Evaluate(resumeJSON, jobDescription)
		if err != nil {
			return cache.Entry{}, err
		}
		return cache.Entry{Score: ev.Score, Details: ev.Details, Extra: ev}, nil
	})
}

// Evaluate scores resumeJSON without consulting the cache.
func (s *IterationScorer) Evaluate(resumeJSON, jobDescription string) (*Evaluation, error) {
	resume, err := scoring.ParseResume([]byte(resumeJSON))
	if err != nil {
		return nil, fmt.Errorf("enhanced %w", err)
	}

	resumeReport := s.scorer.ScoreResume(resume)

	if jobDescription == "" {
		return &Evaluation{
			Mode:   recommendations.ModeResumeOnly,
			Score:  resumeReport.Total,
			Resume: resumeReport,
			Details: scoring.Details{
				"mode":          recommendations.ModeResumeOnly,
				"resume_total":  resumeReport.Total,
				"resume_report": resumeReport.Table(),
			},
		}, nil
	}

	job := s.job(jobDescription)
	matchReport := s.scorer.ScoreMatch(resume, job)
	jobReport := s.scorer.ScoreJob(job)
	score, combined := s.scorer.CombineIterationScore(resumeReport, matchReport)

	return &Evaluation{
		Mode:   recommendations.ModeResumePlusMatch,
		Score:  score,
		Resume: resumeReport,
		Match:  &matchReport,
		Job:    &jobReport,
		Details: scoring.Details{
			"mode":          recommendations.ModeResumePlusMatch,
			"resume_total":  resumeReport.Total,
			"match_total":   matchReport.Total,
			"job_total":     jobReport.Total,
			"resume_report": resumeReport.Table(),
			"match_report":  matchReport.Table(),
			"job_report":    jobReport.Table(),
			"combined":      combined,
			"keywords":      keywordSummary(matchReport),
		},
	}, nil
}

// job builds the minimal posting a bare job description stands for.
func (s *IterationScorer) job(description string) *scoring.Job {
	name := s.jobName
	if name == "" {
		name = "job_description"
	}
	return &scoring.Job{
		Title:       input.SanitizeJobTitle(name),
		Description: description,
		Source:      "job_description",
	}
}

func keywordSummary(match scoring.Report) map[string]any {
	summary := map[string]any{
		"matched": []string{},
		"missing": []string{},
	}

	c, ok := match.Category(scoring.CategoryKeywordOverlap)
	if !ok {
		return summary
	}
	summary["matched"] = capStrings(c.Details["sample_overlap"], keywordSampleLimit)
	summary["missing"] = capStrings(c.Details["sample_missing"], keywordSampleLimit)
	return summary
}

func capStrings(v any, limit int) []string {
	out := []string{}
	switch items := v.(type) {
	case []string:
		out = append(out, items[:min(len(items), limit)]...)
	case []any:
		for _, item := range items {
			if len(out) == limit {
				break
			}
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
	}
	return out
}
