package scoring

import (
	"path/filepath"

	"go.uber.org/zap"
)

// Scorer scores resumes, jobs and matches with a fixed set of weights.
// A Scorer is immutable and safe for concurrent use.
type Scorer struct {
	weights Weights
	overall OverallWeights
	source  string
}

// NewScorer loads weights from path. Problems with the weights document are
// logged at debug level and the built-in defaults are used instead.
func NewScorer(path string, logger *zap.Logger) *Scorer {
	if logger == nil {
		logger = zap.NewNop()
	}

	weights, err := loadWeights(path)
	if err != nil && path != "" {
		logger.Debug("using default category weights", zap.String("path", path), zap.Error(err))
	}
	overall, err := loadOverallWeights(path)
	if err != nil && path != "" {
		logger.Debug("using default overall weights", zap.String("path", path), zap.Error(err))
	}

	s := NewScorerWithWeights(weights, overall)
	if path != "" {
		if abs, err := filepath.Abs(path); err == nil {
			s.source = abs
		} else {
			s.source = path
		}
	}
	return s
}

// NewScorerWithWeights builds a Scorer from in-memory weights.
func NewScorerWithWeights(weights Weights, overall OverallWeights) *Scorer {
	return &Scorer{weights: weights, overall: overall}
}

// Weights returns the raw category weights.
func (s *Scorer) Weights() Weights {
	return s.weights
}

// OverallWeights returns the raw resume/match blend.
func (s *Scorer) OverallWeights() OverallWeights {
	return s.overall
}

// Source returns the absolute path of the weights document, if any.
func (s *Scorer) Source() string {
	return s.source
}

func (s *Scorer) meta() Details {
	if s.source == "" {
		return Details{"weights_source": nil}
	}
	return Details{"weights_source": s.source}
}

// CombineIterationScore blends a resume and a match report using the
// Scorer's overall weights.
func (s *Scorer) CombineIterationScore(resume, match Report) (float64, Details) {
	return CombineIterationScore(resume, match, s.overall)
}

// Aggregate assigns normalized weights to results and computes the report total.
// The same rule applies to every group.
func Aggregate(kind Kind, results []CategoryResult, weights WeightTable, meta Details) Report {
	normalized := NormalizeWeights(weights)

	categories := make([]CategoryResult, len(results))
	for i, r := range results {
		r.Score = clamp(r.Score)
		r.Weight = normalized[r.Name]
		categories[i] = r
	}

	if meta == nil {
		meta = Details{}
	}

	return Report{
		Kind:       kind,
		Total:      weightedTotal(categories),
		Categories: categories,
		Meta:       meta,
	}
}

// weightedTotal returns Σ score×weight / Σ weight. When no weight is positive
// it falls back to the plain mean, and to 0 without categories.
func weightedTotal(categories []CategoryResult) float64 {
	if len(categories) == 0 {
		return 0
	}

	totalWeight, acc, sum := 0.0, 0.0, 0.0
	for _, c := range categories {
		totalWeight += c.Weight
		acc += c.Score * c.Weight
		sum += c.Score
	}

	if totalWeight <= 0 {
		return clamp(sum / float64(len(categories)))
	}
	return clamp(acc / totalWeight)
}

// CombineIterationScore blends the resume quality total with the match total.
// When both overall weights normalize to zero the plain mean is used and the
// details record fallback="mean".
func CombineIterationScore(resume, match Report, overall OverallWeights) (float64, Details) {
	raw := overall.Table()
	w := NormalizeWeights(raw)

	details := Details{
		"resume_total": resume.Total,
		"match_total":  match.Total,
		"raw_weights":  map[string]any{"resume": raw["resume"], "match": raw["match"]},
	}

	if w["resume"]+w["match"] <= 0 {
		details["weights"] = map[string]any{"resume": 0.5, "match": 0.5}
		details["fallback"] = "mean"
		return clamp((resume.Total + match.Total) / 2), details
	}

	details["weights"] = map[string]any{"resume": w["resume"], "match": w["match"]}
	details["fallback"] = nil
	return clamp(resume.Total*w["resume"] + match.Total*w["match"]), details
}
