package recommendations

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/resume-refiner/internal/scoring"
)

func report(total float64, categories map[string]float64) *scoring.Report {
	r := &scoring.Report{Total: total}
	for _, name := range []string{
		scoring.CategoryCompleteness,
		scoring.CategorySkillsQuality,
		scoring.CategoryExperienceQuality,
		scoring.CategoryImpact,
		scoring.CategoryKeywordOverlap,
		scoring.CategorySkillsOverlap,
		scoring.CategoryRoleAlignment,
		"tone",
	} {
		if score, ok := categories[name]; ok {
			r.Categories = append(r.Categories, scoring.CategoryResult{Name: name, Score: score})
		}
	}
	return r
}

func reasons(recs []Recommendation) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.Reason)
	}
	return out
}

func TestGenerateWithoutScoring(t *testing.T) {
	t.Parallel()

	recs := Generate(Input{}, Options{})
	require.Len(t, recs, 1)
	assert.Equal(t, SeverityWarn, recs[0].Severity)
	assert.Contains(t, recs[0].Message, "No scoring data found")
}

func TestGenerateHealthyResumeOnlyGivesModeHint(t *testing.T) {
	t.Parallel()

	resume := report(90, map[string]float64{
		scoring.CategoryCompleteness:      100,
		scoring.CategorySkillsQuality:     80,
		scoring.CategoryExperienceQuality: 75,
		scoring.CategoryImpact:            70,
	})

	recs := Generate(Input{Mode: ModeResumeOnly, Resume: resume}, Options{})
	require.Len(t, recs, 1)
	assert.Equal(t, "resume_only_mode", recs[0].Reason)
	assert.Equal(t, SeverityInfo, recs[0].Severity)
}

func TestGenerateOrdersBySeverity(t *testing.T) {
	t.Parallel()

	resume := report(40, map[string]float64{
		scoring.CategoryCompleteness:      100,
		scoring.CategorySkillsQuality:     20,
		scoring.CategoryExperienceQuality: 30,
		scoring.CategoryImpact:            10,
		"tone":                            5,
	})

	recs := Generate(Input{Mode: ModeResumeOnly, Resume: resume}, Options{MaxItems: 10})

	got := reasons(recs)
	assert.Equal(t, []string{
		"resume_total_low",
		"resume_experience_quality_low",
		"resume_impact_low",
		"resume_category_low",
		"resume_skills_quality_low",
		"resume_only_mode",
	}, got)

	for i := 1; i < len(recs); i++ {
		assert.LessOrEqual(t, severityRank[recs[i-1].Severity], severityRank[recs[i].Severity])
	}
	assert.Equal(t, "Improve 'tone' (score 5.0). Focus on clarity, accuracy, and concision.", recs[3].Message)
}

func TestGenerateMatchModeWithMissingKeywords(t *testing.T) {
	t.Parallel()

	missing := make([]any, 0, 20)
	for _, kw := range strings.Fields("kubernetes terraform helm grafana kafka redis postgres docker ansible vault consul nomad linux bash python rust spark flink airflow dbt") {
		missing = append(missing, kw)
	}

	match := &scoring.Report{
		Total: 30,
		Categories: []scoring.CategoryResult{
			{Name: scoring.CategoryKeywordOverlap, Score: 20, Details: scoring.Details{"sample_missing": missing}},
			{Name: scoring.CategorySkillsOverlap, Score: 90},
			{Name: scoring.CategoryRoleAlignment, Score: 10},
		},
	}
	resume := report(85, map[string]float64{scoring.CategoryCompleteness: 100})

	recs := Generate(Input{Mode: ModeResumePlusMatch, Resume: resume, Match: match}, Options{MaxItems: 20})

	var keywordRecs []Recommendation
	for _, r := range recs {
		if r.Reason == "missing_keywords" {
			keywordRecs = append(keywordRecs, r)
		}
	}
	require.Len(t, keywordRecs, 2)
	for _, r := range keywordRecs {
		assert.Len(t, r.Meta["keywords"], keywordChunkSize)
		assert.NotContains(t, r.Message, "spark")
	}

	got := reasons(recs)
	assert.ElementsMatch(t, []string{"match_keyword_overlap_low", "match_total_low"}, got[:2])
	assert.Contains(t, got, "match_role_alignment_low")
	assert.NotContains(t, got, "match_skills_overlap_low")
	assert.Equal(t, "match_mode", got[len(got)-1])
}

func TestGenerateLimitsAndThreshold(t *testing.T) {
	t.Parallel()

	resume := report(40, map[string]float64{
		scoring.CategoryCompleteness: 50,
		scoring.CategoryImpact:       50,
	})
	in := Input{Mode: ModeResumeOnly, Resume: resume}

	assert.Len(t, Generate(in, Options{MaxItems: 2}), 2)
	assert.Empty(t, Generate(in, Options{MaxItems: -1}))

	strict := Generate(in, Options{MaxItems: 10, LowScoreThreshold: 30})
	assert.Equal(t, []string{"resume_only_mode"}, reasons(strict))
}

func TestDedupeIgnoresCaseAndSpace(t *testing.T) {
	t.Parallel()

	recs := dedupe([]Recommendation{
		{Message: "Add metrics", Reason: "x"},
		{Message: "  add METRICS ", Reason: "X"},
		{Message: "Add metrics", Reason: "y"},
	})
	assert.Len(t, recs, 2)
}

func TestMessages(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"a", "b"}, Messages([]Recommendation{{Message: "a"}, {Message: "b"}}))
	assert.Empty(t, Messages(nil))
}
