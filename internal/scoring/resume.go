package scoring

import (
	"strings"
	"unicode/utf8"
)

// Resume category names.
const (
	CategoryCompleteness      = "completeness"
	CategorySkillsQuality     = "skills_quality"
	CategoryExperienceQuality = "experience_quality"
	CategoryImpact            = "impact"
)

const (
	skillSaturation     = 12.0
	longSkillLength     = 32
	longSkillPenalty    = 7.5
	longSkillPenaltyCap = 30.0
	bulletSaturation    = 10.0
)

type check struct {
	name   string
	weight float64
	ok     bool
}

// checklistScore returns 100 * the sum of the weights of satisfied checks.
func checklistScore(checks []check) (float64, Details) {
	sum := 0.0
	satisfied := make(map[string]any, len(checks))
	for _, c := range checks {
		satisfied[c.name] = c.ok
		if c.ok {
			sum += c.weight
		}
	}
	return clamp(100 * sum), Details{"checks": satisfied}
}

func resumeCompleteness(r *Resume) (float64, Details) {
	var name, email string
	if r.PersonalInfo != nil {
		name, email = r.PersonalInfo.Name, r.PersonalInfo.Email
	}

	score, details := checklistScore([]check{
		{"has_name", 0.10, strings.TrimSpace(name) != ""},
		{"has_email", 0.10, strings.TrimSpace(email) != ""},
		{"has_summary", 0.15, strings.TrimSpace(r.Summary) != ""},
		{"has_experience", 0.25, len(r.Experience) > 0},
		{"has_education", 0.15, len(r.Education) > 0},
		{"has_skills", 0.20, len(r.Skills) > 0},
		{"has_projects", 0.05, len(r.Projects) > 0},
	})
	details["counts"] = map[string]any{
		"experience": len(r.Experience),
		"education":  len(r.Education),
		"skills":     len(r.Skills),
		"projects":   len(r.Projects),
	}
	return score, details
}

func resumeSkillsQuality(r *Resume) (float64, Details) {
	unique := make(map[string]struct{})
	tooLong := 0
	for _, s := range r.Skills {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		unique[strings.ToLower(s)] = struct{}{}
		if utf8.RuneCountInString(s) > longSkillLength {
			tooLong++
		}
	}

	count := len(unique)
	countScore := 100 * clamp01(float64(count)/skillSaturation)
	penalty := min(float64(tooLong)*longSkillPenalty, longSkillPenaltyCap)

	return clamp(countScore - penalty), Details{
		"unique_skill_count": count,
		"too_long_skills":    tooLong,
	}
}

func resumeExperienceQuality(r *Resume) (float64, Details) {
	if len(r.Experience) == 0 {
		return 0, Details{"reason": "no_experience_entries"}
	}

	bullets := r.AllBullets()
	if len(bullets) == 0 {
		return 15, Details{"reason": "experience_without_bullets"}
	}

	action, quantified := 0, 0
	for _, b := range bullets {
		if looksLikeActionBullet(b) {
			action++
		}
		if containsNumber(b) {
			quantified++
		}
	}

	total := float64(len(bullets))
	actionRatio := float64(action) / total
	quantifiedRatio := float64(quantified) / total

	volume := clamp01(total/bulletSaturation) * 35
	score := volume + actionRatio*35 + quantifiedRatio*30

	return clamp(score), Details{
		"total_bullets":      len(bullets),
		"action_bullets":     action,
		"quantified_bullets": quantified,
		"action_ratio":       actionRatio,
		"quantified_ratio":   quantifiedRatio,
	}
}

func resumeImpact(r *Resume) (float64, Details) {
	if len(r.Experience) == 0 {
		return 0, Details{"reason": "no_experience_entries"}
	}

	bullets := r.AllBullets()
	if len(bullets) == 0 {
		return 10, Details{"reason": "no_bullets"}
	}

	quantified, outcome, strong := 0, 0, 0
	for _, b := range bullets {
		hasNumber := containsNumber(b)
		hasOutcome := containsOutcomeLanguage(b)
		if hasNumber {
			quantified++
		}
		if hasOutcome {
			outcome++
		}
		if looksLikeActionBullet(b) && (hasNumber || hasOutcome) {
			strong++
		}
	}

	n := float64(len(bullets))
	quantifiedRatio := float64(quantified) / n
	outcomeRatio := float64(outcome) / n
	strongRatio := float64(strong) / n

	score := quantifiedRatio*45 + outcomeRatio*35 + strongRatio*20
	return clamp(score), Details{
		"bullets":          len(bullets),
		"quantified":       quantified,
		"outcome":          outcome,
		"strong":           strong,
		"quantified_ratio": quantifiedRatio,
		"outcome_ratio":    outcomeRatio,
		"strong_ratio":     strongRatio,
	}
}

// ScoreResume scores resume quality across completeness, skills, experience and impact.
func (s *Scorer) ScoreResume(r *Resume) Report {
	if r == nil {
		r = &Resume{}
	}

	return Aggregate(KindResume, []CategoryResult{
		category(CategoryCompleteness)(resumeCompleteness(r)),
		category(CategorySkillsQuality)(resumeSkillsQuality(r)),
		category(CategoryExperienceQuality)(resumeExperienceQuality(r)),
		category(CategoryImpact)(resumeImpact(r)),
	}, s.weights.Resume, s.meta())
}

// category wraps a scorer's output into a named, clamped result.
func category(name string) func(float64, Details) CategoryResult {
	return func(score float64, details Details) CategoryResult {
		return CategoryResult{Name: name, Score: clamp(score), Details: details}
	}
}
