package scoring

import (
	"math"
	"strings"
)

// Match category names.
const (
	CategoryKeywordOverlap = "keyword_overlap"
	CategorySkillsOverlap  = "skills_overlap"
	CategoryRoleAlignment  = "role_alignment"
)

const (
	sampleLimit          = 20
	recentTitles         = 3
	multiTokenSkillRatio = 0.6
	missingTitlesScore   = 25
)

func joinNonEmpty(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}

func matchKeywordOverlap(r *Resume, j *Job) (float64, Details) {
	jobTokens := keywords(joinNonEmpty(j.Title, j.Description, j.Company, j.Location))
	resumeTokens := keywords(r.Text())

	if len(jobTokens) == 0 {
		return 0, Details{"reason": "job_has_no_tokens"}
	}

	overlap := jobTokens.intersect(resumeTokens)
	missing := jobTokens.difference(resumeTokens)
	ratio := float64(len(overlap)) / float64(len(jobTokens))

	return clamp(100 * math.Sqrt(clamp01(ratio))), Details{
		"job_token_count":    len(jobTokens),
		"resume_token_count": len(resumeTokens),
		"overlap_count":      len(overlap),
		"missing_count":      len(missing),
		"overlap_ratio":      ratio,
		"sample_overlap":     overlap.sorted(sampleLimit),
		"sample_missing":     missing.sorted(sampleLimit),
	}
}

func matchSkillsOverlap(r *Resume, j *Job) (float64, Details) {
	skills := make(tokenSet)
	for _, s := range r.Skills {
		if s = strings.TrimSpace(s); s != "" {
			skills[strings.ToLower(s)] = struct{}{}
		}
	}

	if len(skills) == 0 {
		return 0, Details{"reason": "resume_has_no_skills"}
	}

	jobTokens := keywords(strings.TrimSpace(j.Title + " " + j.Description))

	// A skill without usable tokens never matches but still counts in the denominator.
	matched := make(tokenSet)
	for skill := range skills {
		tokens := keywords(skill)
		switch {
		case len(tokens) == 0:
			continue
		case len(tokens) == 1:
			if len(tokens.intersect(jobTokens)) == 1 {
				matched[skill] = struct{}{}
			}
		default:
			hits := len(tokens.intersect(jobTokens))
			if float64(hits)/float64(len(tokens)) >= multiTokenSkillRatio {
				matched[skill] = struct{}{}
			}
		}
	}

	ratio := float64(len(matched)) / float64(len(skills))
	return clamp(100 * clamp01(ratio)), Details{
		"resume_skill_count":    len(skills),
		"matched_skill_count":   len(matched),
		"match_ratio":           ratio,
		"sample_matched_skills": matched.sorted(sampleLimit),
	}
}

func matchRoleAlignment(r *Resume, j *Job) (float64, Details) {
	jobTitle := strings.TrimSpace(j.Title)
	if jobTitle == "" {
		return 0, Details{"reason": "missing_job_title"}
	}

	titles := r.Titles(recentTitles)
	if len(titles) == 0 {
		return missingTitlesScore, Details{"reason": "missing_resume_titles"}
	}

	jobTokens := keywords(jobTitle)
	if len(jobTokens) == 0 {
		return 0, Details{"reason": "job_title_no_tokens"}
	}

	best := 0.0
	var bestTitle any
	for _, title := range titles {
		tokens := keywords(title)
		if len(tokens) == 0 {
			continue
		}
		// Ties go to the later title.
		overlap := float64(len(jobTokens.intersect(tokens))) / float64(len(jobTokens))
		if overlap >= best {
			best = overlap
			bestTitle = title
		}
	}

	return clamp(100 * math.Sqrt(clamp01(best))), Details{
		"job_title":          jobTitle,
		"best_resume_title":  bestTitle,
		"best_overlap_ratio": best,
	}
}

// ScoreMatch scores how well a resume aligns with a job posting.
func (s *Scorer) ScoreMatch(r *Resume, j *Job) Report {
	if r == nil {
		r = &Resume{}
	}
	if j == nil {
		j = &Job{}
	}

	return Aggregate(KindMatch, []CategoryResult{
		category(CategoryKeywordOverlap)(matchKeywordOverlap(r, j)),
		category(CategorySkillsOverlap)(matchSkillsOverlap(r, j)),
		category(CategoryRoleAlignment)(matchRoleAlignment(r, j)),
	}, s.weights.Match, s.meta())
}
