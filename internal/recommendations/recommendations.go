// Package recommendations turns score breakdowns into short, deterministic
// advice. It never calls an LLM and never edits the resume.
package recommendations

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spigell/resume-refiner/internal/scoring"
)

// Severity orders recommendations by urgency.
type Severity string

const (
	SeverityHigh Severity = "high"
	SeverityWarn Severity = "warn"
	SeverityInfo Severity = "info"
)

const (
	// ModeResumeOnly scores resume quality alone.
	ModeResumeOnly = "resume_only"
	// ModeResumePlusMatch blends resume quality with job alignment.
	ModeResumePlusMatch = "resume_plus_match"

	DefaultMaxItems           = 5
	DefaultLowScoreThreshold  = 60.0
	keywordChunkSize          = 8
	maxKeywordRecommendations = 2
)

// Recommendation is a single piece of advice.
type Recommendation struct {
	Message  string         `json:"message" toml:"message"`
	Severity Severity       `json:"severity" toml:"severity"`
	Reason   string         `json:"reason,omitempty" toml:"reason,omitempty"`
	Meta     map[string]any `json:"meta,omitempty" toml:"meta,omitempty"`
}

// Input is the scoring outcome recommendations are derived from. Match is nil
// in resume-only mode.
type Input struct {
	Mode   string
	Resume *scoring.Report
	Match  *scoring.Report
}

// Options tunes generation. Zero values pick the defaults.
type Options struct {
	MaxItems          int
	LowScoreThreshold float64
}

func (o Options) withDefaults() Options {
	if o.MaxItems == 0 {
		o.MaxItems = DefaultMaxItems
	}
	if o.LowScoreThreshold == 0 {
		o.LowScoreThreshold = DefaultLowScoreThreshold
	}
	return o
}

// Generate returns at most opts.MaxItems recommendations ordered by severity,
// then low-score findings first, then shorter messages first.
func Generate(in Input, opts Options) []Recommendation {
	opts = opts.withDefaults()
	if opts.MaxItems < 0 {
		return nil
	}

	if in.Resume == nil && in.Match == nil {
		return limit([]Recommendation{{
			Message:  "No scoring data found. Enable scoring or ensure `_scoring` is embedded in structured outputs.",
			Severity: SeverityWarn,
		}}, opts.MaxItems)
	}

	var recs []Recommendation
	if in.Mode == ModeResumePlusMatch {
		recs = append(recs, Recommendation{
			Message:  "Prioritize changes that improve match to the job description (keywords, requirements coverage) without inventing experience.",
			Severity: SeverityInfo,
			Reason:   "match_mode",
		})
	} else {
		recs = append(recs, Recommendation{
			Message:  "Prioritize resume clarity and impact (strong bullets, quantified outcomes, complete sections).",
			Severity: SeverityInfo,
			Reason:   "resume_only_mode",
		})
	}

	recs = append(recs, fromResume(in.Resume, opts.LowScoreThreshold)...)
	recs = append(recs, fromMatch(in.Match, opts.LowScoreThreshold)...)

	for i, chunk := range chunks(missingKeywords(in.Match), keywordChunkSize) {
		if i == maxKeywordRecommendations {
			break
		}
		recs = append(recs, Recommendation{
			Message:  "Consider adding these job-relevant keywords *only if they are truthful for you*: " + strings.Join(chunk, ", ") + ".",
			Severity: SeverityWarn,
			Reason:   "missing_keywords",
			Meta:     map[string]any{"keywords": chunk},
		})
	}

	return limit(prioritize(dedupe(recs)), opts.MaxItems)
}

// Messages returns only the message texts.
func Messages(recs []Recommendation) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.Message)
	}
	return out
}

var resumeAdvice = map[string]Recommendation{
	scoring.CategoryCompleteness: {
		Message:  "Fill in missing core sections: name, email, summary, experience, education, skills. Ensure each experience entry has bullet points.",
		Severity: SeverityHigh,
		Reason:   "resume_completeness_low",
	},
	scoring.CategorySkillsQuality: {
		Message:  "Refine your skills section: keep skills as short keywords (not sentences), remove duplicates, and aim for ~10–15 relevant skills.",
		Severity: SeverityWarn,
		Reason:   "resume_skills_quality_low",
	},
	scoring.CategoryExperienceQuality: {
		Message:  "Improve experience bullets: start with action verbs, include tools/tech, and add outcomes. Aim for 3–6 bullets per role.",
		Severity: SeverityHigh,
		Reason:   "resume_experience_quality_low",
	},
	scoring.CategoryImpact: {
		Message:  "Increase impact: add quantified results (%, $, time saved, scale) and outcome language (performance, reliability, cost, latency).",
		Severity: SeverityHigh,
		Reason:   "resume_impact_low",
	},
}

var matchAdvice = map[string]Recommendation{
	scoring.CategoryKeywordOverlap: {
		Message:  "Improve keyword alignment: incorporate key terms from the job description into your skills and experience bullets (truthfully).",
		Severity: SeverityHigh,
		Reason:   "match_keyword_overlap_low",
	},
	scoring.CategorySkillsOverlap: {
		Message:  "Improve skills match: ensure your skills section includes the job’s required tools/technologies you actually know, using the exact names.",
		Severity: SeverityWarn,
		Reason:   "match_skills_overlap_low",
	},
	scoring.CategoryRoleAlignment: {
		Message:  "Improve role alignment: adjust your headline/summary and the first 1–2 experience entries to clearly match the target role title.",
		Severity: SeverityWarn,
		Reason:   "match_role_alignment_low",
	},
}

func fromResume(report *scoring.Report, threshold float64) []Recommendation {
	if report == nil {
		return nil
	}

	var recs []Recommendation
	if report.Total < threshold {
		recs = append(recs, Recommendation{
			Message:  "Your resume quality score is low. Focus on completeness, strong experience bullets, and measurable impact.",
			Severity: SeverityHigh,
			Reason:   "resume_total_low",
			Meta:     map[string]any{"resume_total": report.Total},
		})
	}

	for _, c := range report.Categories {
		if c.Name == "" || c.Score >= threshold {
			continue
		}
		if advice, ok := resumeAdvice[c.Name]; ok {
			recs = append(recs, advice)
			continue
		}
		recs = append(recs, Recommendation{
			Message:  fmt.Sprintf("Improve '%s' (score %.1f). Focus on clarity, accuracy, and concision.", c.Name, c.Score),
			Severity: SeverityWarn,
			Reason:   "resume_category_low",
			Meta:     map[string]any{"category": c.Name, "score": c.Score},
		})
	}
	return recs
}

func fromMatch(report *scoring.Report, threshold float64) []Recommendation {
	if report == nil {
		return nil
	}

	var recs []Recommendation
	if report.Total < threshold {
		recs = append(recs, Recommendation{
			Message:  "Your resume-to-job match score is low. Tailor your summary, skills, and top bullets to mirror the job’s wording and requirements.",
			Severity: SeverityHigh,
			Reason:   "match_total_low",
			Meta:     map[string]any{"match_total": report.Total},
		})
	}

	for _, c := range report.Categories {
		if c.Name == "" || c.Score >= threshold {
			continue
		}
		if advice, ok := matchAdvice[c.Name]; ok {
			recs = append(recs, advice)
			continue
		}
		recs = append(recs, Recommendation{
			Message:  fmt.Sprintf("Improve match category '%s' (score %.1f). Tailor content to the job’s responsibilities and requirements.", c.Name, c.Score),
			Severity: SeverityWarn,
			Reason:   "match_category_low",
			Meta:     map[string]any{"category": c.Name, "score": c.Score},
		})
	}
	return recs
}

// missingKeywords reads sample_missing from the keyword_overlap details.
func missingKeywords(report *scoring.Report) []string {
	if report == nil {
		return nil
	}

	c, ok := report.Category(scoring.CategoryKeywordOverlap)
	if !ok {
		return nil
	}

	var raw []string
	switch v := c.Details["sample_missing"].(type) {
	case []string:
		raw = v
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				raw = append(raw, s)
			}
		}
	}

	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func chunks(items []string, size int) [][]string {
	var out [][]string
	for len(items) > 0 {
		n := min(size, len(items))
		out = append(out, items[:n:n])
		items = items[n:]
	}
	return out
}

func dedupe(recs []Recommendation) []Recommendation {
	seen := make(map[[2]string]struct{}, len(recs))
	out := make([]Recommendation, 0, len(recs))
	for _, r := range recs {
		key := [2]string{
			strings.ToLower(strings.TrimSpace(r.Message)),
			strings.ToLower(strings.TrimSpace(r.Reason)),
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out
}

var severityRank = map[Severity]int{SeverityHigh: 0, SeverityWarn: 1, SeverityInfo: 2}

func prioritize(recs []Recommendation) []Recommendation {
	rank := func(s Severity) int {
		if r, ok := severityRank[s]; ok {
			return r
		}
		return 9
	}
	lowFirst := func(r Recommendation) int {
		if strings.HasSuffix(r.Reason, "_low") {
			return 0
		}
		return 1
	}

	sort.SliceStable(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if rank(a.Severity) != rank(b.Severity) {
			return rank(a.Severity) < rank(b.Severity)
		}
		if lowFirst(a) != lowFirst(b) {
			return lowFirst(a) < lowFirst(b)
		}
		return len([]rune(a.Message)) < len([]rune(b.Message))
	})
	return recs
}

func limit(recs []Recommendation, n int) []Recommendation {
	if len(recs) > n {
		return recs[:n]
	}
	return recs
}
