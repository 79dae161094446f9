package scoring

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Job category names. Completeness is shared with the resume group.
const (
	CategoryClarity                  = "clarity"
	CategoryCompensationTransparency = "compensation_transparency"
	CategoryLinkQuality              = "link_quality"
)

const (
	minDescriptionLength = 200
	descriptionSaturated = 1200.0
	maxSectionHits       = 4
)

var sectionMarkers = []string{
	"requirements",
	"responsibilities",
	"qualifications",
	"what you will",
	"benefits",
	"nice to have",
	"about you",
	"about the role",
}

var httpURL = regexp.MustCompile(`^https?://`)

// present reports whether a job field carries a real value. The literal
// "unknown" is a scraper placeholder and does not count.
func present(s string) bool {
	s = strings.TrimSpace(s)
	return s != "" && !strings.EqualFold(s, "unknown")
}

func jobCompleteness(j *Job) (float64, Details) {
	descriptionLength := utf8.RuneCountInString(strings.TrimSpace(j.Description))

	score, details := checklistScore([]check{
		{"has_title", 0.20, present(j.Title)},
		{"has_company", 0.20, present(j.Company)},
		{"has_location", 0.15, present(j.Location)},
		{"has_description", 0.35, descriptionLength >= minDescriptionLength},
		{"has_url", 0.10, strings.TrimSpace(j.URL) != ""},
	})
	details["description_length"] = descriptionLength
	return score, details
}

func jobClarity(j *Job) (float64, Details) {
	description := strings.TrimSpace(j.Description)
	if description == "" {
		return 0, Details{"reason": "missing_description"}
	}

	length := utf8.RuneCountInString(description)
	lengthScore := 100 * clamp01(float64(length)/descriptionSaturated)

	lower := strings.ToLower(description)
	hits := 0
	for _, marker := range sectionMarkers {
		if strings.Contains(lower, marker) {
			hits++
		}
	}
	sectionScore := 100 * float64(min(hits, maxSectionHits)) / maxSectionHits

	return clamp(lengthScore*0.65 + sectionScore*0.35), Details{
		"description_length": length,
		"section_hits":       hits,
	}
}

func jobCompensation(j *Job) (float64, Details) {
	if strings.TrimSpace(j.Salary) != "" {
		return 100, Details{"has_salary": true}
	}
	return 0, Details{"has_salary": false}
}

func jobLinkQuality(j *Job) (float64, Details) {
	url := strings.TrimSpace(j.URL)
	if url == "" {
		return 0, Details{"reason": "missing_url"}
	}

	if httpURL.MatchString(url) {
		return 100, Details{"url": url, "looks_http": true}
	}
	return 30, Details{"url": url, "looks_http": false}
}

// ScoreJob scores the quality of a job posting.
func (s *Scorer) ScoreJob(j *Job) Report {
	if j == nil {
		j = &Job{}
	}

	return Aggregate(KindJob, []CategoryResult{
		category(CategoryCompleteness)(jobCompleteness(j)),
		category(CategoryClarity)(jobClarity(j)),
		category(CategoryCompensationTransparency)(jobCompensation(j)),
		category(CategoryLinkQuality)(jobLinkQuality(j)),
	}, s.weights.Job, s.meta())
}
