// Package ai declares the LLM collaborators used to enhance and revise resumes.
package ai

import "context"

// Enhancer turns raw resume text into structured resume JSON, optionally
// tailored to a job description.
type Enhancer interface {
	Enhance(ctx context.Context, resumeText, jobDescription string) (string, error)
}

// Reviser rewrites structured resume JSON towards the given goals. The
// returned document must be a single JSON object.
type Reviser interface {
	Revise(ctx context.Context, resumeJSON, jobDescription string, goals []string) (string, error)
}

// Tailor is an LLM that can both enhance and revise.
type Tailor interface {
	Enhancer
	Reviser
	Model() string
}

// DefaultRevisionGoals are the goals sent with every score-driven revision.
func DefaultRevisionGoals() []string {
	return []string{
		"Improve ATS keyword alignment without lying",
		"Increase quantified impact where possible (keep truthful phrasing)",
		"Keep formatting consistent and concise",
	}
}

// SchemaFixGoals are sent when the enhanced JSON does not match the resume schema.
func SchemaFixGoals() []string {
	return []string{
		"Fix the JSON schema to match the required structure exactly",
		"Do not add markdown fences",
		"Preserve all existing information; only restructure/normalize fields as needed",
	}
}
