// Package scoring implements deterministic, LLM-free heuristics that score a
// structured resume, a job posting and the alignment between the two.
//
// Every category scorer returns a value in [0, 100] together with a free-form
// details map. Category results are combined into a Report with per-group
// weights loaded from a weights document (see LoadWeights).
package scoring

import "fmt"

// Kind names the group a report belongs to.
type Kind string

const (
	KindResume Kind = "resume"
	KindJob    Kind = "job"
	KindMatch  Kind = "match"
)

// Details is an open diagnostic document attached to a category or report.
// Each scorer chooses its own keys.
type Details map[string]any

// CategoryResult is the outcome of a single category scorer.
type CategoryResult struct {
	Name    string  `json:"name"`
	Score   float64 `json:"score"`
	Weight  float64 `json:"weight"`
	Details Details `json:"details"`
}

// Report is a weighted blend of category results.
type Report struct {
	Kind       Kind             `json:"kind"`
	Total      float64          `json:"total"`
	Categories []CategoryResult `json:"categories"`
	Meta       Details          `json:"meta"`
}

// AsMap returns the report as a generic document with the shape
// {kind, total, categories: [{name, score, weight, details}], meta}.
func (r Report) AsMap() map[string]any {
	categories := make([]any, 0, len(r.Categories))
	for _, c := range r.Categories {
		categories = append(categories, map[string]any{
			"name":    c.Name,
			"score":   c.Score,
			"weight":  c.Weight,
			"details": map[string]any(c.Details),
		})
	}

	return map[string]any{
		"kind":       string(r.Kind),
		"total":      r.Total,
		"categories": categories,
		"meta":       map[string]any(r.Meta),
	}
}

// Category looks up a category result by name.
func (r Report) Category(name string) (CategoryResult, bool) {
	for _, c := range r.Categories {
		if c.Name == name {
			return c, true
		}
	}
	return CategoryResult{}, false
}

// Table renders the report in a TOML friendly shape: categories become a table
// keyed by category name instead of a list of tables, and nil values are dropped.
func (r Report) Table() map[string]any {
	out := map[string]any{
		"kind":  string(r.Kind),
		"total": r.Total,
	}

	if meta := Sanitize(map[string]any(r.Meta)); meta != nil {
		out["meta"] = meta
	} else {
		out["meta"] = map[string]any{}
	}

	categories := make(map[string]any, len(r.Categories))
	used := make(map[string]struct{}, len(r.Categories))
	for idx, c := range r.Categories {
		base := c.Name
		if base == "" {
			base = fmt.Sprintf("category_%d", idx)
		}

		key := base
		for suffix := 2; ; suffix++ {
			if _, taken := used[key]; !taken {
				break
			}
			key = fmt.Sprintf("%s_%d", base, suffix)
		}
		used[key] = struct{}{}

		entry := map[string]any{
			"score":  c.Score,
			"weight": c.Weight,
		}
		if details, ok := Sanitize(map[string]any(c.Details)).(map[string]any); ok {
			entry["details"] = details
		} else {
			entry["details"] = map[string]any{}
		}
		categories[key] = entry
	}
	out["categories"] = categories

	return out
}

// Sanitize makes a generic document safe for TOML encoding: nil values are
// dropped and maps nested inside lists are removed.
func Sanitize(value any) any {
	switch v := value.(type) {
	case nil:
		return nil
	case Details:
		return Sanitize(map[string]any(v))
	case map[string]any:
		if v == nil {
			return nil
		}
		out := make(map[string]any, len(v))
		for key, item := range v {
			clean := Sanitize(item)
			if clean == nil {
				continue
			}
			out[key] = clean
		}
		return out
	case map[string]float64:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = item
		}
		return out
	case map[string]bool:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = item
		}
		return out
	case []string:
		if v == nil {
			return []any{}
		}
		out := make([]any, 0, len(v))
		for _, item := range v {
			out = append(out, item)
		}
		return out
	case []any:
		out := make([]any, 0, len(v))
		for _, item := range v {
			switch item.(type) {
			case map[string]any, Details:
				continue
			}
			clean := Sanitize(item)
			if clean == nil {
				continue
			}
			out = append(out, clean)
		}
		return out
	default:
		return v
	}
}
