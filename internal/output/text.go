package output

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spigell/resume-refiner/internal/scoring"
)

const keywordPreview = 20

// RenderText renders a structured resume document as plain text. When the
// document carries a _scoring blob, keyword matches and scores are appended.
func RenderText(doc map[string]any) string {
	var sb strings.Builder
	line := func(format string, args ...any) {
		fmt.Fprintf(&sb, format+"\n", args...)
	}

	info := asMap(doc["personal_info"])
	line("Name: %s", orNA(info["name"]))
	line("Email: %s", orNA(info["email"]))
	for _, field := range []struct{ key, label string }{
		{"phone", "Phone"},
		{"linkedin", "LinkedIn"},
		{"github", "GitHub"},
		{"portfolio", "Portfolio"},
	} {
		if v := str(info[field.key]); v != "" {
			line("%s: %s", field.label, v)
		}
	}
	sb.WriteString("\n")

	if summary := str(doc["summary"]); summary != "" {
		line("Summary:")
		line("%s\n", summary)
	}

	if experience := asList(doc["experience"]); len(experience) > 0 {
		line("Experience:")
		for _, item := range experience {
			job := asMap(item)
			line("  %s - %s", orNA(job["title"]), orNA(job["company"]))

			end := str(job["end_date"])
			if end == "" {
				end = "Present"
			}
			dates := fmt.Sprintf("%s - %s", str(job["start_date"]), end)
			if loc := str(job["location"]); loc != "" {
				dates += " | " + loc
			}
			line("  %s", dates)

			for _, bullet := range bulletLines(job["description"]) {
				line("    • %s", bullet)
			}
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	if education := asList(doc["education"]); len(education) > 0 {
		line("Education:")
		for _, item := range education {
			edu := asMap(item)
			line("  %s", orNA(edu["degree"]))
			line("  %s, %s", orNA(edu["institution"]), str(edu["location"]))
			grad := "Graduation: " + str(edu["graduation_date"])
			if gpa := str(edu["gpa"]); gpa != "" {
				grad += " | GPA: " + gpa
			}
			line("  %s\n", grad)
		}
		sb.WriteString("\n")
	}

	if skills := strList(doc["skills"]); len(skills) > 0 {
		line("Skills:")
		line("%s\n", strings.Join(skills, ", "))
	}

	blob := asMap(doc[scoringKey])
	writeKeywordMatch(&sb, blob)

	if projects := asList(doc["projects"]); len(projects) > 0 {
		line("Projects:")
		for _, item := range projects {
			p := asMap(item)
			line("  %s", orNA(p["name"]))
			line("  %s", orNA(p["description"]))
			if link := str(p["link"]); link != "" {
				line("  Link: %s", link)
			}
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	writeScores(&sb, blob)
	writeRecommendations(&sb, blob)

	return sb.String()
}

func writeKeywordMatch(sb *strings.Builder, blob map[string]any) {
	if blob == nil {
		return
	}

	details := categoryDetails(report(blob, "match"), "keyword_overlap")
	overlap := strList(details["sample_overlap"])
	missing := strList(details["sample_missing"])
	if len(overlap) == 0 && len(missing) == 0 {
		return
	}

	sb.WriteString("Keyword Match:\n")
	if len(overlap) > 0 {
		fmt.Fprintf(sb, "  Matched: %s\n", strings.Join(overlap[:min(len(overlap), keywordPreview)], ", "))
	}
	if len(missing) > 0 {
		fmt.Fprintf(sb, "  Missing: %s\n", strings.Join(missing[:min(len(missing), keywordPreview)], ", "))
	}
	sb.WriteString("\n")
}

func writeScores(sb *strings.Builder, blob map[string]any) {
	if blob == nil {
		return
	}

	sb.WriteString("Scores:\n")
	for _, key := range []string{"iteration_score", "overall", "total"} {
		if v, ok := blob[key]; ok && v != nil {
			fmt.Fprintf(sb, "  Overall: %s\n", number(v))
			break
		}
	}

	for _, group := range []struct{ key, label string }{
		{"resume", "Resume"},
		{"match", "Match"},
		{"job", "Job"},
	} {
		rep := report(blob, group.key)
		if rep == nil {
			continue
		}
		if total, ok := rep["total"]; ok && total != nil {
			fmt.Fprintf(sb, "  %s: %s\n", group.label, number(total))
		}

		for _, c := range categories(rep) {
			if c.weight != nil {
				fmt.Fprintf(sb, "    - %s: %s (weight %s)\n", c.name, number(c.score), number(c.weight))
			} else {
				fmt.Fprintf(sb, "    - %s: %s\n", c.name, number(c.score))
			}
		}
	}
	sb.WriteString("\n")
}

func writeRecommendations(sb *strings.Builder, blob map[string]any) {
	recs := asList(blob["recommendations"])
	if len(recs) == 0 {
		return
	}

	sb.WriteString("Recommendations:\n")
	for _, item := range recs {
		switch r := item.(type) {
		case string:
			fmt.Fprintf(sb, "  - %s\n", r)
		default:
			rec := asMap(r)
			if msg := str(rec["message"]); msg != "" {
				fmt.Fprintf(sb, "  - [%s] %s\n", str(rec["severity"]), msg)
			}
		}
	}
	sb.WriteString("\n")
}

// report accepts both "<key>" and "<key>_report".
func report(blob map[string]any, key string) map[string]any {
	if rep := asMap(blob[key]); rep != nil {
		return rep
	}
	return asMap(blob[key+"_report"])
}

type categoryRow struct {
	name   string
	score  any
	weight any
}

// categories reads both the list layout and the table layout keyed by name.
func categories(rep map[string]any) []categoryRow {
	var rows []categoryRow
	switch cats := rep["categories"].(type) {
	case []any:
		for _, item := range cats {
			c := asMap(item)
			name := str(c["name"])
			if name == "" || c["score"] == nil {
				continue
			}
			rows = append(rows, categoryRow{name: name, score: c["score"], weight: c["weight"]})
		}
	case map[string]any:
		names := make([]string, 0, len(cats))
		for name := range cats {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			c := asMap(cats[name])
			if c == nil || c["score"] == nil {
				continue
			}
			rows = append(rows, categoryRow{name: name, score: c["score"], weight: c["weight"]})
		}
	}
	return rows
}

func categoryDetails(rep map[string]any, name string) map[string]any {
	if rep == nil {
		return nil
	}
	switch cats := rep["categories"].(type) {
	case []any:
		for _, item := range cats {
			c := asMap(item)
			if str(c["name"]) == name {
				return asMap(c["details"])
			}
		}
	case map[string]any:
		return asMap(asMap(cats[name])["details"])
	}
	return nil
}

func asMap(v any) map[string]any {
	switch m := v.(type) {
	case map[string]any:
		return m
	case scoring.Details:
		return m
	case scoring.Report:
		return m.AsMap()
	}
	return nil
}

func asList(v any) []any {
	switch l := v.(type) {
	case []any:
		return l
	case []string:
		out := make([]any, 0, len(l))
		for _, s := range l {
			out = append(out, s)
		}
		return out
	case []map[string]any:
		out := make([]any, 0, len(l))
		for _, m := range l {
			out = append(out, m)
		}
		return out
	}
	return nil
}

func str(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprint(s))
	}
}

func strList(v any) []string {
	var out []string
	for _, item := range asList(v) {
		if s := str(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func orNA(v any) string {
	if s := str(v); s != "" {
		return s
	}
	return "N/A"
}

func bulletLines(v any) []string {
	if s, ok := v.(string); ok {
		var out []string
		for _, l := range strings.Split(s, "\n") {
			if l = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(l), "-•*")); l != "" {
				out = append(out, l)
			}
		}
		return out
	}
	return strList(v)
}

func number(v any) string {
	switch n := v.(type) {
	case float64:
		return fmt.Sprintf("%.2f", n)
	case float32:
		return fmt.Sprintf("%.2f", n)
	default:
		return fmt.Sprint(v)
	}
}
