package output

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const resumeJSON = `{
  "personal_info": {"name": "Ada Lovelace", "email": "ada@example.com", "phone": null},
  "summary": "Engineer <3 math",
  "experience": [
    {"title": "Engineer", "company": "ACME", "start_date": "2020", "description": ["Built the engine", "Cut costs 20%"]}
  ],
  "education": [{"degree": "BSc", "institution": "UoL", "gpa": 3.8}],
  "skills": ["Go", "Kubernetes"],
  "projects": []
}`

func scoringBlob() map[string]any {
	return map[string]any{
		"mode":            "resume_plus_match",
		"iteration_score": 72.5,
		"resume": map[string]any{
			"kind":  "resume",
			"total": 80.0,
			"categories": map[string]any{
				"completeness": map[string]any{"score": 100.0, "weight": 0.3},
				"impact":       map[string]any{"score": 40.0, "weight": 0.2},
			},
		},
		"match": map[string]any{
			"kind":  "match",
			"total": 60.0,
			"categories": map[string]any{
				"keyword_overlap": map[string]any{
					"score":   55.0,
					"weight":  0.5,
					"details": map[string]any{"sample_overlap": []any{"go"}, "sample_missing": []any{"terraform", "aws"}},
				},
			},
		},
		"recommendations": []map[string]any{
			{"message": "Add metrics", "severity": "high", "reason": "resume_impact_low"},
		},
		"weights_source": nil,
	}
}

func newTestWriter(t *testing.T, format string) *Writer {
	t.Helper()

	w, err := New(t.TempDir(), format, zap.NewNop())
	require.NoError(t, err)
	w.now = func() time.Time { return time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC) }
	return w
}

func TestWriteBundle(t *testing.T) {
	t.Parallel()

	w := newTestWriter(t, "")
	res, err := w.Write(Bundle{
		ResumeFile: "/in/ada.pdf",
		JobTitle:   "Backend_Engineer",
		Version:    1,
		ResumeJSON: resumeJSON,
		Scoring:    scoringBlob(),
		Manifest:   Manifest{RunID: "run-1", Mode: "resume_plus_match", BestScore: 72.5, Iterations: 2},
	})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(w.Root(), "ada", "Backend_Engineer", "20260304_050607"), res.Dir)

	names := make([]string, 0, len(res.Files))
	for _, f := range res.Files {
		names = append(names, filepath.Base(f))
	}
	assert.Equal(t, []string{
		"ada_Backend_Engineer_enhanced.json",
		"ada_Backend_Engineer_enhanced.toml",
		"ada_Backend_Engineer_enhanced.txt",
		"scores.toml",
		"manifest.toml",
	}, names)

	raw, err := os.ReadFile(filepath.Join(res.Dir, "ada_Backend_Engineer_enhanced.json"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Engineer <3 math")

	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Contains(t, doc, "_scoring")
	meta := doc["_meta"].(map[string]any)
	assert.Equal(t, "20260304_050607", meta["timestamp"])
	assert.Equal(t, "ada.pdf", meta["source_resume"])

	raw, err = os.ReadFile(filepath.Join(res.Dir, "ada_Backend_Engineer_enhanced.toml"))
	require.NoError(t, err)
	var tomlDoc map[string]any
	require.NoError(t, toml.Unmarshal(raw, &tomlDoc))
	assert.Len(t, tomlDoc["experience"], 1)
	assert.NotContains(t, tomlDoc["personal_info"], "phone")

	raw, err = os.ReadFile(filepath.Join(res.Dir, "manifest.toml"))
	require.NoError(t, err)
	var manifest Manifest
	require.NoError(t, toml.Unmarshal(raw, &manifest))
	assert.Equal(t, "run-1", manifest.RunID)
	assert.Equal(t, "ada.pdf", manifest.Resume)
	assert.Equal(t, "Backend_Engineer", manifest.JobTitle)
	assert.Equal(t, 1, manifest.Version)
	assert.Equal(t, 72.5, manifest.BestScore)
	assert.Len(t, manifest.Files, 4)
	assert.True(t, manifest.CreatedAt.Equal(time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)))

	raw, err = os.ReadFile(filepath.Join(res.Dir, "scores.toml"))
	require.NoError(t, err)
	var scores map[string]any
	require.NoError(t, toml.Unmarshal(raw, &scores))
	assert.Equal(t, 72.5, scores["iteration_score"])
	assert.NotContains(t, scores, "weights_source")
}

func TestWriteFormatsAndVersions(t *testing.T) {
	t.Parallel()

	w := newTestWriter(t, "json")
	res, err := w.Write(Bundle{ResumeFile: "bob.txt", JobTitle: "generic", Version: 2, ResumeJSON: `{"summary": "x"}`})
	require.NoError(t, err)

	assert.Equal(t, "20260304_050607_v2", filepath.Base(res.Dir))
	require.Len(t, res.Files, 3)
	assert.Equal(t, "bob_generic_enhanced.json", filepath.Base(res.Files[0]))
	assert.Equal(t, "bob_generic_enhanced.txt", filepath.Base(res.Files[1]))
	assert.Equal(t, "manifest.toml", filepath.Base(res.Files[2]))

	w = newTestWriter(t, "TOML")
	res, err = w.Write(Bundle{ResumeFile: "bob.txt", JobTitle: "generic", ResumeJSON: `{"summary": "x"}`})
	require.NoError(t, err)
	assert.Equal(t, "bob_generic_enhanced.toml", filepath.Base(res.Files[0]))
}

func TestWriteKeepsSameNamedResumesApart(t *testing.T) {
	t.Parallel()

	w := newTestWriter(t, FormatJSON)
	parent := filepath.Join(w.Root(), "cv", "Backend_Engineer")

	var dirs []string
	for _, file := range []string{"in/cv.pdf", "in/cv.docx", "in/cv.md"} {
		res, err := w.Write(Bundle{ResumeFile: file, JobTitle: "Backend_Engineer", Version: 1, ResumeJSON: resumeJSON})
		require.NoError(t, err, file)
		dirs = append(dirs, res.Dir)

		raw, err := os.ReadFile(filepath.Join(res.Dir, "cv_Backend_Engineer_enhanced.json"))
		require.NoError(t, err, file)
		assert.Contains(t, string(raw), filepath.Base(file))
	}

	assert.Equal(t, []string{
		filepath.Join(parent, "20260304_050607"),
		filepath.Join(parent, "20260304_050607_2"),
		filepath.Join(parent, "20260304_050607_3"),
	}, dirs)

	for _, dir := range dirs {
		_, err := os.Stat(filepath.Join(dir, "manifest.toml"))
		assert.NoError(t, err, dir)
	}
}

func TestWriteRejectsBadInput(t *testing.T) {
	t.Parallel()

	w := newTestWriter(t, FormatBoth)
	for _, doc := range []string{"not json", "[1, 2]", "null"} {
		_, err := w.Write(Bundle{ResumeFile: "a.txt", JobTitle: "x", ResumeJSON: doc})
		require.Error(t, err, doc)
	}

	_, err := New(t.TempDir(), "yaml", nil)
	require.Error(t, err)
}

func TestRenderText(t *testing.T) {
	t.Parallel()

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(resumeJSON), &doc))
	doc[scoringKey] = scoringBlob()

	text := RenderText(doc)

	for _, want := range []string{
		"Name: Ada Lovelace\nEmail: ada@example.com\n\n",
		"Summary:\nEngineer <3 math\n",
		"  Engineer - ACME\n  2020 - Present\n    • Built the engine\n    • Cut costs 20%\n",
		"  BSc\n  UoL, \n  Graduation:  | GPA: 3.8\n",
		"Skills:\nGo, Kubernetes\n",
		"Keyword Match:\n  Matched: go\n  Missing: terraform, aws\n",
		"Scores:\n  Overall: 72.50\n  Resume: 80.00\n    - completeness: 100.00 (weight 0.30)\n    - impact: 40.00 (weight 0.20)\n  Match: 60.00\n",
		"Recommendations:\n  - [high] Add metrics\n",
	} {
		assert.Contains(t, text, want)
	}
	assert.NotContains(t, text, "Phone:")
	assert.NotContains(t, text, "Projects:")
}

func TestRenderTextWithoutScoring(t *testing.T) {
	t.Parallel()

	text := RenderText(map[string]any{"experience": []any{map[string]any{"description": "- one\n* two\n"}}})
	assert.Contains(t, text, "Name: N/A")
	assert.Contains(t, text, "  N/A - N/A\n")
	assert.Contains(t, text, "    • one\n    • two\n")
	assert.NotContains(t, text, "Scores:")
}

func TestSanitizeSegment(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"":            "unknown",
		"..":          "unknown",
		"a..b":        "a__b",
		`x<y>:"z"`:    "x_y___z_",
		"dir/name":    "dir_name",
		"  trimmed  ": "trimmed",
	}

	for in, want := range tests {
		assert.Equal(t, want, sanitizeSegment(in), in)
	}
}
