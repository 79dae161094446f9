package input

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadResumes(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "alice.txt", "Alice\nGo engineer")
	writeFile(t, dir, "nested/bob.md", "# Bob")
	writeFile(t, dir, "empty.txt", "   \n")
	writeFile(t, dir, "notes.json", `{"a": 1}`)
	writeFile(t, dir, ".hidden.txt", "secret")
	writeFile(t, dir, "broken.pdf", "not a pdf")

	core, observed := observer.New(zapcore.WarnLevel)
	resumes, err := LoadResumes(dir, zap.New(core))
	require.NoError(t, err)

	require.Len(t, resumes, 2)
	assert.Equal(t, "alice", resumes[0].Name)
	assert.Equal(t, "Alice\nGo engineer", resumes[0].Content)
	assert.Equal(t, Hash([]byte("Alice\nGo engineer")), resumes[0].Hash)
	assert.Len(t, resumes[0].Hash, 64)
	assert.Equal(t, "bob", resumes[1].Name)

	assert.Equal(t, 1, observed.FilterMessage("resume has no text, skipping").Len())
	assert.Equal(t, 1, observed.FilterMessage("extracting resume text failed").Len())
}

func TestLoadResumesMissingDir(t *testing.T) {
	t.Parallel()

	_, err := LoadResumes(filepath.Join(t.TempDir(), "missing"), nil)
	require.Error(t, err)

	file := writeFile(t, t.TempDir(), "resume.txt", "x")
	_, err = LoadResumes(file, nil)
	require.Error(t, err)
}

func TestLoadJobDescriptions(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "Backend Engineer.txt", "We need Go and Kubernetes.")
	writeFile(t, dir, "sre.html", `<html><head><style>p{}</style><script>var x=1</script></head>
<body><h1>Site Reliability Engineer</h1><p>Own   on-call.</p><ul><li>Terraform</li><li>AWS</li></ul></body></html>`)
	writeFile(t, dir, "blank.md", "")

	jds, err := LoadJobDescriptions(dir, zap.NewNop())
	require.NoError(t, err)
	require.Len(t, jds, 2)

	assert.Equal(t, "Backend Engineer.txt", jds[0].Name)
	assert.Equal(t, "Backend_Engineer", jds[0].Title())

	assert.Equal(t, "sre.html", jds[1].Name)
	assert.Equal(t, "Site Reliability Engineer\nOwn on-call.\nTerraform\nAWS", jds[1].Content)

	jd, ok := FindJobDescription(jds, "Backend Engineer")
	require.True(t, ok)
	assert.Equal(t, jds[0].Path, jd.Path)

	_, ok = FindJobDescription(jds, "sre.html")
	assert.True(t, ok)
	_, ok = FindJobDescription(jds, "devops")
	assert.False(t, ok)
}

func TestHTMLTextLineBreaks(t *testing.T) {
	t.Parallel()

	text, err := HTMLText("<div>Line one<br>Line two</div><noscript>enable js</noscript>")
	require.NoError(t, err)
	assert.Equal(t, "Line one\nLine two", text)
}

func TestExtractTextUnsupported(t *testing.T) {
	t.Parallel()

	path := writeFile(t, t.TempDir(), "photo.png", "png")
	_, err := ExtractText(path)
	require.ErrorIs(t, err, errUnsupported)
}

func TestSanitizeJobTitle(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"":                       "generic",
		"Senior Go Engineer.txt": "Senior_Go_Engineer",
		"  data engineer.MD ":    "data_engineer.MD",
		"platform.md":            "platform",
		"backend_engineer.html":  "backend_engineer",
		"Ops Lead.HTM":           "Ops_Lead",
		"ops/lead (remote).txt":  "opslead_remote",
		"v1.2-release":           "v1.2-release",
		"???":                    "generic",
		"Инженер по данным.txt":  "Инженер_по_данным",
	}

	for in, want := range tests {
		assert.Equal(t, want, SanitizeJobTitle(in), in)
	}
}
