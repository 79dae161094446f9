// Package output writes the enhanced resume bundle for one resume and job:
// structured JSON and/or TOML, a plain-text rendering, the score tables and a
// manifest.
package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"

	"github.com/spigell/resume-refiner/internal/scoring"
)

// Structured output formats.
const (
	FormatJSON = "json"
	FormatTOML = "toml"
	FormatBoth = "both"
)

const (
	timestampLayout = "20060102_150405"
	scoringKey      = "_scoring"
	metaKey         = "_meta"
	scoresFile      = "scores.toml"
	manifestFile    = "manifest.toml"
)

// Manifest describes how a bundle was produced.
type Manifest struct {
	RunID          string    `toml:"run_id" json:"run_id"`
	CreatedAt      time.Time `toml:"created_at" json:"created_at"`
	Resume         string    `toml:"resume" json:"resume"`
	ResumeHash     string    `toml:"resume_hash,omitempty" json:"resume_hash,omitempty"`
	JobTitle       string    `toml:"job_title" json:"job_title"`
	JobDescription string    `toml:"job_description,omitempty" json:"job_description,omitempty"`
	Version        int       `toml:"version" json:"version"`
	Model          string    `toml:"model,omitempty" json:"model,omitempty"`
	Mode           string    `toml:"mode,omitempty" json:"mode,omitempty"`
	BestScore      float64   `toml:"best_score" json:"best_score"`
	StoppedReason  string    `toml:"stopped_reason,omitempty" json:"stopped_reason,omitempty"`
	Iterations     int       `toml:"iterations" json:"iterations"`
	WeightsSource  string    `toml:"weights_source,omitempty" json:"weights_source,omitempty"`
	Files          []string  `toml:"files" json:"files"`
}

// Bundle is everything written for one resume version.
type Bundle struct {
	// ResumeFile is the source resume path; its base name without extension
	// names the output directory and files.
	ResumeFile string
	JobTitle   string
	// Version is 1-based. Versions above 1 get their own directory.
	Version    int
	ResumeJSON string
	Scoring    map[string]any
	Manifest   Manifest
}

// Result lists what was written.
type Result struct {
	Dir   string
	Files []string
}

// Writer writes bundles under a root folder.
type Writer struct {
	root   string
	format string
	now    func() time.Time
	logger *zap.Logger
}

// New prepares root and checks that it is writable.
func New(root, format string, logger *zap.Logger) (*Writer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	format = strings.ToLower(strings.TrimSpace(format))
	switch format {
	case "":
		format = FormatBoth
	case FormatJSON, FormatTOML, FormatBoth:
	default:
		return nil, fmt.Errorf("unsupported structured output format %q", format)
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve output folder: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create output folder: %w", err)
	}

	probe := filepath.Join(abs, ".write_test")
	if err := os.WriteFile(probe, []byte("test"), 0o600); err != nil {
		return nil, fmt.Errorf("cannot write to output folder %s: %w", abs, err)
	}
	_ = os.Remove(probe)

	return &Writer{root: abs, format: format, now: time.Now, logger: logger}, nil
}

// Root is the absolute output folder.
func (w *Writer) Root() string {
	return w.root
}

// createBundleDir creates parent/name, or parent/name_2, parent/name_3 and so
// on when an earlier bundle already claimed the folder. Resumes that share a
// base name in different formats land in the same parent within one second.
func createBundleDir(parent, name string) (string, error) {
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return "", fmt.Errorf("create bundle folder: %w", err)
	}

	dir := filepath.Join(parent, name)
	for n := 2; ; n++ {
		err := os.Mkdir(dir, 0o755)
		if err == nil {
			return dir, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("create bundle folder: %w", err)
		}
		dir = filepath.Join(parent, fmt.Sprintf("%s_%d", name, n))
	}
}

// Write creates {resume}/{job}/{timestamp} and writes the bundle into it. The
// folder gets a numeric suffix when it already exists.
func (w *Writer) Write(b Bundle) (*Result, error) {
	doc, err := decodeObject(b.ResumeJSON)
	if err != nil {
		return nil, err
	}

	now := w.now()
	stamp := now.Format(timestampLayout)
	if b.Version > 1 {
		stamp = fmt.Sprintf("%s_v%d", stamp, b.Version)
	}

	resumeName := strings.TrimSuffix(filepath.Base(b.ResumeFile), filepath.Ext(b.ResumeFile))
	dir, err := createBundleDir(filepath.Join(w.root, sanitizeSegment(resumeName), sanitizeSegment(b.JobTitle)), sanitizeSegment(stamp))
	if err != nil {
		return nil, err
	}

	meta, _ := doc[metaKey].(map[string]any)
	if meta == nil {
		meta = map[string]any{}
	}
	setDefault(meta, "timestamp", stamp)
	setDefault(meta, "job_title", b.JobTitle)
	setDefault(meta, "source_resume", filepath.Base(b.ResumeFile))
	doc[metaKey] = meta
	if b.Scoring != nil {
		doc[scoringKey] = b.Scoring
	}

	base := sanitizeSegment(resumeName) + "_" + sanitizeSegment(b.JobTitle) + "_enhanced"
	res := &Result{Dir: dir}

	write := func(name string, data []byte) error {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		res.Files = append(res.Files, path)
		w.logger.Debug("wrote output file", zap.String("path", path))
		return nil
	}

	if w.format == FormatJSON || w.format == FormatBoth {
		data, err := encodeJSON(doc)
		if err != nil {
			return nil, err
		}
		if err := write(base+".json", data); err != nil {
			return nil, err
		}
	}

	if w.format == FormatTOML || w.format == FormatBoth {
		data, err := encodeTOML(doc)
		if err != nil {
			return nil, fmt.Errorf("encode resume toml: %w", err)
		}
		if err := write(base+".toml", data); err != nil {
			return nil, err
		}
	}

	if err := write(base+".txt", []byte(RenderText(doc))); err != nil {
		return nil, err
	}

	if b.Scoring != nil {
		data, err := encodeTOML(b.Scoring)
		if err != nil {
			return nil, fmt.Errorf("encode scores: %w", err)
		}
		if err := write(scoresFile, data); err != nil {
			return nil, err
		}
	}

	manifest := b.Manifest
	if manifest.CreatedAt.IsZero() {
		manifest.CreatedAt = now
	}
	manifest.CreatedAt = manifest.CreatedAt.UTC().Truncate(time.Second)
	if manifest.Resume == "" {
		manifest.Resume = filepath.Base(b.ResumeFile)
	}
	if manifest.JobTitle == "" {
		manifest.JobTitle = b.JobTitle
	}
	if manifest.Version == 0 {
		manifest.Version = max(b.Version, 1)
	}
	manifest.Files = make([]string, 0, len(res.Files))
	for _, f := range res.Files {
		manifest.Files = append(manifest.Files, filepath.Base(f))
	}

	data, err := toml.Marshal(manifest)
	if err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	if err := write(manifestFile, data); err != nil {
		return nil, err
	}

	w.logger.Info("wrote resume bundle", zap.String("dir", dir), zap.Int("files", len(res.Files)))
	return res, nil
}

var errNotObject = errors.New("resume json must be an object")

func decodeObject(text string) (map[string]any, error) {
	var doc map[string]any
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return nil, fmt.Errorf("decode resume json: %w", err)
	}
	if doc == nil {
		return nil, errNotObject
	}
	return doc, nil
}

func encodeJSON(doc map[string]any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode resume json: %w", err)
	}
	return buf.Bytes(), nil
}

func encodeTOML(doc map[string]any) ([]byte, error) {
	clean, _ := dropNils(doc).(map[string]any)
	if clean == nil {
		clean = map[string]any{}
	}
	return toml.Marshal(clean)
}

// dropNils removes nil values recursively. TOML has no null.
func dropNils(value any) any {
	switch v := value.(type) {
	case nil:
		return nil
	case scoring.Details:
		return dropNils(map[string]any(v))
	case []map[string]any:
		out := make([]any, 0, len(v))
		for _, item := range v {
			out = append(out, dropNils(item))
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			if clean := dropNils(item); clean != nil {
				out[key] = clean
			}
		}
		return out
	case []any:
		out := make([]any, 0, len(v))
		for _, item := range v {
			if clean := dropNils(item); clean != nil {
				out = append(out, clean)
			}
		}
		return out
	default:
		return v
	}
}

func setDefault(m map[string]any, key string, value any) {
	if s, ok := m[key].(string); ok && s != "" {
		return
	}
	m[key] = value
}

// sanitizeSegment makes s safe as a single path segment on every platform.
func sanitizeSegment(s string) string {
	s = strings.TrimSpace(s)
	if s == "." || s == ".." {
		return "unknown"
	}
	s = strings.ReplaceAll(s, "..", "__")
	s = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`<>:"/\|?*`, r) {
			return '_'
		}
		return r
	}, s)
	if s = strings.TrimSpace(s); s == "" {
		return "unknown"
	}
	return s
}
