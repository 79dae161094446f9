// Package input discovers resumes and job descriptions on disk and extracts
// their plain text.
package input

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"go.uber.org/zap"
)

// ResumeExtensions lists the resume formats LoadResumes accepts.
var ResumeExtensions = []string{".txt", ".md", ".tex", ".pdf", ".docx"}

// JobDescriptionExtensions lists the job description formats LoadJobDescriptions accepts.
var JobDescriptionExtensions = []string{".txt", ".md", ".html", ".htm"}

// Resume is a resume file and its extracted text.
type Resume struct {
	Path    string
	Name    string
	Content string
	Hash    string
}

// JobDescription is a job description file. Name is the file name including
// its extension.
type JobDescription struct {
	Path    string
	Name    string
	Content string
}

// Title is the sanitized job title derived from the file name.
func (jd JobDescription) Title() string {
	return SanitizeJobTitle(jd.Name)
}

// LoadResumes walks dir and returns every resume with non-empty text. Files
// that cannot be read are logged and skipped.
func LoadResumes(dir string, logger *zap.Logger) ([]Resume, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	paths, err := scan(dir, ResumeExtensions)
	if err != nil {
		return nil, fmt.Errorf("scan resumes: %w", err)
	}

	resumes := make([]Resume, 0, len(paths))
	for _, path := range paths {
		raw, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("reading resume failed", zap.String("path", path), zap.Error(err))
			continue
		}

		text, err := ExtractText(path)
		if err != nil {
			logger.Warn("extracting resume text failed", zap.String("path", path), zap.Error(err))
			continue
		}
		if strings.TrimSpace(text) == "" {
			logger.Warn("resume has no text, skipping", zap.String("path", path))
			continue
		}

		r := Resume{
			Path:    path,
			Name:    strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
			Content: text,
			Hash:    Hash(raw),
		}
		logger.Debug("loaded resume", zap.String("path", path), zap.String("hash", r.Hash))
		resumes = append(resumes, r)
	}

	return resumes, nil
}

// LoadJobDescriptions walks dir and returns every job description with
// non-empty text.
func LoadJobDescriptions(dir string, logger *zap.Logger) ([]JobDescription, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	paths, err := scan(dir, JobDescriptionExtensions)
	if err != nil {
		return nil, fmt.Errorf("scan job descriptions: %w", err)
	}

	jds := make([]JobDescription, 0, len(paths))
	for _, path := range paths {
		text, err := ExtractText(path)
		if err != nil {
			logger.Warn("reading job description failed", zap.String("path", path), zap.Error(err))
			continue
		}
		if strings.TrimSpace(text) == "" {
			logger.Warn("job description is empty, skipping", zap.String("path", path))
			continue
		}

		jds = append(jds, JobDescription{Path: path, Name: filepath.Base(path), Content: text})
		logger.Info("loaded job description", zap.String("name", filepath.Base(path)))
	}

	return jds, nil
}

// FindJobDescription returns the job description whose file name, with or
// without extension, equals name.
func FindJobDescription(jds []JobDescription, name string) (JobDescription, bool) {
	name = strings.TrimSpace(name)
	for _, jd := range jds {
		if jd.Name == name || strings.TrimSuffix(jd.Name, filepath.Ext(jd.Name)) == name {
			return jd, true
		}
	}
	return JobDescription{}, false
}

// Hash returns the hex SHA-256 of data.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// SanitizeJobTitle turns a job description file name into a token that is safe
// for file names. It falls back to "generic".
func SanitizeJobTitle(name string) string {
	for _, ext := range JobDescriptionExtensions {
		if strings.HasSuffix(strings.ToLower(name), ext) {
			name = name[:len(name)-len(ext)]
		}
	}
	name = strings.ReplaceAll(strings.TrimSpace(name), " ", "_")

	var sb strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-' || r == '.' {
			sb.WriteRune(r)
		}
	}

	if sb.Len() == 0 {
		return "generic"
	}
	return sb.String()
}

func scan(dir string, extensions []string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	allowed := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		allowed[ext] = struct{}{}
	}

	var paths []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		if _, ok := allowed[strings.ToLower(filepath.Ext(path))]; ok {
			paths = append(paths, path)
		}
		return nil
	})
	return paths, err
}
