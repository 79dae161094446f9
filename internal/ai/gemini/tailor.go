package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"

	"github.com/spigell/resume-refiner/internal/ai"
	"github.com/spigell/resume-refiner/internal/logger"
	"github.com/spigell/resume-refiner/internal/utils"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, system, message string) (string, error)
	Model() string
}

var (
	//go:embed prompts/system.md
	systemPrompt string
	//go:embed prompts/enhance.md
	enhanceTemplate string
	//go:embed prompts/revise.md
	reviseTemplate string
)

const (
	defaultMaxLogLength     = 200
	maxUserInstructionRunes = 1000
	noneValue               = "none"
)

var errNotObject = errors.New("response must be a JSON object at the top level")

// PromptOverrides carries user supplied guidance appended to every prompt.
type PromptOverrides struct {
	UserInstructions string
}

// Tailor enhances and revises resumes through a Gemini generator.
type Tailor struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
	overrides PromptOverrides
}

var _ ai.Tailor = (*Tailor)(nil)

func NewTailor(generator contentGenerator, log *zap.Logger, maxLogLength int) *Tailor {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	model := ""
	if generator != nil {
		model = generator.Model()
	}

	return &Tailor{
		generator: generator,
		logger:    logger.WithCommonFields(log, "gemini", model),
		maxLogLen: maxLogLength,
	}
}

func (t *Tailor) SetPromptOverrides(overrides PromptOverrides) {
	t.overrides = overrides
}

func (t *Tailor) Model() string {
	if t == nil || t.generator == nil {
		return ""
	}
	return t.generator.Model()
}

// Enhance converts raw resume text into structured resume JSON.
func (t *Tailor) Enhance(ctx context.Context, resumeText, jobDescription string) (string, error) {
	if strings.TrimSpace(resumeText) == "" {
		return "", errors.New("resume text is required")
	}

	tailoring := "No job description was provided. Produce a strong general-purpose resume."
	if jd := strings.TrimSpace(jobDescription); jd != "" {
		tailoring = "Tailor the resume specifically to the job description below. " +
			"Highlight relevant skills and experiences, and rephrase accomplishments " +
			"to align with its requirements and keywords.\n\nJob description:\n" + jd
	}

	prompt := fill(enhanceTemplate,
		"{{TAILORING}}", tailoring,
		"{{USER_INSTRUCTIONS}}", sanitizeUserInstructions(t.overrides.UserInstructions),
		"{{RESUME}}", strings.TrimSpace(resumeText),
	)

	return t.generate(ctx, "enhance", prompt)
}

// Revise rewrites structured resume JSON towards goals. Empty goals fall back
// to ai.DefaultRevisionGoals.
func (t *Tailor) Revise(ctx context.Context, resumeJSON, jobDescription string, goals []string) (string, error) {
	current, err := normalizeJSON(resumeJSON)
	if err != nil {
		return "", fmt.Errorf("revise input: %w", err)
	}

	if len(goals) == 0 {
		goals = ai.DefaultRevisionGoals()
	}
	var goalLines strings.Builder
	for i, g := range goals {
		if i > 0 {
			goalLines.WriteString("\n")
		}
		goalLines.WriteString("- " + strings.TrimSpace(g))
	}

	jd := strings.TrimSpace(jobDescription)
	if jd == "" {
		jd = noneValue
	}

	prompt := fill(reviseTemplate,
		"{{GOALS}}", goalLines.String(),
		"{{USER_INSTRUCTIONS}}", sanitizeUserInstructions(t.overrides.UserInstructions),
		"{{JOB_DESCRIPTION}}", jd,
		"{{RESUME_JSON}}", current,
	)

	return t.generate(ctx, "revise", prompt)
}

func (t *Tailor) generate(ctx context.Context, action, prompt string) (string, error) {
	if t.generator == nil {
		return "", errors.New("gemini generator is not configured")
	}

	t.logger.Debug("gemini generate content request",
		zap.String("action", action),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, t.maxLogLen)),
	)

	raw, err := t.generator.GenerateContent(ctx, systemPrompt, prompt)
	if err != nil {
		return "", err
	}

	t.logger.Debug("gemini generate content response",
		zap.String("action", action),
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, t.maxLogLen)),
	)

	out, err := normalizeJSON(raw)
	if err != nil {
		return "", fmt.Errorf("%s response: %w", action, err)
	}
	return out, nil
}

// fill substitutes placeholder/value pairs in a single pass, so values are
// never rescanned for placeholders.
func fill(template string, pairs ...string) string {
	return strings.TrimSpace(strings.NewReplacer(pairs...).Replace(template))
}

// normalizeJSON strips code fences, requires a top-level object and re-encodes
// it with two-space indentation.
func normalizeJSON(raw string) (string, error) {
	cleaned := extractJSON(raw)

	var doc any
	if err := json.Unmarshal([]byte(cleaned), &doc); err != nil {
		return "", fmt.Errorf("parse json: %w", err)
	}
	if _, ok := doc.(map[string]any); !ok {
		return "", errNotObject
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return "", fmt.Errorf("encode json: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

// sanitizeUserInstructions renders free-form guidance as an indented list.
// Square brackets become parentheses so the text cannot open a prompt section.
func sanitizeUserInstructions(input string) string {
	replacer := strings.NewReplacer("[", "(", "]", ")", "\t", " ")

	budget := maxUserInstructionRunes
	var lines []string
	for _, line := range strings.Split(strings.ReplaceAll(input, "\r\n", "\n"), "\n") {
		line = strings.Join(strings.Fields(replacer.Replace(line)), " ")
		if line == "" || budget <= 0 {
			continue
		}
		if runes := []rune(line); len(runes) > budget {
			line = string(runes[:budget])
		}
		budget -= utf8.RuneCountInString(line)
		lines = append(lines, "  - "+line)
	}

	if len(lines) == 0 {
		return "  - " + noneValue
	}
	return strings.Join(lines, "\n")
}
