package cmd

import (
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/resume-refiner/internal/iteration"
	"github.com/spigell/resume-refiner/internal/recommendations"
	"github.com/spigell/resume-refiner/internal/scoring"
)

const testResume = `{
  "personal_info": {"name": "Alice", "email": "alice@example.com"},
  "summary": "Backend engineer building Go services",
  "experience": [{"title": "Backend Engineer", "company": "ACME", "description": [
    "Built Go services handling 2M requests per day",
    "Reduced latency by 35% with Redis caching"
  ]}],
  "education": [{"degree": "BSc"}],
  "skills": ["Go", "Redis", "Kubernetes"]
}`

func newTestViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

func TestDecodeConfigDefaults(t *testing.T) {
	t.Parallel()

	config, err := decodeConfig(newTestViper())
	require.NoError(t, err)

	assert.True(t, config.Iterate)
	assert.Equal(t, iteration.DefaultPolicy(), config.Scoring.Policy())
	assert.True(t, config.Scoring.ScoreCacheEnabled)
	assert.Equal(t, 1, config.Processing.MaxConcurrentRequests)
	assert.Equal(t, 1, config.Processing.VersionsPerJob)
	assert.Equal(t, "both", config.Output.Format)
	assert.Equal(t, recommendations.DefaultMaxItems, config.Recommendations.MaxItems)
	assert.Equal(t, "gemini", config.AI.Provider)
	assert.Nil(t, config.AI.Gemini.Temperature)
}

func TestDecodeConfigOverrides(t *testing.T) {
	t.Parallel()

	v := newTestViper()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(`
iterate: false
scoring:
  target-score: 90
  iteration-strategy: patience
  iteration-patience: 4
  stop-on-regression: false
processing:
  max-concurrent-requests: 4
ai:
  gemini:
    temperature: 0.5
`)))

	config, err := decodeConfig(v)
	require.NoError(t, err)

	assert.False(t, config.Iterate)
	policy := config.Scoring.Policy()
	assert.InDelta(t, 90, policy.TargetScore, 1e-9)
	assert.Equal(t, iteration.StrategyPatience, policy.Strategy)
	assert.Equal(t, 4, policy.Patience)
	assert.False(t, policy.StopOnRegression)
	assert.Equal(t, 3, policy.MaxIterations)
	assert.Equal(t, 4, config.Processing.MaxConcurrentRequests)
	require.NotNil(t, config.AI.Gemini.Temperature)
	assert.InDelta(t, 0.5, *config.AI.Gemini.Temperature, 1e-6)
}

func TestDecodeConfigValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		key   string
		value any
	}{
		{name: "unknown strategy", key: "scoring.iteration-strategy", value: "greedy"},
		{name: "target above 100", key: "scoring.target-score", value: 150},
		{name: "zero concurrency", key: "processing.max-concurrent-requests", value: 0},
		{name: "unknown output format", key: "output.format", value: "yaml"},
		{name: "unknown provider", key: "ai.provider", value: "openai"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			v := newTestViper()
			v.Set(tt.key, tt.value)

			_, err := decodeConfig(v)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid config")
		})
	}
}

func TestScoreDocumentResumeOnly(t *testing.T) {
	t.Parallel()

	scorer := scoring.NewScorerWithWeights(scoring.DefaultWeights(), scoring.DefaultOverallWeights())
	doc, err := scoreDocument(scorer, scoreRequest{ResumeJSON: []byte(testResume)})
	require.NoError(t, err)

	assert.Equal(t, recommendations.ModeResumeOnly, doc["mode"])
	assert.Equal(t, doc["resume"].(map[string]any)["total"], doc["iteration_score"])
	assert.NotContains(t, doc, "match")
	assert.NotContains(t, doc, "weights_source")
	assert.NotEmpty(t, doc["recommendations"])

	out, err := encodeDocument(doc, "toml")
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, toml.Unmarshal(out, &decoded))
	assert.Equal(t, recommendations.ModeResumeOnly, decoded["mode"])
}

func TestScoreDocumentWithJob(t *testing.T) {
	t.Parallel()

	scorer := scoring.NewScorerWithWeights(scoring.DefaultWeights(), scoring.DefaultOverallWeights())
	jd := "Backend Engineer. Go, Redis, Kubernetes and Terraform. Own latency and reliability."

	fromText, err := scoreDocument(scorer, scoreRequest{
		ResumeJSON:     []byte(testResume),
		JobDescription: jd,
		JobName:        "backend.txt",
	})
	require.NoError(t, err)
	assert.Equal(t, recommendations.ModeResumePlusMatch, fromText["mode"])
	for _, key := range []string{"resume", "match", "job", "combined", "keywords"} {
		assert.Contains(t, fromText, key)
	}

	fromJSON, err := scoreDocument(scorer, scoreRequest{
		ResumeJSON: []byte(testResume),
		JobJSON:    []byte(`{"title": "Backend Engineer", "description": "` + jd + `", "url": "https://example.com/jobs/1"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, recommendations.ModeResumePlusMatch, fromJSON["mode"])
	linkQuality := fromJSON["job"].(map[string]any)["categories"].(map[string]any)[scoring.CategoryLinkQuality].(map[string]any)
	assert.Equal(t, "https://example.com/jobs/1", linkQuality["details"].(map[string]any)["url"])

	_, err = scoreDocument(scorer, scoreRequest{ResumeJSON: []byte(testResume), JobJSON: []byte(`[]`)})
	require.Error(t, err)

	_, err = scoreDocument(scorer, scoreRequest{ResumeJSON: []byte(`"text"`)})
	require.Error(t, err)
}

func TestWeightsDocument(t *testing.T) {
	t.Parallel()

	doc := weightsDocument(scoring.NewScorerWithWeights(scoring.DefaultWeights(), scoring.DefaultOverallWeights()))
	assert.Equal(t, "built-in defaults", doc["source"])

	for _, group := range []string{"resume", "job", "match"} {
		sum := 0.0
		for _, w := range doc[group].(map[string]float64) {
			sum += w
		}
		assert.InDelta(t, 1, sum, 1e-9, group)
	}

	out, err := encodeDocument(doc, "json")
	require.NoError(t, err)
	assert.Contains(t, string(out), `"overall"`)
}

func TestRedacted(t *testing.T) {
	t.Parallel()

	config := &Config{AI: AIConfig{Gemini: GeminiConfig{APIKey: "secret", Model: "m"}}}
	safe := redacted(config)

	assert.Equal(t, "***", safe.AI.Gemini.APIKey)
	assert.Equal(t, "m", safe.AI.Gemini.Model)
	assert.Equal(t, "secret", config.AI.Gemini.APIKey)
}

func TestVersionString(t *testing.T) {
	t.Parallel()

	assert.True(t, strings.HasPrefix(versionString(), "resume-refiner version: unknown ("))
}
