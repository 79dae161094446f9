package cmd

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/resume-refiner/internal/iteration"
	"github.com/spigell/resume-refiner/internal/output"
	"github.com/spigell/resume-refiner/internal/recommendations"
)

const (
	app       = "resume-refiner"
	envPrefix = "RESUME_REFINER"
)

type Config struct {
	Iterate         bool                  `mapstructure:"iterate"`
	Input           InputConfig           `mapstructure:"input"`
	Output          OutputConfig          `mapstructure:"output"`
	Processing      ProcessingConfig      `mapstructure:"processing"`
	Scoring         ScoringConfig         `mapstructure:"scoring"`
	Schema          SchemaConfig          `mapstructure:"schema"`
	Recommendations RecommendationsConfig `mapstructure:"recommendations"`
	AI              AIConfig              `mapstructure:"ai"`
}

type InputConfig struct {
	Folder                string `mapstructure:"folder"`
	JobDescriptionsFolder string `mapstructure:"job-descriptions-folder"`
}

type OutputConfig struct {
	Folder string `mapstructure:"folder" validate:"required"`
	Format string `mapstructure:"format" validate:"omitempty,oneof=json toml both"`
}

type ProcessingConfig struct {
	MaxConcurrentRequests int `mapstructure:"max-concurrent-requests" validate:"gte=1,lte=64"`
	VersionsPerJob        int `mapstructure:"versions-per-job" validate:"gte=1,lte=10"`
}

type ScoringConfig struct {
	TargetScore       float64 `mapstructure:"target-score" validate:"gte=0,lte=100"`
	MaxIterations     int     `mapstructure:"max-iterations" validate:"gte=0"`
	MinScoreDelta     float64 `mapstructure:"min-score-delta" validate:"gte=0"`
	IterationStrategy string  `mapstructure:"iteration-strategy" validate:"omitempty,oneof=best_of first_hit patience"`
	IterationPatience int     `mapstructure:"iteration-patience" validate:"gte=0"`
	StopOnRegression  bool    `mapstructure:"stop-on-regression"`
	MaxRegressions    int     `mapstructure:"max-regressions" validate:"gte=0"`
	ScoreCacheEnabled bool    `mapstructure:"score-cache-enabled"`
	WeightsFile       string  `mapstructure:"weights-file"`
}

// Policy converts the scoring section into iteration stopping rules.
func (s ScoringConfig) Policy() iteration.Policy {
	return iteration.Policy{
		TargetScore:      s.TargetScore,
		MaxIterations:    s.MaxIterations,
		MinScoreDelta:    s.MinScoreDelta,
		Strategy:         iteration.ParseStrategy(s.IterationStrategy),
		Patience:         s.IterationPatience,
		StopOnRegression: s.StopOnRegression,
		MaxRegressions:   s.MaxRegressions,
	}
}

type SchemaConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	File       string `mapstructure:"file"`
	MaxRetries int    `mapstructure:"max-retries" validate:"gte=0"`
}

type RecommendationsConfig struct {
	Enabled  bool `mapstructure:"enabled"`
	MaxItems int  `mapstructure:"max-items"`
}

type AIConfig struct {
	Provider         string       `mapstructure:"provider" validate:"omitempty,oneof=gemini"`
	UserInstructions string       `mapstructure:"user-instructions"`
	Gemini           GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey       string   `mapstructure:"api-key"`
	APIKeyFile   string   `mapstructure:"api-key-file"`
	Model        string   `mapstructure:"model"`
	MaxRetries   int      `mapstructure:"max-retries" validate:"gte=0"`
	Temperature  *float32 `mapstructure:"temperature" validate:"omitempty,gte=0,lte=2"`
	MaxLogLength int      `mapstructure:"max-log-length" validate:"gte=0"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "resume-refiner tailors resumes to job descriptions with Gemini and scores the results",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is resume-refiner.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))

	setDefaults(viper.GetViper())

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()
}

func setDefaults(v *viper.Viper) {
	policy := iteration.DefaultPolicy()

	v.SetDefault("iterate", true)

	v.SetDefault("input.folder", "input_resumes")
	v.SetDefault("input.job-descriptions-folder", "job_descriptions")
	v.SetDefault("output.folder", "output")
	v.SetDefault("output.format", output.FormatBoth)

	v.SetDefault("processing.max-concurrent-requests", 1)
	v.SetDefault("processing.versions-per-job", 1)

	v.SetDefault("scoring.target-score", policy.TargetScore)
	v.SetDefault("scoring.max-iterations", policy.MaxIterations)
	v.SetDefault("scoring.min-score-delta", policy.MinScoreDelta)
	v.SetDefault("scoring.iteration-strategy", string(policy.Strategy))
	v.SetDefault("scoring.iteration-patience", policy.Patience)
	v.SetDefault("scoring.stop-on-regression", policy.StopOnRegression)
	v.SetDefault("scoring.max-regressions", policy.MaxRegressions)
	v.SetDefault("scoring.score-cache-enabled", true)
	v.SetDefault("scoring.weights-file", "")

	v.SetDefault("schema.enabled", true)
	v.SetDefault("schema.file", "")
	v.SetDefault("schema.max-retries", 1)

	v.SetDefault("recommendations.enabled", true)
	v.SetDefault("recommendations.max-items", recommendations.DefaultMaxItems)

	v.SetDefault("ai.provider", "gemini")
	v.SetDefault("ai.user-instructions", "")
	v.SetDefault("ai.gemini.api-key", "")
	v.SetDefault("ai.gemini.api-key-file", "")
	v.SetDefault("ai.gemini.model", "gemini-2.5-pro")
	v.SetDefault("ai.gemini.max-retries", 3)
	v.SetDefault("ai.gemini.max-log-length", 200)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// The config file is optional unless it was given explicitly. A file
	// that exists but does not parse is always fatal.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	return decodeConfig(viper.GetViper())
}

func decodeConfig(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := validator.New().Struct(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}
