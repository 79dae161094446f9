package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/resume-refiner/internal/ai/gemini"
	"github.com/spigell/resume-refiner/internal/input"
	"github.com/spigell/resume-refiner/internal/logger"
	"github.com/spigell/resume-refiner/internal/output"
	"github.com/spigell/resume-refiner/internal/processor"
	"github.com/spigell/resume-refiner/internal/schema"
	"github.com/spigell/resume-refiner/internal/scoring"
	"github.com/spigell/resume-refiner/internal/scoring/cache"
	"github.com/spigell/resume-refiner/internal/secrets"
)

const (
	PromptYes        = "Yes"
	PromptNo         = "No"
	PromptResumeOnly = "No job description (resume only)"
	geminiAPIKeyEnv  = "GEMINI_API_KEY"
)

var errExit = errors.New("exit requested")

var prompt = promptui.Select{
	Label: "Proceed?",
	Items: []string{PromptYes, PromptNo},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Enhance, iterate, score and write every resume in the input folder",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolP("auto-approve", "y", false, "do not ask for confirmation before processing")
	runCmd.Flags().String("job", "", "job description file name to tailor against (with or without extension)")
	runCmd.Flags().StringP("input", "i", "", "folder with resumes")
	runCmd.Flags().String("job-descriptions", "", "folder with job descriptions")
	runCmd.Flags().StringP("output", "o", "", "output folder")
	runCmd.Flags().Bool("iterate", true, "run the score-driven revise loop")
	runCmd.Flags().Int("versions", 0, "versions to produce per resume and job")
	runCmd.Flags().Int("concurrency", 0, "maximum resumes processed at the same time")

	viper.BindPFlag("input.folder", runCmd.Flags().Lookup("input"))
	viper.BindPFlag("input.job-descriptions-folder", runCmd.Flags().Lookup("job-descriptions"))
	viper.BindPFlag("output.folder", runCmd.Flags().Lookup("output"))
	viper.BindPFlag("iterate", runCmd.Flags().Lookup("iterate"))
	viper.BindPFlag("processing.versions-per-job", runCmd.Flags().Lookup("versions"))
	viper.BindPFlag("processing.max-concurrent-requests", runCmd.Flags().Lookup("concurrency"))
}

// run is the main command for the cli.
func run(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	defer logger.Sync()

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the resume-refiner", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(redacted(config), "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	resumes, err := input.LoadResumes(config.Input.Folder, logger)
	if err != nil {
		logger.Fatal("loading resumes", zap.Error(err))
	}
	if len(resumes) == 0 {
		logger.Info("exiting", zap.String("reason", "no resumes found"), zap.String("folder", config.Input.Folder))
		return
	}
	logger.Info("loaded resumes", zap.Int("count", len(resumes)))

	autoApprove := cmd.Flag("auto-approve").Value.String() == "true"

	jd, err := selectJobDescription(config, cmd.Flag("job").Value.String(), autoApprove, logger)
	if err != nil {
		if errors.Is(err, errExit) {
			return
		}
		logger.Fatal("selecting a job description", zap.Error(err))
	}

	p, err := newProcessor(ctx, config, logger)
	if err != nil {
		logger.Fatal("preparing the processor", zap.Error(err))
	}

	for _, s := range p.Stages() {
		logger.Debug("stage", zap.String("name", s.Name), zap.Bool("enabled", s.Enabled),
			zap.String("reason", s.Reason), zap.Any("details", s.Details))
	}

	if !autoApprove {
		_, action, err := prompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}
		if action != PromptYes {
			logger.Info("exiting", zap.String("reason", "got no from prompt"))
			return
		}
	}

	summary := p.Run(ctx, resumes, jd)

	for _, o := range summary.Succeeded {
		logger.Info("resume refined",
			zap.String("resume", o.Resume),
			zap.Int("version", o.Version),
			zap.Float64("score", o.Score),
			zap.String("stopped_reason", o.StoppedReason),
			zap.String("dir", o.Dir),
		)
	}

	if err := summary.Err(); err != nil {
		logger.Fatal("some resumes failed", zap.Int("failed", len(summary.Failed)), zap.Error(err))
	}
}

// selectJobDescription returns nil for a resume-only run.
func selectJobDescription(config *Config, name string, autoApprove bool, logger *zap.Logger) (*input.JobDescription, error) {
	jds, err := input.LoadJobDescriptions(config.Input.JobDescriptionsFolder, logger)
	if err != nil {
		if name != "" {
			return nil, err
		}
		logger.Warn("job descriptions are unavailable, running in resume only mode", zap.Error(err))
		return nil, nil
	}

	if name = strings.TrimSpace(name); name != "" {
		jd, ok := input.FindJobDescription(jds, name)
		if !ok {
			return nil, fmt.Errorf("job description %q not found in %s", name, config.Input.JobDescriptionsFolder)
		}
		return &jd, nil
	}

	if len(jds) == 0 || autoApprove {
		logger.Info("running in resume only mode")
		return nil, nil
	}

	items := make([]string, 0, len(jds)+1)
	for _, jd := range jds {
		items = append(items, jd.Name)
	}
	items = append(items, PromptResumeOnly)

	jdPrompt := promptui.Select{
		Label: "Choose a job description and press ENTER",
		Items: items,
	}

	idx, _, err := jdPrompt.Run()
	if err != nil {
		if errors.Is(err, promptui.ErrInterrupt) {
			return nil, errExit
		}
		return nil, err
	}
	if idx == len(jds) {
		return nil, nil
	}

	return &jds[idx], nil
}

func newProcessor(ctx context.Context, config *Config, logger *zap.Logger) (*processor.Processor, error) {
	tailor, err := newTailor(ctx, config.AI, logger)
	if err != nil {
		return nil, err
	}

	var validator *schema.Validator
	if config.Schema.Enabled {
		validator, err = schema.NewValidator(config.Schema.File)
		if err != nil {
			return nil, err
		}
		logger.Debug("schema validation enabled", zap.String("schema", validator.Source()))
	}

	writer, err := output.New(config.Output.Folder, config.Output.Format, logger)
	if err != nil {
		return nil, err
	}

	return processor.New(processor.Config{
		Iterate:                 config.Iterate,
		Policy:                  config.Scoring.Policy(),
		MaxConcurrentRequests:   config.Processing.MaxConcurrentRequests,
		VersionsPerJob:          config.Processing.VersionsPerJob,
		SchemaValidation:        config.Schema.Enabled,
		SchemaMaxRetries:        config.Schema.MaxRetries,
		Recommendations:         config.Recommendations.Enabled,
		RecommendationsMaxItems: config.Recommendations.MaxItems,
	}, processor.Deps{
		Tailor:    tailor,
		Scorer:    scoring.NewScorer(config.Scoring.WeightsFile, logger),
		Cache:     cache.New(config.Scoring.ScoreCacheEnabled),
		Validator: validator,
		Writer:    writer,
		Logger:    logger,
	})
}

func newTailor(ctx context.Context, cfg AIConfig, logger *zap.Logger) (*gemini.Tailor, error) {
	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != "gemini" {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: cfg.Gemini.APIKey,
		File:  cfg.Gemini.APIKeyFile,
		Env:   geminiAPIKeyEnv,
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file or %s)", err, geminiAPIKeyEnv)
	}

	genLogger := logger.With(zap.Int("ai_retry_attempts", cfg.Gemini.MaxRetries))

	generator, err := gemini.NewGenerator(ctx, gemini.Config{
		APIKey:      apiKey,
		Model:       cfg.Gemini.Model,
		MaxRetries:  cfg.Gemini.MaxRetries,
		Temperature: cfg.Gemini.Temperature,
	}, genLogger)
	if err != nil {
		return nil, err
	}

	tailor := gemini.NewTailor(generator, logger, cfg.Gemini.MaxLogLength)
	tailor.SetPromptOverrides(gemini.PromptOverrides{UserInstructions: cfg.UserInstructions})

	return tailor, nil
}

// redacted returns a copy of config that is safe to log.
func redacted(config *Config) Config {
	c := *config
	if c.AI.Gemini.APIKey != "" {
		c.AI.Gemini.APIKey = "***"
	}
	return c
}
