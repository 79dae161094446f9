package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/resume-refiner/internal/logger"
	"github.com/spigell/resume-refiner/internal/scoring"
)

var weightsCmd = &cobra.Command{
	Use:   "weights",
	Short: "Print the effective normalized scoring weights",
	Run: func(cmd *cobra.Command, _ []string) {
		weights(cmd)
	},
}

func init() {
	rootCmd.AddCommand(weightsCmd)

	weightsCmd.Flags().StringP("format", "f", "toml", "output format: json or toml")
	weightsCmd.Flags().String("weights", "", "weights file (overrides scoring.weights-file)")
}

func weights(cmd *cobra.Command) {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	defer logger.Sync()

	path := cmd.Flag("weights").Value.String()
	if path == "" {
		path = viper.GetString("scoring.weights-file")
	}

	out, err := encodeDocument(weightsDocument(scoring.NewScorer(path, logger)), cmd.Flag("format").Value.String())
	if err != nil {
		logger.Fatal("encoding weights", zap.Error(err))
	}

	fmt.Println(string(out))
}

// weightsDocument lists the normalized category weights per group and the
// overall blend.
func weightsDocument(scorer *scoring.Scorer) map[string]any {
	normalized := scorer.Weights().Normalized()
	overall := scorer.OverallWeights()

	source := scorer.Source()
	if source == "" {
		source = "built-in defaults"
	}

	return map[string]any{
		"source": source,
		"resume": map[string]float64(normalized.Resume),
		"job":    map[string]float64(normalized.Job),
		"match":  map[string]float64(normalized.Match),
		"overall": map[string]float64{
			"resume": overall.Resume,
			"match":  overall.Match,
		},
	}
}
