package cmd

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/resume-refiner/internal/input"
	"github.com/spigell/resume-refiner/internal/logger"
	"github.com/spigell/resume-refiner/internal/processor"
	"github.com/spigell/resume-refiner/internal/recommendations"
	"github.com/spigell/resume-refiner/internal/scoring"
)

var scoreCmd = &cobra.Command{
	Use:   "score <resume.json>",
	Short: "Score a structured resume offline, optionally against a job description or a job posting",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		score(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(scoreCmd)

	scoreCmd.Flags().String("jd", "", "job description text file (.txt, .md, .html)")
	scoreCmd.Flags().String("job", "", "job posting JSON file")
	scoreCmd.Flags().StringP("format", "f", "json", "output format: json or toml")
	scoreCmd.Flags().String("weights", "", "weights file (overrides scoring.weights-file)")
}

// scoreRequest is the input of an offline scoring run.
type scoreRequest struct {
	ResumeJSON []byte
	// JobDescription is plain job description text; JobName names it.
	JobDescription string
	JobName        string
	// JobJSON is a structured job posting. It wins over JobDescription.
	JobJSON []byte
}

func score(cmd *cobra.Command, resumePath string) {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	defer logger.Sync()

	format := cmd.Flag("format").Value.String()
	if format != "json" && format != "toml" {
		logger.Fatal("unsupported format", zap.String("format", format))
	}

	weightsFile := cmd.Flag("weights").Value.String()
	if weightsFile == "" {
		weightsFile = viper.GetString("scoring.weights-file")
	}

	req := scoreRequest{}
	if req.ResumeJSON, err = os.ReadFile(resumePath); err != nil {
		logger.Fatal("reading resume", zap.Error(err))
	}

	if jdPath := cmd.Flag("jd").Value.String(); jdPath != "" {
		if req.JobDescription, err = input.ExtractText(jdPath); err != nil {
			logger.Fatal("reading job description", zap.Error(err))
		}
		req.JobName = filepath.Base(jdPath)
	}

	if jobPath := cmd.Flag("job").Value.String(); jobPath != "" {
		if req.JobJSON, err = os.ReadFile(jobPath); err != nil {
			logger.Fatal("reading job posting", zap.Error(err))
		}
	}

	doc, err := scoreDocument(scoring.NewScorer(weightsFile, logger), req)
	if err != nil {
		logger.Fatal("scoring resume", zap.Error(err))
	}

	out, err := encodeDocument(doc, format)
	if err != nil {
		logger.Fatal("encoding scores", zap.Error(err))
	}

	fmt.Println(string(out))
}

// scoreDocument scores the request and returns a document with one table per
// report plus the iteration score and recommendations.
func scoreDocument(scorer *scoring.Scorer, req scoreRequest) (map[string]any, error) {
	resume, err := scoring.ParseResume(req.ResumeJSON)
	if err != nil {
		return nil, err
	}

	doc := map[string]any{}
	var in recommendations.Input

	switch {
	case len(req.JobJSON) > 0:
		job, err := scoring.ParseJob(req.JobJSON)
		if err != nil {
			return nil, err
		}

		resumeReport := scorer.ScoreResume(resume)
		matchReport := scorer.ScoreMatch(resume, job)
		total, combined := scorer.CombineIterationScore(resumeReport, matchReport)

		doc["mode"] = recommendations.ModeResumePlusMatch
		doc["iteration_score"] = total
		doc["combined"] = combined
		doc["resume"] = resumeReport.Table()
		doc["match"] = matchReport.Table()
		doc["job"] = scorer.ScoreJob(job).Table()

		in = recommendations.Input{Mode: recommendations.ModeResumePlusMatch, Resume: &resumeReport, Match: &matchReport}

	default:
		ev, err := processor.NewIterationScorer(scorer, nil, req.JobName).Evaluate(string(req.ResumeJSON), req.JobDescription)
		if err != nil {
			return nil, err
		}

		doc["mode"] = ev.Mode
		doc["iteration_score"] = ev.Score
		doc["resume"] = ev.Resume.Table()
		if ev.Match != nil {
			doc["match"] = ev.Match.Table()
			doc["job"] = ev.Job.Table()
			doc["combined"] = ev.Details["combined"]
			doc["keywords"] = ev.Details["keywords"]
		}

		in = recommendations.Input{Mode: ev.Mode, Resume: &ev.Resume, Match: ev.Match}
	}

	if source := scorer.Source(); source != "" {
		doc["weights_source"] = source
	}

	recs := recommendations.Generate(in, recommendations.Options{})
	if len(recs) > 0 {
		doc["recommendations"] = recs
	}

	return doc, nil
}

func encodeDocument(doc any, format string) ([]byte, error) {
	if format == "toml" {
		return toml.Marshal(doc)
	}
	return json.MarshalIndent(doc, "", "  ")
}
