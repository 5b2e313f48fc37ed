package app

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/Omeraluf/israeli-media-monitor/internal/cli"
	"github.com/Omeraluf/israeli-media-monitor/internal/config"
	"github.com/Omeraluf/israeli-media-monitor/internal/logging"
	"github.com/Omeraluf/israeli-media-monitor/internal/pipeline"
	"github.com/Omeraluf/israeli-media-monitor/internal/snapshot"
)

func runProcess(args []string) int {
	fs := flag.NewFlagSet("process", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	input := fs.String("input", "", "Directory of raw headline files (overrides MM_INPUT_DIR)")
	output := fs.String("output", "", "Directory for clustered snapshots (overrides MM_OUTPUT_DIR)")
	rulesPath := fs.String("rules", "", "Rules YAML file (overrides MM_RULES_PATH)")
	threshold := fs.Float64("threshold", 0, "Clustering distance threshold override")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}
	if *input != "" {
		cfg.InputDir = *input
	}
	if *output != "" {
		cfg.OutputDir = *output
	}
	if *rulesPath != "" {
		cfg.RulesPath = *rulesPath
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}

	rules, err := config.LoadRules(cfg.RulesPath)
	if err != nil {
		logger.Error().Err(err).Str("path", cfg.RulesPath).Msg("load rules failed")
		fmt.Fprintf(os.Stderr, "Failed to load rules: %v\n", err)
		return 1
	}
	if *threshold > 0 {
		rules.Clustering.Threshold = *threshold
	}

	p, err := pipeline.New(rules, logger)
	if err != nil {
		logger.Error().Err(err).Msg("build pipeline failed")
		fmt.Fprintf(os.Stderr, "Failed to build pipeline: %v\n", err)
		return 1
	}

	payloads, err := snapshot.LoadRaw(cfg.InputDir)
	if err != nil {
		logger.Error().Err(err).Str("dir", cfg.InputDir).Msg("load raw headlines failed")
		fmt.Fprintf(os.Stderr, "Failed to load raw headlines: %v\n", err)
		return 1
	}

	result, err := p.Run(payloads)
	if err != nil {
		logger.Error().Err(err).Msg("pipeline run failed")
		fmt.Fprintf(os.Stderr, "Pipeline run failed: %v\n", err)
		return 1
	}

	dir, err := snapshot.Save(cfg.OutputDir, result.Records, snapshot.RunMeta{
		RunID:      result.RunID,
		Ingested:   result.Ingested,
		Kept:       len(result.Records),
		Dropped:    result.Dropped,
		Threshold:  rules.Clustering.Threshold,
		Clusters:   result.Clustering.Clusters,
		Singletons: result.Clustering.Singletons,
		Truncated:  result.Clustering.Truncated,
	})
	if err != nil {
		logger.Error().Err(err).Str("dir", cfg.OutputDir).Msg("save snapshot failed")
		fmt.Fprintf(os.Stderr, "Failed to save snapshot: %v\n", err)
		return 1
	}

	logger.Info().
		Str("run_id", result.RunID).
		Str("snapshot", dir).
		Int("kept", len(result.Records)).
		Int("clusters", result.Clustering.Clusters).
		Msg("process complete")
	fmt.Printf("Snapshot written to %s (%d records, %d clusters)\n", dir, len(result.Records), result.Clustering.Clusters)
	return 0
}
