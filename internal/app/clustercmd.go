package app

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/Omeraluf/israeli-media-monitor/internal/cli"
	"github.com/Omeraluf/israeli-media-monitor/internal/config"
	"github.com/Omeraluf/israeli-media-monitor/internal/logging"
	"github.com/Omeraluf/israeli-media-monitor/internal/pipeline"
	"github.com/Omeraluf/israeli-media-monitor/internal/snapshot"
)

func runCluster(args []string) int {
	fs := flag.NewFlagSet("cluster", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	output := fs.String("output", "", "Snapshot root directory (overrides MM_OUTPUT_DIR)")
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

	p, err := pipeline.New(rules, logger)
	if err != nil {
		logger.Error().Err(err).Msg("build pipeline failed")
		fmt.Fprintf(os.Stderr, "Failed to build pipeline: %v\n", err)
		return 1
	}

	latest, err := snapshot.LatestDir(cfg.OutputDir)
	if err != nil {
		logger.Error().Err(err).Str("dir", cfg.OutputDir).Msg("locate snapshot failed")
		fmt.Fprintf(os.Stderr, "Failed to locate latest snapshot: %v\n", err)
		return 1
	}
	records, err := snapshot.LoadRecords(latest)
	if err != nil {
		logger.Error().Err(err).Str("dir", latest).Msg("load snapshot failed")
		fmt.Fprintf(os.Stderr, "Failed to load snapshot: %v\n", err)
		return 1
	}

	effective := rules.Clustering.Threshold
	if *threshold > 0 {
		effective = *threshold
	}

	clustering, err := p.Cluster(records, *threshold)
	if err != nil {
		logger.Error().Err(err).Msg("clustering failed")
		fmt.Fprintf(os.Stderr, "Clustering failed: %v\n", err)
		return 1
	}

	dir, err := snapshot.Save(cfg.OutputDir, records, snapshot.RunMeta{
		RunID:      uuid.NewString(),
		Ingested:   len(records),
		Kept:       len(records),
		Threshold:  effective,
		Clusters:   clustering.Clusters,
		Singletons: clustering.Singletons,
		Truncated:  clustering.Truncated,
	})
	if err != nil {
		logger.Error().Err(err).Str("dir", cfg.OutputDir).Msg("save snapshot failed")
		fmt.Fprintf(os.Stderr, "Failed to save snapshot: %v\n", err)
		return 1
	}

	logger.Info().
		Str("snapshot", dir).
		Float64("threshold", effective).
		Int("clusters", clustering.Clusters).
		Int("singletons", clustering.Singletons).
		Msg("re-cluster complete")
	fmt.Printf("Snapshot written to %s (%d clusters, %d singletons)\n", dir, clustering.Clusters, clustering.Singletons)
	return 0
}
